package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/corosim/corosim/agents/avc"
	"github.com/corosim/corosim/agents/protection"
	"github.com/corosim/corosim/agents/vpp"
	"github.com/corosim/corosim/registry"
	"github.com/corosim/corosim/sim"
	"github.com/corosim/corosim/topology"
)

// BusSpec is one bus in a scenario's topology section.
type BusSpec struct {
	ID int `yaml:"id"`
}

// BranchSpec is one branch (line or transformer) in a scenario's topology
// section.
type BranchSpec struct {
	ID   int `yaml:"id"`
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

// TopologySpec is the bus/branch section of a scenario file.
type TopologySpec struct {
	Buses    []BusSpec    `yaml:"buses"`
	Branches []BranchSpec `yaml:"branches"`
}

// AgentSpec configures one example agent to spawn onto the scheduler.
// Kind selects which bundled example the scenario wants: "avc_sensor",
// "avc_controller", "avc_load_monitor", "vpp_oracle", "vpp_device",
// "protection_system", "protection_injector", or "protection_breaker".
type AgentSpec struct {
	Kind         string `yaml:"kind"`
	Name         string `yaml:"name"`
	Entity       int    `yaml:"entity,omitempty"`
	SecondEntity int    `yaml:"second_entity,omitempty"` // protection_injector's transformer target
	Branch       int    `yaml:"branch,omitempty"`
	Device       string `yaml:"device,omitempty"` // "ev_pile" or "ess_unit"
	Stuck        bool   `yaml:"stuck,omitempty"`  // protection_breaker: stuck on trip command
}

// ProtectionSettingSpec attaches a protection.ProtectiveComp to an entity
// before the scenario's protection_system agent starts running, mirroring
// how a vpp_device agent gets its FrequencyControlConfig defaulted at
// spawn time. Kind selects "overcurrent", "distance", or "backup".
type ProtectionSettingSpec struct {
	Entity    int        `yaml:"entity"`
	Kind      string     `yaml:"kind"`
	PickupKA  float64    `yaml:"pickup_ka,omitempty"`
	DelayMS   int        `yaml:"delay_ms,omitempty"`
	StageName string     `yaml:"stage_name,omitempty"`
	ZSetOhm   [3]float64 `yaml:"zset_ohm,omitempty"`
	TMS       [3]int     `yaml:"tms,omitempty"`

	// Backup-only fields: Primary describes the stage this one backs up,
	// Breaker is the breaker entity it commands, and WatchedBreaker is
	// the breaker it checks before tripping.
	Primary        *ProtectionSettingSpec `yaml:"primary,omitempty"`
	Breaker        int                    `yaml:"breaker,omitempty"`
	WatchedBreaker int                    `yaml:"watched_breaker,omitempty"`
}

// Scenario is the top-level shape of a `cosim run`/`cosim topology` input
// file: the network topology plus the agent roster and run parameters.
type Scenario struct {
	Topology           TopologySpec            `yaml:"topology"`
	Agents             []AgentSpec             `yaml:"agents"`
	ProtectionSettings []ProtectionSettingSpec `yaml:"protection_settings"`
	EndTimeMS          int64                   `yaml:"end_time_ms"`
	RealTime           bool                    `yaml:"real_time"`
	RealTimeRate       float64                 `yaml:"real_time_rate"`
}

// LoadScenario reads and parses a scenario file from path.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %q: %w", path, err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario %q: %w", path, err)
	}
	return &sc, nil
}

// BuildTopology constructs a topology.Service from the scenario's
// topology section.
func (sc *Scenario) BuildTopology() (*topology.Service, error) {
	svc := topology.New()

	busIDs := make([]topology.BusID, len(sc.Topology.Buses))
	for i, b := range sc.Topology.Buses {
		busIDs[i] = topology.BusID(b.ID)
	}

	branchIDs := make([]topology.BranchID, len(sc.Topology.Branches))
	endpoints := make([]topology.Endpoints, len(sc.Topology.Branches))
	for i, br := range sc.Topology.Branches {
		branchIDs[i] = topology.BranchID(br.ID)
		endpoints[i] = topology.Endpoints{A: topology.BusID(br.From), B: topology.BusID(br.To)}
	}

	if err := svc.Build(busIDs, branchIDs, endpoints); err != nil {
		return nil, fmt.Errorf("building topology: %w", err)
	}
	return svc, nil
}

// SpawnAgents spawns every agent named in the scenario's roster onto
// sched, wiring shared state through reg and topo as each kind requires.
// An unknown kind, or a protection_injector listed before any
// protection_system, aborts with an error before anything is spawned for
// that entry.
func (sc *Scenario) SpawnAgents(sched *sim.Scheduler, reg *registry.Registry, topo *topology.Service) error {
	var protSys *protection.System

	for _, ps := range sc.ProtectionSettings {
		comp, err := buildProtectiveComp(ps)
		if err != nil {
			return fmt.Errorf("protection_settings: %w", err)
		}
		registry.Attach[protection.ProtectiveComp](reg, registry.Entity(ps.Entity), comp)
	}

	for _, a := range sc.Agents {
		switch a.Kind {
		case "avc_sensor":
			sched.Spawn(agentName(a, "avc-sensor"), avc.SensorTask(sched, avc.DefaultScript()))
		case "avc_controller":
			sched.Spawn(agentName(a, "avc-controller"), avc.ControllerTask(6))
		case "avc_load_monitor":
			sched.Spawn(agentName(a, "avc-load-monitor"), avc.LoadMonitorTask(4))

		case "vpp_oracle":
			sched.Spawn(agentName(a, "vpp-oracle"), vpp.FrequencyOracleTask(sched, 5.0, 500))
		case "vpp_device":
			entity := registry.Entity(a.Entity)
			deviceType, err := parseVPPDevice(a.Device)
			if err != nil {
				return fmt.Errorf("agent %q: %w", a.Name, err)
			}
			registry.Attach(reg, entity, defaultFrequencyControlConfig(deviceType))
			registry.Attach(reg, entity, vpp.PhysicalState{PowerKW: 0, SOC: 0.5})
			sched.Spawn(agentName(a, "vpp-device"), vpp.DeviceResponseTask(reg, entity))

		case "protection_system":
			protSys = protection.NewSystem(reg, sched)
			sched.Spawn(agentName(a, "protection-system"), protSys.Run)
		case "protection_injector":
			if protSys == nil {
				return fmt.Errorf("agent %q: protection_injector requires a protection_system agent earlier in the roster", a.Name)
			}
			sched.Spawn(agentName(a, "protection-injector"),
				protection.FaultInjectorTask(protSys, registry.Entity(a.Entity), registry.Entity(a.SecondEntity)))
		case "protection_breaker":
			entity := registry.Entity(a.Entity)
			if a.Stuck {
				registry.Attach(reg, entity, protection.BreakerConfig{Stuck: true})
			}
			sched.Spawn(agentName(a, "protection-breaker"),
				protection.BreakerAgentTask(reg, entity, topology.BranchID(a.Branch), topo))

		default:
			return fmt.Errorf("agent %q: unknown kind %q", a.Name, a.Kind)
		}
	}
	return nil
}

// buildProtectiveComp constructs the protection.ProtectiveComp a
// ProtectionSettingSpec describes. A "backup" kind recurses into its
// Primary spec and wraps the result in a protection.BackupSetting.
func buildProtectiveComp(spec ProtectionSettingSpec) (protection.ProtectiveComp, error) {
	switch spec.Kind {
	case "overcurrent":
		return protection.OverCurrentSetting{
			PickupKA:  spec.PickupKA,
			DelayMS:   spec.DelayMS,
			StageName: spec.StageName,
		}, nil
	case "distance":
		return protection.DistanceSetting{ZSetOhm: spec.ZSetOhm, TMS: spec.TMS}, nil
	case "backup":
		if spec.Primary == nil {
			return nil, fmt.Errorf("backup setting on entity %d has no primary", spec.Entity)
		}
		primary, err := buildProtectiveComp(*spec.Primary)
		if err != nil {
			return nil, err
		}
		return protection.BackupSetting{
			Primary:        primary,
			DelayMS:        spec.DelayMS,
			Breaker:        registry.Entity(spec.Breaker),
			WatchedBreaker: registry.Entity(spec.WatchedBreaker),
		}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", spec.Kind)
	}
}

func agentName(a AgentSpec, fallback string) string {
	if a.Name != "" {
		return a.Name
	}
	return fallback
}

// parseVPPDevice maps a scenario file's "device" string to the
// vpp.DeviceType it names. An empty string defaults to "ev_pile".
func parseVPPDevice(device string) (vpp.DeviceType, error) {
	switch device {
	case "", "ev_pile":
		return vpp.DeviceEVPile, nil
	case "ess_unit":
		return vpp.DeviceESSUnit, nil
	default:
		return 0, fmt.Errorf("vpp_device: unknown device %q, want \"ev_pile\" or \"ess_unit\"", device)
	}
}

// defaultFrequencyControlConfig returns the illustrative droop/deadband
// tuning used when a scenario names a vpp_device agent without its own
// component wiring: an EV pile's smaller gain and tighter SOC guard band
// reflect its lower power rating relative to an ESS unit. The ESS unit
// tuning matches the example device parameters in vpp_test.go; the EV pile
// tuning does not appear there.
func defaultFrequencyControlConfig(deviceType vpp.DeviceType) vpp.FrequencyControlConfig {
	if deviceType == vpp.DeviceESSUnit {
		return vpp.FrequencyControlConfig{
			Type:            vpp.DeviceESSUnit,
			BasePowerKW:     0,
			GainKWPerHz:     1000,
			DeadbandHz:      0.02,
			MaxOutputKW:     500,
			MinOutputKW:     -500,
			SOCMinThreshold: 0.1,
			SOCMaxThreshold: 0.9,
		}
	}
	return vpp.FrequencyControlConfig{
		Type:            vpp.DeviceEVPile,
		BasePowerKW:     0,
		GainKWPerHz:     200,
		DeadbandHz:      0.02,
		MaxOutputKW:     100,
		MinOutputKW:     -100,
		SOCMinThreshold: 0.2,
		SOCMaxThreshold: 0.8,
	}
}
