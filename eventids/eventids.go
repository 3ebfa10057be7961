// Package eventids centralizes the event channel numbers shared by the
// bundled example agents, grounded on simulation_events_and_data.h's
// constexpr EventId constants. A scenario driver that targets these
// agents keeps these numbers fixed rather than redeclaring them.
package eventids

import "github.com/corosim/corosim/sim"

// General cross-module signalling ids.
const (
	GeneratorReady sim.EventID = 1
	LoadChange     sim.EventID = 2
	BreakerOpened  sim.EventID = 6
	StabilityAlarm sim.EventID = 7
	LoadShed       sim.EventID = 8
	PowerAdjust    sim.EventID = 9
)

// Protection-scenario ids.
const (
	FaultInfo  sim.EventID = 100
	EntityTrip sim.EventID = 101
)

// Frequency / VPP-scenario ids.
const (
	FrequencyUpdate sim.EventID = 200
)

// AVC-scenario ids.
const (
	VoltageChangeAVC sim.EventID = 10000
	LoadChangeAVC    sim.EventID = 10001
)
