// Package vpp implements the virtual-power-plant primary-frequency
// response example scenario: a frequency oracle that broadcasts a
// disturbance-response curve, and per-device response tasks that apply
// deadband/droop/SOC-aware control, grounded on frequency_system.{h,cpp}.
package vpp

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/corosim/corosim/eventids"
	"github.com/corosim/corosim/registry"
	"github.com/corosim/corosim/sim"
)

// DeviceType distinguishes the two resource kinds the reference model
// supports, grounded on FrequencyControlConfigComponent::DeviceType.
type DeviceType int

const (
	DeviceEVPile DeviceType = iota
	DeviceESSUnit
)

// batteryCapacityKWh returns the nominal capacity used for SOC
// integration, matching the hard-coded constants in
// individualDeviceFrequencyResponseTask.
func (d DeviceType) batteryCapacityKWh() float64 {
	if d == DeviceESSUnit {
		return 2000.0
	}
	return 50.0
}

// PhysicalState is the current power output and state of charge of a
// frequency-responsive device, grounded on PhysicalStateComponent.
type PhysicalState struct {
	PowerKW float64
	SOC     float64
}

// FrequencyControlConfig is a device's primary-frequency-response tuning,
// grounded on FrequencyControlConfigComponent.
type FrequencyControlConfig struct {
	Type            DeviceType
	BasePowerKW     float64
	GainKWPerHz     float64
	DeadbandHz      float64
	MaxOutputKW     float64
	MinOutputKW     float64
	SOCMinThreshold float64
	SOCMaxThreshold float64
}

// FrequencyInfo is the payload of eventids.FrequencyUpdate, grounded on
// the FrequencyInfo struct shared across the oracle and its subscribers.
type FrequencyInfo struct {
	SimTimeSeconds float64
	DeviationHz    float64
}

// frequency model coefficients, grounded on frequency_system.cpp's
// P_f_coeff_fs / M_f_coeff_fs / M1_f_coeff_fs / M2_f_coeff_fs / N_f_coeff_fs.
const (
	pCoeff  = 0.0862
	mCoeff  = 0.1404
	m1Coeff = 0.1577
	m2Coeff = 0.0397
	nCoeff  = 0.125
)

// CalculateFrequencyDeviation is the simplified single-machine-equivalent
// frequency response curve, ported from calculate_frequency_deviation.
// tRelative is seconds since the disturbance; a negative value (before
// the disturbance) always yields zero.
func CalculateFrequencyDeviation(tRelative float64) float64 {
	if tRelative < 0 {
		return 0.0
	}
	return -(mCoeff+(m1Coeff*math.Sin(mCoeff*tRelative)-mCoeff*math.Cos(mCoeff*tRelative))) /
		m2Coeff * math.Exp(-nCoeff*tRelative) * pCoeff
}

// FrequencyOracleTask periodically (every stepMS of simulated time)
// computes the frequency deviation relative to disturbanceStartS and
// broadcasts it on eventids.FrequencyUpdate, matching frequencyOracleTask.
// It runs until its task is cancelled or the scheduler stops.
func FrequencyOracleTask(sched *sim.Scheduler, disturbanceStartS float64, stepMS sim.Duration) func(*sim.Task) {
	return func(t *sim.Task) {
		for {
			if err := sim.Delay(t, stepMS); err != nil {
				return
			}

			simTimeS := float64(sched.Now()) / 1000.0
			relativeS := simTimeS - disturbanceStartS
			devHz := CalculateFrequencyDeviation(relativeS)

			info := FrequencyInfo{SimTimeSeconds: simTimeS, DeviationHz: devHz}
			if err := sim.TriggerEvent(sched, eventids.FrequencyUpdate, info); err != nil {
				logrus.WithError(err).Warn("vpp: frequency update delivery had mismatched subscribers")
			}
		}
	}
}

const (
	frequencyChangeThresholdHz = 0.005
	updateTimeThresholdSeconds = 0.5
)

// DeviceResponseTask tracks one device's PhysicalState and
// FrequencyControlConfig components in reg, and on every frequency update
// that is new enough (changed beyond the threshold, or stale by more than
// the time threshold) re-integrates SOC over the elapsed interval and
// recomputes a droop-and-deadband power setpoint, matching
// individualDeviceFrequencyResponseTask. The task returns if the device
// has no registered components.
func DeviceResponseTask(reg *registry.Registry, device registry.Entity) func(*sim.Task) {
	return func(t *sim.Task) {
		cfg, ok := registry.Get[FrequencyControlConfig](reg, device)
		if !ok {
			logrus.WithField("entity", device).Error("vpp: device missing frequency control config, task terminating")
			return
		}

		lastProcessedEventS := -1.0
		lastFullUpdateS := -1.0
		lastFullUpdateDevHz := 0.0

		for {
			info, err := sim.Await[FrequencyInfo](t, eventids.FrequencyUpdate)
			if err != nil {
				return
			}
			if info.SimTimeSeconds <= lastProcessedEventS {
				continue
			}
			lastProcessedEventS = info.SimTimeSeconds

			performUpdate := false
			dt := 0.0
			if lastFullUpdateS < 0 {
				performUpdate = true
			} else {
				dt = info.SimTimeSeconds - lastFullUpdateS
				if dt < 0 {
					dt = 0
				}
				if math.Abs(info.DeviationHz-lastFullUpdateDevHz) > frequencyChangeThresholdHz {
					performUpdate = true
				}
				if dt >= updateTimeThresholdSeconds {
					performUpdate = true
				}
			}
			if !performUpdate {
				continue
			}

			state, ok := registry.Get[PhysicalState](reg, device)
			if !ok {
				return
			}

			if lastFullUpdateS >= 0 && dt > 1e-6 {
				energyChangeKWh := state.PowerKW * (dt / 3600.0)
				capacity := cfg.Type.batteryCapacityKWh()
				if capacity > 0 {
					state.SOC -= energyChangeKWh / capacity
				}
				state.SOC = math.Max(0.0, math.Min(1.0, state.SOC))
			}

			newPowerKW := cfg.BasePowerKW
			absDevHz := math.Abs(info.DeviationHz)
			if absDevHz > cfg.DeadbandHz {
				if info.DeviationHz < 0 {
					effectiveDrop := info.DeviationHz + cfg.DeadbandHz
					newPowerKW = -cfg.GainKWPerHz * effectiveDrop
					if cfg.Type == DeviceEVPile {
						if newPowerKW > 0 && state.SOC < cfg.SOCMinThreshold {
							newPowerKW = 0.0
						} else if state.SOC < cfg.SOCMinThreshold && cfg.BasePowerKW < 0 && newPowerKW < 0 {
							newPowerKW = 0.0
						}
					}
				} else {
					effectiveRise := info.DeviationHz - cfg.DeadbandHz
					newPowerKW = cfg.BasePowerKW - cfg.GainKWPerHz*effectiveRise
				}
			}
			newPowerKW = math.Max(cfg.MinOutputKW, math.Min(cfg.MaxOutputKW, newPowerKW))

			if cfg.Type == DeviceEVPile {
				if newPowerKW < 0 && state.SOC >= cfg.SOCMaxThreshold {
					newPowerKW = 0.0
				}
				if newPowerKW > 0 && state.SOC <= cfg.SOCMinThreshold {
					newPowerKW = 0.0
				}
			}

			state.PowerKW = newPowerKW
			lastFullUpdateS = info.SimTimeSeconds
			lastFullUpdateDevHz = info.DeviationHz
			registry.Attach(reg, device, state)
		}
	}
}
