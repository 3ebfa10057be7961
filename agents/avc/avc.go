// Package avc implements the automatic-voltage-control example scenario:
// a sensor task that scripts a sequence of voltage/load disturbances, and
// a controller task that classifies each voltage reading into a
// switching-action recommendation, grounded on avc_simulation.cpp's
// sensor_coroutine_complex_avc and avc_coroutine_complex_avc.
package avc

import (
	"github.com/sirupsen/logrus"

	"github.com/corosim/corosim/eventids"
	"github.com/corosim/corosim/sim"
)

// VoltageReading is the payload of eventids.VoltageChangeAVC, grounded on
// VoltageDataAvc.
type VoltageReading struct {
	VoltagePU float64
	Timestamp sim.TimePoint
}

// LoadReading is the payload of eventids.LoadChangeAVC, grounded on
// LoadDataAvc.
type LoadReading struct {
	LoadMW    float64
	BusID     string
	Timestamp sim.TimePoint
}

// Disturbance is one scripted step of the sensor's script: wait Delay,
// then publish either a voltage or a load reading (never both).
type Disturbance struct {
	delay   sim.Duration
	voltage *float64
	load    *LoadReading
}

// DefaultScript reproduces the ten-step sensor timeline from
// sensor_coroutine_complex_avc, in milliseconds.
func DefaultScript() []Disturbance {
	v := func(x float64) *float64 { return &x }
	return []Disturbance{
		{delay: 1000, voltage: v(1.00)},
		{delay: 0, load: &LoadReading{LoadMW: 100.0, BusID: "busA"}},
		{delay: 4000, load: &LoadReading{LoadMW: 150.0, BusID: "busA"}},
		{delay: 2000, voltage: v(0.93)},
		{delay: 5000, load: &LoadReading{LoadMW: 80.0, BusID: "busB"}},
		{delay: 3000, voltage: v(0.88)},
		{delay: 5000, load: &LoadReading{LoadMW: 70.0, BusID: "busA"}},
		{delay: 2000, voltage: v(0.97)},
		{delay: 3000, voltage: v(1.08)},
		{delay: 5000, voltage: v(1.01)},
	}
}

// SensorTask publishes script in order, pausing Delay(step.delay) before
// each publication, then waits a final 5 seconds so subscribers have time
// to react to the last event before the task completes.
func SensorTask(sched *sim.Scheduler, script []Disturbance) func(*sim.Task) {
	return func(t *sim.Task) {
		for _, step := range script {
			if err := sim.Delay(t, step.delay); err != nil {
				logrus.WithError(err).Warn("avc: sensor delay interrupted")
				return
			}

			switch {
			case step.voltage != nil:
				reading := VoltageReading{VoltagePU: *step.voltage, Timestamp: sched.Now()}
				if err := sim.TriggerEvent(sched, eventids.VoltageChangeAVC, reading); err != nil {
					logrus.WithError(err).Warn("avc: voltage event delivery had mismatched subscribers")
				}
			case step.load != nil:
				reading := *step.load
				reading.Timestamp = sched.Now()
				if err := sim.TriggerEvent(sched, eventids.LoadChangeAVC, reading); err != nil {
					logrus.WithError(err).Warn("avc: load event delivery had mismatched subscribers")
				}
			}
		}
		_ = sim.Delay(t, 5000)
	}
}

// SwitchingAction is the controller's recommended response to a voltage
// band, grounded on the five-way if/else chain in
// avc_coroutine_complex_avc.
type SwitchingAction int

const (
	ActionNone SwitchingAction = iota
	ActionRaiseEmergency
	ActionRaiseNormal
	ActionLowerNormal
	ActionLowerEmergency
)

func (a SwitchingAction) String() string {
	switch a {
	case ActionRaiseEmergency:
		return "emergency capacitor bank in / alarm"
	case ActionRaiseNormal:
		return "capacitor bank in or tap raise"
	case ActionLowerNormal:
		return "capacitor bank out or tap lower"
	case ActionLowerEmergency:
		return "emergency capacitor bank out / alarm"
	default:
		return "no action"
	}
}

// Classify maps a pu voltage reading into a SwitchingAction, using the
// same band boundaries as the reference controller: <0.90 severe low,
// <0.95 low, >1.10 severe high, >1.05 high, otherwise normal.
func Classify(voltagePU float64) SwitchingAction {
	switch {
	case voltagePU < 0.90:
		return ActionRaiseEmergency
	case voltagePU < 0.95:
		return ActionRaiseNormal
	case voltagePU > 1.10:
		return ActionLowerEmergency
	case voltagePU > 1.05:
		return ActionLowerNormal
	default:
		return ActionNone
	}
}

// ControllerTask awaits up to maxEvents voltage readings, logging the
// recommended SwitchingAction for each, with a 300ms simulated delay
// standing in for the time a real AVC device takes to execute a control
// action, matching avc_coroutine_complex_avc.
func ControllerTask(maxEvents int) func(*sim.Task) {
	return func(t *sim.Task) {
		for i := 0; i < maxEvents; i++ {
			reading, err := sim.Await[VoltageReading](t, eventids.VoltageChangeAVC)
			if err != nil {
				logrus.WithError(err).Info("avc: controller stopped awaiting voltage events")
				return
			}

			action := Classify(reading.VoltagePU)
			logrus.WithFields(logrus.Fields{
				"voltage_pu": reading.VoltagePU,
				"at":         reading.Timestamp,
				"action":     action.String(),
			}).Info("avc: controller response")

			if err := sim.Delay(t, 300); err != nil {
				return
			}
		}
	}
}

// LoadMonitorTask awaits up to maxEvents load readings, logging a high-load
// alarm above 140MW and a low-load notice below 80MW on busA, matching
// load_monitor_coroutine_avc.
func LoadMonitorTask(maxEvents int) func(*sim.Task) {
	return func(t *sim.Task) {
		for i := 0; i < maxEvents; i++ {
			reading, err := sim.Await[LoadReading](t, eventids.LoadChangeAVC)
			if err != nil {
				logrus.WithError(err).Info("avc: load monitor stopped awaiting load events")
				return
			}

			switch {
			case reading.LoadMW > 140.0:
				logrus.WithField("bus", reading.BusID).Warn("avc: high load detected")
			case reading.LoadMW < 80.0 && reading.BusID == "busA":
				logrus.WithField("bus", reading.BusID).Info("avc: load dropped significantly")
			}
		}
	}
}
