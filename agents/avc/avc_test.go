package avc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corosim/corosim/sim"
)

func TestClassifyBands(t *testing.T) {
	assert.Equal(t, ActionRaiseEmergency, Classify(0.85))
	assert.Equal(t, ActionRaiseNormal, Classify(0.92))
	assert.Equal(t, ActionNone, Classify(1.00))
	assert.Equal(t, ActionLowerNormal, Classify(1.07))
	assert.Equal(t, ActionLowerEmergency, Classify(1.15))
}

func TestSensorAndControllerIntegration(t *testing.T) {
	sched := sim.New()
	var seen []float64

	sched.Spawn("sensor", SensorTask(sched, DefaultScript()))
	sched.Spawn("controller", func(tk *sim.Task) {
		for i := 0; i < 6; i++ {
			reading, err := sim.Await[VoltageReading](tk, 10000)
			if err != nil {
				return
			}
			seen = append(seen, reading.VoltagePU)
		}
	})

	sched.RunUntil(60000)

	assert.Equal(t, []float64{1.00, 0.93, 0.88, 0.97, 1.08, 1.01}, seen)
}
