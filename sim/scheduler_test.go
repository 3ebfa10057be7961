package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayOrdersByDeadline(t *testing.T) {
	s := New()
	var order []string

	s.Spawn("slow", func(tk *Task) {
		require.NoError(t, Delay(tk, 30))
		order = append(order, "slow")
	})
	s.Spawn("fast", func(tk *Task) {
		require.NoError(t, Delay(tk, 10))
		order = append(order, "fast")
	})

	s.RunUntil(100)

	assert.Equal(t, []string{"fast", "slow"}, order)
	assert.Equal(t, TimePoint(100), s.Now())
}

func TestDelayOnUnboundTaskYieldsDelayNotScheduled(t *testing.T) {
	tk := &Task{}

	err := Delay(tk, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoActiveScheduler)
	assert.ErrorIs(t, err, ErrDelayNotScheduled)
}

func TestDelayTieBreaksByInsertionOrder(t *testing.T) {
	s := New()
	var order []string

	s.Spawn("a", func(tk *Task) {
		require.NoError(t, Delay(tk, 10))
		order = append(order, "a")
	})
	s.Spawn("b", func(tk *Task) {
		require.NoError(t, Delay(tk, 10))
		order = append(order, "b")
	})

	s.RunUntil(20)

	assert.Equal(t, []string{"a", "b"}, order)
}

func TestAwaitDeliversTypedPayload(t *testing.T) {
	s := New()
	const topic EventID = 1
	var got int

	done := make(chan struct{})
	s.Spawn("listener", func(tk *Task) {
		v, err := Await[int](tk, topic)
		require.NoError(t, err)
		got = v
		close(done)
	})

	s.RunOneStep() // runs the listener to its await point

	err := TriggerEvent(s, topic, 42)
	require.NoError(t, err)

	s.RunOneStep() // delivers the payload and resumes the listener

	<-done
	assert.Equal(t, 42, got)
}

func TestAwaitTypeMismatchReturnsError(t *testing.T) {
	s := New()
	const topic EventID = 2
	var gotErr error

	done := make(chan struct{})
	s.Spawn("listener", func(tk *Task) {
		_, gotErr = Await[int](tk, topic)
		close(done)
	})

	s.RunOneStep()

	err := TriggerEvent(s, topic, "not an int")
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	s.RunOneStep()

	<-done
	assert.ErrorIs(t, gotErr, ErrTypeMismatch)
}

func TestAwaitUnitRoundTrip(t *testing.T) {
	s := New()
	const topic EventID = 3
	done := make(chan struct{})

	s.Spawn("listener", func(tk *Task) {
		require.NoError(t, AwaitUnit(tk, topic))
		close(done)
	})

	s.RunOneStep()
	require.NoError(t, s.TriggerEventUnit(topic))
	s.RunOneStep()

	<-done
}

func TestReSubscriptionDuringDispatchWaitsForNextRound(t *testing.T) {
	s := New()
	const topic EventID = 4
	var receives int

	s.Spawn("resubscriber", func(tk *Task) {
		for i := 0; i < 2; i++ {
			_, err := Await[int](tk, topic)
			require.NoError(t, err)
			receives++
		}
	})

	s.RunOneStep()
	require.NoError(t, TriggerEvent(s, topic, 1))
	s.RunOneStep() // delivers first payload, task re-subscribes
	assert.Equal(t, 1, receives)

	require.NoError(t, TriggerEvent(s, topic, 2))
	s.RunOneStep()
	assert.Equal(t, 2, receives)
}

func TestCancelWakesSuspendedOnDelay(t *testing.T) {
	s := New()
	var gotErr error
	done := make(chan struct{})

	task := s.Spawn("victim", func(tk *Task) {
		gotErr = Delay(tk, 1000)
		close(done)
	})

	s.RunOneStep() // parks on the timer queue

	s.Cancel(task)
	s.RunOneStep() // resumes with ErrCancelled

	<-done
	assert.ErrorIs(t, gotErr, ErrCancelled)
	assert.Equal(t, TimePoint(0), s.Now(), "cancellation must not advance the clock")
}

func TestCancelWakesSuspendedOnEvent(t *testing.T) {
	s := New()
	const topic EventID = 5
	var gotErr error
	done := make(chan struct{})

	task := s.Spawn("victim", func(tk *Task) {
		_, gotErr = Await[int](tk, topic)
		close(done)
	})

	s.RunOneStep()
	s.Cancel(task)
	s.RunOneStep()

	<-done
	assert.ErrorIs(t, gotErr, ErrCancelled)

	// The emitter should see no failed deliveries: the cancelled
	// subscriber was already removed from the bus.
	err := TriggerEvent(s, topic, 1)
	assert.NoError(t, err)
}

func TestRunOneStepIdleWhenNothingPending(t *testing.T) {
	s := New()
	assert.Equal(t, Idle, s.RunOneStep())
}

func TestSpawnAssignsDistinctDebugIDs(t *testing.T) {
	s := New()
	a := s.Spawn("a", func(tk *Task) {})
	b := s.Spawn("b", func(tk *Task) {})

	assert.NotEmpty(t, a.DebugID())
	assert.NotEmpty(t, b.DebugID())
	assert.NotEqual(t, a.DebugID(), b.DebugID())
}

func TestTimeNeverDecreases(t *testing.T) {
	s := New()
	s.Spawn("a", func(tk *Task) { _ = Delay(tk, 5) })
	s.Spawn("b", func(tk *Task) { _ = Delay(tk, 50) })

	prev := s.Now()
	for s.RunOneStep() == Progressed {
		assert.GreaterOrEqual(t, s.Now(), prev)
		prev = s.Now()
	}
}
