package sim

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// TaskState is one of the lifecycle states a Task passes through.
type TaskState int

const (
	// StateRunnable means the task is enqueued and waiting for the
	// scheduler to resume it.
	StateRunnable TaskState = iota
	// StateSuspendedOnDelay means the task is parked in the timer queue.
	StateSuspendedOnDelay
	// StateSuspendedOnEvent means the task is parked in the event bus.
	StateSuspendedOnEvent
	// StateCompleted means the task's body has returned or panicked.
	StateCompleted
)

func (s TaskState) String() string {
	switch s {
	case StateRunnable:
		return "Runnable"
	case StateSuspendedOnDelay:
		return "SuspendedOnDelay"
	case StateSuspendedOnEvent:
		return "SuspendedOnEvent"
	case StateCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// wakeMsg is what the scheduler hands back to a suspended task's goroutine
// when resuming it: either an event payload, or a terminal error such as
// ErrCancelled or ErrTypeMismatch.
type wakeMsg struct {
	payload interface{}
	err     error
}

// suspendKind distinguishes the four ways a task can hand control back to
// the scheduler.
type suspendKind int

const (
	suspendYield suspendKind = iota
	suspendDelay
	suspendEvent
	suspendDone
)

// suspendMsg is what a task's goroutine sends to the scheduler when it
// reaches an await point (or returns), describing what should happen next.
type suspendMsg struct {
	kind    suspendKind
	delay   Duration
	eventID EventID
	sub     *subscription
	err     error // non-nil if the body panicked
}

// Task is the opaque handle to a suspendable unit of cooperative work. A
// Task's body runs in its own goroutine, but the scheduler and the task
// goroutine hand a single execution token back and forth over unbuffered
// channels so that, at any instant, at most one of them is doing work —
// this is the Go-native realization of a stackless coroutine described in
// the kernel's coroutine-mapping design note.
type Task struct {
	id        uint64
	debugID   string
	name      string
	scheduler *Scheduler
	state     TaskState
	detached  bool
	cancelled bool
	failed    error

	toTask   chan wakeMsg
	toSched  chan suspendMsg
	finished chan struct{}
}

// ID returns the task's scheduler-local sequence number.
func (t *Task) ID() uint64 { return t.id }

// Name returns the human-readable label the task was spawned with, for
// logging.
func (t *Task) Name() string { return t.name }

// DebugID returns the task's debug identifier, generated by the
// package-wide IDGenerator (see GetIDGenerator) at spawn time. It has no bearing on scheduling and
// exists purely to correlate log lines for this task across a run.
func (t *Task) DebugID() string { return t.debugID }

// State returns the task's current lifecycle state.
func (t *Task) State() TaskState { return t.state }

// IsDone returns true iff the task has completed. Idempotent.
func (t *Task) IsDone() bool { return t.state == StateCompleted }

// Failed returns the error the task's body panicked with, or nil if it
// completed normally (or hasn't completed yet).
func (t *Task) Failed() error { return t.failed }

// Detach transfers ownership of the task to the scheduler: the task keeps
// running to completion even if nothing else references its handle.
//
// Go has no deterministic destructor to hook "handle dropped" the way the
// reference implementation does, so this kernel does not auto-cancel an
// incomplete, non-detached task when its handle becomes unreachable — that
// would depend on GC timing and break simulation determinism. Detach is
// kept for API parity with the spec and to mark intent; cooperative
// cancellation is always explicit, via Scheduler.Cancel.
func (t *Task) Detach() { t.detached = true }

// IsDetached reports whether Detach has been called.
func (t *Task) IsDetached() bool { return t.detached }

func newTask(sched *Scheduler, id uint64, name string) *Task {
	return &Task{
		id:        id,
		debugID:   GetIDGenerator().Generate(),
		name:      name,
		scheduler: sched,
		state:     StateRunnable,
		toTask:    make(chan wakeMsg),
		toSched:   make(chan suspendMsg),
		finished:  make(chan struct{}),
	}
}

// run starts the task's goroutine. The body does not execute until the
// scheduler sends the first wake-up, preserving "spawning does not run the
// new task before the caller next suspends."
func (t *Task) run(body func(*Task)) {
	go func() {
		<-t.toTask // wait for the scheduler's first resume

		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("sim: task %q panicked: %v", t.name, r)
				logrus.WithFields(logrus.Fields{"task": t.name, "debug_id": t.debugID}).Errorf("%v", err)
				t.toSched <- suspendMsg{kind: suspendDone, err: err}
				close(t.finished)
				return
			}
			t.toSched <- suspendMsg{kind: suspendDone}
			close(t.finished)
		}()

		body(t)
	}()
}

// awaitDelay is the task-side half of the Delay awaiter: it hands the
// baton back to the scheduler describing the requested delay, and blocks
// until resumed.
func (t *Task) awaitDelay(d Duration) error {
	if t.scheduler == nil {
		return errors.Join(ErrNoActiveScheduler, ErrDelayNotScheduled)
	}
	if t.cancelled {
		return ErrCancelled
	}

	kind := suspendDelay
	if d <= 0 {
		kind = suspendYield
	}
	t.toSched <- suspendMsg{kind: kind, delay: d}
	msg := <-t.toTask
	return msg.err
}

// awaitEvent is the task-side half of the EventAwaiter: it registers a
// subscription and blocks until delivery, cancellation, or type mismatch.
func (t *Task) awaitEvent(id EventID, sub *subscription) (interface{}, error) {
	if t.scheduler == nil {
		return nil, ErrNoActiveScheduler
	}
	if t.cancelled {
		return nil, ErrCancelled
	}

	t.toSched <- suspendMsg{kind: suspendEvent, eventID: id, sub: sub}
	msg := <-t.toTask
	return msg.payload, msg.err
}
