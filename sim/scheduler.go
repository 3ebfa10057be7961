package sim

import (
	"reflect"

	"github.com/sirupsen/logrus"
)

// RunResult reports what run_one_step accomplished.
type RunResult int

const (
	// Progressed means a task was resumed (and either suspended again or
	// completed).
	Progressed RunResult = iota
	// Idle means there was no ready or timed work to perform.
	Idle
)

// readyItem is one entry in the ready queue: a task plus the message it
// should be woken with (a normal delay/event wake, or a cancellation).
type readyItem struct {
	task *Task
	msg  wakeMsg
}

// Scheduler is the cooperative task engine: a virtual clock, a FIFO ready
// queue, a deadline-ordered timer queue, and the typed event bus that
// tasks suspend on. At most one task runs at any instant; the Scheduler's
// own goroutine and exactly one task goroutine hand a baton back and forth
// over unbuffered channels, so the engine is single-threaded by
// construction even though tasks are Go goroutines.
type Scheduler struct {
	*HookableBase

	now     TimePoint
	ready   []readyItem
	timers  *timerQueue
	bus     *eventBus
	nextID  uint64
	timeSeq uint64

	tasks []*Task // all tasks ever spawned, for bookkeeping/introspection
}

// New creates a Scheduler with its virtual clock at zero.
func New() *Scheduler {
	return &Scheduler{
		HookableBase: NewHookableBase(),
		timers:       newTimerQueue(),
		bus:          newEventBus(),
	}
}

// Now returns the scheduler's current virtual time.
func (s *Scheduler) Now() TimePoint { return s.now }

// SetTime forcibly sets the virtual clock. This is a driver-only escape
// hatch for pre-run setup; calling it once a scheduler has begun
// processing events can violate the "time never decreases" invariant and
// is the caller's responsibility to avoid.
func (s *Scheduler) SetTime(t TimePoint) { s.now = t }

// Advance forcibly moves the virtual clock forward by d. Like SetTime,
// this is meant for pre-run setup, not for use once tasks are running.
func (s *Scheduler) Advance(d Duration) { s.now = s.now.Add(d) }

// Spawn creates a task in Runnable state, running body in its own
// goroutine, and enqueues it on the ready queue. Per the spawn contract,
// a newly spawned task does not execute any of its body until the caller
// next suspends (or the scheduler otherwise steps it).
func (s *Scheduler) Spawn(name string, body func(*Task)) *Task {
	s.nextID++
	t := newTask(s, s.nextID, name)
	s.tasks = append(s.tasks, t)
	t.run(body)
	s.ready = append(s.ready, readyItem{task: t, msg: wakeMsg{}})
	return t
}

// Detach transfers ownership of task to the scheduler; see Task.Detach.
func (s *Scheduler) Detach(t *Task) { t.Detach() }

// IsDone reports whether task has completed.
func (s *Scheduler) IsDone(t *Task) bool { return t.IsDone() }

// Cancel cooperatively cancels task. If the task is currently suspended on
// a timer or an event, it is woken immediately with ErrCancelled instead
// of waiting for its "natural" wake condition — the alternative the
// design notes call out (lazy detach, only checked at the next await) is
// not used here because an indefinitely-awaiting task would otherwise
// never be woken at all. If the task has not yet reached its first await
// point, the cancelled flag is checked the moment it does.
func (s *Scheduler) Cancel(t *Task) {
	if t.state == StateCompleted || t.cancelled {
		return
	}
	t.cancelled = true

	switch t.state {
	case StateSuspendedOnDelay:
		s.timers.removeTask(t)
		t.state = StateRunnable
		s.ready = append(s.ready, readyItem{task: t, msg: wakeMsg{err: ErrCancelled}})
	case StateSuspendedOnEvent:
		for id, subs := range s.bus.subscribers {
			for _, sub := range subs {
				if sub.task == t {
					s.bus.unsubscribe(id, t)
					break
				}
			}
		}
		t.state = StateRunnable
		s.ready = append(s.ready, readyItem{task: t, msg: wakeMsg{err: ErrCancelled}})
	default:
		// Runnable (not yet started, or a pending zero-delay yield):
		// the cancelled flag will be observed at its next await.
	}
}

// TriggerEvent publishes value of type T on id. Subscribers registered
// before this call are snapshotted and removed before any of them are
// notified, so a handler that re-subscribes under the same id during this
// round is not notified again in the same round. Subscribers whose
// awaited type does not match T observe ErrTypeMismatch; this does not
// prevent delivery to correctly-typed subscribers on the same emission.
func TriggerEvent[T any](s *Scheduler, id EventID, value T) error {
	return s.dispatch(id, reflect.TypeOf(value), value)
}

// TriggerEventUnit publishes a unit (void) event on id.
func (s *Scheduler) TriggerEventUnit(id EventID) error {
	return s.dispatch(id, nil, nil)
}

func (s *Scheduler) dispatch(id EventID, payloadType reflect.Type, value interface{}) error {
	subs := s.bus.snapshotAndClear(id)
	failed := 0

	for _, sub := range subs {
		if sub.task.cancelled {
			sub.task.state = StateRunnable
			s.ready = append(s.ready, readyItem{task: sub.task, msg: wakeMsg{err: ErrCancelled}})
			continue
		}

		if sub.payload != payloadType {
			failed++
			sub.task.state = StateRunnable
			s.ready = append(s.ready, readyItem{task: sub.task, msg: wakeMsg{err: ErrTypeMismatch}})
			continue
		}

		sub.task.state = StateRunnable
		s.ready = append(s.ready, readyItem{task: sub.task, msg: wakeMsg{payload: value}})
	}

	s.InvokeHook(HookCtx{Domain: s, Pos: HookPosEventTriggered, Item: id, Detail: len(subs)})

	if failed > 0 {
		return &DeliveryError{EventID: id, Failed: failed}
	}
	return nil
}

// RunOneStep performs the smallest unit of scheduling work: if the ready
// queue is non-empty, it resumes the front task; otherwise, if the timer
// queue is non-empty, it advances now to the earliest deadline, drains
// every timer due at or before now into the ready queue (preserving
// insertion order), and resumes one. It returns Idle only when there is
// nothing runnable and nothing timed.
func (s *Scheduler) RunOneStep() RunResult {
	if len(s.ready) == 0 {
		if s.timers.len() == 0 {
			return Idle
		}
		s.drainDueTimers()
		if len(s.ready) == 0 {
			return Idle
		}
	}

	item := s.ready[0]
	s.ready = s.ready[1:]
	s.step(item)
	return Progressed
}

// drainDueTimers advances now to the earliest pending deadline (never
// backward) and moves every timer due at or before now into the ready
// queue, in deadline then insertion order.
func (s *Scheduler) drainDueTimers() {
	if s.timers.len() == 0 {
		return
	}
	earliest := s.timers.peek().deadline
	if earliest > s.now {
		s.now = earliest
	}
	for s.timers.len() > 0 && s.timers.peek().deadline <= s.now {
		e := s.timers.pop()
		e.task.state = StateRunnable
		s.ready = append(s.ready, readyItem{task: e.task, msg: wakeMsg{}})
	}
}

// step resumes a single task with the given wake message and processes
// whatever suspension request (or completion) it yields back.
func (s *Scheduler) step(item readyItem) {
	t := item.task

	s.InvokeHook(HookCtx{Domain: s, Pos: HookPosBeforeStep, Item: t})
	t.toTask <- item.msg
	msg := <-t.toSched
	s.InvokeHook(HookCtx{Domain: s, Pos: HookPosAfterStep, Item: t, Detail: msg.kind})

	switch msg.kind {
	case suspendYield:
		t.state = StateRunnable
		s.ready = append(s.ready, readyItem{task: t, msg: wakeMsg{}})
	case suspendDelay:
		t.state = StateSuspendedOnDelay
		s.timeSeq++
		s.timers.push(&timerEntry{deadline: s.now.Add(msg.delay), seq: s.timeSeq, task: t})
	case suspendEvent:
		t.state = StateSuspendedOnEvent
		s.bus.subscribe(msg.eventID, msg.sub)
	case suspendDone:
		t.state = StateCompleted
		t.failed = msg.err
		if msg.err != nil {
			logrus.WithFields(logrus.Fields{"task": t.name, "debug_id": t.debugID}).Warnf("task completed with failure: %v", msg.err)
		}
	}
}

// RunUntil advances the simulation until now reaches deadline, or there is
// no more ready or timed work. It guarantees now >= deadline on return
// (unless the run is aborted early by the caller, e.g. from inside a
// hook).
func (s *Scheduler) RunUntil(deadline TimePoint) {
	for s.now < deadline && (len(s.ready) > 0 || s.timers.len() > 0) {
		for len(s.ready) > 0 {
			item := s.ready[0]
			s.ready = s.ready[1:]
			s.step(item)
		}

		if len(s.ready) == 0 && s.timers.len() > 0 {
			next := s.timers.peek().deadline
			if next >= deadline {
				s.now = deadline
				break
			}
			s.drainDueTimers()
		}
	}
	if s.now < deadline {
		s.now = deadline
	}
}

// EventID values reach hooks only through dispatch's HookCtx.Item field
// today; kept as a named conversion point in case hooks want richer payload
// introspection later.
var _ = EventID(0)
