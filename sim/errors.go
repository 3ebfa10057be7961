package sim

import "errors"

// Sentinel errors for the kernel's failure modes, per the error taxonomy:
// constructive errors surface to the caller, runtime errors propagate up
// the task body, and a task's own failure never aborts the scheduler.
var (
	// ErrNoActiveScheduler is returned when an awaiter is used by a task
	// that has no bound scheduler.
	ErrNoActiveScheduler = errors.New("sim: no active scheduler bound to task")

	// ErrDelayNotScheduled is returned alongside ErrNoActiveScheduler when a
	// delay awaiter could not be registered and resumed immediately instead.
	ErrDelayNotScheduled = errors.New("sim: delay could not be scheduled")

	// ErrTypeMismatch is returned to a subscriber whose awaited payload type
	// does not match the type published by the triggering emitter.
	ErrTypeMismatch = errors.New("sim: event payload type mismatch")

	// ErrCancelled is returned to an awaiter whose owning task was
	// cooperatively cancelled.
	ErrCancelled = errors.New("sim: task cancelled")
)

// DeliveryError aggregates the per-subscriber type-mismatch failures caused
// by a single TriggerEvent call. The emitter observes this as the return
// value of TriggerEvent; the default policy is for the caller to propagate
// it, but it never blocks delivery to the correctly-typed subscribers.
type DeliveryError struct {
	EventID EventID
	Failed  int
}

func (e *DeliveryError) Error() string {
	return "sim: TypeMismatch delivering event to one or more subscribers"
}

// Is reports whether target is ErrTypeMismatch, so callers can
// errors.Is(err, ErrTypeMismatch) against a DeliveryError.
func (e *DeliveryError) Is(target error) bool {
	return target == ErrTypeMismatch
}
