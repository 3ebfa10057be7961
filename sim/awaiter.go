package sim

import "reflect"

// Delay suspends the calling task for the given duration. If d <= 0 the
// task is not run through without suspending: it is re-queued at the back
// of the ready queue once, preserving fairness with zero-delay yields,
// exactly as a positive delay would. Called from within a task body on
// its bound scheduler.
func Delay(t *Task, d Duration) error {
	return t.awaitDelay(d)
}

// Await suspends the calling task until EventID id is triggered with a
// payload of type T, returning that payload. A subscriber is one-shot: it
// is removed from the bus the instant it is notified (matched or
// mismatched) or cancelled.
func Await[T any](t *Task, id EventID) (T, error) {
	var zero T
	var typ reflect.Type
	if tt := reflect.TypeOf(zero); tt != nil {
		typ = tt
	} else {
		typ = reflect.TypeOf((*T)(nil)).Elem()
	}

	sub := &subscription{task: t, payload: typ}
	payload, err := t.awaitEvent(id, sub)
	if err != nil {
		return zero, err
	}
	if payload == nil {
		return zero, nil
	}
	v, ok := payload.(T)
	if !ok {
		return zero, ErrTypeMismatch
	}
	return v, nil
}

// AwaitUnit suspends the calling task until EventID id fires as a unit
// (void) event, discarding any payload.
func AwaitUnit(t *Task, id EventID) error {
	sub := &subscription{task: t, payload: nil}
	_, err := t.awaitEvent(id, sub)
	return err
}
