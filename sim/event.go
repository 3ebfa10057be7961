package sim

import "reflect"

// EventID is a globally assigned, driver-chosen channel identifier on the
// typed event bus. Two events sharing an id are the same logical channel
// regardless of payload type; it is the driver's responsibility that every
// emitter and subscriber on an id agree on the payload type.
type EventID uint64

// subscription is one outstanding wait_for_event registration.
type subscription struct {
	task    *Task
	payload reflect.Type // nil means a unit/void subscription
}

// eventBus holds the live subscriber multimap, keyed by EventID. It is
// embedded in the Scheduler rather than a free-standing type because its
// lifetime and single-threaded access discipline are identical to the
// scheduler's own.
type eventBus struct {
	subscribers map[EventID][]*subscription
}

func newEventBus() *eventBus {
	return &eventBus{subscribers: make(map[EventID][]*subscription)}
}

func (b *eventBus) subscribe(id EventID, sub *subscription) {
	b.subscribers[id] = append(b.subscribers[id], sub)
}

// unsubscribe removes a specific subscription for a task, used when a
// suspended task is cancelled before its event ever fires.
func (b *eventBus) unsubscribe(id EventID, task *Task) bool {
	subs := b.subscribers[id]
	for i, s := range subs {
		if s.task == task {
			b.subscribers[id] = append(subs[:i], subs[i+1:]...)
			return true
		}
	}
	return false
}

// snapshotAndClear implements the "snapshot then remove before dispatch"
// rule of the emission protocol: subscribers that (re-)register during the
// resulting dispatch must not be notified in this round.
func (b *eventBus) snapshotAndClear(id EventID) []*subscription {
	subs := b.subscribers[id]
	delete(b.subscribers, id)
	return subs
}
