package sim

import "container/heap"

// timerEntry is one pending (deadline, task) registration, ordered by
// deadline with insertion sequence as the tie-break so that delays sharing
// a deadline resume in subscription order, matching the ready queue's FIFO
// discipline across a timer drain.
type timerEntry struct {
	deadline TimePoint
	seq      uint64
	task     *Task
}

// timerHeap is a min-heap of timerEntry ordered by (deadline, seq),
// grounded on the teacher's eventHeap in sim/eventqueue.go, generalized
// from a single Event type to a (deadline, task) pair.
type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x interface{}) {
	*h = append(*h, x.(*timerEntry))
}

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// timerQueue wraps timerHeap with the heap package's invariant-preserving
// operations and a removal helper for cancellation.
type timerQueue struct {
	h timerHeap
}

func newTimerQueue() *timerQueue {
	q := &timerQueue{h: make(timerHeap, 0)}
	heap.Init(&q.h)
	return q
}

func (q *timerQueue) push(e *timerEntry) { heap.Push(&q.h, e) }

func (q *timerQueue) len() int { return q.h.Len() }

func (q *timerQueue) peek() *timerEntry { return q.h[0] }

func (q *timerQueue) pop() *timerEntry { return heap.Pop(&q.h).(*timerEntry) }

// removeTask removes every pending timer entry for task, used when a
// suspended-on-delay task is cancelled. Returns true if anything was
// removed.
func (q *timerQueue) removeTask(task *Task) bool {
	removed := false
	for i := 0; i < len(q.h); {
		if q.h[i].task == task {
			heap.Remove(&q.h, i)
			removed = true
			continue
		}
		i++
	}
	return removed
}
