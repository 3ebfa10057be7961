package sim

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// These specs are the scheduler half of the end-to-end scenarios S1-S3: S4-S6
// live in topology/acceptance_test.go, since they exercise the topology
// service instead of the task engine.
var _ = Describe("Scheduler", func() {
	var sched *Scheduler

	BeforeEach(func() {
		sched = New()
	})

	Describe("S1: delay ordering", func() {
		It("wakes same-deadline tasks in spawn order and advances now() exactly", func() {
			var mu sync.Mutex
			var log []EventID

			record := func(id EventID) func(*Task) {
				return func(t *Task) {
					Expect(Delay(t, 10)).To(Succeed())
					mu.Lock()
					log = append(log, id)
					mu.Unlock()
				}
			}

			sched.Spawn("A", record(1))
			sched.Spawn("B", record(2))
			sched.Spawn("C", record(3))

			sched.RunUntil(20)

			Expect(log).To(Equal([]EventID{1, 2, 3}))
			Expect(sched.Now()).To(Equal(TimePoint(20)))
		})
	})

	Describe("S2: event fan-out", func() {
		It("resumes both subscribers with the same value at the emitter's deadline", func() {
			var mu sync.Mutex
			var got []int

			subscribe := func() func(*Task) {
				return func(t *Task) {
					v, err := Await[int](t, 42)
					Expect(err).NotTo(HaveOccurred())
					mu.Lock()
					got = append(got, v)
					mu.Unlock()
				}
			}

			sched.Spawn("X", subscribe())
			sched.Spawn("Y", subscribe())
			sched.Spawn("emitter", func(t *Task) {
				Expect(Delay(t, 5)).To(Succeed())
				Expect(TriggerEvent(sched, 42, 7)).To(Succeed())
			})

			sched.RunUntil(10)

			Expect(got).To(Equal([]int{7, 7}))
			Expect(sched.Now()).To(BeNumerically(">=", 5))
		})
	})

	Describe("S3: type mismatch partial delivery", func() {
		It("delivers the matching-typed subscriber and reports a type mismatch to the other", func() {
			var xVal int
			var xErr, yErr error

			sched.Spawn("X", func(t *Task) {
				xVal, xErr = Await[int](t, 9)
			})
			sched.Spawn("Y", func(t *Task) {
				_, yErr = Await[string](t, 9)
			})
			var deliveryErr error
			sched.Spawn("emitter", func(t *Task) {
				deliveryErr = TriggerEvent(sched, EventID(9), 3)
			})

			sched.RunUntil(1)

			Expect(xErr).NotTo(HaveOccurred())
			Expect(xVal).To(Equal(3))
			Expect(yErr).To(MatchError(ErrTypeMismatch))
			Expect(deliveryErr).To(HaveOccurred(), "the mismatched subscriber should surface as a delivery error to the emitter")
		})
	})
})
