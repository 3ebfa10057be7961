package topology

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// These specs are the topology half of the end-to-end scenarios S1-S6: S1-S3
// live in sim/acceptance_test.go, since they exercise the task engine
// instead of the topology service.
var _ = Describe("Service", func() {
	Describe("S4: topology path and bridge", func() {
		It("reports every branch of a chain as critical and finds the end-to-end path", func() {
			s := New()
			Expect(s.Build(
				[]BusID{10, 20, 30, 40},
				[]BranchID{100, 101, 102},
				[]Endpoints{{A: 10, B: 20}, {A: 20, B: 30}, {A: 30, B: 40}},
			)).To(Succeed())

			Expect(s.FindCriticalLines()).To(ConsistOf(BranchID(100), BranchID(101), BranchID(102)))

			path, ok := s.FindPath(10, 40, nil)
			Expect(ok).To(BeTrue())
			Expect(path.Buses).To(Equal([]BusID{10, 20, 30, 40}))
			Expect(path.Branches).To(Equal([]BranchID{100, 101, 102}))
		})

		It("splits into two islands and loses the path once the middle branch opens", func() {
			s := New()
			Expect(s.Build(
				[]BusID{10, 20, 30, 40},
				[]BranchID{100, 101, 102},
				[]Endpoints{{A: 10, B: 20}, {A: 20, B: 30}, {A: 30, B: 40}},
			)).To(Succeed())

			Expect(s.OpenBranch(101)).To(BeTrue())

			_, count := s.FindElectricalIslands()
			Expect(count).To(Equal(2))

			_, ok := s.FindPath(10, 40, nil)
			Expect(ok).To(BeFalse())
		})
	})

	Describe("S5: radial detection", func() {
		It("reports the chain topology as radial", func() {
			s := New()
			Expect(s.Build(
				[]BusID{10, 20, 30, 40},
				[]BranchID{100, 101, 102},
				[]Endpoints{{A: 10, B: 20}, {A: 20, B: 30}, {A: 30, B: 40}},
			)).To(Succeed())

			Expect(s.CheckRadialIslands()).To(Equal(map[int]bool{0: true}))
		})

		It("reports non-radial once a loop-closing branch is added, and finds the loop", func() {
			s := New()
			Expect(s.Build(
				[]BusID{10, 20, 30, 40},
				[]BranchID{100, 101, 102, 103},
				[]Endpoints{{A: 10, B: 20}, {A: 20, B: 30}, {A: 30, B: 40}, {A: 10, B: 30}},
			)).To(Succeed())

			Expect(s.CheckRadialIslands()).To(Equal(map[int]bool{0: false}))

			loops := s.FindAllLoops()
			Expect(loops).To(HaveLen(1))

			sorted := append([]BusID{}, loops[0]...)
			Expect(sorted).To(ConsistOf(BusID(10), BusID(20), BusID(30)))
		})
	})

	Describe("S6: downstream and upstream trace", func() {
		var s *Service

		BeforeEach(func() {
			s = New()
			Expect(s.Build(
				[]BusID{1, 2, 3, 4, 5},
				[]BranchID{100, 101, 102, 103},
				[]Endpoints{{A: 1, B: 2}, {A: 2, B: 3}, {A: 3, B: 4}, {A: 4, B: 5}},
			)).To(Succeed())
		})

		It("traces downstream of bus 3 to buses {3,4,5} and branches {C,D}", func() {
			path := s.TracePowerFlow(3, []BusID{1}, true)
			Expect(path.Buses).To(Equal([]BusID{3, 4, 5}))
			Expect(path.Branches).To(ConsistOf(BranchID(102), BranchID(103)))
		})

		It("traces upstream of bus 3 to buses {1,2,3} and branches {A,B}", func() {
			path := s.TracePowerFlow(3, []BusID{1}, false)
			Expect(path.Buses).To(Equal([]BusID{1, 2, 3}))
			Expect(path.Branches).To(Equal([]BranchID{100, 101}))
		})
	})
})
