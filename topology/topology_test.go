package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildChain(t *testing.T) *Service {
	s := New()
	err := s.Build(
		[]BusID{10, 20, 30, 40},
		[]BranchID{100, 101, 102},
		[]Endpoints{{10, 20}, {20, 30}, {30, 40}},
	)
	require.NoError(t, err)
	return s
}

func TestBuildRejectsLengthMismatch(t *testing.T) {
	s := New()
	err := s.Build([]BusID{1, 2}, []BranchID{100, 101}, []Endpoints{{1, 2}})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestBuildRejectsDuplicateBus(t *testing.T) {
	s := New()
	err := s.Build([]BusID{1, 1}, nil, nil)
	assert.ErrorIs(t, err, ErrDuplicateBus)
}

func TestBuildSkipsDanglingBranch(t *testing.T) {
	s := New()
	err := s.Build([]BusID{1, 2}, []BranchID{100}, []Endpoints{{1, 99}})
	require.NoError(t, err)
	assert.True(t, s.IsReady())
	assert.Empty(t, s.BusDegrees()[1])
}

func TestAdjacencySymmetry(t *testing.T) {
	s := buildChain(t)
	for uIdx, conns := range s.adjacency {
		for _, c := range conns {
			back := s.adjacency[c.OtherIdx]
			found := false
			for _, b := range back {
				if b.OtherIdx == uIdx && b.BranchID == c.BranchID {
					found = true
				}
			}
			assert.True(t, found, "missing symmetric adjacency entry")
		}
	}
}

// S4
func TestChainCriticalLinesAndPath(t *testing.T) {
	s := buildChain(t)

	lines := s.FindCriticalLines()
	assert.ElementsMatch(t, []BranchID{100, 101, 102}, lines)

	p, ok := s.FindPath(10, 40, nil)
	require.True(t, ok)
	assert.Equal(t, []BusID{10, 20, 30, 40}, p.Buses)
	assert.Equal(t, []BranchID{100, 101, 102}, p.Branches)

	ok = s.OpenBranch(101)
	require.True(t, ok)

	_, islandCount := s.FindElectricalIslands()
	assert.Equal(t, 2, islandCount)

	_, found := s.FindPath(10, 40, nil)
	assert.False(t, found)
}

func TestFindPathSameBus(t *testing.T) {
	s := buildChain(t)
	p, ok := s.FindPath(10, 10, nil)
	require.True(t, ok)
	assert.Equal(t, Path{Buses: []BusID{10}}, p)
}

func TestFindPathUnknownBus(t *testing.T) {
	s := buildChain(t)
	_, ok := s.FindPath(10, 999, nil)
	assert.False(t, ok)
}

func TestFindPathRespectsOpenSet(t *testing.T) {
	s := buildChain(t)
	_, ok := s.FindPath(10, 40, []BranchID{101})
	assert.False(t, ok)
}

// S5
func TestRadialDetection(t *testing.T) {
	s := buildChain(t)
	radial := s.CheckRadialIslands()
	assert.Equal(t, map[int]bool{0: true}, radial)
}

func TestLoopDetection(t *testing.T) {
	s := New()
	err := s.Build(
		[]BusID{10, 20, 30, 40},
		[]BranchID{100, 101, 102, 103},
		[]Endpoints{{10, 20}, {20, 30}, {30, 40}, {10, 30}},
	)
	require.NoError(t, err)

	radial := s.CheckRadialIslands()
	assert.Equal(t, map[int]bool{0: false}, radial)

	loops := s.FindAllLoops()
	require.Len(t, loops, 1)
	assert.Equal(t, []BusID{10, 20, 30}, loops[0])
}

func TestParallelBranchesAreNotBridges(t *testing.T) {
	s := New()
	err := s.Build(
		[]BusID{1, 2},
		[]BranchID{100, 101},
		[]Endpoints{{1, 2}, {1, 2}},
	)
	require.NoError(t, err)
	assert.Empty(t, s.FindCriticalLines())
}

func TestCriticalBuses(t *testing.T) {
	s := buildChain(t)
	assert.ElementsMatch(t, []BusID{20, 30}, s.FindCriticalBuses())
}

// S6
func TestPowerFlowTracing(t *testing.T) {
	s := New()
	err := s.Build(
		[]BusID{1, 2, 3, 4, 5},
		[]BranchID{1, 2, 3, 4},
		[]Endpoints{{1, 2}, {2, 3}, {3, 4}, {4, 5}},
	)
	require.NoError(t, err)

	down := s.TracePowerFlow(3, []BusID{1}, true)
	assert.Equal(t, []BusID{3, 4, 5}, down.Buses)
	assert.Equal(t, []BranchID{3, 4}, down.Branches)

	up := s.TracePowerFlow(3, []BusID{1}, false)
	assert.Equal(t, []BusID{1, 2, 3}, up.Buses)
	assert.Equal(t, []BranchID{1, 2}, up.Branches)
}

func TestPowerFlowTraceUnreachableStart(t *testing.T) {
	s := New()
	err := s.Build(
		[]BusID{1, 2, 99},
		[]BranchID{1},
		[]Endpoints{{1, 2}},
	)
	require.NoError(t, err)

	down := s.TracePowerFlow(99, []BusID{1}, true)
	assert.Equal(t, Path{Buses: []BusID{99}}, down)
}

func TestPowerFlowTraceUnknownStart(t *testing.T) {
	s := buildChain(t)
	p := s.TracePowerFlow(9999, []BusID{10}, true)
	assert.Equal(t, Path{}, p)
}

func TestOpenBranchUnknownReturnsFalse(t *testing.T) {
	s := buildChain(t)
	assert.False(t, s.OpenBranch(99999))
}

func TestOpenBridgeIncreasesIslandCount(t *testing.T) {
	s := buildChain(t)
	_, before := s.FindElectricalIslands()

	s.OpenBranch(100)

	_, after := s.FindElectricalIslands()
	assert.Equal(t, before+1, after)
}
