// Package topology implements the power-distribution network graph:
// buses and branches stored as an adjacency-list multigraph, with
// connectivity, path search, critical-element, cycle, and power-flow
// tracing analyses, grounded on the original PowerSystemTopology service.
package topology

import (
	"errors"
	"sort"

	"github.com/sirupsen/logrus"
)

// BusID identifies a bus (node) by its external, driver-assigned number.
type BusID int

// BranchID identifies a branch (edge) by its external, driver-assigned
// number.
type BranchID int

// ErrLengthMismatch is returned by Build when branchIDs and
// branchEndpoints disagree in length.
var ErrLengthMismatch = errors.New("topology: branch id and endpoint slices have different lengths")

// ErrDuplicateBus is returned by Build when a bus id appears twice.
var ErrDuplicateBus = errors.New("topology: duplicate bus id")

// AdjacencyInfo is one entry of a bus's adjacency list: the branch used
// and the internal index of the bus on the other end.
type AdjacencyInfo struct {
	BranchID BranchID
	OtherIdx int
}

// Endpoints is an unordered pair of bus ids a branch connects.
type Endpoints struct {
	A, B BusID
}

// Path is the result of a path search or power-flow trace: the buses and
// branches involved.
type Path struct {
	Buses    []BusID
	Branches []BranchID
}

// Service is a built power-system topology, analyzable and mutable via
// OpenBranch. The zero value is not ready; call Build first.
type Service struct {
	adjacency      [][]AdjacencyInfo
	busToIdx       map[BusID]int
	idxToBus       []BusID
	branchEndpoint map[BranchID]Endpoints
}

// New returns an unbuilt Service.
func New() *Service {
	return &Service{}
}

// IsReady reports whether a successful Build has left at least one bus in
// the topology.
func (s *Service) IsReady() bool { return len(s.adjacency) > 0 }

// BusCount returns the number of buses in the current topology.
func (s *Service) BusCount() int { return len(s.idxToBus) }

// Build constructs (or rebuilds, discarding prior state) the topology
// from parallel bus and branch descriptions. A branch whose endpoint is
// not among busIDs is skipped with a warning log and not recorded; the
// service remains consistent.
func (s *Service) Build(busIDs []BusID, branchIDs []BranchID, branchEndpoints []Endpoints) error {
	if len(branchIDs) != len(branchEndpoints) {
		return ErrLengthMismatch
	}

	busToIdx := make(map[BusID]int, len(busIDs))
	for i, id := range busIDs {
		if _, dup := busToIdx[id]; dup {
			return ErrDuplicateBus
		}
		busToIdx[id] = i
	}

	idxToBus := make([]BusID, len(busIDs))
	copy(idxToBus, busIDs)

	adjacency := make([][]AdjacencyInfo, len(busIDs))
	for i := range adjacency {
		adjacency[i] = make([]AdjacencyInfo, 0, 6)
	}

	branchEndpoint := make(map[BranchID]Endpoints, len(branchIDs))
	for i, branchID := range branchIDs {
		ep := branchEndpoints[i]
		uIdx, uok := busToIdx[ep.A]
		vIdx, vok := busToIdx[ep.B]
		if !uok || !vok {
			logrus.WithField("branch", branchID).Warn("topology: branch endpoint not in bus list, skipping")
			continue
		}

		adjacency[uIdx] = append(adjacency[uIdx], AdjacencyInfo{BranchID: branchID, OtherIdx: vIdx})
		adjacency[vIdx] = append(adjacency[vIdx], AdjacencyInfo{BranchID: branchID, OtherIdx: uIdx})
		branchEndpoint[branchID] = ep
	}

	s.adjacency = adjacency
	s.busToIdx = busToIdx
	s.idxToBus = idxToBus
	s.branchEndpoint = branchEndpoint
	return nil
}

func (s *Service) busIndex(id BusID) int {
	idx, ok := s.busToIdx[id]
	if !ok {
		return -1
	}
	return idx
}

// FindElectricalIslands partitions buses into connected components via
// BFS, assigning 0-based island indices in increasing order of the lowest
// internal bus index in each component.
func (s *Service) FindElectricalIslands() (map[BusID]int, int) {
	result := make(map[BusID]int)
	if !s.IsReady() {
		return result, 0
	}

	visited := make([]int, s.BusCount())
	islandCount := 0

	for i := range visited {
		if visited[i] != 0 {
			continue
		}
		islandCount++
		queue := []int{i}
		visited[i] = islandCount

		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			for _, conn := range s.adjacency[u] {
				if visited[conn.OtherIdx] == 0 {
					visited[conn.OtherIdx] = islandCount
					queue = append(queue, conn.OtherIdx)
				}
			}
		}
	}

	for i, id := range s.idxToBus {
		result[id] = visited[i] - 1
	}
	return result, islandCount
}

// FindPath returns the shortest (fewest-branch) walk from start to end
// under breadth-first search, excluding any branch present in open. It
// returns (Path{[start]}, true) when start == end, and (Path{}, false)
// when either endpoint is unknown or no path exists.
func (s *Service) FindPath(start, end BusID, open []BranchID) (Path, bool) {
	startIdx, endIdx := s.busIndex(start), s.busIndex(end)
	if startIdx == -1 || endIdx == -1 {
		return Path{}, false
	}
	if startIdx == endIdx {
		return Path{Buses: []BusID{start}}, true
	}

	openSet := make(map[BranchID]struct{}, len(open))
	for _, b := range open {
		openSet[b] = struct{}{}
	}

	type pred struct {
		idx    int
		branch BranchID
	}
	predecessor := make([]pred, s.BusCount())
	for i := range predecessor {
		predecessor[i] = pred{idx: -1}
	}
	visited := make([]bool, s.BusCount())
	queue := []int{startIdx}
	visited[startIdx] = true
	found := false

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if u == endIdx {
			found = true
			break
		}
		for _, conn := range s.adjacency[u] {
			if _, excluded := openSet[conn.BranchID]; excluded {
				continue
			}
			if !visited[conn.OtherIdx] {
				visited[conn.OtherIdx] = true
				predecessor[conn.OtherIdx] = pred{idx: u, branch: conn.BranchID}
				queue = append(queue, conn.OtherIdx)
			}
		}
	}

	if !found {
		return Path{}, false
	}

	var path Path
	cur := endIdx
	for cur != -1 {
		path.Buses = append(path.Buses, s.idxToBus[cur])
		if predecessor[cur].idx != -1 {
			path.Branches = append(path.Branches, predecessor[cur].branch)
		}
		cur = predecessor[cur].idx
	}
	reverseBuses(path.Buses)
	reverseBranches(path.Branches)
	return path, true
}

// FindCriticalLines returns all bridges: branches whose removal would
// increase the island count. The Tarjan formulation used here filters by
// the specific branch used to descend to each child, not by parent bus
// identity, so a second parallel branch back to the same parent bus is
// treated as an ordinary back-edge rather than skipped outright — two
// parallel branches between the same pair of buses are never both (or
// either) reported as a bridge.
func (s *Service) FindCriticalLines() []BranchID {
	if !s.IsReady() {
		return nil
	}

	n := s.BusCount()
	disc := fill(n, -1)
	low := fill(n, -1)
	parent := fill(n, -1)
	parentEdge := make([]BranchID, n)
	var bridges []BranchID
	time := 0

	var visit func(u int)
	visit = func(u int) {
		time++
		disc[u], low[u] = time, time
		for _, conn := range s.adjacency[u] {
			v := conn.OtherIdx
			if v == parent[u] && conn.BranchID == parentEdge[u] {
				continue
			}
			if disc[v] != -1 {
				low[u] = min(low[u], disc[v])
				continue
			}
			parent[v] = u
			parentEdge[v] = conn.BranchID
			visit(v)
			low[u] = min(low[u], low[v])
			if low[v] > disc[u] {
				bridges = append(bridges, conn.BranchID)
			}
		}
	}

	for i := 0; i < n; i++ {
		if disc[i] == -1 {
			visit(i)
		}
	}
	return bridges
}

// FindCriticalBuses returns all articulation points: buses whose removal
// would disconnect part of their island.
func (s *Service) FindCriticalBuses() []BusID {
	if !s.IsReady() {
		return nil
	}

	n := s.BusCount()
	disc := fill(n, -1)
	low := fill(n, -1)
	parent := fill(n, -1)
	parentEdge := make([]BranchID, n)
	isCritical := make([]bool, n)
	time := 0

	var visit func(u int)
	visit = func(u int) {
		time++
		disc[u], low[u] = time, time
		children := 0
		for _, conn := range s.adjacency[u] {
			v := conn.OtherIdx
			if v == parent[u] && conn.BranchID == parentEdge[u] {
				continue
			}
			if disc[v] != -1 {
				low[u] = min(low[u], disc[v])
				continue
			}
			children++
			parent[v] = u
			parentEdge[v] = conn.BranchID
			visit(v)
			low[u] = min(low[u], low[v])
			if parent[u] == -1 && children > 1 {
				isCritical[u] = true
			}
			if parent[u] != -1 && low[v] >= disc[u] {
				isCritical[u] = true
			}
		}
	}

	for i := 0; i < n; i++ {
		if disc[i] == -1 {
			visit(i)
		}
	}

	var result []BusID
	for i := 0; i < n; i++ {
		if isCritical[i] {
			result = append(result, s.idxToBus[i])
		}
	}
	return result
}

// FindAllLoops enumerates simple cycles encountered as DFS back-edges,
// each returned as a slice of bus ids ordered by internal bus index (the
// order the buses were passed to Build), de-duplicated by that sorted
// index set. This is a heuristic walk, not a cycle-space basis: in dense
// graphs it may miss some simple cycles.
func (s *Service) FindAllLoops() [][]BusID {
	if !s.IsReady() {
		return nil
	}

	n := s.BusCount()
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, n)
	var path []int
	var loopsInternal [][]int

	seen := func(loop []int) bool {
		for _, existing := range loopsInternal {
			if intSliceEqual(existing, loop) {
				return true
			}
		}
		return false
	}

	var visit func(u, p int)
	visit = func(u, p int) {
		color[u] = gray
		path = append(path, u)

		for _, conn := range s.adjacency[u] {
			v := conn.OtherIdx
			if v == p {
				continue
			}
			switch color[v] {
			case gray:
				idx := indexOf(path, v)
				if idx >= 0 {
					loop := append([]int(nil), path[idx:]...)
					sort.Ints(loop)
					if !seen(loop) {
						loopsInternal = append(loopsInternal, loop)
					}
				}
			case white:
				visit(v, u)
			}
		}

		path = path[:len(path)-1]
		color[u] = black
	}

	for i := 0; i < n; i++ {
		if color[i] == white {
			visit(i, -1)
		}
	}

	result := make([][]BusID, len(loopsInternal))
	for i, loop := range loopsInternal {
		buses := make([]BusID, len(loop))
		for j, idx := range loop {
			buses[j] = s.idxToBus[idx]
		}
		result[i] = buses
	}
	return result
}

// BusDegrees returns, for every bus, the number of adjacency entries:
// parallel branches count multiply and a self-loop counts twice.
func (s *Service) BusDegrees() map[BusID]int {
	degrees := make(map[BusID]int)
	if !s.IsReady() {
		return degrees
	}
	for i, id := range s.idxToBus {
		degrees[id] = len(s.adjacency[i])
	}
	return degrees
}

// CheckRadialIslands reports, for every island index, whether that
// island's subgraph is a tree: connected with edges == nodes-1, using the
// handshake-lemma edge count (sum of degrees / 2).
func (s *Service) CheckRadialIslands() map[int]bool {
	result := make(map[int]bool)
	if !s.IsReady() {
		return result
	}

	busToIsland, islandCount := s.FindElectricalIslands()
	if islandCount == 0 {
		return result
	}

	busesInIsland := make([]int, islandCount)
	degreeSum := make([]int, islandCount)
	for i, id := range s.idxToBus {
		island := busToIsland[id]
		busesInIsland[island]++
		degreeSum[island] += len(s.adjacency[i])
	}

	for i := 0; i < islandCount; i++ {
		v := busesInIsland[i]
		e := degreeSum[i] / 2
		if v > 0 {
			result[i] = e == v-1
		}
	}
	return result
}

// TracePowerFlow runs a multi-source BFS from sources to build a global
// parent tree, then walks it from start either upstream (toward a source)
// or downstream (away from a source, i.e. start's BFS subtree). Buses and
// branches in the result are sorted ascending.
//
// If start is unknown, the result is empty. If start is unreachable from
// every source, both directions return {[start], []}. An upstream trace
// that starts at a source also returns {[start], []}; a downstream trace
// from a source returns that source's whole BFS subtree.
func (s *Service) TracePowerFlow(start BusID, sources []BusID, downstream bool) Path {
	if !s.IsReady() {
		return Path{}
	}

	n := s.BusCount()
	parent := fill(n, -1)
	visited := make([]bool, n)
	var queue []int

	for _, src := range sources {
		idx := s.busIndex(src)
		if idx != -1 && !visited[idx] {
			visited[idx] = true
			queue = append(queue, idx)
		}
	}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, conn := range s.adjacency[u] {
			v := conn.OtherIdx
			if !visited[v] {
				visited[v] = true
				parent[v] = u
				queue = append(queue, v)
			}
		}
	}

	startIdx := s.busIndex(start)
	if startIdx == -1 {
		logrus.WithField("bus", start).Warn("topology: trace start bus not in topology")
		return Path{}
	}

	var result Path
	if downstream {
		downstreamIdx := map[int]struct{}{startIdx: {}}
		queue = []int{startIdx}
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			for _, conn := range s.adjacency[u] {
				v := conn.OtherIdx
				if parent[v] == u {
					if _, ok := downstreamIdx[v]; !ok {
						downstreamIdx[v] = struct{}{}
						queue = append(queue, v)
					}
				}
			}
		}

		branchSet := make(map[BranchID]struct{})
		for u := range downstreamIdx {
			for _, conn := range s.adjacency[u] {
				if _, ok := downstreamIdx[conn.OtherIdx]; ok {
					branchSet[conn.BranchID] = struct{}{}
				}
			}
		}

		for idx := range downstreamIdx {
			result.Buses = append(result.Buses, s.idxToBus[idx])
		}
		for b := range branchSet {
			result.Branches = append(result.Branches, b)
		}
	} else {
		busSet := map[BusID]struct{}{s.idxToBus[startIdx]: {}}
		branchSet := make(map[BranchID]struct{})

		cur := startIdx
		for cur != -1 && parent[cur] != -1 {
			p := parent[cur]
			busSet[s.idxToBus[p]] = struct{}{}
			for _, conn := range s.adjacency[cur] {
				if conn.OtherIdx == p {
					branchSet[conn.BranchID] = struct{}{}
					break
				}
			}
			cur = p
		}

		for id := range busSet {
			result.Buses = append(result.Buses, id)
		}
		for b := range branchSet {
			result.Branches = append(result.Branches, b)
		}
	}

	sort.Slice(result.Buses, func(i, j int) bool { return result.Buses[i] < result.Buses[j] })
	sort.Slice(result.Branches, func(i, j int) bool { return result.Branches[i] < result.Branches[j] })
	return result
}

// OpenBranch removes a branch's adjacency entries on both endpoints and
// its entry in the endpoint map. Returns false if id is unknown. Once
// opened, a branch id stays absent until the next Build.
func (s *Service) OpenBranch(id BranchID) bool {
	ep, ok := s.branchEndpoint[id]
	if !ok {
		return false
	}

	uIdx, vIdx := s.busIndex(ep.A), s.busIndex(ep.B)
	if uIdx == -1 || vIdx == -1 {
		return false
	}

	s.adjacency[uIdx] = removeConn(s.adjacency[uIdx], vIdx, id)
	s.adjacency[vIdx] = removeConn(s.adjacency[vIdx], uIdx, id)
	delete(s.branchEndpoint, id)
	return true
}

func removeConn(conns []AdjacencyInfo, otherIdx int, branchID BranchID) []AdjacencyInfo {
	out := conns[:0]
	for _, c := range conns {
		if c.OtherIdx == otherIdx && c.BranchID == branchID {
			continue
		}
		out = append(out, c)
	}
	return out
}

func fill(n, v int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func intSliceEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func reverseBuses(s []BusID) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func reverseBranches(s []BranchID) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
