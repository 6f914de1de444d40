package solver

import (
	"math"
	"time"

	"cipfed/pkg/types"
)

// search carries the branch-and-bound state across the DFS. It assigns VMs
// to PMs one at a time (in input order), tracking per-PM CPU/RAM usage,
// and prunes any branch whose optimistic lower bound cannot beat the best
// complete assignment found so far.
type search struct {
	in      Input
	onCost  []float64
	varCost [][]float64

	minMarginal []float64 // minMarginal[v] = cheapest varCost[v][*], used for the bound

	deadline time.Time
	relGap   float64
	timedOut bool

	cpu  []float64
	ram  []float64
	used []bool

	host     []int // current partial assignment, host[v] = PM index or -1
	bestHost []int
	bestCost float64
	foundAny bool

	nodes int
}

// dfs assigns VMs[idx:] given the current partial state whose cost so far
// is cost. It returns once the branch is exhausted or the time limit hits.
func (s *search) dfs(idx int, cost float64) {
	if s.timedOut {
		return
	}
	s.nodes++
	if s.nodes%2048 == 0 && !s.deadline.IsZero() && time.Now().After(s.deadline) {
		s.timedOut = true
		return
	}

	if idx == len(s.in.VMs) {
		if cost < s.bestCost {
			s.bestCost = cost
			copy(s.bestHost, s.host)
			s.foundAny = true
		}
		return
	}

	// Admissible lower bound: cost so far plus the cheapest possible
	// marginal cost for every VM not yet assigned, ignoring capacity, plus
	// every negative one-time charge of a PM not yet used.
	bound := cost
	for i := idx; i < len(s.in.VMs); i++ {
		bound += s.minMarginal[i]
	}
	for hi, used := range s.used {
		if !used && s.onCost[hi] < 0 {
			bound += s.onCost[hi]
		}
	}
	if s.foundAny && bound >= s.bestCost-s.relGap*math.Abs(s.bestCost) {
		return
	}

	vm := s.in.VMs[idx]
	vt := s.in.VMTypes[vm.Type]

	// Try the cheapest candidate PMs first, so the incumbent improves
	// fast and later branches prune harder.
	order := s.candidateOrder(idx)
	for _, hi := range order {
		pm := s.in.PMs[hi]
		a := vt.CPU[pm.Type]
		m := vt.RAM[pm.Type]
		if s.cpu[hi]+a > 1.0000001 || s.ram[hi]+m > 1.0000001 {
			continue
		}

		wasUsed := s.used[hi]
		delta := s.varCost[idx][hi]
		if !wasUsed {
			delta += s.onCost[hi]
		}

		s.cpu[hi] += a
		s.ram[hi] += m
		s.used[hi] = true
		s.host[idx] = hi

		s.dfs(idx+1, cost+delta)

		s.cpu[hi] -= a
		s.ram[hi] -= m
		s.used[hi] = wasUsed
		s.host[idx] = -1

		if s.timedOut {
			return
		}
	}
}

// candidateOrder returns PM indices for VM idx sorted by ascending marginal
// cost, a simple greedy ordering heuristic that tends to find good
// incumbents early and prune harder.
func (s *search) candidateOrder(idx int) []int {
	h := len(s.in.PMs)
	order := make([]int, h)
	for i := range order {
		order[i] = i
	}
	// Insertion sort: h is tiny (single-digit to low teens machines per
	// coalition member, per spec.md §5 sizing), so this is cheap and
	// avoids pulling in sort.Slice's reflection overhead in the hot path.
	for i := 1; i < h; i++ {
		j := i
		for j > 0 && s.varCost[idx][order[j]] < s.varCost[idx][order[j-1]] {
			order[j], order[j-1] = order[j-1], order[j]
			j--
		}
	}
	return order
}

// buildAllocation converts the best-found assignment into a types.Allocation.
func buildAllocation(in Input, bestHost []int, baseline float64, onCost []float64) types.Allocation {
	h := len(in.PMs)
	pmOn := make([]bool, h)
	for _, hi := range bestHost {
		if hi >= 0 {
			pmOn[hi] = true
		}
	}

	total := baseline
	for hi, on := range pmOn {
		if on {
			total += onCost[hi]
		}
	}

	return types.Allocation{
		Solved:    true,
		Objective: total,
		PMOn:      pmOn,
		VMHost:    bestHost,
	}
}
