// Package solver implements the Placement Solver (spec.md §4.A): given a
// coalition's PMs, VMs and prices, find the minimum-cost feasible on/off +
// assignment decision, or report infeasibility.
//
// No MILP binding exists anywhere in the reference corpus this module was
// built from (see DESIGN.md), so this is an in-process branch-and-bound
// solver rather than a wrapper around an external solver process. The cost
// function spec.md §4.A defines is linear in the assignment decisions once
// each PM's one-time "switch on" charge is separated out (see the comment
// above buildCostModel), which makes an admissible lower bound cheap to
// compute and keeps the search exact for the tiny instance sizes this tool
// targets (spec.md §5: single-digit to low-teens players).
package solver

import (
	"time"

	"k8s.io/klog/v2"

	"cipfed/pkg/types"
)

// Input is everything the solver needs for one coalition's placement decision.
type Input struct {
	PMs []types.PM
	VMs []types.VM

	PMTypes []types.PMType
	VMTypes []types.VMType

	ElectricityPrice []float64         // $/kWh, indexed by player id
	SwitchOnCost     []map[int]float64 // [player][pmType] -> $
	SwitchOffCost    []map[int]float64 // [player][pmType] -> $
	Migration        [][][]float64     // [srcPlayer][dstPlayer][vmType] -> $

	// RelGap is the acceptable relative optimality gap; 0 means exact.
	RelGap float64
	// TimeLimit bounds wall-clock search time; <= 0 means unlimited.
	TimeLimit time.Duration
	// MinPower switches to the alternate raw-watts objective (spec.md §4.A
	// "Alternate objective"), dropping migration/transition/price terms
	// from the objective used to search - but not from the cost
	// breakdown computed over the found allocation, which is always
	// priced the normal way.
	MinPower bool
}

// Result is the solver's output, per spec.md §4.A.
type Result struct {
	types.Allocation
	WattsByPlayer map[types.PlayerID]float64
}

const wattsToKWhScale = 1e-3 // $/kWh inputs, watts outputs, 1-hour window

// Solve runs the branch-and-bound search and returns a Result. It never
// panics on an infeasible instance: Result.Solved is false and the caller
// (spec.md §4.B step 4) must treat the coalition's value as the
// infeasibility sentinel.
func Solve(in Input) Result {
	h := len(in.PMs)
	v := len(in.VMs)

	if v == 0 {
		return solveZeroVMs(in)
	}
	if h == 0 {
		// VMs exist but nowhere to host them: infeasible by construction.
		klog.V(4).Infof("solver: %d VMs but zero PMs in coalition, infeasible", v)
		return Result{Allocation: types.Allocation{Solved: false}}
	}

	onCost, varCost, baseline := buildCostModel(in)

	s := &search{
		in:        in,
		onCost:    onCost,
		varCost:   varCost,
		deadline:  deadline(in.TimeLimit),
		relGap:    in.RelGap,
		bestCost:  posInf,
		cpu:       make([]float64, h),
		ram:       make([]float64, h),
		used:      make([]bool, h),
		host:      make([]int, v),
		bestHost:  make([]int, v),
	}
	for i := range s.host {
		s.host[i] = -1
		s.bestHost[i] = -1
	}

	s.minMarginal = make([]float64, v)
	for vi := range in.VMs {
		best := posInf
		for hi := range in.PMs {
			if varCost[vi][hi] < best {
				best = varCost[vi][hi]
			}
		}
		s.minMarginal[vi] = best
	}

	s.dfs(0, 0)

	if !s.foundAny {
		return Result{Allocation: types.Allocation{Solved: false}}
	}

	alloc := buildAllocation(in, s.bestHost, baseline, onCost)
	alloc.Optimal = !s.timedOut
	return postProcess(in, alloc)
}

// solveZeroVMs handles the spec.md §8 boundary: with no VMs to place, the
// optimal allocation powers everything off; cost is off-transition
// penalties only.
func solveZeroVMs(in Input) Result {
	pmOn := make([]bool, len(in.PMs))
	cost := 0.0
	for i, pm := range in.PMs {
		if pm.Initial {
			cost += in.SwitchOffCost[pm.Owner][pm.Type]
		}
	}
	alloc := types.Allocation{
		Solved:  true,
		Optimal: true,
		Cost:    cost,
		PMOn:    pmOn,
		VMHost:  nil,
	}
	alloc.Objective = cost
	return Result{Allocation: alloc, WattsByPlayer: map[types.PlayerID]float64{}}
}

func deadline(limit time.Duration) time.Time {
	if limit <= 0 {
		return time.Time{}
	}
	return time.Now().Add(limit)
}

const posInf = 1e308

// buildCostModel separates the spec.md §4.A objective into:
//   - onCost[h]: the one-time charge paid exactly once if PM h is used by
//     at least one VM (idle power + possible switch-on, net of the
//     switch-off charge avoided by not turning h off).
//   - varCost[v][h]: the additional charge of assigning VM v to PM h
//     (incremental electricity for v's CPU share, plus migration).
//   - baseline: the cost if every PM is switched off (every initially-on
//     PM pays its switch-off cost); onCost already nets this out per PM,
//     so the final total is baseline + sum(onCost of used PMs) +
//     sum(varCost of assignments).
//
// This separation is what makes the search's running cost exactly
// additive per assignment decision (see the package doc comment).
func buildCostModel(in Input) (onCost []float64, varCost [][]float64, baseline float64) {
	h := len(in.PMs)
	v := len(in.VMs)
	onCost = make([]float64, h)
	varCost = make([][]float64, v)
	for i := range varCost {
		varCost[i] = make([]float64, h)
	}

	for hi, pm := range in.PMs {
		pt := in.PMTypes[pm.Type]
		offCost := 0.0
		if pm.Initial {
			offCost = in.SwitchOffCost[pm.Owner][pm.Type]
		}
		baseline += offCost

		if in.MinPower {
			onCost[hi] = pt.PMin
		} else {
			onCost[hi] = pt.PMin*in.ElectricityPrice[pm.Owner]*wattsToKWhScale - offCost
			if !pm.Initial {
				onCost[hi] += in.SwitchOnCost[pm.Owner][pm.Type]
			}
		}
	}

	for vi, vm := range in.VMs {
		vt := in.VMTypes[vm.Type]
		for hi, pm := range in.PMs {
			pt := in.PMTypes[pm.Type]
			watts := (pt.PMax - pt.PMin) * vt.CPU[pm.Type]
			if in.MinPower {
				varCost[vi][hi] = watts
				continue
			}
			elec := watts * in.ElectricityPrice[pm.Owner] * wattsToKWhScale
			mig := in.Migration[vm.Owner][pm.Owner][vm.Type]
			varCost[vi][hi] = elec + mig
		}
	}

	if in.MinPower {
		hasTransitionOrMigration := false
		for _, row := range in.Migration {
			for _, col := range row {
				for _, g := range col {
					if g != 0 {
						hasTransitionOrMigration = true
					}
				}
			}
		}
		for _, m := range in.SwitchOnCost {
			for _, c := range m {
				if c != 0 {
					hasTransitionOrMigration = true
				}
			}
		}
		for _, m := range in.SwitchOffCost {
			for _, c := range m {
				if c != 0 {
					hasTransitionOrMigration = true
				}
			}
		}
		if hasTransitionOrMigration {
			klog.Warningf("solver: min-power objective mixes watts with nonzero transition/migration costs; those terms are dropped from the search objective (spec design note §9)")
		}
	}

	return onCost, varCost, baseline
}
