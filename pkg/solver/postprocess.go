package solver

import "cipfed/pkg/types"

// postProcess recomputes the monetary cost and energy breakdown from the
// found allocation using the real pricing formula (spec.md §4.A
// "Post-processing"), regardless of which objective (min-cost or
// min-power) drove the search. This guarantees the reported Cost/KWh are
// always priced consistently even when MinPower was used to search.
func postProcess(in Input, alloc types.Allocation) Result {
	watts := make([]float64, len(in.PMs))
	cpuUsed := make([]float64, len(in.PMs))

	for vi, hi := range alloc.VMHost {
		if hi < 0 {
			continue
		}
		vm := in.VMs[vi]
		pm := in.PMs[hi]
		cpuUsed[hi] += in.VMTypes[vm.Type].CPU[pm.Type]
	}

	cost := 0.0
	kwh := 0.0
	wattsByPlayer := make(map[types.PlayerID]float64)

	for hi, pm := range in.PMs {
		pt := in.PMTypes[pm.Type]
		on := alloc.PMOn[hi]

		if on {
			w := pt.PMin + (pt.PMax-pt.PMin)*cpuUsed[hi]
			watts[hi] = w
			kwh += w * wattsToKWhScale
			cost += w * in.ElectricityPrice[pm.Owner] * wattsToKWhScale
			wattsByPlayer[pm.Owner] += w

			if !pm.Initial {
				cost += in.SwitchOnCost[pm.Owner][pm.Type]
			}
		} else if pm.Initial {
			cost += in.SwitchOffCost[pm.Owner][pm.Type]
		}
	}

	for vi, hi := range alloc.VMHost {
		if hi < 0 {
			continue
		}
		vm := in.VMs[vi]
		pm := in.PMs[hi]
		cost += in.Migration[vm.Owner][pm.Owner][vm.Type]
	}

	alloc.Cost = cost
	alloc.KWh = kwh
	if !in.MinPower {
		alloc.Objective = cost
	}

	return Result{Allocation: alloc, WattsByPlayer: wattsByPlayer}
}
