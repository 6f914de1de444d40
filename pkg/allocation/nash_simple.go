package allocation

import "cipfed/pkg/types"

// PairwiseBid is one side of a 2-player Nash bargaining split.
type PairwiseBid struct {
	Player   types.PlayerID
	Weight   float64 // bargaining power
	Baseline float64 // disagreement point d_p
	MaxShare float64 // upper bound on this player's share
}

// SolveNashSimple computes the closed-form Nash Bargaining Solution for
// exactly two players splitting v(S), per SPEC_FULL.md §4.B's supplementary
// diagnostics. Unlike NashBargainingSolution's general iterative
// redistribution, two players never need more than a single cap-and-handback
// pass to converge, so this is solved directly rather than by looping.
func SolveNashSimple(value float64, a, b PairwiseBid) map[types.PlayerID]float64 {
	totalBaseline := a.Baseline + b.Baseline
	if value < totalBaseline {
		return scalePairwiseBaselines(value, a, b)
	}

	surplus := value - totalBaseline
	totalWeight := a.Weight + b.Weight

	shareA := surplus * safeDiv(a.Weight, totalWeight)
	shareB := surplus - shareA

	allocA := a.Baseline + shareA
	allocB := b.Baseline + shareB

	if allocA > a.MaxShare {
		leftover := allocA - a.MaxShare
		allocA = a.MaxShare
		allocB = min(allocB+leftover, b.MaxShare)
	} else if allocB > b.MaxShare {
		leftover := allocB - b.MaxShare
		allocB = b.MaxShare
		allocA = min(allocA+leftover, a.MaxShare)
	}

	return map[types.PlayerID]float64{a.Player: allocA, b.Player: allocB}
}

// scalePairwiseBaselines handles v(S) too small to cover both disagreement
// points: v(S) is split in proportion to each player's weight-scaled
// baseline (d_p * w_p).
func scalePairwiseBaselines(value float64, a, b PairwiseBid) map[types.PlayerID]float64 {
	weightedBaseline := a.Baseline*a.Weight + b.Baseline*b.Weight
	if weightedBaseline == 0 {
		return map[types.PlayerID]float64{a.Player: value / 2, b.Player: value / 2}
	}
	scale := value / weightedBaseline
	return map[types.PlayerID]float64{
		a.Player: a.Baseline * a.Weight * scale,
		b.Player: b.Baseline * b.Weight * scale,
	}
}
