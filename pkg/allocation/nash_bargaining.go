// Package allocation provides supplementary fairness diagnostics recorded
// alongside every evaluated coalition (SPEC_FULL.md §4.B): alternative
// payoff splits and shadow prices that never affect partition selection,
// only the stdout report's "fairness diagnostics" block.
package allocation

import (
	"fmt"
	"math"

	"cipfed/pkg/types"
)

// MaxRedistributionIterations bounds the surplus-redistribution loop below.
// Surplus still unallocated when this bound is reached, or once every
// player is capped, is discarded rather than looping forever.
const MaxRedistributionIterations = 100

// NashBargainingParams is one coalition member's inputs to the Nash
// Bargaining Solution over v(S).
type NashBargainingParams struct {
	Player types.PlayerID
	Weight float64 // bargaining power
	// Baseline is the disagreement point d_p: what the player gets acting
	// alone. SPEC_FULL.md uses the singleton value v({p}).
	Baseline float64
	MaxShare float64 // an upper bound on what the player can be given, v(S) if uncapped
	// Demand is the player's "ideal" share (e.g. its Shapley value),
	// used only to drive the adaptive-gain redistribution step below.
	Demand float64
}

// NashBargainingResult is the allocation plus redistribution metadata.
type NashBargainingResult struct {
	Payoff     map[types.PlayerID]float64
	Iterations int
}

// NashBargainingSolution computes the Nash Bargaining Solution over v(S):
//
//	maximize  Π_p (x_p - d_p)^w_p   subject to  Σ_p x_p <= v(S), x_p >= d_p, x_p <= MaxShare_p
//
// Algorithm: water-filling with weights.
//  1. Everyone gets their baseline d_p.
//  2. Distribute the surplus v(S) - Σd_p proportional to w_p until the
//     value is exhausted or a player's MaxShare is hit.
//  3. Redistribute excess from capped players to the rest.
func NashBargainingSolution(value float64, members []NashBargainingParams) map[types.PlayerID]float64 {
	return NashBargainingSolutionWithMetadata(value, members).Payoff
}

// NashBargainingSolutionWithMetadata is NashBargainingSolution plus the
// number of redistribution iterations performed.
func NashBargainingSolutionWithMetadata(value float64, members []NashBargainingParams) NashBargainingResult {
	if len(members) == 0 {
		return NashBargainingResult{Payoff: make(map[types.PlayerID]float64)}
	}

	totalBaseline := 0.0
	totalWeight := 0.0
	for _, m := range members {
		totalBaseline += m.Baseline
		totalWeight += m.Weight
	}

	surplus := value - totalBaseline
	if surplus < 0 {
		return NashBargainingResult{Payoff: scaleBaselinesWeighted(members, value)}
	}

	payoff := make(map[types.PlayerID]float64)
	remaining := surplus
	uncapped := make([]NashBargainingParams, 0, len(members))

	for _, m := range members {
		share := surplus * safeDiv(m.Weight, totalWeight)
		alloc := m.Baseline + share

		if alloc > m.MaxShare {
			payoff[m.Player] = m.MaxShare
			remaining -= m.MaxShare - m.Baseline
		} else {
			uncapped = append(uncapped, m)
			payoff[m.Player] = alloc
			remaining -= share
		}
	}

	iterations := 0
	if remaining > 0 && len(uncapped) > 0 {
		iterations = redistributeNashSurplus(payoff, uncapped, remaining)
	}

	return NashBargainingResult{Payoff: payoff, Iterations: iterations}
}

// redistributeNashSurplus hands the excess value from capped members to the
// rest, proportional to weight, with a gain that grows as a member's
// residual demand grows. Bounded by MaxRedistributionIterations; if every
// member ends up capped with value still unallocated, the remainder is
// discarded rather than looping forever.
func redistributeNashSurplus(payoff map[types.PlayerID]float64, uncapped []NashBargainingParams, remaining float64) int {
	iterations := 0

	for remaining > 1e-9 && len(uncapped) > 0 && iterations < MaxRedistributionIterations {
		iterations++

		uncappedWeight := 0.0
		for _, m := range uncapped {
			uncappedWeight += m.Weight
		}
		if uncappedWeight == 0 {
			break
		}

		distributed := 0.0
		newUncapped := make([]NashBargainingParams, 0, len(uncapped))

		for _, m := range uncapped {
			residual := m.Demand - payoff[m.Player]

			adaptiveGain := 1.0
			if m.Baseline > 0 {
				adaptiveGain = 1.0 + 0.5*math.Min(1.0, residual/m.Baseline)
			}
			adaptiveGain = math.Max(1.0, math.Min(2.0, adaptiveGain))

			extra := remaining * (m.Weight / uncappedWeight) * adaptiveGain
			if extra > remaining-distributed {
				extra = remaining - distributed
			}
			newAlloc := payoff[m.Player] + extra

			if newAlloc > m.MaxShare {
				distributed += m.MaxShare - payoff[m.Player]
				payoff[m.Player] = m.MaxShare
			} else {
				distributed += extra
				payoff[m.Player] = newAlloc
				newUncapped = append(newUncapped, m)
			}
		}

		remaining -= distributed

		if len(newUncapped) == len(uncapped) && distributed == 0 {
			break
		}
		uncapped = newUncapped
	}

	return iterations
}

// scaleBaselinesWeighted handles the case where v(S) cannot even cover
// every disagreement point: x_p = (d_p * w_p / Σ d_q w_q) * v(S).
func scaleBaselinesWeighted(members []NashBargainingParams, value float64) map[types.PlayerID]float64 {
	payoff := make(map[types.PlayerID]float64)

	weightedBaseline := 0.0
	for _, m := range members {
		weightedBaseline += m.Baseline * m.Weight
	}

	if weightedBaseline == 0 {
		share := value / float64(len(members))
		for _, m := range members {
			payoff[m.Player] = share
		}
		return payoff
	}

	scale := value / weightedBaseline
	for _, m := range members {
		payoff[m.Player] = m.Baseline * m.Weight * scale
	}
	return payoff
}

// VerifyNashAxioms checks that a payoff split satisfies the textbook Nash
// bargaining axioms, returning nil if so or an error describing the
// violation otherwise. Used only as a diagnostic sanity check, never to
// reject or alter a reported split.
func VerifyNashAxioms(payoff map[types.PlayerID]float64, members []NashBargainingParams, value float64) error {
	total := 0.0
	allCapped := true
	for _, m := range members {
		x := payoff[m.Player]
		total += x
		if x < m.MaxShare {
			allCapped = false
		}
	}
	if total < value-1e-6 && !allCapped {
		return fmt.Errorf("Pareto violation: v(S)=%v, allocated %v, not all members capped", value, total)
	}

	for _, m := range members {
		if payoff[m.Player] < m.Baseline-1e-9 {
			return fmt.Errorf("individual-rationality violation: player %d got %v < baseline %v", m.Player, payoff[m.Player], m.Baseline)
		}
	}

	if len(members) == 0 {
		return nil
	}

	firstWeight := members[0].Weight
	allEqual := true
	for _, m := range members {
		if math.Abs(m.Weight-firstWeight) > 1e-6 {
			allEqual = false
			break
		}
	}
	if allEqual && len(members) > 1 {
		minSurplus, maxSurplus := math.Inf(1), math.Inf(-1)
		for _, m := range members {
			s := payoff[m.Player] - m.Baseline
			minSurplus = math.Min(minSurplus, s)
			maxSurplus = math.Max(maxSurplus, s)
		}
		if maxSurplus > 0 && (maxSurplus-minSurplus)/maxSurplus > 0.1 {
			return fmt.Errorf("symmetry violation: surplus range [%v, %v] with equal weights", minSurplus, maxSurplus)
		}
	}

	return nil
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
