package allocation

import "cipfed/pkg/types"

// KalaiSmorodinskyParams holds one member's inputs to a Kalai-Smorodinsky
// bargaining solution over v(S): like Nash bargaining but anchored to each
// member's ideal (utopia) point rather than only a disagreement point.
type KalaiSmorodinskyParams struct {
	Player   types.PlayerID
	Weight   float64 // bargaining power
	Baseline float64 // d_p: disagreement point, the singleton value v({p})
	Ideal    float64 // u_p: utopia point, the best this player could hope for
	MaxShare float64 // hard upper bound on this player's share
	Demand   float64 // the player's "ask", bounded against Ideal/MaxShare
}

// KalaiSmorodinskySolution computes the Kalai-Smorodinsky solution:
//
//	maximize lambda such that x_p = d_p + lambda*(u_p - d_p) for every p,
//	subject to Σ_p x_p <= v(S)
//
// Every member gets the same fraction of their own gain range (ideal -
// baseline); this proportional-gains property converges in one pass where
// Nash bargaining needs iterative redistribution.
func KalaiSmorodinskySolution(value float64, members []KalaiSmorodinskyParams) map[types.PlayerID]float64 {
	if len(members) == 0 {
		return make(map[types.PlayerID]float64)
	}

	totalBaseline := 0.0
	for _, m := range members {
		totalBaseline += m.Baseline
	}

	availableSurplus := value - totalBaseline
	if availableSurplus < 0 {
		return scaleBaselinesKalai(members, value)
	}

	ideals := make(map[types.PlayerID]float64, len(members))
	totalIdealGain := 0.0
	for _, m := range members {
		ideal := m.Demand
		if ideal > m.Ideal {
			ideal = m.Ideal
		}
		if ideal > m.MaxShare {
			ideal = m.MaxShare
		}
		if ideal < m.Baseline {
			ideal = m.Baseline
		}
		ideals[m.Player] = ideal
		if gain := ideal - m.Baseline; gain > 0 {
			totalIdealGain += gain * m.Weight
		}
	}

	if totalIdealGain == 0 {
		payoff := make(map[types.PlayerID]float64, len(members))
		for _, m := range members {
			payoff[m.Player] = m.Baseline
		}
		return payoff
	}

	maxLambda := availableSurplus / totalIdealGain

	payoff := make(map[types.PlayerID]float64, len(members))
	totalAllocated := 0.0

	for _, m := range members {
		ideal := ideals[m.Player]
		gainRange := ideal - m.Baseline
		if gainRange <= 0 {
			payoff[m.Player] = m.Baseline
			totalAllocated += m.Baseline
			continue
		}

		lambda := maxLambda * m.Weight
		alloc := m.Baseline + lambda*gainRange
		if alloc > m.MaxShare {
			alloc = m.MaxShare
		}
		payoff[m.Player] = alloc
		totalAllocated += alloc
	}

	if remaining := value - totalAllocated; remaining > 0 {
		redistributeKalaiSurplus(payoff, members, ideals, remaining, totalIdealGain)
	}

	return payoff
}

// scaleBaselinesKalai scales disagreement points proportionally when v(S)
// cannot even cover them all.
func scaleBaselinesKalai(members []KalaiSmorodinskyParams, value float64) map[types.PlayerID]float64 {
	payoff := make(map[types.PlayerID]float64, len(members))

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

	for _, m := range members {
		payoff[m.Player] = value * (m.Baseline * m.Weight / weightedBaseline)
	}
	return payoff
}

// redistributeKalaiSurplus hands out value left over after some members hit
// their ideal point or MaxShare, proportional to remaining gain range.
func redistributeKalaiSurplus(
	payoff map[types.PlayerID]float64,
	members []KalaiSmorodinskyParams,
	ideals map[types.PlayerID]float64,
	remaining float64,
	totalIdealGain float64,
) {
	uncapped := make([]KalaiSmorodinskyParams, 0, len(members))
	uncappedWeight := 0.0

	for _, m := range members {
		ideal := ideals[m.Player]
		if payoff[m.Player] < ideal {
			uncapped = append(uncapped, m)
			if gain := ideal - m.Baseline; gain > 0 {
				uncappedWeight += gain * m.Weight
			}
		}
	}

	if uncappedWeight == 0 || remaining <= 0 {
		return
	}

	for _, m := range uncapped {
		ideal := ideals[m.Player]
		gainRange := ideal - m.Baseline
		if gainRange <= 0 {
			continue
		}
		remainingGain := ideal - payoff[m.Player]
		if remainingGain <= 0 {
			continue
		}

		weightedGain := remainingGain * m.Weight
		extra := remaining * (weightedGain / uncappedWeight)

		newAlloc := payoff[m.Player] + extra
		if newAlloc > ideal {
			newAlloc = ideal
		}
		if newAlloc > m.MaxShare {
			newAlloc = m.MaxShare
		}
		payoff[m.Player] = newAlloc
	}
}
