package allocation

import (
	"sort"

	"cipfed/pkg/types"
)

// MemberDemand is one member's market parameters for splitting a coalition's
// pooled CPU capacity share.
type MemberDemand struct {
	Demand   float64 // normalized demand in [0,1]
	Bid      float64 // effective bid (weight * demand)
	MinShare float64 // minimum CPU share guaranteed
	MaxShare float64 // maximum CPU share allowed
	Weight   float64 // budget/weight, used when every bid is zero
}

// ClearMarket splits a pooled capacity across members using Fisher-market /
// proportional-fairness water-filling; pkg/coalition calls it with v(S) as
// the capacity and singleton values as the minimum shares. This never
// feeds back into the discrete placement computed by pkg/solver; it is
// recorded purely as a reference comparison against the solver's actual
// per-member VM assignment.
//
// Algorithm:
//  1. Allocate minimums (scale down if they exceed capacity).
//  2. Compute effective bids (weight * demand).
//  3. Distribute the remainder proportionally to bids, or weights if every
//     bid is zero.
//  4. Enforce maximum bounds with water-filling redistribution.
//
// This maximizes Nash social welfare, Σ log(share_p), subject to capacity
// and bounds.
func ClearMarket(capacity float64, members map[types.PlayerID]MemberDemand) map[types.PlayerID]float64 {
	if len(members) == 0 {
		return make(map[types.PlayerID]float64)
	}

	totalMin := 0.0
	for _, m := range members {
		totalMin += m.MinShare
	}

	targets := make(map[types.PlayerID]float64, len(members))

	if totalMin > capacity {
		scale := capacity / totalMin
		for p, m := range members {
			targets[p] = m.MinShare * scale
		}
		return targets
	}

	remaining := capacity - totalMin
	for p, m := range members {
		targets[p] = m.MinShare
	}

	totalBid := 0.0
	totalWeight := 0.0
	for _, m := range members {
		totalBid += m.Bid
		totalWeight += m.Weight
	}

	redistKeys := make(map[types.PlayerID]float64, len(members))
	totalRedistKey := 0.0

	switch {
	case totalBid > 0:
		for p, m := range members {
			redistKeys[p] = m.Bid
			totalRedistKey += m.Bid
		}
	case totalWeight > 0:
		for p, m := range members {
			redistKeys[p] = m.Weight
			totalRedistKey += m.Weight
		}
	default:
		for p := range members {
			redistKeys[p] = 1.0
			totalRedistKey += 1.0
		}
	}

	if totalRedistKey > 0 {
		for p := range members {
			targets[p] += (redistKeys[p] / totalRedistKey) * remaining
		}
	}

	for {
		excess := 0.0
		uncappedKey := 0.0
		var uncapped []types.PlayerID

		for p, m := range members {
			if targets[p] > m.MaxShare {
				excess += targets[p] - m.MaxShare
				targets[p] = m.MaxShare
			} else if targets[p] < m.MaxShare {
				uncappedKey += redistKeys[p]
				uncapped = append(uncapped, p)
			}
		}

		if excess <= 1e-9 {
			break
		}
		if uncappedKey <= 0 {
			break
		}

		for _, p := range uncapped {
			targets[p] += (redistKeys[p] / uncappedKey) * excess
		}
	}

	return clampShares(targets, members)
}

// clampShares enforces [MinShare, MaxShare] bounds defensively after
// floating-point redistribution, visiting players in ascending ID order.
func clampShares(targets map[types.PlayerID]float64, members map[types.PlayerID]MemberDemand) map[types.PlayerID]float64 {
	players := make([]types.PlayerID, 0, len(members))
	for p := range members {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i] < players[j] })

	out := make(map[types.PlayerID]float64, len(members))
	for _, p := range players {
		m := members[p]
		v := targets[p]
		if v < m.MinShare {
			v = m.MinShare
		}
		if v > m.MaxShare {
			v = m.MaxShare
		}
		out[p] = v
	}
	return out
}
