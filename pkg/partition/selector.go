// Package partition implements the Partition Selector (spec.md §4.C):
// enumerate every set partition of the player set and keep those
// satisfying the chosen stability/optimality criterion.
package partition

import (
	"sort"

	"k8s.io/klog/v2"

	"cipfed/pkg/combinatorics"
	"cipfed/pkg/floatx"
	"cipfed/pkg/types"
)

// Criterion names one of the four acceptance rules spec.md §4.C defines.
type Criterion string

const (
	MergeSplit Criterion = "merge-split"
	Nash       Criterion = "nash"
	Pareto     Criterion = "pareto"
	Social     Criterion = "social"
)

// Select enumerates every set partition of {0..n-1} via a lexicographic
// partition generator and returns those passing criterion, each carrying
// the payoff vector and total value it inherits from infos.
func Select(n int, infos map[types.CoalitionID]types.CoalitionInfo, criterion Criterion) []types.Partition {
	it := combinatorics.NewPartitionIterator(n)

	var accepted []types.Partition
	var paretoBest map[types.PlayerID]float64
	var socialBest float64
	haveSocialBest := false

	for it.HasNext() {
		blocks := it.Next()
		part := buildPartition(blocks, infos)

		switch criterion {
		case Nash:
			if isNashStable(blocks, infos, n) {
				accepted = append(accepted, part)
			} else {
				klog.V(3).Infof("partition %v rejected: not Nash-stable", part.Coalitions)
			}

		case Pareto:
			if paretoDominates(part.Payoff, paretoBest, n) {
				accepted = append(accepted, part)
				paretoBest = part.Payoff
			}

		case Social:
			switch {
			case !haveSocialBest || floatx.DefinitelyGreater(part.TotalValue, socialBest, floatx.DefaultEpsilon):
				accepted = []types.Partition{part}
				socialBest = part.TotalValue
				haveSocialBest = true
			case floatx.EssentiallyEqual(part.TotalValue, socialBest, floatx.DefaultEpsilon):
				accepted = append(accepted, part)
			}

		default: // MergeSplit
			if isMergeSplitStable(blocks, infos) {
				accepted = append(accepted, part)
			} else {
				klog.V(3).Infof("partition %v rejected: not merge/split-stable", part.Coalitions)
			}
		}
	}

	return accepted
}

// blockCoalitionID maps a block of player indices to its CoalitionID
// bitmask.
func blockCoalitionID(block []int) types.CoalitionID {
	var id types.CoalitionID
	for _, p := range block {
		id = id.Union(types.SingletonID(types.PlayerID(p)))
	}
	return id
}

// buildPartition converts a restricted-growth-string block list into a
// types.Partition, merging each block's payoff vector and summing values.
func buildPartition(blocks [][]int, infos map[types.CoalitionID]types.CoalitionInfo) types.Partition {
	ids := make([]types.CoalitionID, len(blocks))
	payoff := make(map[types.PlayerID]float64)
	total := 0.0

	for i, block := range blocks {
		id := blockCoalitionID(block)
		ids[i] = id
		info := infos[id]
		total += info.Value
		for p, v := range info.Payoff {
			payoff[p] = v
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return types.Partition{Coalitions: ids, Payoff: payoff, TotalValue: total}
}

// isMergeSplitStable checks D_hp-stability: no member group within a block
// wants to split off, and no non-empty family of blocks wants to merge.
func isMergeSplitStable(blocks [][]int, infos map[types.CoalitionID]types.CoalitionInfo) bool {
	for _, block := range blocks {
		if !isSplitStable(block, infos) {
			return false
		}
	}

	k := len(blocks)
	blockIDs := make([]types.CoalitionID, k)
	blockValues := make([]float64, k)
	for i, block := range blocks {
		id := blockCoalitionID(block)
		blockIDs[i] = id
		blockValues[i] = infos[id].Value
	}

	for _, family := range combinatorics.AllNonEmptySubsets(k) {
		if combinatorics.Count(family) < 2 {
			continue // a lone block trivially equals itself
		}
		var union types.CoalitionID
		sum := 0.0
		for i := 0; i < k; i++ {
			if family&(uint64(1)<<uint(i)) != 0 {
				union = union.Union(blockIDs[i])
				sum += blockValues[i]
			}
		}
		if !floatx.GreaterOrEqual(sum, infos[union].Value, floatx.DefaultEpsilon) {
			return false
		}
	}
	return true
}

// isSplitStable checks that no sub-partition of block beats block's own
// value, by enumerating every partition of block's members.
func isSplitStable(block []int, infos map[types.CoalitionID]types.CoalitionInfo) bool {
	if len(block) <= 1 {
		return true
	}
	blockValue := infos[blockCoalitionID(block)].Value

	sub := combinatorics.NewPartitionIterator(len(block))
	for sub.HasNext() {
		localBlocks := sub.Next()
		sum := 0.0
		for _, local := range localBlocks {
			members := make([]int, len(local))
			for i, idx := range local {
				members[i] = block[idx]
			}
			sum += infos[blockCoalitionID(members)].Value
		}
		if !floatx.GreaterOrEqual(blockValue, sum, floatx.DefaultEpsilon) {
			return false
		}
	}
	return true
}

// isNashStable checks that no player prefers moving to another block in Π,
// or to a fresh singleton, over its current block's payoff.
func isNashStable(blocks [][]int, infos map[types.CoalitionID]types.CoalitionInfo, n int) bool {
	blockOf := make([]int, n)
	blockIDs := make([]types.CoalitionID, len(blocks))
	for bi, block := range blocks {
		blockIDs[bi] = blockCoalitionID(block)
		for _, p := range block {
			blockOf[p] = bi
		}
	}

	for p := 0; p < n; p++ {
		player := types.PlayerID(p)
		current := blockOf[p]
		currentPayoff := infos[blockIDs[current]].Payoff[player]

		for j := range blocks {
			if j == current {
				continue
			}
			altID := blockIDs[j].Union(types.SingletonID(player))
			if floatx.DefinitelyGreater(infos[altID].Payoff[player], currentPayoff, floatx.DefaultEpsilon) {
				return false
			}
		}

		singleID := types.SingletonID(player)
		if floatx.DefinitelyGreater(infos[singleID].Payoff[player], currentPayoff, floatx.DefaultEpsilon) {
			return false
		}
	}
	return true
}

// paretoDominates reports whether candidate is >= best for every player and
// strictly > for at least one, matching the monotone single-pass filter
// spec.md §4.C and §9 call a weaker-than-textbook Pareto criterion. best
// being nil (no partition seen yet) means every player's running max is
// -infinity, so the first candidate always passes.
func paretoDominates(candidate, best map[types.PlayerID]float64, n int) bool {
	if best == nil {
		return true
	}
	strictlyBetter := false
	for p := 0; p < n; p++ {
		player := types.PlayerID(p)
		c, b := candidate[player], best[player]
		if floatx.DefinitelyLess(c, b, floatx.DefaultEpsilon) {
			return false
		}
		if floatx.DefinitelyGreater(c, b, floatx.DefaultEpsilon) {
			strictlyBetter = true
		}
	}
	return strictlyBetter
}
