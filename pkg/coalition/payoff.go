package coalition

import "cipfed/pkg/types"

// ShapleyValues computes phi_p(S) for every player p in S, per spec.md
// §4.B step 5:
//
//	phi_p(S) = sum_{T subset S\{p}} (|T|! * (|S|-|T|-1)!) / |S|! * (v(T u {p}) - v(T))
//
// The teacher's ComputeShapleyValue (pkg/coalition/shapley.go) uses Monte
// Carlo permutation sampling; N is tiny by design here (spec.md §5), so this
// walks the exact sum instead, iterating submasks of S\{p} directly rather
// than sampling permutations.
func ShapleyValues(g *Game, s types.CoalitionID) map[types.PlayerID]float64 {
	members := s.Members(g.N)
	k := len(members)
	result := make(map[types.PlayerID]float64, k)
	if k == 0 {
		return result
	}

	fact := factorials(k)
	for _, p := range members {
		pBit := types.CoalitionID(1) << uint(p)
		rest := s &^ pBit

		total := 0.0
		for sub := rest; ; sub = (sub - 1) & rest {
			tSize := sub.Size()
			weight := fact[tSize] * fact[k-tSize-1] / fact[k]
			total += weight * (g.Value(sub|pBit) - g.Value(sub))
			if sub == 0 {
				break
			}
		}
		result[p] = total
	}
	return result
}

// BanzhafValues computes beta_p(S) for every player p in S, per spec.md
// §4.B step 5:
//
//	beta_p(S) = (1/2^(|S|-1)) * sum_{T subset S\{p}} (v(T u {p}) - v(T))
func BanzhafValues(g *Game, s types.CoalitionID) map[types.PlayerID]float64 {
	members := s.Members(g.N)
	k := len(members)
	result := make(map[types.PlayerID]float64, k)
	if k == 0 {
		return result
	}

	denom := 1.0
	for i := 0; i < k-1; i++ {
		denom *= 2
	}

	for _, p := range members {
		pBit := types.CoalitionID(1) << uint(p)
		rest := s &^ pBit

		total := 0.0
		for sub := rest; ; sub = (sub - 1) & rest {
			total += g.Value(sub|pBit) - g.Value(sub)
			if sub == 0 {
				break
			}
		}
		result[p] = total / denom
	}
	return result
}

// NormalizedBanzhafValues scales the raw Banzhaf index so that
// sum_{p in S} beta_p(S) = v(S), per spec.md §4.B step 5.
func NormalizedBanzhafValues(g *Game, s types.CoalitionID) map[types.PlayerID]float64 {
	raw := BanzhafValues(g, s)

	sum := 0.0
	for _, v := range raw {
		sum += v
	}

	vS := g.Value(s)
	if sum == 0 {
		k := len(raw)
		if k == 0 {
			return raw
		}
		share := vS / float64(k)
		result := make(map[types.PlayerID]float64, k)
		for p := range raw {
			result[p] = share
		}
		return result
	}

	scale := vS / sum
	result := make(map[types.PlayerID]float64, len(raw))
	for p, v := range raw {
		result[p] = v * scale
	}
	return result
}

func factorials(n int) []float64 {
	f := make([]float64, n+1)
	f[0] = 1
	for i := 1; i <= n; i++ {
		f[i] = f[i-1] * float64(i)
	}
	return f
}
