package lpcore

import (
	"cipfed/pkg/combinatorics"
	"cipfed/pkg/floatx"
	"cipfed/pkg/types"
)

// MaxCoreTestSize bounds the number of players in a sub-game that
// CoreNonEmpty/PayoffInCore will test. Testing the core needs one
// inequality per non-empty proper subset, 2^k-2 of them; this keeps that
// count affordable, mirroring the teacher's MaxCoalitionSize guard rail.
const MaxCoreTestSize = 12

// CoreNonEmpty decides whether the core of the sub-game restricted to S is
// non-empty: does there exist a payoff vector x >= 0 with
// sum_{p in S} x_p = v(S) and sum_{p in T} x_p >= v(T) for every non-empty
// proper T subset of S (spec.md §4.B step 6).
//
// It solves the least-core LP: minimize the smallest uniform deficiency z
// such that sum_{p in T} x_p + z >= v(T) for every T. The core is
// non-empty iff the optimal z* <= 0 (within floatx.DefaultEpsilon).
func CoreNonEmpty(value func(types.CoalitionID) float64, members []types.PlayerID, s types.CoalitionID) bool {
	k := len(members)
	if k == 0 {
		return true
	}
	if k > MaxCoreTestSize {
		return false
	}

	vS := value(s)
	all := combinatorics.AllNonEmptySubsets(k)
	full := uint64(1)<<uint(k) - 1

	proper := make([]uint64, 0, len(all))
	for _, t := range all {
		if t != full {
			proper = append(proper, t)
		}
	}

	localToGlobal := func(mask uint64) types.CoalitionID {
		var g types.CoalitionID
		for i := 0; i < k; i++ {
			if mask&(1<<uint(i)) != 0 {
				g |= types.CoalitionID(1) << uint(members[i])
			}
		}
		return g
	}

	m := len(proper)
	xCols := k
	zpCol := k
	zmCol := k + 1
	sBase := k + 2        // one surplus column per proper subset
	structCols := sBase + m
	aBase := structCols    // one artificial column per row
	rows := m + 1
	cols := aBase + rows

	tb := newTableau(rows, cols)

	for row, tmask := range proper {
		vT := value(localToGlobal(tmask))
		for i := 0; i < xCols; i++ {
			if tmask&(1<<uint(i)) != 0 {
				tb.a[row][i] = 1
			}
		}
		tb.a[row][zpCol] = 1
		tb.a[row][zmCol] = -1
		tb.a[row][sBase+row] = -1
		tb.a[row][cols] = vT
		if vT < 0 {
			for j := 0; j <= cols; j++ {
				tb.a[row][j] = -tb.a[row][j]
			}
		}
		tb.a[row][aBase+row] = 1
		tb.basis[row] = aBase + row
	}

	eqRow := m
	for i := 0; i < xCols; i++ {
		tb.a[eqRow][i] = 1
	}
	tb.a[eqRow][cols] = vS
	if vS < 0 {
		for j := 0; j <= cols; j++ {
			tb.a[eqRow][j] = -tb.a[eqRow][j]
		}
	}
	tb.a[eqRow][aBase+eqRow] = 1
	tb.basis[eqRow] = aBase + eqRow

	maxIter := 200 * (rows + cols)

	phase1Cost := make([]float64, cols)
	for i := aBase; i < cols; i++ {
		phase1Cost[i] = 1
	}
	if !tb.runSimplex(phase1Cost, nil, maxIter) {
		return false
	}

	sumArtificials := 0.0
	for i := 0; i < rows; i++ {
		if tb.basis[i] >= aBase {
			sumArtificials += tb.rhs(i)
		}
	}
	if sumArtificials > simplexEpsilon {
		return false
	}

	// Drive any still-basic, zero-level artificial out of the basis so it
	// cannot contaminate the phase 2 optimum; a row that stays artificial
	// (all-zero among structural columns) was a redundant constraint.
	for i := 0; i < rows; i++ {
		if tb.basis[i] < aBase {
			continue
		}
		for j := 0; j < aBase; j++ {
			if tb.a[i][j] > simplexEpsilon || tb.a[i][j] < -simplexEpsilon {
				tb.pivot(i, j)
				break
			}
		}
	}

	ignore := make([]bool, cols)
	for i := aBase; i < cols; i++ {
		ignore[i] = true
	}

	phase2Cost := make([]float64, cols)
	phase2Cost[zpCol] = 1
	phase2Cost[zmCol] = -1
	if !tb.runSimplex(phase2Cost, ignore, maxIter) {
		return false
	}

	zStar := 0.0
	for i := 0; i < rows; i++ {
		if tb.basis[i] == zpCol {
			zStar += tb.rhs(i)
		}
		if tb.basis[i] == zmCol {
			zStar -= tb.rhs(i)
		}
	}

	return zStar < floatx.DefaultEpsilon
}

// PayoffInCore checks a FIXED payoff vector against the core constraints
// directly (spec.md §4.B step 7). Unlike CoreNonEmpty this needs no LP,
// only the same subset enumeration the teacher's IsInEpsilonCore walks.
func PayoffInCore(value func(types.CoalitionID) float64, members []types.PlayerID, s types.CoalitionID, payoff map[types.PlayerID]float64) bool {
	k := len(members)
	if k == 0 {
		return true
	}
	if k > MaxCoreTestSize {
		return false
	}

	total := 0.0
	for _, p := range members {
		total += payoff[p]
	}
	if !floatx.EssentiallyEqual(total, value(s), floatx.DefaultEpsilon) {
		return false
	}

	full := uint64(1)<<uint(k) - 1
	for _, tmask := range combinatorics.AllNonEmptySubsets(k) {
		if tmask == full {
			continue
		}
		sum := 0.0
		var g types.CoalitionID
		for i := 0; i < k; i++ {
			if tmask&(1<<uint(i)) != 0 {
				sum += payoff[members[i]]
				g |= types.CoalitionID(1) << uint(members[i])
			}
		}
		if floatx.DefinitelyLess(sum, value(g), floatx.DefaultEpsilon) {
			return false
		}
	}
	return true
}
