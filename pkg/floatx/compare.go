// Package floatx centralizes the relative-plus-absolute epsilon float
// comparisons spec.md §9 calls for, so no package compares floats with
// `==` directly.
package floatx

import "math"

// DefaultEpsilon is used when a caller has no sharper tolerance in mind.
const DefaultEpsilon = 1e-9

// EssentiallyEqual reports whether a and b are equal within a relative
// tolerance epsilon (classic "definitely_less"/"essentially_equal" style:
// Knuth/Boost comparison idiom referenced by spec.md §9).
func EssentiallyEqual(a, b, epsilon float64) bool {
	diff := math.Abs(a - b)
	if diff <= epsilon {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return diff <= scale*epsilon
}

// DefinitelyLess reports whether a is less than b by more than the
// tolerance, i.e. not explainable by floating point error.
func DefinitelyLess(a, b, epsilon float64) bool {
	diff := b - a
	if diff <= epsilon {
		return false
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return diff > scale*epsilon
}

// DefinitelyGreater reports whether a is greater than b by more than the tolerance.
func DefinitelyGreater(a, b, epsilon float64) bool {
	return DefinitelyLess(b, a, epsilon)
}

// GreaterOrEqual reports whether a >= b within tolerance (i.e. not
// DefinitelyLess(a, b, epsilon)).
func GreaterOrEqual(a, b, epsilon float64) bool {
	return !DefinitelyLess(a, b, epsilon)
}

// Budget scales epsilon to the magnitude of v, as spec.md §8's payoff-budget
// property requires: "payoff_p(S) = v(S) +/- 1e-9 * max(1, |v(S)|)".
func Budget(v, epsilon float64) float64 {
	return epsilon * math.Max(1, math.Abs(v))
}

// NegativeInfinity is the sentinel spec.md §4.A/§4.B use for an infeasible
// coalition's value: the smallest positive normal, negated. Numerically it
// compares greater than every negative finite value, so callers detect it
// with IsSentinelInfeasible rather than by ordering.
var NegativeInfinity = -0x1p-1022

// IsSentinelInfeasible reports whether v is the infeasibility sentinel.
func IsSentinelInfeasible(v float64) bool {
	return v == NegativeInfinity
}
