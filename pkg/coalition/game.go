// Package coalition implements the Coalition Evaluator (spec.md §4.B): for
// every non-empty subset of players, invoke the placement solver, compute
// the characteristic value v(S), divide it with the configured fair-division
// rule, and test core membership.
package coalition

import "cipfed/pkg/types"

// Game is the backing characteristic-function representation spec.md §4.B's
// contract asks for: a map coalition-id -> v(S) for every non-empty subset.
// The teacher keys its equivalent (CoalitionGame.Values) by a sorted,
// comma-joined member string; with a canonical bitmask id already in hand
// (types.CoalitionID) a flat array indexed directly by that bitmask is both
// simpler and exact - no string allocation per lookup.
type Game struct {
	N      int
	Values []float64 // Values[id] = v(S), id in [1, 2^N); Values[0] is unused
}

// NewGame allocates a characteristic-function table for n players.
func NewGame(n int) *Game {
	return &Game{N: n, Values: make([]float64, 1<<uint(n))}
}

// Value returns v(S) for coalition id.
func (g *Game) Value(id types.CoalitionID) float64 {
	return g.Values[id]
}

// Set records v(S) = v for coalition id.
func (g *Game) Set(id types.CoalitionID, v float64) {
	g.Values[id] = v
}
