// Package price reports the shadow prices surfaced by the primal-dual
// fairness diagnostic (SPEC_FULL.md §4.B).
package price

import (
	"sync"
	"time"

	"cipfed/pkg/types"
)

// ShadowPrices holds the current CPU-share, RAM-share, and effective
// electricity shadow prices for a coalition, as derived by
// ComputeShadowPrices from the coalition's cleared CPU allocation.
type ShadowPrices struct {
	mu          sync.RWMutex
	CPUShare    float64 // price per unit of CPU share
	RAMShare    float64 // price per unit of RAM share
	Electricity float64 // effective $/kWh implied by the coalition's load
	UpdatedAt   time.Time
}

// Price signal tuning constants.
const (
	// DefaultPriceScale scales utilization to a reasonable price range
	// when no uncapped member is available to read a direct multiplier
	// from.
	DefaultPriceScale = 10.0

	// RAMPriceRatio is the RAM/CPU price ratio (RAM typically cheaper per
	// unit of packing pressure than CPU).
	RAMPriceRatio = 0.5
)

// MemberAllocation is one coalition member's CPU share, baseline, and cap,
// as used by ComputeShadowPrices to locate an uncapped member.
type MemberAllocation struct {
	CPUShare float64
	Baseline float64
	MaxShare float64
	Weight   float64
}

// NewShadowPrices creates a zero-valued ShadowPrices, stamped with the
// current time.
func NewShadowPrices() *ShadowPrices {
	return &ShadowPrices{UpdatedAt: time.Now()}
}

// ComputeShadowPrices derives CPU/RAM/electricity shadow prices from a
// coalition's cleared CPU allocation.
//
// In the Nash bargaining convex program
//
//	max Sum w_p log(x_p - d_p)  s.t.  Sum x_p <= C
//
// the shadow price lambda is the Lagrange multiplier of the capacity
// constraint; at the optimum, w_p / (x_p - d_p) = lambda for every
// uncapped member. electricityBase is the coalition's baseline $/kWh; the
// reported effective price scales it by how saturated CPU capacity is.
func ComputeShadowPrices(allocations map[types.PlayerID]MemberAllocation, capacity, electricityBase float64) *ShadowPrices {
	if capacity <= 0 {
		return &ShadowPrices{UpdatedAt: time.Now()}
	}

	var lambda float64
	for _, m := range allocations {
		surplus := m.CPUShare - m.Baseline
		if surplus > 0 && m.CPUShare < m.MaxShare {
			lambda = m.Weight / surplus
			break
		}
	}

	totalAlloc := 0.0
	for _, m := range allocations {
		totalAlloc += m.CPUShare
	}
	utilization := totalAlloc / capacity

	if lambda == 0 {
		lambda = utilization * DefaultPriceScale
	}

	return &ShadowPrices{
		CPUShare:    lambda,
		RAMShare:    lambda * RAMPriceRatio,
		Electricity: electricityBase * (1 + utilization),
		UpdatedAt:   time.Now(),
	}
}

// Get returns a snapshot of the current prices.
func (sp *ShadowPrices) Get() (cpu, ram, electricity float64) {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.CPUShare, sp.RAMShare, sp.Electricity
}

// Update sets new price values.
func (sp *ShadowPrices) Update(cpu, ram, electricity float64) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.CPUShare = cpu
	sp.RAMShare = ram
	sp.Electricity = electricity
	sp.UpdatedAt = time.Now()
}
