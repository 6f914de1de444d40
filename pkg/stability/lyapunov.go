// Package stability tracks convergence of the primal-dual price-clearing
// loop used for the supplementary fairness diagnostics.
package stability

import (
	"math"
	"sync"

	"cipfed/pkg/types"
)

// MaxHistorySize limits the number of potential values retained in history.
const MaxHistorySize = 1000

// LyapunovController tracks convergence of an iterative price-clearing loop
// via a potential function V that should be non-increasing across rounds.
type LyapunovController struct {
	mu          sync.RWMutex
	potential   float64
	history     []float64
	stepSize    float64
	minStepSize float64
	maxStepSize float64
}

// NewLyapunovController creates a controller with the given initial,
// minimum, and maximum step sizes for adaptive damping.
func NewLyapunovController(initialStepSize, minStep, maxStep float64) *LyapunovController {
	return &LyapunovController{
		potential:   math.Inf(1),
		history:     make([]float64, 0, MaxHistorySize),
		stepSize:    initialStepSize,
		minStepSize: minStep,
		maxStepSize: maxStep,
	}
}

// ComputePotential calculates the Lyapunov function value for one round of
// primal-dual price clearing:
//
//	V = alpha*(cpuExcess^2 + ramExcess^2) - Sum log(surplus_p) + beta*Var(surplus)
//
// cpuExcess/ramExcess are the capacity constraint violations at the current
// shadow prices (demand minus capacity); surplus is each member's allocation
// above its baseline. A decreasing V means the price-clearing loop is
// approaching primal feasibility without sacrificing fairness.
func ComputePotential(cpuExcess, ramExcess float64, surplus map[types.PlayerID]float64, alpha, beta float64) float64 {
	feasibilityTerm := alpha * (cpuExcess*cpuExcess + ramExcess*ramExcess)

	nashTerm := 0.0
	values := make([]float64, 0, len(surplus))
	for _, s := range surplus {
		if s > 0 {
			nashTerm -= math.Log(s)
			values = append(values, s)
		} else {
			nashTerm += BaselineViolationPenalty
		}
	}

	fairnessTerm := 0.0
	if len(values) > 1 {
		mean := 0.0
		for _, v := range values {
			mean += v
		}
		mean /= float64(len(values))

		variance := 0.0
		for _, v := range values {
			diff := v - mean
			variance += diff * diff
		}
		fairnessTerm = variance / float64(len(values))
	}

	return feasibilityTerm + nashTerm + beta*fairnessTerm
}

// BaselineViolationPenalty is the heavy penalty added when a member's
// allocation falls below its baseline, strongly discouraging the
// price-clearing loop from converging there.
const BaselineViolationPenalty = 1e6

// CheckAndAdaptStepSize records newPotential and adapts the damping step
// size: decreasing potential grows the step (converge faster), increasing
// potential shrinks it (back off). Returns false once the step size has
// been shrunk to its floor without the potential improving.
func (lc *LyapunovController) CheckAndAdaptStepSize(newPotential float64) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if math.IsInf(lc.potential, 1) {
		lc.potential = newPotential
		lc.appendHistory(newPotential)
		return true
	}

	delta := newPotential - lc.potential

	if delta <= 0 {
		lc.stepSize *= 1.1
		if lc.stepSize > lc.maxStepSize {
			lc.stepSize = lc.maxStepSize
		}
		lc.potential = newPotential
		lc.appendHistory(newPotential)
		return true
	}

	lc.stepSize *= 0.5
	atFloor := lc.stepSize <= lc.minStepSize
	if atFloor {
		lc.stepSize = lc.minStepSize
	}
	lc.appendHistory(newPotential)
	return !atFloor
}

func (lc *LyapunovController) appendHistory(val float64) {
	lc.history = append(lc.history, val)
	if len(lc.history) > MaxHistorySize {
		lc.history = lc.history[len(lc.history)-MaxHistorySize:]
	}
}

// GetStepSize returns the controller's current damping step size.
func (lc *LyapunovController) GetStepSize() float64 {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return lc.stepSize
}

// GetPotential returns the most recently recorded potential value.
func (lc *LyapunovController) GetPotential() float64 {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return lc.potential
}

// GetHistory returns a copy of the potential-value history.
func (lc *LyapunovController) GetHistory() []float64 {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	result := make([]float64, len(lc.history))
	copy(result, lc.history)
	return result
}

// IsConverging reports whether the last three recorded potential values
// have been non-increasing.
func (lc *LyapunovController) IsConverging() bool {
	lc.mu.RLock()
	defer lc.mu.RUnlock()

	if len(lc.history) < 3 {
		return true
	}

	n := len(lc.history)
	return lc.history[n-1] <= lc.history[n-2] && lc.history[n-2] <= lc.history[n-3]
}
