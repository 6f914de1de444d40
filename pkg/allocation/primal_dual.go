package allocation

import (
	"fmt"
	"math"

	"cipfed/pkg/stability"
	"cipfed/pkg/types"
)

// PrimalDualCoordinator runs the distributed primal-dual price-clearing
// mechanism over a coalition's pooled CPU and RAM capacity.
type PrimalDualCoordinator struct {
	Eta           float64 // price update step size
	LambdaCPU     float64 // current CPU shadow price
	LambdaRAM     float64 // current RAM shadow price
	Tolerance     float64 // convergence tolerance
	MaxIterations int

	// Lyapunov tracks the round-over-round potential and adapts Eta: a
	// decreasing potential grows the step, an increasing one shrinks it.
	Lyapunov *stability.LyapunovController
}

// NewPrimalDualCoordinator builds a coordinator with the given tuning
// parameters.
func NewPrimalDualCoordinator(eta, tolerance float64, maxIterations int) *PrimalDualCoordinator {
	return &PrimalDualCoordinator{
		Eta:           eta,
		Tolerance:     tolerance,
		MaxIterations: maxIterations,
		Lyapunov:      stability.NewLyapunovController(eta, eta*0.01, eta*10),
	}
}

// PrimalDualAgent is one coalition member bidding for a share of pooled
// CPU/RAM capacity.
type PrimalDualAgent struct {
	Player  types.PlayerID
	Utility *DemandUtility
}

// PrimalDualResult is the outcome of a primal-dual clearing run.
type PrimalDualResult struct {
	CPUShare   map[types.PlayerID]float64
	RAMShare   map[types.PlayerID]float64
	LambdaCPU  float64
	LambdaRAM  float64
	Iterations int
	Converged  bool

	// FinalPotential is the Lyapunov potential at the last completed
	// round; LyapunovConverging reports whether it was non-increasing
	// over the last three rounds.
	FinalPotential     float64
	LyapunovConverging bool
}

// PrimalDualPriceClearing clears a coalition's pooled CPU and RAM capacity
// by iterating:
//  1. coordinator broadcasts shadow prices (lambda_cpu, lambda_ram)
//  2. every agent best-responds: x_p = argmax_x U_p(x) - lambda.x
//  3. coordinator updates prices: lambda_{t+1} = [lambda_t + eta(sum x_p - C)]+
//
// This never feeds back into the solver's discrete placement; it is
// recorded as a diagnostic of how binding the coalition's packing
// constraints are, and what an idealized continuous market would have
// charged for them.
func PrimalDualPriceClearing(cpuCapacity, ramCapacity float64, agents []PrimalDualAgent, coordinator *PrimalDualCoordinator) PrimalDualResult {
	if len(agents) == 0 {
		return PrimalDualResult{
			CPUShare:  make(map[types.PlayerID]float64),
			RAMShare:  make(map[types.PlayerID]float64),
			Converged: true,
		}
	}

	if coordinator == nil {
		coordinator = NewPrimalDualCoordinator(0.1, 0.01, 100)
	}

	cpuShare := make(map[types.PlayerID]float64, len(agents))
	ramShare := make(map[types.PlayerID]float64, len(agents))
	converged := false
	potential := 0.0

	iteration := 0
	for ; iteration < coordinator.MaxIterations; iteration++ {
		totalCPU, totalRAM := 0.0, 0.0
		for _, agent := range agents {
			agent.Utility.LambdaCPU = coordinator.LambdaCPU
			agent.Utility.LambdaRAM = coordinator.LambdaRAM

			cpu, ram := bestResponse(agent, coordinator.LambdaCPU, coordinator.LambdaRAM)
			cpuShare[agent.Player] = cpu
			ramShare[agent.Player] = ram
			totalCPU += cpu
			totalRAM += ram
		}

		cpuExcess := totalCPU - cpuCapacity
		ramExcess := totalRAM - ramCapacity

		oldCPU, oldRAM := coordinator.LambdaCPU, coordinator.LambdaRAM
		coordinator.LambdaCPU = math.Max(0, coordinator.LambdaCPU+coordinator.Eta*cpuExcess)
		coordinator.LambdaRAM = math.Max(0, coordinator.LambdaRAM+coordinator.Eta*ramExcess)

		cpuChange := math.Abs(coordinator.LambdaCPU - oldCPU)
		ramChange := math.Abs(coordinator.LambdaRAM - oldRAM)
		cpuViolation := math.Abs(cpuExcess) / math.Max(cpuCapacity, 1)
		ramViolation := math.Abs(ramExcess) / math.Max(ramCapacity, 1)

		surplus := make(map[types.PlayerID]float64, len(agents))
		for _, agent := range agents {
			surplus[agent.Player] = cpuShare[agent.Player] - agent.Utility.BaselineCPU
		}
		potential = stability.ComputePotential(cpuExcess, ramExcess, surplus, 1.0, 0.5)
		if coordinator.Lyapunov.CheckAndAdaptStepSize(potential) {
			coordinator.Eta = coordinator.Lyapunov.GetStepSize()
		}

		if cpuChange < coordinator.Tolerance && ramChange < coordinator.Tolerance &&
			cpuViolation < coordinator.Tolerance && ramViolation < coordinator.Tolerance {
			converged = true
			break
		}
	}

	return PrimalDualResult{
		CPUShare:           cpuShare,
		RAMShare:           ramShare,
		FinalPotential:     potential,
		LyapunovConverging: coordinator.Lyapunov.IsConverging(),
		LambdaCPU:          coordinator.LambdaCPU,
		LambdaRAM:          coordinator.LambdaRAM,
		Iterations:         iteration,
		Converged:          converged,
	}
}

// bestResponse searches a handful of candidate allocations for the one
// maximizing U(x) - lambda.x, refining with the marginal-utility gradient.
func bestResponse(agent PrimalDualAgent, lambdaCPU, lambdaRAM float64) (float64, float64) {
	u := agent.Utility
	minCPU, maxCPU := u.BaselineCPU, u.MaxCPU
	minRAM, maxRAM := u.BaselineRAM, u.MaxRAM

	if maxCPU <= minCPU {
		return minCPU, clampRAM(u, minRAM, maxRAM, lambdaRAM)
	}

	candidates := []float64{minCPU, maxCPU, (minCPU + maxCPU) / 2}
	bestCPU := minCPU
	bestValue := math.Inf(-1)

	for _, c := range candidates {
		if c < minCPU {
			c = minCPU
		}
		if c > maxCPU {
			c = maxCPU
		}
		u.SetAllocation(c, u.AllocRAM)
		value := u.Utility() - lambdaCPU*c
		if value > bestValue {
			bestValue = value
			bestCPU = c
		}
	}

	u.SetAllocation(bestCPU, u.AllocRAM)
	marginal := u.MarginalUtilityCPU()
	if marginal > lambdaCPU && bestCPU < maxCPU {
		step := math.Max(1, (maxCPU-bestCPU)/10)
		candidate := math.Min(bestCPU+step, maxCPU)
		u.SetAllocation(candidate, u.AllocRAM)
		if u.Utility()-lambdaCPU*candidate > bestValue {
			bestCPU = candidate
		}
	} else if marginal < lambdaCPU && bestCPU > minCPU {
		step := math.Max(1, (bestCPU-minCPU)/10)
		candidate := math.Max(bestCPU-step, minCPU)
		u.SetAllocation(candidate, u.AllocRAM)
		if u.Utility()-lambdaCPU*candidate > bestValue {
			bestCPU = candidate
		}
	}

	return bestCPU, clampRAM(u, minRAM, maxRAM, lambdaRAM)
}

// clampRAM picks the RAM share at min or max demand, whichever nets more
// utility at the current RAM shadow price; RAM has no SLO-style marginal
// model, so only the two bounds are compared.
func clampRAM(u *DemandUtility, minRAM, maxRAM, lambdaRAM float64) float64 {
	if maxRAM <= minRAM {
		return minRAM
	}
	valueAtMin := -lambdaRAM * minRAM
	valueAtMax := -lambdaRAM * maxRAM
	if valueAtMax > valueAtMin {
		return maxRAM
	}
	return minRAM
}

// ValidatePrimalDualResult checks that a clearing result respects every
// agent's [baseline,max] bounds on both resources.
func ValidatePrimalDualResult(result PrimalDualResult, cpuCapacity, ramCapacity float64, agents []PrimalDualAgent) error {
	totalCPU, totalRAM := 0.0, 0.0
	for _, agent := range agents {
		cpu, ok := result.CPUShare[agent.Player]
		if !ok {
			return fmt.Errorf("missing CPU share for player %d", agent.Player)
		}
		ram, ok := result.RAMShare[agent.Player]
		if !ok {
			return fmt.Errorf("missing RAM share for player %d", agent.Player)
		}
		if cpu < agent.Utility.BaselineCPU-1e-6 || cpu > agent.Utility.MaxCPU+1e-6 {
			return fmt.Errorf("CPU share %v out of bounds for player %d", cpu, agent.Player)
		}
		if ram < agent.Utility.BaselineRAM-1e-6 || ram > agent.Utility.MaxRAM+1e-6 {
			return fmt.Errorf("RAM share %v out of bounds for player %d", ram, agent.Player)
		}
		totalCPU += cpu
		totalRAM += ram
	}

	if totalCPU > cpuCapacity*1.01 {
		return fmt.Errorf("total CPU share %v exceeds capacity %v", totalCPU, cpuCapacity)
	}
	if totalRAM > ramCapacity*1.01 {
		return fmt.Errorf("total RAM share %v exceeds capacity %v", totalRAM, ramCapacity)
	}
	return nil
}
