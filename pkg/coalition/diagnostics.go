package coalition

import (
	"cipfed/pkg/allocation"
	"cipfed/pkg/floatx"
	"cipfed/pkg/price"
	"cipfed/pkg/types"
)

// Primal-dual clearing tuning, shared across every coalition's diagnostic
// run. The loop operates on a handful of agents for at most a few dozen
// rounds, so the fixed budget below is cheap even evaluated once per
// coalition.
const (
	primalDualEta           = 0.1
	primalDualTolerance     = 0.01
	primalDualMaxIterations = 100

	targetCPUUtilization = 0.8
)

// buildDiagnostics computes SPEC_FULL.md §4.B's supplementary fairness
// diagnostics for one evaluated coalition: alternative payoff splits over
// its surplus plus a primal-dual-relaxed shadow price, none of which ever
// feed back into payoff or partition selection. game must already have
// every subset's value set (phase 1 complete), since the singleton values
// used as disagreement points may belong to any member of id.
func buildDiagnostics(sc *types.Scenario, id types.CoalitionID, members []types.PlayerID, game *Game, payoff map[types.PlayerID]float64) types.FairnessDiagnostics {
	value := game.Value(id)
	if len(members) == 0 || floatx.IsSentinelInfeasible(value) {
		return types.FairnessDiagnostics{}
	}

	nbParams := make([]allocation.NashBargainingParams, 0, len(members))
	ksParams := make([]allocation.KalaiSmorodinskyParams, 0, len(members))
	marketMembers := make(map[types.PlayerID]allocation.MemberDemand, len(members))

	for _, p := range members {
		baseline := game.Value(types.SingletonID(p))
		if floatx.IsSentinelInfeasible(baseline) || baseline < 0 {
			baseline = 0
		}
		demand := payoff[p]

		nbParams = append(nbParams, allocation.NashBargainingParams{
			Player: p, Weight: 1.0, Baseline: baseline, MaxShare: value, Demand: demand,
		})
		ksParams = append(ksParams, allocation.KalaiSmorodinskyParams{
			Player: p, Weight: 1.0, Baseline: baseline, Ideal: demand, MaxShare: value, Demand: demand,
		})

		bid := 0.0
		if value > 0 {
			bid = clamp01(demand / value)
		}
		marketMembers[p] = allocation.MemberDemand{
			Demand: bid, Bid: bid, MinShare: baseline, MaxShare: value, Weight: 1.0,
		}
	}

	diag := types.FairnessDiagnostics{
		NashBargaining:   allocation.NashBargainingSolution(value, nbParams),
		KalaiSmorodinsky: allocation.KalaiSmorodinskySolution(value, ksParams),
		MarketShare:      allocation.ClearMarket(value, marketMembers),
	}

	if len(members) == 2 {
		a, b := members[0], members[1]
		diag.NashSimple = allocation.SolveNashSimple(value,
			allocation.PairwiseBid{Player: a, Weight: 1.0, Baseline: game.Value(types.SingletonID(a)), MaxShare: value},
			allocation.PairwiseBid{Player: b, Weight: 1.0, Baseline: game.Value(types.SingletonID(b)), MaxShare: value},
		)
	}

	cpuCapacity, ramCapacity, agents := buildPrimalDualAgents(sc, id, members)
	coordinator := allocation.NewPrimalDualCoordinator(primalDualEta, primalDualTolerance, primalDualMaxIterations)
	result := allocation.PrimalDualPriceClearing(cpuCapacity, ramCapacity, agents, coordinator)

	memberAllocs := make(map[types.PlayerID]price.MemberAllocation, len(agents))
	for _, agent := range agents {
		memberAllocs[agent.Player] = price.MemberAllocation{
			CPUShare: result.CPUShare[agent.Player],
			Baseline: agent.Utility.BaselineCPU,
			MaxShare: agent.Utility.MaxCPU,
			Weight:   agent.Utility.Weight,
		}
	}
	shadow := price.ComputeShadowPrices(memberAllocs, cpuCapacity, electricityBaseline(sc, members))

	diag.ShadowPriceCPU = result.LambdaCPU
	diag.ShadowPriceRAM = result.LambdaRAM
	diag.EffectiveElectricityPrice = shadow.Electricity
	diag.PrimalDualConverged = result.Converged
	diag.PrimalDualIterations = result.Iterations
	diag.PrimalDualPotential = result.FinalPotential

	return diag
}

// buildPrimalDualAgents derives each member's pooled CPU/RAM demand from
// the VMs it brings into the coalition (averaged across PM types, since the
// actual host assignment is the solver's discrete decision, not this
// diagnostic's concern) and sizes capacity off the coalition's own PM
// count - one full PM-equivalent of CPU/RAM share per machine.
func buildPrimalDualAgents(sc *types.Scenario, id types.CoalitionID, members []types.PlayerID) (float64, float64, []allocation.PrimalDualAgent) {
	cpuCapacity := float64(len(sc.CoalitionPMs(id)))
	ramCapacity := cpuCapacity
	if cpuCapacity <= 0 {
		cpuCapacity, ramCapacity = 1, 1
	}

	demandCPU := make(map[types.PlayerID]float64, len(members))
	demandRAM := make(map[types.PlayerID]float64, len(members))
	for _, vm := range sc.CoalitionVMs(id) {
		vt := sc.VMTypes[vm.Type]
		demandCPU[vm.Owner] += meanOf(vt.CPU)
		demandRAM[vm.Owner] += meanOf(vt.RAM)
	}

	agents := make([]allocation.PrimalDualAgent, 0, len(members))
	for _, p := range members {
		cpu, ram := demandCPU[p], demandRAM[p]
		agents = append(agents, allocation.PrimalDualAgent{
			Player: p,
			Utility: &allocation.DemandUtility{
				TargetUtilization:  targetCPUUtilization,
				CurrentUtilization: clamp01(safeDivide(cpu, cpuCapacity)),
				Weight:             1.0,
				Sensitivity:        allocation.DefaultSensitivity,
				AllocCPU:           cpu,
				AllocRAM:           ram,
				MaxCPU:             cpuCapacity,
				MaxRAM:             ramCapacity,
			},
		})
	}
	return cpuCapacity, ramCapacity, agents
}

// electricityBaseline averages the coalition's members' per-kWh prices, the
// reference rate ComputeShadowPrices scales by how saturated CPU capacity
// runs under the clearing.
func electricityBaseline(sc *types.Scenario, members []types.PlayerID) float64 {
	if len(members) == 0 {
		return 0
	}
	total := 0.0
	for _, p := range members {
		total += sc.ElectricityPrice[p]
	}
	return total / float64(len(members))
}

func meanOf(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func safeDivide(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
