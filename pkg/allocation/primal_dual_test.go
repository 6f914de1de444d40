package allocation

import (
	"testing"

	"cipfed/pkg/types"
)

func newTestAgent(player types.PlayerID, baselineCPU, maxCPU, baselineRAM, maxRAM float64) PrimalDualAgent {
	return PrimalDualAgent{
		Player: player,
		Utility: &DemandUtility{
			TargetUtilization: 0.8,
			Sensitivity:       0.1,
			Weight:            1.0,
			BaselineCPU:       baselineCPU,
			MaxCPU:            maxCPU,
			BaselineRAM:       baselineRAM,
			MaxRAM:            maxRAM,
		},
	}
}

func TestPrimalDualPriceClearingEmptyAgents(t *testing.T) {
	result := PrimalDualPriceClearing(1000, 1000, nil, nil)
	if !result.Converged {
		t.Error("expected trivially converged result with no agents")
	}
	if len(result.CPUShare) != 0 {
		t.Error("expected empty CPU share map")
	}
}

func TestPrimalDualPriceClearingRespectsBounds(t *testing.T) {
	agents := []PrimalDualAgent{
		newTestAgent(0, 100, 500, 100, 500),
		newTestAgent(1, 100, 500, 100, 500),
	}

	coordinator := NewPrimalDualCoordinator(0.05, 0.01, 200)
	result := PrimalDualPriceClearing(600, 600, agents, coordinator)

	if err := ValidatePrimalDualResult(result, 600, 600, agents); err != nil {
		t.Errorf("result violates bounds/capacity: %v", err)
	}
}

func TestPrimalDualPriceClearingRaisesPriceUnderPressure(t *testing.T) {
	agents := []PrimalDualAgent{
		newTestAgent(0, 400, 1000, 400, 1000),
		newTestAgent(1, 400, 1000, 400, 1000),
	}

	coordinator := NewPrimalDualCoordinator(0.05, 0.01, 200)
	result := PrimalDualPriceClearing(500, 500, agents, coordinator)

	if result.LambdaCPU <= 0 {
		t.Error("expected a positive CPU shadow price when baselines alone exceed capacity")
	}
}
