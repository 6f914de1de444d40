package allocation

import (
	"testing"

	"cipfed/pkg/types"
)

func TestNashBargainingSolutionEmpty(t *testing.T) {
	result := NashBargainingSolution(1000, nil)
	if len(result) != 0 {
		t.Errorf("expected empty result for no members, got %d entries", len(result))
	}
}

func TestNashBargainingSolutionSingleMember(t *testing.T) {
	members := []NashBargainingParams{
		{Player: 0, Weight: 1.0, Baseline: 100, MaxShare: 500},
	}
	result := NashBargainingSolution(1000, members)
	if result[0] != 500 {
		t.Errorf("single member should hit MaxShare, got %v", result[0])
	}
}

func TestNashBargainingSolutionEqualWeights(t *testing.T) {
	members := []NashBargainingParams{
		{Player: 0, Weight: 1.0, Baseline: 100, MaxShare: 1000},
		{Player: 1, Weight: 1.0, Baseline: 100, MaxShare: 1000},
	}
	result := NashBargainingSolution(600, members)
	if result[0] != result[1] {
		t.Errorf("equal weights should give equal payoff: p0=%v, p1=%v", result[0], result[1])
	}
}

func TestNashBargainingSolutionWeightedDistribution(t *testing.T) {
	members := []NashBargainingParams{
		{Player: 0, Weight: 2.0, Baseline: 100, MaxShare: 1000},
		{Player: 1, Weight: 1.0, Baseline: 100, MaxShare: 1000},
	}
	result := NashBargainingSolution(600, members)
	if result[0] <= result[1] {
		t.Errorf("higher weight should get more surplus: p0=%v, p1=%v", result[0], result[1])
	}
}

func TestNashBargainingSolutionRespectsCaps(t *testing.T) {
	members := []NashBargainingParams{
		{Player: 0, Weight: 1.0, Baseline: 100, MaxShare: 200},
		{Player: 1, Weight: 1.0, Baseline: 100, MaxShare: 1000},
	}
	result := NashBargainingSolution(1000, members)
	if result[0] > 200 {
		t.Errorf("player 0 should be capped at 200, got %v", result[0])
	}
}

func TestVerifyNashAxiomsRejectsBelowBaseline(t *testing.T) {
	members := []NashBargainingParams{
		{Player: 0, Weight: 1.0, Baseline: 100, MaxShare: 500},
	}
	solution := map[types.PlayerID]float64{0: 50}
	if err := VerifyNashAxioms(solution, members, 1000); err == nil {
		t.Error("expected individual-rationality violation for payoff below baseline")
	}
}
