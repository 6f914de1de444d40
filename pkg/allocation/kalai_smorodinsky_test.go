package allocation

import "testing"

func TestKalaiSmorodinskySolutionBasic(t *testing.T) {
	value := 1000.0
	members := []KalaiSmorodinskyParams{
		{Player: 0, Weight: 1.0, Baseline: 200, Ideal: 500, MaxShare: 1000, Demand: 500},
		{Player: 1, Weight: 1.0, Baseline: 200, Ideal: 500, MaxShare: 1000, Demand: 500},
	}

	payoff := KalaiSmorodinskySolution(value, members)

	if payoff[0] == 0 || payoff[1] == 0 {
		t.Error("payoffs should be non-zero")
	}
	if total := payoff[0] + payoff[1]; total > value {
		t.Errorf("total payoff %v exceeds v(S)=%v", total, value)
	}
	if payoff[0] < 200 || payoff[1] < 200 {
		t.Error("payoffs should be at least the disagreement point")
	}
}

func TestKalaiSmorodinskySolutionOverloaded(t *testing.T) {
	value := 300.0 // less than total baseline
	members := []KalaiSmorodinskyParams{
		{Player: 0, Weight: 1.0, Baseline: 200, Ideal: 500, MaxShare: 1000, Demand: 500},
		{Player: 1, Weight: 1.0, Baseline: 200, Ideal: 500, MaxShare: 1000, Demand: 500},
	}

	payoff := KalaiSmorodinskySolution(value, members)

	if total := payoff[0] + payoff[1]; total != value {
		t.Errorf("total payoff %v should equal v(S)=%v in overloaded mode", total, value)
	}
}

func TestKalaiSmorodinskySolutionEmpty(t *testing.T) {
	payoff := KalaiSmorodinskySolution(1000, nil)
	if len(payoff) != 0 {
		t.Error("no members should return empty payoff")
	}
}
