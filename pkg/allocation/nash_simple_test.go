package allocation

import "testing"

func TestSolveNashSimpleEqualWeights(t *testing.T) {
	a := PairwiseBid{Player: 0, Weight: 1, Baseline: 100, MaxShare: 1000}
	b := PairwiseBid{Player: 1, Weight: 1, Baseline: 100, MaxShare: 1000}
	result := SolveNashSimple(600, a, b)
	if result[0] != result[1] {
		t.Errorf("equal weights should split surplus evenly: p0=%v p1=%v", result[0], result[1])
	}
	if result[0]+result[1] != 600 {
		t.Errorf("total payoff should equal v(S)=600, got %v", result[0]+result[1])
	}
}

func TestSolveNashSimpleCapHandback(t *testing.T) {
	a := PairwiseBid{Player: 0, Weight: 1, Baseline: 100, MaxShare: 200}
	b := PairwiseBid{Player: 1, Weight: 1, Baseline: 100, MaxShare: 1000}
	result := SolveNashSimple(1000, a, b)
	if result[0] != 200 {
		t.Errorf("player 0 should be capped at 200, got %v", result[0])
	}
	if result[0]+result[1] != 1000 {
		t.Errorf("handback should still exhaust v(S)=1000, got total %v", result[0]+result[1])
	}
}

func TestSolveNashSimpleBelowBaselines(t *testing.T) {
	a := PairwiseBid{Player: 0, Weight: 1, Baseline: 300, MaxShare: 1000}
	b := PairwiseBid{Player: 1, Weight: 1, Baseline: 300, MaxShare: 1000}
	result := SolveNashSimple(400, a, b)
	if result[0] != result[1] {
		t.Errorf("equal weighted baselines should scale evenly: p0=%v p1=%v", result[0], result[1])
	}
}
