package coalition

import (
	"testing"

	"cipfed/pkg/types"
)

func twoCIPScenario() *types.Scenario {
	return &types.Scenario{
		NumCIPs: 2,
		PMTypes: []types.PMType{{Name: "t0", PMin: 100, PMax: 200}},
		VMTypes: []types.VMType{{Name: "v0", CPU: []float64{0.5}, RAM: []float64{0.5}}},
		NumPMs:  []map[int]int{{0: 1}, {0: 1}},
		NumVMs:  []map[int]int{{0: 1}, {0: 1}},
		PMPowerStates:    [][]bool{{true}, {true}},
		Revenue:          [][]float64{{5}, {5}},
		ElectricityPrice: []float64{1, 1},
		SwitchOnCost:     []map[int]float64{{0: 0}, {0: 0}},
		SwitchOffCost:    []map[int]float64{{0: 0}, {0: 0}},
		Migration: [][][]float64{
			{{0}, {0}},
			{{0}, {0}},
		},
	}
}

func TestEvaluateProducesEveryNonEmptySubset(t *testing.T) {
	sc := twoCIPScenario()
	ev := NewEvaluator(Options{Payoff: Shapley})
	infos, _, err := ev.Evaluate(sc)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("expected 3 coalitions (2^2-1), got %d", len(infos))
	}
	for _, id := range []types.CoalitionID{1, 2, 3} {
		if _, ok := infos[id]; !ok {
			t.Fatalf("missing coalition id %d", id)
		}
	}
}

func TestEvaluateGrandCoalitionConsolidates(t *testing.T) {
	sc := twoCIPScenario()
	ev := NewEvaluator(Options{Payoff: Shapley})
	infos, _, err := ev.Evaluate(sc)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	grand := infos[3]
	if !almostEqual(grand.Value, 9.8) {
		t.Fatalf("grand coalition value = %v, want 9.8", grand.Value)
	}
	sum := grand.Payoff[0] + grand.Payoff[1]
	if !almostEqual(sum, grand.Value) {
		t.Fatalf("payoff sum = %v, want efficiency at v(S)=%v", sum, grand.Value)
	}
	if !grand.CoreNonEmpty {
		t.Fatal("expected non-empty core for a 2-player surplus game")
	}
	if !grand.PayoffInCore {
		t.Fatal("expected the Shapley split to lie in the core for 2 players")
	}
}

func TestEvaluateRecordsFairnessDiagnosticsPerCoalition(t *testing.T) {
	sc := twoCIPScenario()
	ev := NewEvaluator(Options{Payoff: Shapley})
	infos, _, err := ev.Evaluate(sc)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}

	grand := infos[types.GrandCoalitionID(2)]
	diag := grand.Diagnostics
	if diag.NashBargaining == nil || diag.KalaiSmorodinsky == nil || diag.MarketShare == nil {
		t.Fatalf("expected the grand coalition to carry Nash bargaining/Kalai-Smorodinsky/market diagnostics, got %+v", diag)
	}
	if diag.NashSimple == nil {
		t.Fatalf("expected a 2-player grand coalition to carry a nash_simple split")
	}
	if sum := diag.NashSimple[0] + diag.NashSimple[1]; !almostEqual(sum, grand.Value) {
		t.Fatalf("nash_simple split should exhaust v(S)=%v, got sum=%v", grand.Value, sum)
	}

	singleton := infos[types.SingletonID(0)]
	if singleton.Diagnostics.NashSimple != nil {
		t.Fatalf("a singleton coalition has no pairwise partner and should carry no nash_simple split")
	}
}

func TestEvaluateConcurrentMatchesSequential(t *testing.T) {
	sc := twoCIPScenario()
	seq := NewEvaluator(Options{Payoff: Shapley, Concurrency: 1})
	par := NewEvaluator(Options{Payoff: Shapley, Concurrency: 4})

	seqInfos, _, err := seq.Evaluate(sc)
	if err != nil {
		t.Fatalf("sequential Evaluate error: %v", err)
	}
	parInfos, _, err := par.Evaluate(sc)
	if err != nil {
		t.Fatalf("concurrent Evaluate error: %v", err)
	}

	for id, want := range seqInfos {
		got, ok := parInfos[id]
		if !ok {
			t.Fatalf("concurrent evaluation missing coalition %d", id)
		}
		if !almostEqual(got.Value, want.Value) {
			t.Fatalf("coalition %d: value mismatch seq=%v par=%v", id, want.Value, got.Value)
		}
	}
}
