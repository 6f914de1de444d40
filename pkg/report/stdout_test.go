package report

import (
	"bytes"
	"strings"
	"testing"

	"cipfed/pkg/types"
)

func twoPlayerInfosWithAlloc() map[types.CoalitionID]types.CoalitionInfo {
	return map[types.CoalitionID]types.CoalitionInfo{
		types.SingletonID(0): {
			Value:  3,
			Payoff: map[types.PlayerID]float64{0: 3},
			Alloc:  types.Allocation{Solved: true, KWh: 1.5},
		},
		types.SingletonID(1): {
			Value:  4,
			Payoff: map[types.PlayerID]float64{1: 4},
			Alloc:  types.Allocation{Solved: true, KWh: 2.0},
		},
		types.GrandCoalitionID(2): {
			Value:         10,
			Payoff:        map[types.PlayerID]float64{0: 5, 1: 5},
			Alloc:         types.Allocation{Solved: true, KWh: 3.0},
			CoreNonEmpty:  true,
			PayoffInCore:  true,
		},
	}
}

func TestWriteStdoutOrdersSectionsPerSpec(t *testing.T) {
	infos := twoPlayerInfosWithAlloc()
	accepted := []types.Partition{
		{Coalitions: []types.CoalitionID{types.GrandCoalitionID(2)}, Payoff: infos[types.GrandCoalitionID(2)].Payoff, TotalValue: 10},
	}

	var buf bytes.Buffer
	WriteStdout(&buf, 2, accepted, infos, "")
	out := buf.String()

	bestIdx := strings.Index(out, "Best partitions")
	grandIdx := strings.Index(out, "Grand coalition")
	singletonIdx := strings.Index(out, "Singleton partition")
	if bestIdx < 0 || grandIdx < 0 || singletonIdx < 0 {
		t.Fatalf("missing expected sections in output:\n%s", out)
	}
	if !(bestIdx < grandIdx && grandIdx < singletonIdx) {
		t.Fatalf("expected sections in order best < grand < singleton, got offsets %d %d %d", bestIdx, grandIdx, singletonIdx)
	}
}

func TestWriteStdoutIncludesFairnessDiagnosticsWhenProvided(t *testing.T) {
	infos := twoPlayerInfosWithAlloc()
	grand := infos[types.GrandCoalitionID(2)]
	grand.Diagnostics = types.FairnessDiagnostics{
		NashBargaining:            map[types.PlayerID]float64{0: 4.5, 1: 5.5},
		KalaiSmorodinsky:          map[types.PlayerID]float64{0: 5, 1: 5},
		MarketShare:               map[types.PlayerID]float64{0: 5, 1: 5},
		NashSimple:                map[types.PlayerID]float64{0: 4.8, 1: 5.2},
		ShadowPriceCPU:            1.2,
		ShadowPriceRAM:            0.6,
		EffectiveElectricityPrice: 0.15,
	}
	infos[types.GrandCoalitionID(2)] = grand

	var buf bytes.Buffer
	WriteStdout(&buf, 2, nil, infos, "")
	out := buf.String()

	if !strings.Contains(out, "Fairness diagnostics") {
		t.Errorf("expected a fairness diagnostics section, got:\n%s", out)
	}
	if !strings.Contains(out, "nash_bargaining=4.5") {
		t.Errorf("expected Nash bargaining value in output, got:\n%s", out)
	}
	if !strings.Contains(out, "nash_simple") {
		t.Errorf("expected a nash_simple block for the 2-player diagnostics, got:\n%s", out)
	}
}

func TestWriteStdoutOmitsFairnessDiagnosticsWhenAbsent(t *testing.T) {
	infos := twoPlayerInfosWithAlloc()
	var buf bytes.Buffer
	WriteStdout(&buf, 2, nil, infos, "")
	if strings.Contains(buf.String(), "Fairness diagnostics") {
		t.Errorf("expected no fairness diagnostics section when the grand coalition has none recorded")
	}
}

func TestWriteStdoutAppendsMetricsSummary(t *testing.T) {
	infos := twoPlayerInfosWithAlloc()
	var buf bytes.Buffer
	WriteStdout(&buf, 2, nil, infos, "solver calls=3 infeasible=0")
	if !strings.Contains(buf.String(), "solver calls=3 infeasible=0") {
		t.Errorf("expected metrics summary line in output, got:\n%s", buf.String())
	}
}

func TestPercentDeltaZeroBaseline(t *testing.T) {
	if got := percentDelta(0, 0); got != "0.00%" {
		t.Errorf("expected 0.00%% for zero/zero, got %q", got)
	}
	if got := percentDelta(5, 0); got != "n/a" {
		t.Errorf("expected n/a for nonzero-over-zero, got %q", got)
	}
}

func TestPercentDeltaNonZeroBaseline(t *testing.T) {
	if got := percentDelta(6, 5); got != "20.00%" {
		t.Errorf("expected 20.00%%, got %q", got)
	}
}
