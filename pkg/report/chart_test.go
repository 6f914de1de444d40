package report

import (
	"bytes"
	"strings"
	"testing"

	"cipfed/pkg/types"
)

func TestWriteChartProducesHTMLWithSeriesPerPlayer(t *testing.T) {
	accepted := []types.Partition{
		{Coalitions: []types.CoalitionID{3}, Payoff: map[types.PlayerID]float64{0: 5, 1: 5}, TotalValue: 10},
		{Coalitions: []types.CoalitionID{1, 2}, Payoff: map[types.PlayerID]float64{0: 3, 1: 4}, TotalValue: 7},
	}

	var buf bytes.Buffer
	if err := WriteChart(&buf, 2, accepted); err != nil {
		t.Fatalf("WriteChart: %v", err)
	}

	out := buf.String()
	limit := 200
	if len(out) < limit {
		limit = len(out)
	}
	if !strings.Contains(out, "<html") && !strings.Contains(out, "<!DOCTYPE") {
		t.Errorf("expected HTML output, got:\n%s", out[:limit])
	}
	if !strings.Contains(out, "CIP 0") || !strings.Contains(out, "CIP 1") {
		t.Errorf("expected a series per player in the rendered chart")
	}
}

func TestWriteChartEmptyAcceptedStillRenders(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChart(&buf, 2, nil); err != nil {
		t.Fatalf("WriteChart: %v", err)
	}
	if buf.Len() == 0 {
		t.Errorf("expected non-empty chart output even with no accepted partitions")
	}
}
