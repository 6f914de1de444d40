package filterexpr

import (
	"testing"

	"cipfed/pkg/types"
)

func samplePartitions() []types.Partition {
	return []types.Partition{
		{
			Coalitions: []types.CoalitionID{1, 2},
			Payoff:     map[types.PlayerID]float64{0: 4, 1: 6},
			TotalValue: 10,
		},
		{
			Coalitions: []types.CoalitionID{3},
			Payoff:     map[types.PlayerID]float64{0: 5, 1: 5},
			TotalValue: 10,
		},
	}
}

func TestFilterByNumCoalitions(t *testing.T) {
	f, err := New("num_coalitions == 1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	kept, err := f.Apply(samplePartitions())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(kept) != 1 || len(kept[0].Coalitions) != 1 {
		t.Fatalf("expected exactly the grand-coalition partition, got %+v", kept)
	}
}

func TestFilterByTotalValue(t *testing.T) {
	f, err := New("total_value >= 10.0")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	kept, err := f.Apply(samplePartitions())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(kept) != 2 {
		t.Fatalf("expected both partitions to pass, got %d", len(kept))
	}
}

func TestFilterByPayoffMap(t *testing.T) {
	f, err := New("payoffs['cip_0'] >= 5.0")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	kept, err := f.Apply(samplePartitions())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(kept) != 1 || kept[0].Payoff[0] != 5 {
		t.Fatalf("expected only the second partition, got %+v", kept)
	}
}

func TestFilterByMaxMinPayoff(t *testing.T) {
	f, err := New("max_payoff - min_payoff < 1.0")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	kept, err := f.Apply(samplePartitions())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(kept) != 1 || kept[0].TotalValue != 10 || len(kept[0].Coalitions) != 1 {
		t.Fatalf("expected only the balanced-payoff partition, got %+v", kept)
	}
}

func TestNewCompileErrorOnInvalidExpr(t *testing.T) {
	_, err := New("this is not }} valid cel")
	if err == nil {
		t.Fatal("expected a compile error for an invalid expression")
	}
}

func TestNewCompileErrorOnUnknownVariable(t *testing.T) {
	_, err := New("unknown_field > 1")
	if err == nil {
		t.Fatal("expected a compile error for an undeclared variable")
	}
}

func TestApplyEmptyPartitionsReturnsEmpty(t *testing.T) {
	f, err := New("total_value > 0.0")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	kept, err := f.Apply(nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(kept) != 0 {
		t.Fatalf("expected no partitions, got %+v", kept)
	}
}
