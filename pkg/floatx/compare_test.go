package floatx

import "testing"

func TestEssentiallyEqual(t *testing.T) {
	if !EssentiallyEqual(1.0, 1.0+1e-12, DefaultEpsilon) {
		t.Fatal("expected near-equal values to compare equal")
	}
	if EssentiallyEqual(1.0, 1.1, DefaultEpsilon) {
		t.Fatal("expected distinct values to compare unequal")
	}
}

func TestDefinitelyLess(t *testing.T) {
	if DefinitelyLess(1.0, 1.0+1e-12, DefaultEpsilon) {
		t.Fatal("tiny diff should not be definitely less")
	}
	if !DefinitelyLess(1.0, 2.0, DefaultEpsilon) {
		t.Fatal("1.0 should be definitely less than 2.0")
	}
	if DefinitelyLess(2.0, 1.0, DefaultEpsilon) {
		t.Fatal("2.0 should not be definitely less than 1.0")
	}
}

func TestIsSentinelInfeasible(t *testing.T) {
	if !IsSentinelInfeasible(NegativeInfinity) {
		t.Fatal("sentinel should report infeasible")
	}
	if IsSentinelInfeasible(-1.0) {
		t.Fatal("ordinary negative value should not be the sentinel")
	}
}

func TestBudget(t *testing.T) {
	if Budget(0, 1e-9) != 1e-9 {
		t.Fatalf("Budget(0, eps) should be eps*max(1,0)=eps")
	}
	if !EssentiallyEqual(Budget(1000, 1e-9), 1e-6, 1e-18) {
		t.Fatalf("Budget(1000, eps) should scale with |v|")
	}
}
