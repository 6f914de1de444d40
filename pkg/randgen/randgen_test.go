package randgen

import (
	"reflect"
	"testing"

	"cipfed/pkg/types"
)

func baseScenario() *types.Scenario {
	return &types.Scenario{
		NumCIPs: 2,
		PMTypes: []types.PMType{{PMin: 50, PMax: 150}},
		VMTypes: []types.VMType{{CPU: []float64{0.5}, RAM: []float64{0.5}}},
		NumPMs: []map[int]int{
			{0: 2},
			{0: 3},
		},
		NumVMs: []map[int]int{
			{0: 4},
			{0: 6},
		},
		PMPowerStates:    [][]bool{{true, false}, {true, true, false}},
		Revenue:          [][]float64{{1.0}, {1.0}},
		ElectricityPrice: []float64{0.1, 0.1},
		SwitchOnCost:     []map[int]float64{{0: 1}, {0: 1}},
		SwitchOffCost:    []map[int]float64{{0: 1}, {0: 1}},
		Migration: [][][]float64{
			{{0}, {2}},
			{{2}, {0}},
		},
	}
}

func TestPerturbDeterministicForSameSeed(t *testing.T) {
	sc := baseScenario()
	opts := Options{GenVMs: true, GenPMsOnOff: true, GenPMsOnOffCosts: true, GenVMsMigrCosts: true, Seed: DefaultSeed}

	a := Perturb(sc, opts)
	b := Perturb(sc, opts)

	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical perturbation for identical seed:\na=%+v\nb=%+v", a, b)
	}
}

func TestPerturbDiffersAcrossSeeds(t *testing.T) {
	sc := baseScenario()
	a := Perturb(sc, Options{GenVMs: true, Seed: 1})
	b := Perturb(sc, Options{GenVMs: true, Seed: 2})

	if reflect.DeepEqual(a.NumVMs, b.NumVMs) {
		t.Fatalf("expected different seeds to (almost certainly) produce different VM counts")
	}
}

func TestPerturbLeavesUnselectedFieldsUntouched(t *testing.T) {
	sc := baseScenario()
	out := Perturb(sc, Options{GenVMs: true, Seed: DefaultSeed})

	if !reflect.DeepEqual(out.Migration, sc.Migration) {
		t.Errorf("expected Migration untouched, got %+v", out.Migration)
	}
	if !reflect.DeepEqual(out.SwitchOnCost, sc.SwitchOnCost) {
		t.Errorf("expected SwitchOnCost untouched, got %+v", out.SwitchOnCost)
	}
	if !reflect.DeepEqual(out.PMPowerStates, sc.PMPowerStates) {
		t.Errorf("expected PMPowerStates untouched, got %+v", out.PMPowerStates)
	}
}

func TestPerturbDoesNotMutateInput(t *testing.T) {
	sc := baseScenario()
	original := cloneScenario(sc)

	Perturb(sc, Options{GenVMs: true, GenPMsOnOff: true, GenPMsOnOffCosts: true, GenVMsMigrCosts: true, Seed: DefaultSeed})

	if !reflect.DeepEqual(sc, original) {
		t.Fatalf("Perturb must not mutate its input scenario")
	}
}

func TestRegenerateMigrationCostsKeepsDiagonalZero(t *testing.T) {
	sc := baseScenario()
	out := Perturb(sc, Options{GenVMsMigrCosts: true, Seed: DefaultSeed})

	for i := range out.Migration {
		for v := range out.Migration[i][i] {
			if out.Migration[i][i][v] != 0 {
				t.Errorf("expected diagonal migration cost to stay zero, got %v at [%d][%d][%d]", out.Migration[i][i][v], i, i, v)
			}
		}
	}
}

func TestRegeneratePMPowerStatesPreservesPMCount(t *testing.T) {
	sc := baseScenario()
	out := Perturb(sc, Options{GenPMsOnOff: true, Seed: DefaultSeed})

	for p := 0; p < sc.NumCIPs; p++ {
		total := 0
		for t := range sc.PMTypes {
			total += sc.NumPMs[p][t]
		}
		if len(out.PMPowerStates[p]) != total {
			t.Errorf("player %d: expected %d power states, got %d", p, total, len(out.PMPowerStates[p]))
		}
	}
}
