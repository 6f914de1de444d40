package coalition

import (
	"sync"
	"time"

	"k8s.io/klog/v2"

	"cipfed/pkg/combinatorics"
	"cipfed/pkg/floatx"
	"cipfed/pkg/lpcore"
	"cipfed/pkg/solver"
	"cipfed/pkg/types"
)

// PayoffRule selects the fair-division rule applied in step 5 of spec.md
// §4.B's algorithm.
type PayoffRule string

const (
	Shapley           PayoffRule = "shapley"
	Banzhaf           PayoffRule = "banzhaf"
	NormalizedBanzhaf PayoffRule = "norm-banzhaf"
)

// Options configures one evaluator run.
type Options struct {
	Payoff PayoffRule

	RelGap    float64
	TimeLimit time.Duration

	// Concurrency bounds how many coalitions are solved/evaluated at once.
	// <= 1 means sequential, matching spec.md §5's single-threaded default;
	// this is the parallel dispatch the same section explicitly allows,
	// keyed by coalition id, merged under mutual exclusion, with
	// deterministic id-ordered output regardless of scheduling.
	Concurrency int
}

// Evaluator runs the Coalition Evaluator (spec.md §4.B) over a scenario.
type Evaluator struct {
	Opts Options
}

// NewEvaluator builds an Evaluator with the given options, defaulting an
// unset concurrency to sequential.
func NewEvaluator(opts Options) *Evaluator {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Evaluator{Opts: opts}
}

// Evaluate builds the characteristic-function table and the per-coalition
// info map for every non-empty subset of the scenario's players.
func (e *Evaluator) Evaluate(sc *types.Scenario) (map[types.CoalitionID]types.CoalitionInfo, *Game, error) {
	n := sc.NumCIPs
	if err := sc.Validate(); err != nil {
		return nil, nil, err
	}

	subsetMasks := combinatorics.AllNonEmptySubsets(n)
	ids := make([]types.CoalitionID, len(subsetMasks))
	for i, m := range subsetMasks {
		ids[i] = types.CoalitionID(m)
	}

	game := NewGame(n)

	// Phase 1 (steps 1-4): solve every coalition's placement independently.
	// v(S) depends only on S's own scenario slice, never on another
	// coalition's result, so this phase is embarrassingly parallel.
	allocs := make([]solver.Result, len(ids))
	profits := make([]float64, len(ids))

	e.forEachBounded(len(ids), func(i int) {
		id := ids[i]
		in := e.buildInput(sc, id)
		res := solver.Solve(in)
		allocs[i] = res
		profits[i] = sc.Profit(id)

		var v float64
		if res.Solved {
			v = profits[i] - res.Cost
		} else {
			v = floatx.NegativeInfinity
			klog.V(2).Infof("coalition %d (%v): infeasible placement, v(S) set to -inf sentinel", id, id.Members(n))
		}
		game.Set(id, v)
	})

	// Phase 2 (steps 5-7): payoff division and core tests. Every subset's
	// sub-game values are already in the table because submask ids are
	// always numerically <= the coalition's own id, and subsetMasks is
	// produced in ascending order - so phase 1 having fully completed is
	// the only ordering requirement, not per-S sequencing within phase 2.
	infos := make(map[types.CoalitionID]types.CoalitionInfo, len(ids))
	var mu sync.Mutex

	e.forEachBounded(len(ids), func(i int) {
		id := ids[i]
		members := id.Members(n)
		v := game.Value(id)

		payoff := e.dividePayoff(game, id)

		var coreNonEmpty, payoffInCore bool
		if !floatx.IsSentinelInfeasible(v) {
			coreNonEmpty = lpcore.CoreNonEmpty(game.Value, members, id)
			if coreNonEmpty {
				payoffInCore = lpcore.PayoffInCore(game.Value, members, id, payoff)
			}
		}

		alloc := allocs[i].Allocation
		info := types.CoalitionInfo{
			ID:           id,
			Alloc:        alloc,
			Profit:       profits[i],
			Value:        v,
			Payoff:       payoff,
			CoreNonEmpty: coreNonEmpty,
			PayoffInCore: payoffInCore,
			Diagnostics:  buildDiagnostics(sc, id, members, game, payoff),
		}

		mu.Lock()
		infos[id] = info
		mu.Unlock()
	})

	return infos, game, nil
}

// buildInput assembles one coalition's solver.Input. Price/cost/migration
// tables stay scenario-global (indexed by real player id): the solver only
// ever reads entries for owners that appear in this coalition's PMs/VMs, so
// there is no need to slice them down to S.
func (e *Evaluator) buildInput(sc *types.Scenario, id types.CoalitionID) solver.Input {
	return solver.Input{
		PMs:              sc.CoalitionPMs(id),
		VMs:              sc.CoalitionVMs(id),
		PMTypes:          sc.PMTypes,
		VMTypes:          sc.VMTypes,
		ElectricityPrice: sc.ElectricityPrice,
		SwitchOnCost:     sc.SwitchOnCost,
		SwitchOffCost:    sc.SwitchOffCost,
		Migration:        sc.Migration,
		RelGap:           e.Opts.RelGap,
		TimeLimit:        e.Opts.TimeLimit,
	}
}

func (e *Evaluator) dividePayoff(game *Game, id types.CoalitionID) map[types.PlayerID]float64 {
	switch e.Opts.Payoff {
	case Banzhaf:
		return BanzhafValues(game, id)
	case NormalizedBanzhaf:
		return NormalizedBanzhafValues(game, id)
	default:
		return ShapleyValues(game, id)
	}
}

// forEachBounded runs fn(i) for i in [0, count) across at most
// e.Opts.Concurrency goroutines at once, blocking until all complete.
func (e *Evaluator) forEachBounded(count int, fn func(i int)) {
	if count == 0 {
		return
	}
	if e.Opts.Concurrency <= 1 {
		for i := 0; i < count; i++ {
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.Opts.Concurrency)
	for i := 0; i < count; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i)
		}(i)
	}
	wg.Wait()
}
