// Package app orchestrates one end-to-end run of the tool (spec.md §5):
// parse a scenario, run the Coalition Evaluator, select accepted
// partitions, and write the CSV/stdout/chart reports - looping over
// --rnd-numit iterations when a --rnd-* perturbation is requested.
package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"k8s.io/klog/v2"

	"cipfed/pkg/coalition"
	"cipfed/pkg/combinatorics"
	"cipfed/pkg/filterexpr"
	"cipfed/pkg/floatx"
	"cipfed/pkg/metrics"
	"cipfed/pkg/partition"
	"cipfed/pkg/randgen"
	"cipfed/pkg/report"
	"cipfed/pkg/scenario"
	"cipfed/pkg/types"
)

// Config is everything one run needs, assembled by cmd/sim from its flags.
type Config struct {
	ScenarioPath string
	CSVPath      string
	ChartPath    string
	MetricsPath  string

	Formation partition.Criterion
	Payoff    coalition.PayoffRule

	RelGap      float64
	TimeLimit   time.Duration
	Concurrency int

	FilterExpr string

	Rand          randgen.Options
	NumIterations int

	Stdout io.Writer
}

// Run executes the full pipeline described by cfg and returns a non-nil
// error only for the fatal conditions spec.md §7 names (scenario parse
// error, solver error, invalid configuration); per-coalition infeasibility
// is handled inside the evaluator and never aborts the run.
func Run(cfg Config) error {
	sc, err := scenario.ParseFile(cfg.ScenarioPath)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}

	rec := metrics.NewRecorder()
	start := time.Now()

	numIterations := cfg.NumIterations
	if numIterations < 1 {
		numIterations = 1
	}

	var csvFile *os.File
	if cfg.CSVPath != "" {
		csvFile, err = os.Create(cfg.CSVPath)
		if err != nil {
			return fmt.Errorf("app: open csv output: %w", err)
		}
		defer csvFile.Close()
	}

	usingRand := cfg.Rand.GenVMs || cfg.Rand.GenPMsOnOff || cfg.Rand.GenPMsOnOffCosts || cfg.Rand.GenVMsMigrCosts

	var lastAccepted []types.Partition
	var lastInfos map[types.CoalitionID]types.CoalitionInfo

	for iter := 0; iter < numIterations; iter++ {
		iterScenario := sc
		if usingRand {
			opts := cfg.Rand
			opts.Seed = cfg.Rand.Seed + int64(iter)
			iterScenario = randgen.Perturb(sc, opts)
		}

		accepted, infos, err := runOnce(iterScenario, cfg, rec)
		if err != nil {
			return err
		}
		lastAccepted, lastInfos = accepted, infos

		if csvFile != nil {
			if err := report.WriteCSV(csvFile, infos, iterScenario.NumCIPs, iter == 0); err != nil {
				return fmt.Errorf("app: write csv: %w", err)
			}
		}

		klog.V(2).Infof("iteration %d: %d accepted partitions", iter, len(accepted))
	}

	rec.ObserveWallTime(time.Since(start))

	if cfg.MetricsPath != "" {
		if err := rec.WriteFile(cfg.MetricsPath); err != nil {
			return fmt.Errorf("app: write metrics: %w", err)
		}
	}

	if cfg.ChartPath != "" {
		if err := report.WriteChartFile(cfg.ChartPath, sc.NumCIPs, lastAccepted); err != nil {
			return fmt.Errorf("app: write chart: %w", err)
		}
	}

	out := cfg.Stdout
	if out == nil {
		out = os.Stdout
	}
	report.WriteStdout(out, sc.NumCIPs, lastAccepted, lastInfos, rec.Summary())

	return nil
}

// runOnce evaluates one scenario snapshot and returns its accepted
// partitions (after the optional CEL filter) plus the full coalition-info
// table the CSV report needs.
func runOnce(sc *types.Scenario, cfg Config, rec *metrics.Recorder) ([]types.Partition, map[types.CoalitionID]types.CoalitionInfo, error) {
	evaluator := coalition.NewEvaluator(coalition.Options{
		Payoff:      cfg.Payoff,
		RelGap:      cfg.RelGap,
		TimeLimit:   cfg.TimeLimit,
		Concurrency: cfg.Concurrency,
	})

	infos, _, err := evaluator.Evaluate(sc)
	if err != nil {
		return nil, nil, fmt.Errorf("app: evaluate: %w", err)
	}

	for _, info := range infos {
		rec.IncSolverCalls()
		switch {
		case floatx.IsSentinelInfeasible(info.Value):
			rec.IncInfeasible()
		case info.Alloc.Solved && !info.Alloc.Optimal:
			rec.IncSuboptimal()
		}
	}

	rec.AddPartitionsInspected(len(combinatorics.AllPartitions(sc.NumCIPs)))

	accepted := partition.Select(sc.NumCIPs, infos, cfg.Formation)

	if cfg.FilterExpr != "" {
		filter, err := filterexpr.New(cfg.FilterExpr)
		if err != nil {
			return nil, nil, fmt.Errorf("app: %w", err)
		}
		accepted, err = filter.Apply(accepted)
		if err != nil {
			return nil, nil, fmt.Errorf("app: %w", err)
		}
	}

	rec.AddPartitionsAccepted(len(accepted))

	return accepted, infos, nil
}
