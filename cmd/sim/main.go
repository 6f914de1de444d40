package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"cipfed/pkg/app"
	"cipfed/pkg/coalition"
	"cipfed/pkg/partition"
	"cipfed/pkg/randgen"
)

var (
	scenarioPath string
	csvPath      string
	chartPath    string
	metricsAddr  string
	filterExpr   string

	formation string
	payoff    string

	optRelGap float64
	optTiLim  float64

	rndGenVMs           bool
	rndGenPMsOnOff      bool
	rndGenPMsOnOffCosts bool
	rndGenVMsMigrCosts  bool
	rndNumIt            int
	rndSeed             int64

	concurrency int
)

var rootCmd = &cobra.Command{
	Use:           "sim",
	Short:         "Compute profitable coalitions among Cloud Infrastructure Providers",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSim,
}

func init() {
	klog.InitFlags(nil)

	rootCmd.Flags().StringVar(&scenarioPath, "scenario", "", "path to the scenario file (required)")
	rootCmd.Flags().StringVar(&csvPath, "csv", "", "path to write the per-coalition CSV report")
	rootCmd.Flags().StringVar(&chartPath, "chart", "", "path to write an HTML bar chart of the accepted partitions")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "path to write a Prometheus plaintext exposition dump")
	rootCmd.Flags().StringVar(&filterExpr, "filter-expr", "", "CEL expression to post-filter accepted partitions")

	rootCmd.Flags().StringVar(&formation, "formation", string(partition.Nash), "coalition formation criterion: merge-split|nash|pareto|social")
	rootCmd.Flags().StringVar(&payoff, "payoff", string(coalition.Shapley), "payoff division rule: banzhaf|norm-banzhaf|shapley")

	rootCmd.Flags().Float64Var(&optRelGap, "opt-relgap", 0, "acceptable relative optimality gap for the placement solver")
	rootCmd.Flags().Float64Var(&optTiLim, "opt-tilim", -1, "placement solver time limit in seconds, -1 for unlimited")

	rootCmd.Flags().BoolVar(&rndGenVMs, "rnd-genvms", false, "randomly regenerate VM counts per CIP and VM type")
	rootCmd.Flags().BoolVar(&rndGenPMsOnOff, "rnd-genpmsonoff", false, "randomly regenerate PM power states")
	rootCmd.Flags().BoolVar(&rndGenPMsOnOffCosts, "rnd-genpmsonoffcosts", false, "randomly regenerate PM switch on/off costs")
	rootCmd.Flags().BoolVar(&rndGenVMsMigrCosts, "rnd-genvmsmigrcosts", false, "randomly regenerate VM migration costs")
	rootCmd.Flags().IntVar(&rndNumIt, "rnd-numit", 1, "number of times to repeat the run under fresh randomization")
	rootCmd.Flags().Int64Var(&rndSeed, "rnd-seed", randgen.DefaultSeed, "seed for the random scenario perturbation")

	rootCmd.Flags().IntVar(&concurrency, "concurrency", 1, "number of coalitions solved/evaluated concurrently")
}

func runSim(cmd *cobra.Command, args []string) error {
	if scenarioPath == "" {
		return fmt.Errorf("--scenario is required")
	}

	criterion := partition.Criterion(formation)
	switch criterion {
	case partition.MergeSplit, partition.Nash, partition.Pareto, partition.Social:
	default:
		return fmt.Errorf("invalid --formation %q", formation)
	}

	rule := coalition.PayoffRule(payoff)
	switch rule {
	case coalition.Shapley, coalition.Banzhaf, coalition.NormalizedBanzhaf:
	default:
		return fmt.Errorf("invalid --payoff %q", payoff)
	}

	var timeLimit time.Duration
	if optTiLim >= 0 {
		timeLimit = time.Duration(optTiLim * float64(time.Second))
	}

	cfg := app.Config{
		ScenarioPath: scenarioPath,
		CSVPath:      csvPath,
		ChartPath:    chartPath,
		MetricsPath:  metricsAddr,
		Formation:    criterion,
		Payoff:       rule,
		RelGap:       optRelGap,
		TimeLimit:    timeLimit,
		Concurrency:  concurrency,
		FilterExpr:   filterExpr,
		Rand: randgen.Options{
			GenVMs:           rndGenVMs,
			GenPMsOnOff:      rndGenPMsOnOff,
			GenPMsOnOffCosts: rndGenPMsOnOffCosts,
			GenVMsMigrCosts:  rndGenVMsMigrCosts,
			Seed:             rndSeed,
		},
		NumIterations: rndNumIt,
		Stdout:        os.Stdout,
	}

	return app.Run(cfg)
}

func main() {
	fmt.Println("cipfed sim - coalition formation among Cloud Infrastructure Providers")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(-1)
	}
}
