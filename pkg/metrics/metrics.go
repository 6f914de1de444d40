// Package metrics instruments a run with Prometheus counters/histograms
// (solver calls, infeasible/suboptimal outcomes, partitions inspected and
// accepted, wall time) and dumps them as a plaintext exposition file when
// requested, since this tool is a one-shot batch run rather than a live
// scrape target.
package metrics

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Recorder owns one run's metric set, registered against a private
// registry so repeated runs (and tests) never collide with the global
// DefaultRegisterer.
type Recorder struct {
	registry *prometheus.Registry

	solverCalls         prometheus.Counter
	solverInfeasible    prometheus.Counter
	solverSuboptimal    prometheus.Counter
	partitionsInspected prometheus.Counter
	partitionsAccepted  prometheus.Counter
	wallTime            prometheus.Histogram

	// Mirrored counts for the stdout one-line summary, since reading a
	// value back out of a prometheus.Counter requires the testutil
	// package this run never otherwise needs.
	solverCallsN         int64
	solverInfeasibleN    int64
	solverSuboptimalN    int64
	partitionsInspectedN int64
	partitionsAcceptedN  int64
}

// NewRecorder creates a Recorder with all metrics registered under the
// "cipfed" namespace.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		solverCalls: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "cipfed",
			Name:      "solver_calls_total",
			Help:      "Total number of placement solver invocations.",
		}),
		solverInfeasible: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "cipfed",
			Name:      "solver_infeasible_total",
			Help:      "Total number of coalitions the solver reported infeasible.",
		}),
		solverSuboptimal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "cipfed",
			Name:      "solver_suboptimal_total",
			Help:      "Total number of coalitions accepted with a suboptimal solver result.",
		}),
		partitionsInspected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "cipfed",
			Name:      "partitions_inspected_total",
			Help:      "Total number of set partitions enumerated by the partition selector.",
		}),
		partitionsAccepted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "cipfed",
			Name:      "partitions_accepted_total",
			Help:      "Total number of set partitions accepted by the chosen criterion.",
		}),
		wallTime: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "cipfed",
			Name:      "run_wall_seconds",
			Help:      "Wall-clock duration of the full evaluate-and-select run, in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	return r
}

// IncSolverCalls records one placement solver invocation.
func (r *Recorder) IncSolverCalls() {
	r.solverCalls.Inc()
	atomic.AddInt64(&r.solverCallsN, 1)
}

// IncInfeasible records one coalition the solver reported infeasible.
func (r *Recorder) IncInfeasible() {
	r.solverInfeasible.Inc()
	atomic.AddInt64(&r.solverInfeasibleN, 1)
}

// IncSuboptimal records one coalition accepted despite a suboptimal
// solver result.
func (r *Recorder) IncSuboptimal() {
	r.solverSuboptimal.Inc()
	atomic.AddInt64(&r.solverSuboptimalN, 1)
}

// AddPartitionsInspected records n partitions enumerated by the selector.
func (r *Recorder) AddPartitionsInspected(n int) {
	r.partitionsInspected.Add(float64(n))
	atomic.AddInt64(&r.partitionsInspectedN, int64(n))
}

// AddPartitionsAccepted records n partitions accepted by the selector.
func (r *Recorder) AddPartitionsAccepted(n int) {
	r.partitionsAccepted.Add(float64(n))
	atomic.AddInt64(&r.partitionsAcceptedN, int64(n))
}

// ObserveWallTime records the run's total wall-clock duration.
func (r *Recorder) ObserveWallTime(d time.Duration) {
	r.wallTime.Observe(d.Seconds())
}

// WriteFile dumps every registered metric in Prometheus plaintext
// exposition format to path, creating or truncating it.
func (r *Recorder) WriteFile(path string) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("metrics: gather: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	defer f.Close()

	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Summary renders the one-line instrumentation footer the stdout report
// appends after the fairness-diagnostics block.
func (r *Recorder) Summary() string {
	return fmt.Sprintf(
		"solver calls=%d infeasible=%d suboptimal=%d partitions inspected=%d accepted=%d",
		atomic.LoadInt64(&r.solverCallsN),
		atomic.LoadInt64(&r.solverInfeasibleN),
		atomic.LoadInt64(&r.solverSuboptimalN),
		atomic.LoadInt64(&r.partitionsInspectedN),
		atomic.LoadInt64(&r.partitionsAcceptedN),
	)
}
