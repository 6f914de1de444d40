// Package filterexpr post-filters accepted partitions through a
// user-supplied CEL expression over their aggregate fields (number of
// coalitions, total value, and per-player payoffs).
package filterexpr

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"

	"cipfed/pkg/types"
)

// Filter compiles expr once and keeps the partitions for which it
// evaluates to true. expr sees num_coalitions (int), total_value
// (double), max_payoff/min_payoff (double), and payoffs (map from
// "cip_<index>" to double).
type Filter struct {
	program cel.Program
}

// New compiles expr against the fixed partition-field environment.
func New(expr string) (*Filter, error) {
	env, err := cel.NewEnv(
		cel.Declarations(
			decls.NewVar("num_coalitions", decls.Int),
			decls.NewVar("total_value", decls.Double),
			decls.NewVar("max_payoff", decls.Double),
			decls.NewVar("min_payoff", decls.Double),
			decls.NewVar("payoffs", decls.NewMapType(decls.String, decls.Double)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("filterexpr: create environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("filterexpr: compile %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("filterexpr: program %q: %w", expr, err)
	}
	return &Filter{program: prg}, nil
}

// Apply returns the subset of partitions for which the compiled
// expression evaluates to true.
func (f *Filter) Apply(partitions []types.Partition) ([]types.Partition, error) {
	var kept []types.Partition
	for _, part := range partitions {
		match, err := f.matches(part)
		if err != nil {
			return nil, err
		}
		if match {
			kept = append(kept, part)
		}
	}
	return kept, nil
}

func (f *Filter) matches(part types.Partition) (bool, error) {
	payoffs := make(map[string]float64, len(part.Payoff))
	maxPayoff, minPayoff := 0.0, 0.0
	first := true
	for p, v := range part.Payoff {
		payoffs[fmt.Sprintf("cip_%d", p)] = v
		if first || v > maxPayoff {
			maxPayoff = v
		}
		if first || v < minPayoff {
			minPayoff = v
		}
		first = false
	}

	vars := map[string]interface{}{
		"num_coalitions": int64(len(part.Coalitions)),
		"total_value":    part.TotalValue,
		"max_payoff":     maxPayoff,
		"min_payoff":     minPayoff,
		"payoffs":        payoffs,
	}

	out, _, err := f.program.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("filterexpr: eval: %w", err)
	}
	match, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filterexpr: expression did not evaluate to a boolean")
	}
	return match, nil
}
