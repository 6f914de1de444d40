package report

import (
	"fmt"
	"io"

	"cipfed/pkg/types"
)

// WriteStdout prints the per-run human-readable report in the order
// spec.md §6 specifies: best partitions, then the grand coalition, then
// the singleton partition, extended per SPEC_FULL.md §6 with a fairness-
// diagnostics block and a one-line metrics summary. The diagnostics block
// reports the grand coalition's types.FairnessDiagnostics, computed by the
// evaluator per coalition (SPEC_FULL.md §4.B): Nash bargaining,
// Kalai-Smorodinsky, a market-clearing reference split, the 2-player
// closed-form split where applicable, and the shadow price produced by the
// primal-dual clearing loop (pkg/allocation.PrimalDualPriceClearing) - not
// the heuristic pkg/price.ComputeShadowPrices, which only feeds the
// electricity-price estimate here.
func WriteStdout(w io.Writer, n int, accepted []types.Partition, infos map[types.CoalitionID]types.CoalitionInfo, metricsSummary string) {
	grand := infos[types.GrandCoalitionID(n)]

	fmt.Fprintf(w, "=== Best partitions (%d) ===\n", len(accepted))
	for i, part := range accepted {
		fmt.Fprintf(w, "--- Partition %d ---\n", i)
		writePartitionBlock(w, n, part, infos, grand)
	}

	fmt.Fprintln(w, "\n=== Grand coalition ===")
	fmt.Fprintf(w, "value=%s core_nonempty=%v\n", formatFloat(grand.Value), grand.CoreNonEmpty)
	for p := 0; p < n; p++ {
		pid := types.PlayerID(p)
		fmt.Fprintf(w, "  payoff(CIP %d)=%s payoff_in_core=%v\n", p, formatFloat(grand.Payoff[pid]), grand.PayoffInCore)
	}

	fmt.Fprintln(w, "\n=== Singleton partition ===")
	totalEnergy := 0.0
	for p := 0; p < n; p++ {
		info := infos[types.SingletonID(types.PlayerID(p))]
		totalEnergy += info.Alloc.KWh
		fmt.Fprintf(w, "  payoff(CIP %d)=%s energy(kWh)=%s\n", p, formatFloat(info.Payoff[types.PlayerID(p)]), formatFloat(info.Alloc.KWh))
	}
	fmt.Fprintf(w, "  total energy(kWh)=%s\n", formatFloat(totalEnergy))

	if diag := grand.Diagnostics; diag.NashBargaining != nil {
		fmt.Fprintln(w, "\n=== Fairness diagnostics (informational; does not affect partition selection) ===")
		for p := 0; p < n; p++ {
			pid := types.PlayerID(p)
			fmt.Fprintf(w, "  CIP %d: nash_bargaining=%s kalai_smorodinsky=%s market_share=%s\n",
				p, formatFloat(diag.NashBargaining[pid]), formatFloat(diag.KalaiSmorodinsky[pid]), formatFloat(diag.MarketShare[pid]))
		}
		if diag.NashSimple != nil {
			fmt.Fprintln(w, "  nash_simple (2-player closed form):")
			for p := 0; p < n; p++ {
				pid := types.PlayerID(p)
				if share, ok := diag.NashSimple[pid]; ok {
					fmt.Fprintf(w, "    CIP %d: %s\n", p, formatFloat(share))
				}
			}
		}
		fmt.Fprintf(w, "  shadow_price(cpu)=%s shadow_price(ram)=%s effective_electricity_price=%s primal_dual_converged=%v primal_dual_iterations=%d\n",
			formatFloat(diag.ShadowPriceCPU), formatFloat(diag.ShadowPriceRAM), formatFloat(diag.EffectiveElectricityPrice),
			diag.PrimalDualConverged, diag.PrimalDualIterations)
	}

	if metricsSummary != "" {
		fmt.Fprintf(w, "\n%s\n", metricsSummary)
	}
}

func writePartitionBlock(w io.Writer, n int, part types.Partition, infos map[types.CoalitionID]types.CoalitionInfo, grand types.CoalitionInfo) {
	fmt.Fprintf(w, "coalitions=%v total_value=%s\n", part.Coalitions, formatFloat(part.TotalValue))
	totalEnergy := 0.0
	for _, id := range part.Coalitions {
		info := infos[id]
		totalEnergy += info.Alloc.KWh
		fmt.Fprintf(w, "  coalition=%v value=%s energy(kWh)=%s core_nonempty=%v\n",
			id.Members(n), formatFloat(info.Value), formatFloat(info.Alloc.KWh), info.CoreNonEmpty)
	}
	fmt.Fprintf(w, "  total_energy(kWh)=%s\n", formatFloat(totalEnergy))

	for p := 0; p < n; p++ {
		pid := types.PlayerID(p)
		payoff := part.Payoff[pid]
		singleton := infos[types.SingletonID(pid)].Payoff[pid]
		grandPayoff := grand.Payoff[pid]
		fmt.Fprintf(w, "  payoff(CIP %d)=%s delta_vs_grand=%s delta_vs_singleton=%s\n",
			p, formatFloat(payoff), percentDelta(payoff, grandPayoff), percentDelta(payoff, singleton))
	}
}

// percentDelta renders (value-baseline)/baseline as a percentage string;
// a zero baseline has no meaningful percentage change, so it reports
// "n/a" unless value is also zero (no change at all).
func percentDelta(value, baseline float64) string {
	if baseline == 0 {
		if value == 0 {
			return "0.00%"
		}
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", (value-baseline)/baseline*100)
}
