package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	echarts_types "github.com/go-echarts/go-echarts/v2/types"

	"cipfed/pkg/types"
)

// WriteChart renders an HTML bar chart of every accepted partition's
// per-player payoffs to w, one series per player across the partitions on
// the x-axis.
func WriteChart(w io.Writer, n int, accepted []types.Partition) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Accepted partitions: per-player payoff"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{Theme: echarts_types.ThemeWesteros}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Partition"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Payoff"}),
	)

	labels := make([]string, len(accepted))
	for i := range accepted {
		labels[i] = fmt.Sprintf("P%d", i)
	}
	bar.SetXAxis(labels)

	for p := 0; p < n; p++ {
		pid := types.PlayerID(p)
		data := make([]opts.BarData, len(accepted))
		for i, part := range accepted {
			data[i] = opts.BarData{Value: part.Payoff[pid]}
		}
		bar.AddSeries(fmt.Sprintf("CIP %d", p), data)
	}

	return bar.Render(w)
}

// WriteChartFile renders the chart directly to the file at path.
func WriteChartFile(path string, n int, accepted []types.Partition) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	defer f.Close()
	return WriteChart(f, n, accepted)
}
