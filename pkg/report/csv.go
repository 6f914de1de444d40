// Package report renders a run's results: the CSV export of the full
// coalition-info table, the human-readable stdout summary, and an
// optional HTML payoff chart.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"cipfed/pkg/types"
)

// WriteCSV appends one block of the coalition-info table to w, in the
// exact column order spec.md §6 requires: Coalition ID, Payoff(CIP 0) ...
// Payoff(CIP N-1), Value(Coalition). Rows are sorted by coalition id
// ascending. firstBlock controls whether a header is written; when false,
// a blank (n+1)-column separator row is written first instead, matching
// the multi-iteration CSV append behavior spec.md §6 describes.
func WriteCSV(w io.Writer, infos map[types.CoalitionID]types.CoalitionInfo, n int, firstBlock bool) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if !firstBlock {
		if err := cw.Write(make([]string, n+1)); err != nil {
			return fmt.Errorf("report: write separator row: %w", err)
		}
	} else {
		header := make([]string, 0, n+2)
		header = append(header, "Coalition ID")
		for p := 0; p < n; p++ {
			header = append(header, fmt.Sprintf("Payoff(CIP %d)", p))
		}
		header = append(header, "Value(Coalition)")
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("report: write header: %w", err)
		}
	}

	ids := make([]types.CoalitionID, 0, len(infos))
	for id := range infos {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		info := infos[id]
		row := make([]string, 0, n+2)
		row = append(row, strconv.FormatUint(uint64(id), 10))
		for p := 0; p < n; p++ {
			row = append(row, formatFloat(info.Payoff[types.PlayerID(p)]))
		}
		row = append(row, formatFloat(info.Value))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: write row %d: %w", id, err)
		}
	}
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
