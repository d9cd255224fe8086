package cmd

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ftsync/internal/output"
	"github.com/Aman-CERP/ftsync/internal/telemetry"
)

func newStatsCmd() *cobra.Command {
	var (
		jsonOutput bool
		top        int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show search statistics",
		Long: `Show statistics gathered from past searches: queries per unit, the most
searched terms, recent searches that matched nothing and a latency histogram.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := openProject(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			snap, err := p.stats.Summary(top, top)
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			writeStats(output.New(cmd.OutOrStdout()), snap)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output statistics as JSON")
	cmd.Flags().IntVarP(&top, "top", "n", 10, "Number of terms and zero-result queries to show")

	return cmd
}

func writeStats(w *output.Writer, snap *telemetry.Snapshot) {
	if snap.TotalQueries == 0 {
		w.Warning("no searches recorded yet")
		return
	}

	w.Successf("%d searches recorded", snap.TotalQueries)
	w.Newline()

	units := make([]string, 0, len(snap.UnitCounts))
	for u := range snap.UnitCounts {
		units = append(units, u)
	}
	sort.Strings(units)
	rows := make([][]string, len(units))
	for i, u := range units {
		rows[i] = []string{u, strconv.FormatInt(snap.UnitCounts[u], 10)}
	}
	w.Table([]string{"UNIT", "SEARCHES"}, rows)

	if len(snap.TopTerms) > 0 {
		w.Newline()
		rows = rows[:0]
		for _, tc := range snap.TopTerms {
			rows = append(rows, []string{tc.Term, strconv.FormatInt(tc.Count, 10)})
		}
		w.Table([]string{"TERM", "COUNT"}, rows)
	}

	w.Newline()
	rows = rows[:0]
	for _, b := range telemetry.Buckets {
		rows = append(rows, []string{bucketLabel(b), strconv.FormatInt(snap.LatencyDistribution[b], 10)})
	}
	w.Table([]string{"LATENCY", "SEARCHES"}, rows)

	if len(snap.ZeroResultQueries) > 0 {
		w.Newline()
		w.Warningf("%d recent searches matched nothing", snap.ZeroResultCount)
		for _, q := range snap.ZeroResultQueries {
			w.Hint(q)
		}
	}
}

func bucketLabel(b telemetry.LatencyBucket) string {
	switch b {
	case telemetry.BucketP10:
		return "<10ms"
	case telemetry.BucketP50:
		return "10-50ms"
	case telemetry.BucketP100:
		return "50-100ms"
	case telemetry.BucketP500:
		return "100-500ms"
	default:
		return ">=500ms"
	}
}
