package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	ftserr "github.com/Aman-CERP/ftsync/internal/errors"
	"github.com/Aman-CERP/ftsync/internal/index"
	"github.com/Aman-CERP/ftsync/internal/profiling"
	"github.com/Aman-CERP/ftsync/internal/ui"
)

func newReindexCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "reindex [unit...]",
		Short: "Rebuild indexes from the record store",
		Long: `Rebuild indexes from the current records. Documents of records that no
longer exist are removed. Without arguments every unit is rebuilt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReindex(cmd, args, plain)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Plain progress output (no TUI)")

	return cmd
}

func runReindex(cmd *cobra.Command, names []string, plain bool) error {
	ctx := cmd.Context()

	p, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	if len(names) == 0 {
		for _, u := range p.reg.Units() {
			names = append(names, u.Name())
		}
	}

	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(plain),
		ui.WithNoColor(noColor),
		ui.WithTitle("ftsync reindex • "+p.dir)))
	if err := renderer.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = renderer.Stop() }()

	opts := index.ReindexOptions{
		OnProgress: func(pr index.Progress) {
			renderer.UpdateProgress(ui.ProgressEvent{
				Unit:    pr.Unit,
				Type:    pr.Type,
				Current: pr.Current,
				Total:   pr.Total,
				Done:    pr.Done,
			})
		},
	}

	start := time.Now()
	stats := ui.CompletionStats{}
	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		// A busy writer means a concurrent commit; back off and retry.
		var res index.ReindexResult
		err := ftserr.Retry(ctx, ftserr.DefaultRetryConfig(), func() error {
			var err error
			res, err = p.reg.ReindexUnit(ctx, name, p.store, opts)
			return err
		})
		if err != nil {
			slog.Warn("reindex_unit_failed",
				slog.String("unit", name),
				slog.Any("error", ftserr.FormatForLog(err)))
			renderer.AddError(ui.ErrorEvent{Unit: name, Err: err})
			errs = append(errs, fmt.Errorf("reindex %s: %w", name, err))
			continue
		}
		stats.Units = append(stats.Units, ui.UnitSummary{
			Unit:     res.Unit,
			Records:  res.Records,
			Removed:  res.Removed,
			Duration: res.Duration,
		})
	}
	stats.Duration = time.Since(start)
	stats.Errors = len(errs)
	renderer.Complete(stats)

	slog.Debug("reindex_finished",
		slog.Int("units", len(stats.Units)),
		slog.Int("records", stats.Records()),
		slog.Int("errors", stats.Errors),
		slog.String("heap_in_use", ui.FormatBytes(int64(profiling.HeapInUse()))))

	return errors.Join(errs...)
}
