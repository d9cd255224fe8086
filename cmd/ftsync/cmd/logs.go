package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ftsync/internal/logging"
)

func newLogsCmd() *cobra.Command {
	var (
		lines   int
		follow  bool
		level   string
		pattern string
		file    string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View debug logs",
		Long:  `View logs written by commands run with --debug.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := logging.FindLogFile(file)
			if err != nil {
				return err
			}

			cfg := logging.ViewerConfig{Level: level, NoColor: noColor}
			if pattern != "" {
				re, err := regexp.Compile(pattern)
				if err != nil {
					return fmt.Errorf("invalid pattern: %w", err)
				}
				cfg.Pattern = re
			}
			viewer := logging.NewViewer(cfg, cmd.OutOrStdout())

			entries, err := viewer.Tail(path, lines)
			if err != nil {
				return err
			}
			viewer.Print(entries)
			if !follow {
				return nil
			}

			ch := make(chan logging.LogEntry, 64)
			errCh := make(chan error, 1)
			go func() {
				errCh <- viewer.Follow(cmd.Context(), path, ch)
				close(ch)
			}()
			for e := range ch {
				viewer.Print([]logging.LogEntry{e})
			}
			return <-errCh
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow new entries")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level: debug, info, warn, error")
	cmd.Flags().StringVar(&pattern, "grep", "", "Only show lines matching this regular expression")
	cmd.Flags().StringVar(&file, "file", "", "Log file (default ~/.ftsync/logs/ftsync.log)")

	return cmd
}
