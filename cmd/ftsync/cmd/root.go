// Package cmd provides the CLI commands for ftsync.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ftsync/internal/logging"
	"github.com/Aman-CERP/ftsync/internal/profiling"
	"github.com/Aman-CERP/ftsync/pkg/version"
)

var (
	debugMode      bool
	noColor        bool
	projectDir     string
	profiles       profiling.Options
	loggingCleanup func()
	profileSession *profiling.Session
)

// NewRootCmd creates the root command for the ftsync CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ftsync",
		Short: "Full-text search kept in sync with a record store",
		Long: `ftsync keeps full-text indexes consistent with the records of a SQLite
record store. Every committed insert, update and delete is routed to the
indexes covering its record type, and searches return matching records in
relevance order.

Run 'ftsync init' in a directory to create .ftsync.yaml with example types.`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: startProfilingAndLogging,
		PersistentPostRun: func(*cobra.Command, []string) { stopProfilingAndLogging() },
	}

	cmd.SetVersionTemplate("ftsync version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.ftsync/logs/")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "Project directory containing .ftsync.yaml")
	cmd.PersistentFlags().StringVar(&profiles.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profiles.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profiles.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	cleanup, err := logging.SetupCLI(debugMode, "")
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	if debugMode {
		slog.Debug("debug_logging_enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}

	if profiles.Enabled() {
		profileSession, err = profiling.Start(profiles)
		if err != nil {
			return err
		}
	}
	return nil
}

// stopProfilingAndLogging flushes requested profiles, then closes the log.
func stopProfilingAndLogging() {
	if profileSession != nil {
		if err := profileSession.Stop(); err != nil {
			slog.Warn("profile_write_failed", slog.String("error", err.Error()))
		}
		profileSession = nil
	}
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	defer stopProfilingAndLogging()
	return NewRootCmd().ExecuteContext(ctx)
}
