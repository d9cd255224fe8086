package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ftsync/internal/config"
	"github.com/Aman-CERP/ftsync/internal/output"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create .ftsync.yaml with example record types",
		Example: `  # Initialize the current directory
  ftsync init

  # Overwrite an existing configuration (the old one is backed up)
  ftsync init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())

	dir, err := filepath.Abs(projectDir)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, config.ProjectFileName)

	if fileExists(path) {
		if !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		backup, err := config.Backup(path)
		if err != nil {
			return err
		}
		out.Statusf("", "backed up existing config to %s", backup)
	}

	if err := config.WriteTemplate(path); err != nil {
		return err
	}

	out.Successf("wrote %s", path)
	out.Hint("add records with 'ftsync put Entry title=... content=...'")
	return nil
}
