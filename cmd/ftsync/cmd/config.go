package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/ftsync/internal/config"
	ftserr "github.com/Aman-CERP/ftsync/internal/errors"
	"github.com/Aman-CERP/ftsync/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := filepath.Abs(projectDir)
			if err != nil {
				return err
			}
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			enc := yaml.NewEncoder(&buf)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(buf.Bytes())
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := filepath.Abs(projectDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "user:    %s\n", config.GetUserConfigPath())
			_, _ = fmt.Fprintf(out, "project: %s\n", filepath.Join(dir, config.ProjectFileName))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restore [backup]",
		Short: "Restore .ftsync.yaml from a backup (newest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(projectDir)
			if err != nil {
				return err
			}
			path := filepath.Join(dir, config.ProjectFileName)

			var backup string
			if len(args) == 1 {
				backup = args[0]
			} else {
				backups, err := config.ListBackups(path)
				if err != nil {
					return err
				}
				if len(backups) == 0 {
					return ftserr.New(ftserr.ErrCodeConfigNotFound, "no configuration backups found", nil).
						WithDetail("path", path)
				}
				backup = backups[0]
			}

			if err := config.Restore(path, backup); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("restored %s from %s", path, backup)
			return nil
		},
	})

	return cmd
}
