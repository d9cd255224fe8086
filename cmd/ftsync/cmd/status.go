package cmd

import (
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ftsync/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show record counts and index state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, jsonOutput bool) error {
	ctx := cmd.Context()

	p, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	stats, err := p.reg.Stats()
	if err != nil {
		return err
	}

	info := ui.StatusInfo{
		ProjectDir:      p.dir,
		StorePath:       p.cfg.StorePath(p.dir),
		IndexingEnabled: p.reg.IndexingEnabled(),
		Records:         make(map[string]int),
	}
	if !p.cfg.Index.MemoryStorage {
		info.IndexRoot = p.reg.Options().RootDir
	}
	for _, t := range p.store.Types() {
		n, err := p.store.Count(ctx, t.Name)
		if err != nil {
			return err
		}
		info.Records[t.Name] = n
	}
	for _, s := range stats {
		info.Units = append(info.Units, ui.UnitStatus{
			Name:       s.Name,
			Types:      s.Types,
			Path:       s.Path,
			Documents:  s.Documents,
			Size:       dirSize(s.Path),
			AutoUpdate: s.AutoUpdate,
		})
	}

	r := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor || !ui.IsTTY(cmd.OutOrStdout()))
	if jsonOutput {
		return r.RenderJSON(info)
	}
	return r.Render(info)
}

// dirSize sums file sizes under dir; unreadable entries count as zero.
func dirSize(dir string) int64 {
	if dir == "" {
		return 0
	}
	var total int64
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}
