package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// UnitStatus describes one registered unit.
type UnitStatus struct {
	Name       string   `json:"name"`
	Types      []string `json:"types"`
	Path       string   `json:"path,omitempty"`
	Documents  uint64   `json:"documents"`
	Size       int64    `json:"size_bytes"`
	AutoUpdate bool     `json:"auto_update"`
}

// StatusInfo describes an ftsync project.
type StatusInfo struct {
	ProjectDir      string         `json:"project_dir"`
	StorePath       string         `json:"store_path"`
	IndexRoot       string         `json:"index_root"`
	IndexingEnabled bool           `json:"indexing_enabled"`
	Records         map[string]int `json:"records"`
	Units           []UnitStatus   `json:"units"`
}

// StatusRenderer displays project status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor)}
}

// Render writes status for humans.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("ftsync: "+info.ProjectDir))

	store := info.StorePath
	if store == "" {
		store = "(memory)"
	}
	root := info.IndexRoot
	if root == "" {
		root = "(memory)"
	}
	_, _ = fmt.Fprintf(r.out, "  Store:    %s\n", store)
	_, _ = fmt.Fprintf(r.out, "  Index:    %s\n", root)
	_, _ = fmt.Fprintf(r.out, "  Indexing: %s\n\n", r.renderSwitch(info.IndexingEnabled))

	if len(info.Units) == 0 {
		_, _ = fmt.Fprintln(r.out, r.styles.Dim.Render("  no units registered"))
		return nil
	}

	_, _ = fmt.Fprintln(r.out, "  Units:")
	for _, u := range info.Units {
		records := 0
		for _, t := range u.Types {
			records += info.Records[t]
		}
		_, _ = fmt.Fprintf(r.out, "    %-16s %-24s %6d docs  %6d records  %9s  auto-update %s\n",
			u.Name, strings.Join(u.Types, ","), u.Documents, records, FormatBytes(u.Size), r.renderSwitch(u.AutoUpdate))
	}
	return nil
}

// RenderJSON writes status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatusRenderer) renderSwitch(on bool) string {
	if on {
		return r.styles.Success.Render("on")
	}
	return r.styles.Warning.Render("off")
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
