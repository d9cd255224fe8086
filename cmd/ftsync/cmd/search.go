package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	ftserr "github.com/Aman-CERP/ftsync/internal/errors"
	"github.com/Aman-CERP/ftsync/internal/output"
	"github.com/Aman-CERP/ftsync/internal/record"
	"github.com/Aman-CERP/ftsync/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	joins   []string // "Type:on condition"
	where   []string
	unit    string
	and     bool
	exact   bool
	limit   int
	order   int
	maxRows int
	format  string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <type> <text>...",
		Short: "Search records of a type",
		Long: `Search records of a type with the full-text index covering it.

Words match as substrings by default and any word may match. Results are
ordered by relevance.`,
		Example: `  ftsync search Entry chuck
  ftsync search Entry chuck norris --and --exact
  ftsync search Entry chuck --join 'User:"user"."id" = "entry"."user_id"'
  ftsync search Entry chuck --format json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, args[0], strings.Join(args[1:], " "), opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.joins, "join", nil, "Join another type: 'Type:on condition' (repeatable)")
	cmd.Flags().StringArrayVar(&opts.where, "where", nil, "Extra SQL condition (repeatable)")
	cmd.Flags().StringVarP(&opts.unit, "unit", "u", "", "Search this unit instead of resolving one from the types")
	cmd.Flags().BoolVar(&opts.and, "and", false, "Require every word to match")
	cmd.Flags().BoolVar(&opts.exact, "exact", false, "Match whole words instead of substrings")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of index hits (0 = all)")
	cmd.Flags().IntVar(&opts.order, "order", search.DefaultOrderByRelevance, "Rank the top N hits by relevance (-1 = all, 0 = none)")
	cmd.Flags().IntVar(&opts.maxRows, "max-rows", 0, "Maximum number of rows returned (0 = all)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, typeName, text string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return ftserr.ValidationError(fmt.Sprintf("unknown format %q (use text or json)", opts.format), nil)
	}

	p, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	t, err := p.recordType(typeName)
	if err != nil {
		return err
	}

	q := p.store.Query(t.Name)
	for _, j := range opts.joins {
		name, on, ok := strings.Cut(j, ":")
		if !ok || strings.TrimSpace(on) == "" {
			return ftserr.ValidationError(fmt.Sprintf("expected Type:condition, got %q", j), nil)
		}
		jt, err := p.recordType(strings.TrimSpace(name))
		if err != nil {
			return err
		}
		q = q.Join(jt.Name, on)
	}
	for _, w := range opts.where {
		q = q.Where(w)
	}

	q = q.Search(ctx, p.reg, text, searchFlags(cmd, p, opts)...)
	if opts.maxRows > 0 {
		q = q.Limit(opts.maxRows)
	}

	rows, err := q.All(ctx)
	if err != nil {
		return err
	}
	slog.Info("search_complete",
		slog.String("type", t.Name),
		slog.String("query", text),
		slog.Int("rows", len(rows)))

	if opts.format == "json" {
		return writeJSON(cmd, t, rows)
	}
	writeTable(cmd, t, rows)
	return nil
}

// searchFlags layers explicitly set flags over the configured defaults.
func searchFlags(cmd *cobra.Command, p *project, opts searchOptions) []search.Option {
	out := p.cfg.SearchOptions()
	flags := cmd.Flags()
	if flags.Changed("and") {
		g := search.GroupOr
		if opts.and {
			g = search.GroupAnd
		}
		out = append(out, search.WithGroup(g))
	}
	if flags.Changed("exact") {
		out = append(out, search.WithMatchSubstrings(!opts.exact))
	}
	if flags.Changed("limit") {
		out = append(out, search.WithLimit(opts.limit))
	}
	if flags.Changed("order") {
		out = append(out, search.WithOrderByRelevance(opts.order))
	}
	if opts.unit != "" {
		out = append(out, search.WithUnit(opts.unit))
	}
	return out
}

func writeJSON(cmd *cobra.Command, t *record.Type, rows []*record.Row) error {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = r.Values
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"type":    t.Name,
		"count":   len(rows),
		"records": out,
	})
}

func writeTable(cmd *cobra.Command, t *record.Type, rows []*record.Row) {
	w := output.New(cmd.OutOrStdout())
	if len(rows) == 0 {
		w.Warning("no matching records")
		return
	}

	header := make([]string, len(t.Attributes))
	for i, a := range t.Attributes {
		header[i] = a.Name
	}
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = make([]string, len(t.Attributes))
		for j, a := range t.Attributes {
			if v, ok := r.Value(a.Name); ok && v != nil {
				cells[i][j] = truncateCell(fmt.Sprint(v), 48)
			}
		}
	}
	w.Table(header, cells)
}

func truncateCell(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
