package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Aman-CERP/ftsync/internal/config"
	ftserr "github.com/Aman-CERP/ftsync/internal/errors"
	"github.com/Aman-CERP/ftsync/internal/index"
	"github.com/Aman-CERP/ftsync/internal/record"
	"github.com/Aman-CERP/ftsync/internal/recordstore"
	"github.com/Aman-CERP/ftsync/internal/telemetry"
)

// project is an opened ftsync project: its configuration, record store and
// index registry, with the registry hooked on store commits.
type project struct {
	dir     string
	cfg     *config.Config
	store   *recordstore.Store
	reg     *index.Registry
	metrics *telemetry.SearchMetrics
	stats   *telemetry.SQLiteStore
}

func openProject(ctx context.Context) (*project, error) {
	dir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if len(cfg.Types) == 0 {
		return nil, ftserr.New(ftserr.ErrCodeConfigNotFound,
			fmt.Sprintf("no record types configured in %s", filepath.Join(dir, config.ProjectFileName)), nil).
			WithSuggestion("run 'ftsync init' to create an example configuration")
	}

	units, err := cfg.Units()
	if err != nil {
		return nil, ftserr.SchemaError("invalid unit declaration", err)
	}

	st, err := recordstore.Open(cfg.StorePath(dir), cfg.RecordTypes()...)
	if err != nil {
		return nil, err
	}

	stats, err := telemetry.NewSQLiteStore(st.DB())
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	metrics := telemetry.New(stats, telemetry.DefaultConfig())

	opts := cfg.RegistryOptions(dir)
	opts.Metrics = metrics
	reg, err := index.New(ctx, opts)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	for _, u := range units {
		if err := reg.Register(u); err != nil {
			_ = reg.Close()
			_ = st.Close()
			return nil, err
		}
	}
	st.OnCommit(reg.Route)

	slog.Debug("project_opened",
		slog.String("dir", dir),
		slog.Int("types", len(cfg.Types)),
		slog.Int("units", len(units)))

	return &project{dir: dir, cfg: cfg, store: st, reg: reg, metrics: metrics, stats: stats}, nil
}

// Close flushes search statistics before the store closes.
func (p *project) Close() error {
	regErr := p.reg.Close()
	if err := p.metrics.Close(); err != nil {
		slog.Warn("search_stats_flush_failed", slog.String("error", err.Error()))
	}
	return errors.Join(regErr, p.store.Close())
}

// recordType returns the declared type, matched case-insensitively.
func (p *project) recordType(name string) (*record.Type, error) {
	for _, t := range p.store.Types() {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	return nil, ftserr.ValidationError(fmt.Sprintf("unknown record type %q", name), nil)
}

// parseValue converts a command-line value to the attribute's kind.
func parseValue(a record.Attribute, s string) (any, error) {
	var (
		v   any
		err error
	)
	switch a.Kind {
	case record.KindInteger, record.KindBigInteger:
		v, err = strconv.ParseInt(s, 10, 64)
	case record.KindFloat:
		v, err = strconv.ParseFloat(s, 64)
	case record.KindBool:
		v, err = strconv.ParseBool(s)
	default:
		v = s
	}
	if err != nil {
		return nil, ftserr.ValidationError(fmt.Sprintf("invalid %s value for %s: %q", a.Kind, a.Name, s), err)
	}
	return v, nil
}

// parseAssignments parses attr=value arguments for t.
func parseAssignments(t *record.Type, args []string) (map[string]any, error) {
	values := make(map[string]any, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, ftserr.ValidationError(fmt.Sprintf("expected attr=value, got %q", arg), nil)
		}
		a, ok := t.Attribute(name)
		if !ok {
			return nil, ftserr.ValidationError(fmt.Sprintf("%s has no attribute %q", t.Name, name), nil)
		}
		v, err := parseValue(a, raw)
		if err != nil {
			return nil, err
		}
		values[name] = v
	}
	return values, nil
}

// commitFailure explains a failed commit. Only store failures lose the
// write; anything else came from index hooks after the data was committed.
func commitFailure(err error) error {
	if ftserr.GetCode(err) == ftserr.ErrCodeStoreFailed {
		return err
	}
	return ftserr.Wrap(ftserr.ErrCodeHandlerFailed, fmt.Errorf("record saved but index update failed: %w", err)).
		WithSuggestion("run 'ftsync reindex' to rebuild the indexes")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
