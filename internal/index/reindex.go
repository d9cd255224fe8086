package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aman-CERP/ftsync/internal/record"
)

// Source streams the current records of a type from the record store.
type Source interface {
	Each(ctx context.Context, typeName string, fn func(record.Record) error) error
}

// Counter is implemented by sources that can report progress totals.
type Counter interface {
	Count(ctx context.Context, typeName string) (int, error)
}

// Progress reports reindexing of one unit.
type Progress struct {
	Unit    string
	Type    string
	Current int
	Total   int
	Done    bool
}

// ReindexOptions configures Reindex.
type ReindexOptions struct {
	// OnProgress is called after every record and once per finished unit.
	OnProgress func(Progress)
}

// ReindexResult summarizes one reindexed unit.
type ReindexResult struct {
	Unit     string
	Records  int
	Removed  int
	Duration time.Duration
}

// Reindex rebuilds every registered unit from src, one unit at a time.
// A failing unit does not stop the rest; failures are joined.
func (r *Registry) Reindex(ctx context.Context, src Source, opts ReindexOptions) ([]ReindexResult, error) {
	var (
		results []ReindexResult
		errs    []error
	)
	for _, u := range r.Units() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := r.ReindexUnit(ctx, u.Name(), src, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("reindex %s: %w", u.Name(), err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// ReindexUnit replaces the unit's index contents with documents built from
// the current store state, in a single writer transaction. Every covered
// record is applied with the unit's update handler, or its insert handler
// when it has none. Documents not rebuilt are removed.
func (r *Registry) ReindexUnit(ctx context.Context, name string, src Source, opts ReindexOptions) (ReindexResult, error) {
	reg, err := r.lookup(name)
	if err != nil {
		return ReindexResult{}, err
	}

	start := time.Now()
	res := ReindexResult{Unit: name}
	notify := func(p Progress) {
		if opts.OnProgress != nil {
			opts.OnProgress(p)
		}
	}

	total := 0
	if c, ok := src.(Counter); ok {
		for _, t := range reg.unit.Types() {
			n, err := c.Count(ctx, t)
			if err != nil {
				return res, fmt.Errorf("failed to count %s records: %w", t, err)
			}
			total += n
		}
	}

	w, err := reg.handle.Writer(ctx)
	if err != nil {
		return res, err
	}

	stale, err := reg.handle.AllIDs(ctx)
	if err != nil {
		w.Abort()
		return res, err
	}
	for _, id := range stale {
		if err := w.Delete(id); err != nil {
			w.Abort()
			return res, err
		}
	}

	for _, t := range reg.unit.Types() {
		h, ok := reg.unit.Handler(record.OpUpdate, t)
		if !ok {
			h, ok = reg.unit.Handler(record.OpInsert, t)
		}
		if !ok {
			continue
		}
		err := src.Each(ctx, t, func(rec record.Record) error {
			if err := h(w, rec); err != nil {
				return fmt.Errorf("%s record %v: %w", t, rec, err)
			}
			res.Records++
			notify(Progress{Unit: name, Type: t, Current: res.Records, Total: total})
			return nil
		})
		if err != nil {
			w.Abort()
			return res, err
		}
	}

	if err := w.Commit(); err != nil {
		return res, err
	}

	after, err := reg.handle.DocCount()
	if err == nil && uint64(len(stale)) > after {
		res.Removed = len(stale) - int(after)
	}
	res.Duration = time.Since(start)
	notify(Progress{Unit: name, Current: res.Records, Total: total, Done: true})

	slog.Info("reindex_complete",
		slog.String("unit", name),
		slog.Int("records", res.Records),
		slog.Int("removed", res.Removed),
		slog.Duration("duration", res.Duration))
	return res, nil
}
