package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	ftserr "github.com/Aman-CERP/ftsync/internal/errors"
	"github.com/Aman-CERP/ftsync/internal/search"
	"github.com/Aman-CERP/ftsync/internal/telemetry"
)

// Search runs req against one unit and returns its primary keys in rank
// order. The unit is req.Unit when set, otherwise the unit covering
// exactly types.
//
// Text shorter than the minimum length fails with a validation error.
func (r *Registry) Search(ctx context.Context, req search.Request, types ...string) (search.Result, error) {
	name := req.Unit
	if name == "" {
		u, err := r.Resolve(types...)
		if err != nil {
			return search.Result{}, err
		}
		name = u.Name()
	}

	reg, err := r.lookup(name)
	if err != nil {
		return search.Result{}, err
	}
	s := reg.unit.Schema()
	res := search.Result{Unit: name, Target: s.Target, Keys: []any{}}

	prepared, err := r.translator.Prepare(req.Text, req.MatchSubstrings)
	if err != nil {
		return res, err
	}

	start := time.Now()
	q := r.parser.Compile(name, s.TextFields(), reg.handle, prepared, req.Group)
	hits, err := reg.handle.Search(ctx, q, req.Limit)
	if err != nil {
		r.observe(telemetry.SearchEvent{Unit: name, Query: req.Text, Latency: time.Since(start), Failed: true})
		return res, err
	}
	r.observe(telemetry.SearchEvent{Unit: name, Query: req.Text, Hits: len(hits), Latency: time.Since(start)})

	for _, hit := range hits {
		key, err := s.Key.ParseKey(hit.ID)
		if err != nil {
			return res, ftserr.New(ftserr.ErrCodeCorruptIndex,
				fmt.Sprintf("index %s holds an unreadable key", name), err).
				WithDetail("id", hit.ID).
				WithSuggestion("run 'ftsync reindex' to rebuild the index")
		}
		res.Keys = append(res.Keys, key)
	}

	slog.Debug("search_complete",
		slog.String("unit", name),
		slog.String("query", prepared),
		slog.String("group", req.Group.String()),
		slog.Int("hits", len(res.Keys)))
	return res, nil
}

func (r *Registry) observe(e telemetry.SearchEvent) {
	if r.opts.Metrics != nil {
		r.opts.Metrics.Record(e)
	}
}

// Filter runs req and reconciles the hits into a record-store filter using
// the request's relevance ordering. Validation errors come back with an
// empty filter so callers can degrade to no rows.
func (r *Registry) Filter(ctx context.Context, req search.Request, types ...string) (search.Filter, error) {
	res, err := r.Search(ctx, req, types...)
	if err != nil {
		return search.Filter{Empty: true, Type: res.Target.Type, Attribute: res.Target.Attribute}, err
	}
	return search.Reconcile(res, req.OrderByRelevance), nil
}
