package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	ftserr "github.com/Aman-CERP/ftsync/internal/errors"
	"github.com/Aman-CERP/ftsync/internal/record"
)

// dispatch is one event bound to the handler a unit registered for it.
type dispatch struct {
	event   record.ChangeEvent
	handler Handler
}

// unitBatch is a unit's share of a commit batch, in arrival order.
type unitBatch struct {
	reg   *registered
	items []dispatch
}

// Route applies a commit batch of change events.
//
// Each event fans out to every unit covering its record type. A unit with
// at least one handled event gets exactly one writer and one commit;
// events without a handler are skipped. Units are committed concurrently
// and independently, so a failing unit does not undo the others. All
// failures are joined into the returned error.
func (r *Registry) Route(ctx context.Context, events []record.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}
	if !r.IndexingEnabled() {
		slog.Debug("route_skipped", slog.String("reason", "indexing disabled"), slog.Int("events", len(events)))
		return nil
	}

	batches, err := r.partition(events)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		return nil
	}

	start := time.Now()
	errs := make([]error, len(batches))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, b := range batches {
		g.Go(func() error {
			// Siblings commit even when this unit fails.
			errs[i] = r.apply(ctx, b)
			return nil
		})
	}
	_ = g.Wait()

	err = errors.Join(errs...)
	slog.Debug("route_complete",
		slog.Int("events", len(events)),
		slog.Int("units", len(batches)),
		slog.Duration("duration", time.Since(start)),
		slog.Bool("failed", err != nil))
	return err
}

// partition groups events by covering unit, keeping arrival order.
func (r *Registry) partition(events []record.ChangeEvent) ([]*unitBatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("registry is closed")
	}

	byUnit := make(map[string]*unitBatch)
	var batches []*unitBatch
	for _, ev := range events {
		if ev.Record == nil {
			return nil, ftserr.ValidationError(fmt.Sprintf("%s event has no record", ev.Op), nil)
		}
		for _, name := range r.byType[ev.Type()] {
			reg := r.units[name]
			if !reg.unit.AutoUpdate() {
				continue
			}
			h, ok := reg.unit.Handler(ev.Op, ev.Type())
			if !ok {
				continue
			}
			b, ok := byUnit[name]
			if !ok {
				b = &unitBatch{reg: reg}
				byUnit[name] = b
				batches = append(batches, b)
			}
			b.items = append(b.items, dispatch{event: ev, handler: h})
		}
	}
	return batches, nil
}

// apply runs one unit's events through a single writer.
func (r *Registry) apply(ctx context.Context, b *unitBatch) error {
	name := b.reg.unit.Name()

	w, err := b.reg.handle.Writer(ctx)
	if err != nil {
		slog.Warn("route_writer_unavailable",
			slog.String("unit", name),
			slog.String("error", err.Error()))
		return err
	}

	for _, d := range b.items {
		if err := d.handler(w, d.event.Record); err != nil {
			w.Abort()
			slog.Warn("route_handler_failed",
				slog.String("unit", name),
				slog.String("op", d.event.Op.String()),
				slog.String("type", d.event.Type()),
				slog.String("error", err.Error()))
			return ftserr.New(ftserr.ErrCodeHandlerFailed,
				fmt.Sprintf("%s handler of %s failed for %s", d.event.Op, name, d.event.Type()), err).
				WithDetail("unit", name)
		}
	}

	if err := w.Commit(); err != nil {
		slog.Error("route_commit_failed",
			slog.String("unit", name),
			slog.String("error", err.Error()))
		return err
	}

	slog.Debug("route_commit",
		slog.String("unit", name),
		slog.Int("events", len(b.items)))
	return nil
}
