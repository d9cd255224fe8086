package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/blevesearch/bleve/v2"

	ftserr "github.com/Aman-CERP/ftsync/internal/errors"
	"github.com/Aman-CERP/ftsync/internal/schema"
)

// Document maps schema field names to raw values.
type Document map[string]any

// Writer is the single pending transaction of a Handle. It buffers changes
// into one bleve batch; nothing is visible to searches until Commit.
type Writer struct {
	h     *Handle
	batch *bleve.Batch
	ops   int
	done  bool
	start time.Time
}

// Writer acquires the writer slot, waiting at most the configured timeout.
// The returned Writer must be finished with Commit or Abort.
func (h *Handle) Writer(ctx context.Context) (*Writer, error) {
	wctx, cancel := context.WithTimeout(ctx, h.opts.WriterTimeout)
	defer cancel()

	if err := h.slot.Acquire(wctx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ftserr.BusyError(h.name, err).
			WithDetail("timeout", h.opts.WriterTimeout.String())
	}

	h.mu.RLock()
	closed := h.closed
	var batch *bleve.Batch
	if !closed {
		batch = h.index.NewBatch()
	}
	h.mu.RUnlock()

	if closed {
		h.slot.Release(1)
		return nil, fmt.Errorf("index %s is closed", h.name)
	}

	return &Writer{h: h, batch: batch, start: time.Now()}, nil
}

// Upsert adds or replaces the document identified by its unique key.
func (w *Writer) Upsert(doc Document) error {
	if w.done {
		return fmt.Errorf("writer for %s already finished", w.h.name)
	}

	s := w.h.schema
	raw, ok := doc[s.Key.Name]
	if !ok {
		return ftserr.ValidationError(fmt.Sprintf("document for %s has no %s value", w.h.name, s.Key.Name), nil)
	}
	id, err := schema.KeyString(raw)
	if err != nil {
		return ftserr.ValidationError(fmt.Sprintf("document for %s has an unusable key", w.h.name), err)
	}

	fields := make(map[string]interface{}, len(doc))
	for name, v := range doc {
		f, ok := s.Field(name)
		if !ok {
			return ftserr.ValidationError(fmt.Sprintf("index %s has no field %s", w.h.name, name), nil)
		}
		switch f.Kind {
		case schema.Text:
			if text, ok := schema.CoerceText(v); ok {
				fields[name] = text
			}
		case schema.Numeric:
			if v == nil {
				continue
			}
			n, ok := schema.CoerceNumber(v)
			if !ok {
				return ftserr.ValidationError(fmt.Sprintf("field %s of %s needs a number, got %T", name, w.h.name, v), nil)
			}
			fields[name] = n
		case schema.UniqueKey:
			if f.NumericKey {
				key, err := f.ParseKey(id)
				if err != nil {
					return ftserr.ValidationError(fmt.Sprintf("document for %s has an unusable key", w.h.name), err)
				}
				fields[name] = float64(key.(int64))
			} else {
				fields[name] = id
			}
		}
	}

	if err := w.batch.Index(id, fields); err != nil {
		return fmt.Errorf("failed to index document %s: %w", id, err)
	}
	w.ops++
	return nil
}

// Delete removes the document with the given unique key value.
// Deleting a key that is not indexed is not an error.
func (w *Writer) Delete(key any) error {
	if w.done {
		return fmt.Errorf("writer for %s already finished", w.h.name)
	}
	id, err := schema.KeyString(key)
	if err != nil {
		return ftserr.ValidationError(fmt.Sprintf("cannot delete from %s", w.h.name), err)
	}
	w.batch.Delete(id)
	w.ops++
	return nil
}

// Len returns the number of buffered operations.
func (w *Writer) Len() int { return w.ops }

// Commit applies the buffered batch and releases the writer slot.
func (w *Writer) Commit() error {
	if w.done {
		return fmt.Errorf("writer for %s already finished", w.h.name)
	}
	defer w.release()

	if w.ops == 0 {
		return nil
	}

	w.h.mu.RLock()
	defer w.h.mu.RUnlock()
	if w.h.closed {
		return ftserr.CommitError(w.h.name, fmt.Errorf("index is closed"))
	}
	if err := w.h.index.Batch(w.batch); err != nil {
		return ftserr.CommitError(w.h.name, err)
	}

	slog.Debug("index_commit",
		slog.String("index", w.h.name),
		slog.Int("ops", w.ops),
		slog.Duration("held", time.Since(w.start)))
	return nil
}

// Abort discards the buffered batch and releases the writer slot.
// Aborting a finished writer is a no-op.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.release()
}

func (w *Writer) release() {
	w.done = true
	w.batch.Reset()
	w.h.slot.Release(1)
}
