// Package store owns the on-disk (or in-memory) full-text index of one unit.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"golang.org/x/sync/semaphore"

	ftserr "github.com/Aman-CERP/ftsync/internal/errors"
	"github.com/Aman-CERP/ftsync/internal/schema"
)

// DefaultWriterTimeout bounds the wait for the writer slot.
const DefaultWriterTimeout = 2 * time.Second

// Options configures a Handle.
type Options struct {
	// Name identifies the handle in errors and logs. Defaults to the path.
	Name string

	// WriterTimeout bounds Writer acquisition. Zero means DefaultWriterTimeout.
	WriterTimeout time.Duration
}

// Handle is an open index. Searches run on bleve's snapshot readers and
// never wait for the writer slot.
type Handle struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	name   string
	schema *schema.Schema
	slot   *semaphore.Weighted
	opts   Options
	closed bool
}

// Hit is one ranked search result. ID is the canonical unique key.
type Hit struct {
	ID    string
	Score float64
}

// Open opens the index at path, creating it when absent.
// An empty path opens an in-memory index.
func Open(path string, s *schema.Schema, opts Options) (*Handle, error) {
	if opts.WriterTimeout <= 0 {
		opts.WriterTimeout = DefaultWriterTimeout
	}
	name := opts.Name
	if name == "" {
		name = path
	}
	if name == "" {
		name = "memory"
	}

	im, err := buildMapping(s)
	if err != nil {
		return nil, ftserr.SchemaError(fmt.Sprintf("failed to build index mapping for %s", name), err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(im)
	} else {
		idx, err = openOnDisk(path, im)
	}
	if err != nil {
		return nil, ftserr.New(ftserr.ErrCodeIndexOpen, fmt.Sprintf("failed to open index %s", name), err).
			WithDetail("path", path)
	}

	return &Handle{
		index:  idx,
		path:   path,
		name:   name,
		schema: s,
		slot:   semaphore.NewWeighted(1),
		opts:   opts,
	}, nil
}

func openOnDisk(path string, im mapping.IndexMapping) (bleve.Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	if validErr := validateIndexIntegrity(path); validErr != nil {
		slog.Warn("index_corrupted",
			slog.String("path", path),
			slog.String("error", validErr.Error()))
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("index corrupted at %s and cannot remove: %w (original error: %v)", path, err, validErr)
		}
		slog.Info("index_cleared",
			slog.String("path", path),
			slog.String("reason", "corruption detected, reindex required"))
	}

	idx, err := bleve.Open(path)
	switch {
	case errors.Is(err, bleve.ErrorIndexPathDoesNotExist):
		return bleve.New(path, im)
	case err != nil && isCorruptionError(err):
		slog.Warn("index_open_failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		if removeErr := os.RemoveAll(path); removeErr != nil {
			return nil, fmt.Errorf("index corrupted, cannot clear: %w (original: %v)", removeErr, err)
		}
		slog.Info("index_cleared",
			slog.String("path", path),
			slog.String("reason", "open failed with corruption, reindex required"))
		return bleve.New(path, im)
	case err != nil:
		return nil, err
	}
	return idx, nil
}

// validateIndexIntegrity reports a corrupt index directory. A missing
// directory is not an error.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return errors.Is(err, bleve.ErrorIndexMetaCorrupt) ||
		strings.Contains(msg, "unexpected end of JSON") ||
		strings.Contains(msg, "error parsing mapping JSON") ||
		strings.Contains(msg, "failed to load segment") ||
		strings.Contains(msg, "error opening bolt")
}

// Name returns the handle name.
func (h *Handle) Name() string { return h.name }

// Path returns the index directory, empty for in-memory handles.
func (h *Handle) Path() string { return h.path }

// Schema returns the schema the index was opened with.
func (h *Handle) Schema() *schema.Schema { return h.schema }

// Search runs q and returns hits in descending score order.
// A limit of zero or less returns every matching document.
func (h *Handle) Search(ctx context.Context, q query.Query, limit int) ([]Hit, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return nil, fmt.Errorf("index %s is closed", h.name)
	}

	size := limit
	if size <= 0 {
		n, err := h.index.DocCount()
		if err != nil {
			return nil, fmt.Errorf("failed to count documents: %w", err)
		}
		if n == 0 {
			return []Hit{}, nil
		}
		size = int(n)
	}

	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	req.Fields = []string{}
	// Ties break on document ID so rank order is stable across calls.
	req.SortBy([]string{"-_score", "_id"})

	res, err := h.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, ftserr.New(ftserr.ErrCodeSearchFailed, fmt.Sprintf("search on %s failed", h.name), err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, m := range res.Hits {
		hits = append(hits, Hit{ID: m.ID, Score: m.Score})
	}
	return hits, nil
}

// DocCount returns the number of indexed documents.
func (h *Handle) DocCount() (uint64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return 0, fmt.Errorf("index %s is closed", h.name)
	}
	return h.index.DocCount()
}

// Close closes the index. Closing twice is a no-op.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	return h.index.Close()
}

// Analyze splits text into the terms the text analyzer would index.
func (h *Handle) Analyze(text string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return nil
	}
	a := h.index.Mapping().AnalyzerNamed(TextAnalyzerName)
	if a == nil {
		return strings.Fields(strings.ToLower(text))
	}
	stream := a.Analyze([]byte(text))
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		terms = append(terms, string(tok.Term))
	}
	return terms
}

// AllIDs returns the IDs of every indexed document.
func (h *Handle) AllIDs(ctx context.Context) ([]string, error) {
	hits, err := h.Search(ctx, bleve.NewMatchAllQuery(), 0)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(hits))
	for i, hit := range hits {
		ids[i] = hit.ID
	}
	return ids, nil
}
