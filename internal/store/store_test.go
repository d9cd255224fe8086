package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ftserr "github.com/Aman-CERP/ftsync/internal/errors"
	"github.com/Aman-CERP/ftsync/internal/record"
	"github.com/Aman-CERP/ftsync/internal/schema"
)

func entrySchema(t *testing.T) *schema.Schema {
	t.Helper()
	typ := &record.Type{
		Name: "Entry",
		Attributes: []record.Attribute{
			{Name: "id", Kind: record.KindInteger, PrimaryKey: true},
			{Name: "title", Kind: record.KindString},
			{Name: "content", Kind: record.KindText},
		},
	}
	s, err := schema.FromType(typ, "title", "content")
	require.NoError(t, err)
	return s
}

func titleQuery(text string) query.Query {
	q := bleve.NewMatchQuery(text)
	q.SetField("title")
	return q
}

func upsertAll(t *testing.T, h *Handle, docs ...Document) {
	t.Helper()
	w, err := h.Writer(context.Background())
	require.NoError(t, err)
	for _, d := range docs {
		require.NoError(t, w.Upsert(d))
	}
	require.NoError(t, w.Commit())
}

func TestHandle_UpsertAndSearch(t *testing.T) {
	// Given: an in-memory index
	h, err := Open("", entrySchema(t), Options{Name: "entry"})
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	// When: two documents are committed
	upsertAll(t, h,
		Document{"id": 1, "title": "chuck norris", "content": "roundhouse"},
		Document{"id": 2, "title": "bruce lee", "content": "kick"},
	)

	// Then: a title query finds the matching key
	hits, err := h.Search(context.Background(), titleQuery("chuck"), 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "1", hits[0].ID)
	assert.Greater(t, hits[0].Score, 0.0)

	n, err := h.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestHandle_UpsertReplacesByKey(t *testing.T) {
	// Given: an indexed document
	h, err := Open("", entrySchema(t), Options{})
	require.NoError(t, err)
	defer func() { _ = h.Close() }()
	upsertAll(t, h, Document{"id": int64(7), "title": "chuck"})

	// When: the same key is upserted with new text
	upsertAll(t, h, Document{"id": int64(7), "title": "norris"})

	// Then: only the new text matches and the count is unchanged
	hits, err := h.Search(context.Background(), titleQuery("chuck"), 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = h.Search(context.Background(), titleQuery("norris"), 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "7", hits[0].ID)

	n, err := h.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestWriter_Delete(t *testing.T) {
	// Given: an indexed document
	h, err := Open("", entrySchema(t), Options{})
	require.NoError(t, err)
	defer func() { _ = h.Close() }()
	upsertAll(t, h, Document{"id": 1, "title": "chuck"})

	// When: it is deleted, along with a key that was never indexed
	w, err := h.Writer(context.Background())
	require.NoError(t, err)
	require.NoError(t, w.Delete(1))
	require.NoError(t, w.Delete(99))
	assert.Equal(t, 2, w.Len())
	require.NoError(t, w.Commit())

	// Then: nothing matches
	hits, err := h.Search(context.Background(), titleQuery("chuck"), 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestWriter_AbortDiscardsBatch(t *testing.T) {
	// Given: a writer with a buffered upsert
	h, err := Open("", entrySchema(t), Options{})
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	w, err := h.Writer(context.Background())
	require.NoError(t, err)
	require.NoError(t, w.Upsert(Document{"id": 1, "title": "chuck"}))

	// When: the writer is aborted
	w.Abort()

	// Then: nothing was indexed and the slot is free again
	n, err := h.DocCount()
	require.NoError(t, err)
	assert.Zero(t, n)

	w2, err := h.Writer(context.Background())
	require.NoError(t, err)
	require.NoError(t, w2.Commit())

	// And: a finished writer rejects further use
	assert.Error(t, w.Upsert(Document{"id": 2}))
	assert.Error(t, w.Commit())
}

func TestWriter_BusyAfterTimeout(t *testing.T) {
	// Given: a handle whose writer slot is held
	h, err := Open("", entrySchema(t), Options{Name: "entry", WriterTimeout: 20 * time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	held, err := h.Writer(context.Background())
	require.NoError(t, err)

	// When: a second writer is requested
	_, err = h.Writer(context.Background())

	// Then: it fails with a retryable busy error
	require.Error(t, err)
	assert.ErrorIs(t, err, ftserr.ErrWriterBusy)
	assert.True(t, ftserr.IsRetryable(err))

	// And: once released the slot can be taken again
	held.Abort()
	w, err := h.Writer(context.Background())
	require.NoError(t, err)
	w.Abort()
}

func TestWriter_CancelledContext(t *testing.T) {
	// Given: a held slot and a cancelled context
	h, err := Open("", entrySchema(t), Options{})
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	held, err := h.Writer(context.Background())
	require.NoError(t, err)
	defer held.Abort()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// When/Then: acquisition reports the context error, not busy
	_, err = h.Writer(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriter_UpsertValidation(t *testing.T) {
	h, err := Open("", entrySchema(t), Options{})
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	w, err := h.Writer(context.Background())
	require.NoError(t, err)
	defer w.Abort()

	tests := []struct {
		name string
		doc  Document
	}{
		{"missing key", Document{"title": "x"}},
		{"nil key", Document{"id": nil, "title": "x"}},
		{"unknown field", Document{"id": 1, "author": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.Upsert(tt.doc)
			require.Error(t, err)
			assert.Equal(t, ftserr.ErrCodeInvalidInput, ftserr.GetCode(err))
		})
	}
	assert.Zero(t, w.Len())
}

func TestHandle_SearchLimit(t *testing.T) {
	// Given: five matching documents
	h, err := Open("", entrySchema(t), Options{})
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	var docs []Document
	for i := 1; i <= 5; i++ {
		docs = append(docs, Document{"id": i, "title": "chuck"})
	}
	upsertAll(t, h, docs...)

	// When/Then: a positive limit caps hits, zero returns all
	hits, err := h.Search(context.Background(), titleQuery("chuck"), 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = h.Search(context.Background(), titleQuery("chuck"), 0)
	require.NoError(t, err)
	assert.Len(t, hits, 5)
}

func TestHandle_EmptyIndexSearch(t *testing.T) {
	h, err := Open("", entrySchema(t), Options{})
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	hits, err := h.Search(context.Background(), titleQuery("chuck"), 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestHandle_PersistsOnDisk(t *testing.T) {
	// Given: an on-disk index with one document
	path := filepath.Join(t.TempDir(), "entry")
	h, err := Open(path, entrySchema(t), Options{})
	require.NoError(t, err)
	upsertAll(t, h, Document{"id": 1, "title": "chuck"})
	require.NoError(t, h.Close())

	// When: the index is reopened
	h, err = Open(path, entrySchema(t), Options{})
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	// Then: the document is still there
	hits, err := h.Search(context.Background(), titleQuery("chuck"), 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "1", hits[0].ID)
}

func TestHandle_RecoversCorruptIndex(t *testing.T) {
	// Given: an index directory with an empty meta file
	path := filepath.Join(t.TempDir(), "entry")
	require.NoError(t, os.MkdirAll(path, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "index_meta.json"), nil, 0644))

	// When: it is opened
	h, err := Open(path, entrySchema(t), Options{})

	// Then: a fresh empty index is created
	require.NoError(t, err)
	defer func() { _ = h.Close() }()
	n, err := h.DocCount()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHandle_ClosedRejectsOperations(t *testing.T) {
	h, err := Open("", entrySchema(t), Options{})
	require.NoError(t, err)
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	_, err = h.Search(context.Background(), titleQuery("chuck"), 0)
	assert.Error(t, err)
	_, err = h.Writer(context.Background())
	assert.Error(t, err)
}

func TestValidateIndexIntegrity(t *testing.T) {
	dir := t.TempDir()

	// Missing directory is fine
	assert.NoError(t, validateIndexIntegrity(filepath.Join(dir, "absent")))

	// Directory without meta file is corrupt
	bare := filepath.Join(dir, "bare")
	require.NoError(t, os.MkdirAll(bare, 0755))
	assert.Error(t, validateIndexIntegrity(bare))

	// Unparseable meta is corrupt
	bad := filepath.Join(dir, "bad")
	require.NoError(t, os.MkdirAll(bad, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(bad, "index_meta.json"), []byte("{"), 0644))
	assert.Error(t, validateIndexIntegrity(bad))
}

func TestRootLock_Exclusive(t *testing.T) {
	// Given: a held root lock
	dir := t.TempDir()
	first := NewRootLock(dir)
	require.NoError(t, first.Acquire(context.Background(), time.Second))

	// When: a second lock on the same root is attempted
	second := NewRootLock(dir)
	err := second.Acquire(context.Background(), 60*time.Millisecond)

	// Then: it reports the root as locked
	require.Error(t, err)
	assert.Equal(t, ftserr.ErrCodeRootLocked, ftserr.GetCode(err))

	// And: after release it succeeds
	require.NoError(t, first.Release())
	require.NoError(t, second.Acquire(context.Background(), time.Second))
	require.NoError(t, second.Release())
	require.NoError(t, second.Release())
}

func TestHandle_AllIDs(t *testing.T) {
	h, err := Open("", entrySchema(t), Options{})
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	ids, err := h.AllIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)

	upsertAll(t, h, Document{"id": 1, "title": "a"}, Document{"id": 2, "title": "b"})
	ids, err = h.AllIDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2"}, ids)
}

func TestHandle_Analyze(t *testing.T) {
	h, err := Open("", entrySchema(t), Options{})
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	assert.Equal(t, []string{"chuck", "nr", "1"}, h.Analyze("Chuck Nr. 1"))
	assert.Empty(t, h.Analyze("..."))
}
