package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ftsync/internal/record"
	"github.com/Aman-CERP/ftsync/internal/schema"
	"github.com/Aman-CERP/ftsync/internal/search"
	"github.com/Aman-CERP/ftsync/internal/store"
)

var (
	entryType = &record.Type{
		Name: "Entry",
		Attributes: []record.Attribute{
			{Name: "id", Kind: record.KindInteger, PrimaryKey: true},
			{Name: "title", Kind: record.KindString},
			{Name: "content", Kind: record.KindText},
			{Name: "user_id", Kind: record.KindInteger},
		},
	}
	userType = &record.Type{
		Name: "User",
		Attributes: []record.Attribute{
			{Name: "id", Kind: record.KindInteger, PrimaryKey: true},
			{Name: "name", Kind: record.KindString},
		},
	}
)

func entry(id int64, title, content string) *record.Row {
	return record.NewRow("Entry", map[string]any{"id": id, "title": title, "content": content})
}

func memRegistry(t *testing.T) *Registry {
	t.Helper()
	opts := DefaultOptions()
	opts.MemoryStorage = true
	r, err := New(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func entryUnit(t *testing.T, opts ...UnitOption) *ModelUnit {
	t.Helper()
	u, err := NewModelUnit(entryType, []string{"title", "content"}, opts...)
	require.NoError(t, err)
	return u
}

func keys(t *testing.T, r *Registry, text string, opts ...search.Option) []any {
	t.Helper()
	res, err := r.Search(context.Background(), search.NewRequest(text, opts...), "Entry")
	require.NoError(t, err)
	return res.Keys
}

// memSource is an in-memory record store keyed by type and primary key.
type memSource struct {
	mu   sync.Mutex
	rows map[string]map[int64]record.Record
}

func newMemSource() *memSource {
	return &memSource{rows: make(map[string]map[int64]record.Record)}
}

func (s *memSource) put(r *record.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows[r.TypeName()] == nil {
		s.rows[r.TypeName()] = make(map[int64]record.Record)
	}
	id, _ := r.Value("id")
	s.rows[r.TypeName()][id.(int64)] = r
}

func (s *memSource) remove(typeName string, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows[typeName], id)
}

func (s *memSource) Each(ctx context.Context, typeName string, fn func(record.Record) error) error {
	s.mu.Lock()
	ids := make([]int64, 0, len(s.rows[typeName]))
	for id := range s.rows[typeName] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	recs := make([]record.Record, len(ids))
	for i, id := range ids {
		recs[i] = s.rows[typeName][id]
	}
	s.mu.Unlock()

	for _, r := range recs {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (s *memSource) Count(ctx context.Context, typeName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows[typeName]), nil
}

// entryUserUnit indexes entries together with their author's name.
func entryUserUnit(t *testing.T, src *memSource, opts ...UnitOption) *CustomUnit {
	t.Helper()
	s, err := schema.Custom([]*record.Type{entryType, userType},
		schema.Field{Name: "entry_id", Kind: schema.UniqueKey},
		schema.Field{Name: "user_id", Kind: schema.Numeric, Stored: true},
		schema.Field{Name: "username", Kind: schema.Text},
		schema.Field{Name: "title", Kind: schema.Text},
		schema.Field{Name: "content", Kind: schema.Text},
	)
	require.NoError(t, err)

	username := func(userID any) string {
		src.mu.Lock()
		defer src.mu.Unlock()
		id, _ := userID.(int64)
		if u, ok := src.rows["User"][id]; ok {
			name, _ := u.Value("name")
			return fmt.Sprint(name)
		}
		return ""
	}
	upsertEntry := func(w *store.Writer, r record.Record) error {
		id, _ := r.Value("id")
		uid, _ := r.Value("user_id")
		title, _ := r.Value("title")
		content, _ := r.Value("content")
		return w.Upsert(store.Document{
			"entry_id": id,
			"user_id":  uid,
			"username": username(uid),
			"title":    title,
			"content":  content,
		})
	}
	updateUser := func(w *store.Writer, r record.Record) error {
		uid, _ := r.Value("id")
		name, _ := r.Value("name")
		src.mu.Lock()
		var entries []record.Record
		for _, e := range src.rows["Entry"] {
			if v, _ := e.Value("user_id"); v == uid {
				entries = append(entries, e)
			}
		}
		src.mu.Unlock()
		for _, e := range entries {
			id, _ := e.Value("id")
			title, _ := e.Value("title")
			content, _ := e.Value("content")
			err := w.Upsert(store.Document{
				"entry_id": id,
				"user_id":  uid,
				"username": name,
				"title":    title,
				"content":  content,
			})
			if err != nil {
				return err
			}
		}
		return nil
	}
	deleteEntry := func(w *store.Writer, r record.Record) error {
		id, _ := r.Value("id")
		return w.Delete(id)
	}

	all := append([]UnitOption{
		WithHandler(record.OpInsert, "Entry", upsertEntry),
		WithHandler(record.OpUpdate, "Entry", upsertEntry),
		WithHandler(record.OpDelete, "Entry", deleteEntry),
		WithHandler(record.OpUpdate, "User", updateUser),
	}, opts...)
	u, err := NewCustomUnit("EntryUserWhoosheer", []*record.Type{entryType, userType}, s, all...)
	require.NoError(t, err)
	return u
}

func letters(n int) string {
	words := make([]string, n)
	for i := 0; i < n; i++ {
		words[i] = strings.Repeat(string(rune('a'+i)), 3)
	}
	return strings.Join(words, " ")
}
