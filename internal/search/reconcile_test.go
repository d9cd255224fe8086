package search

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/ftsync/internal/schema"
)

var entryTarget = schema.KeyTarget{Type: "Entry", Attribute: "id"}

func TestReconcile_EmptyResult(t *testing.T) {
	// Given: no hits
	f := Reconcile(Result{Unit: "Entry", Target: entryTarget}, DefaultOrderByRelevance)

	// Then: the filter is empty and renders a false predicate
	assert.True(t, f.Empty)
	assert.False(t, f.Ordered())
	if diff := cmp.Diff(SQL{Where: "1 = 0"}, f.SQL("entry")); diff != "" {
		t.Errorf("SQL() mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcile_OrderingPolicies(t *testing.T) {
	keys := []any{int64(5), int64(3), int64(9)}

	tests := []struct {
		name  string
		order int
		want  SQL
	}{
		{
			name:  "no reorder",
			order: 0,
			want: SQL{
				Where:     `"entry"."id" IN (?, ?, ?)`,
				WhereArgs: keys,
			},
		},
		{
			name:  "rank all",
			order: -1,
			want: SQL{
				Where:     `"entry"."id" IN (?, ?, ?)`,
				WhereArgs: keys,
				OrderBy:   `CASE "entry"."id" WHEN ? THEN ? WHEN ? THEN ? WHEN ? THEN ? ELSE ? END`,
				OrderArgs: []any{int64(5), 0, int64(3), 1, int64(9), 2, 3},
			},
		},
		{
			name:  "rank top two",
			order: 2,
			want: SQL{
				Where:     `"entry"."id" IN (?, ?, ?)`,
				WhereArgs: keys,
				OrderBy:   `CASE "entry"."id" WHEN ? THEN ? WHEN ? THEN ? ELSE ? END`,
				OrderArgs: []any{int64(5), 0, int64(3), 1, 2},
			},
		},
		{
			name:  "top K larger than result",
			order: 10,
			want: SQL{
				Where:     `"entry"."id" IN (?, ?, ?)`,
				WhereArgs: keys,
				OrderBy:   `CASE "entry"."id" WHEN ? THEN ? WHEN ? THEN ? WHEN ? THEN ? ELSE ? END`,
				OrderArgs: []any{int64(5), 0, int64(3), 1, int64(9), 2, 10},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Reconcile(Result{Unit: "Entry", Target: entryTarget, Keys: keys}, tt.order)
			if diff := cmp.Diff(tt.want, f.SQL("entry")); diff != "" {
				t.Errorf("SQL() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilter_Priority(t *testing.T) {
	// Given: three keys with the top two ranked
	f := Reconcile(Result{Target: entryTarget, Keys: []any{"c", "a", "b"}}, 2)

	// Then: ranked keys get their position, the rest share K
	assert.Equal(t, 0, f.Priority("c"))
	assert.Equal(t, 1, f.Priority("a"))
	assert.Equal(t, 2, f.Priority("b"))
	assert.Equal(t, 2, f.Priority("zzz"))
}

func TestFilter_SQLUnqualified(t *testing.T) {
	f := Reconcile(Result{Target: schema.KeyTarget{Type: "User", Attribute: `na"me`}, Keys: []any{"x"}}, 0)
	got := f.SQL("")
	assert.Equal(t, `"na""me" IN (?)`, got.Where)
	assert.Empty(t, got.OrderBy)
}

func TestParseGroup(t *testing.T) {
	g, err := ParseGroup("AND")
	assert.NoError(t, err)
	assert.Equal(t, GroupAnd, g)

	g, err = ParseGroup("")
	assert.NoError(t, err)
	assert.Equal(t, GroupOr, g)

	_, err = ParseGroup("xor")
	assert.Error(t, err)
}

func TestNewRequest_Defaults(t *testing.T) {
	r := NewRequest("chuck")
	want := Request{Text: "chuck", Group: GroupOr, MatchSubstrings: true, OrderByRelevance: 10}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("NewRequest() mismatch (-want +got):\n%s", diff)
	}

	r = NewRequest("chuck", WithGroup(GroupAnd), WithMatchSubstrings(false), WithLimit(5),
		WithUnit("EntryUnit"), WithOrderByRelevance(-1))
	want = Request{Text: "chuck", Group: GroupAnd, Limit: 5, Unit: "EntryUnit", OrderByRelevance: -1}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("NewRequest() mismatch (-want +got):\n%s", diff)
	}
}
