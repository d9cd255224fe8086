package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ftserr "github.com/Aman-CERP/ftsync/internal/errors"
	"github.com/Aman-CERP/ftsync/internal/record"
	"github.com/Aman-CERP/ftsync/internal/schema"
	"github.com/Aman-CERP/ftsync/internal/store"
)

func TestNewModelUnit_Defaults(t *testing.T) {
	u := entryUnit(t)

	assert.Equal(t, "Entry", u.Name())
	assert.Equal(t, []string{"Entry"}, u.Types())
	assert.Equal(t, "entry", u.Subdir())
	assert.True(t, u.AutoUpdate())
	assert.Equal(t, []string{"title", "content"}, u.Schema().TextFields())

	for _, op := range []record.Operation{record.OpInsert, record.OpUpdate, record.OpDelete} {
		_, ok := u.Handler(op, "Entry")
		assert.True(t, ok, op.String())
	}
	_, ok := u.Handler(record.OpInsert, "User")
	assert.False(t, ok)
}

func TestNewModelUnit_TableAndOptions(t *testing.T) {
	typ := &record.Type{
		Name:  "BlogPost",
		Table: "posts",
		Attributes: []record.Attribute{
			{Name: "id", Kind: record.KindInteger, PrimaryKey: true},
			{Name: "body", Kind: record.KindText},
		},
	}

	u, err := NewModelUnit(typ, []string{"body"})
	require.NoError(t, err)
	assert.Equal(t, "posts", u.Subdir())

	u, err = NewModelUnit(typ, []string{"body"}, WithName("Posts"), WithSubdir("custom"), WithAutoUpdate(false))
	require.NoError(t, err)
	assert.Equal(t, "Posts", u.Name())
	assert.Equal(t, "custom", u.Subdir())
	assert.False(t, u.AutoUpdate())
}

func TestNewModelUnit_Errors(t *testing.T) {
	tests := []struct {
		name  string
		attrs []string
		opts  []UnitOption
	}{
		{"unknown attribute", []string{"nope"}, nil},
		{"no attributes", nil, nil},
		{"empty name", []string{"title"}, []UnitOption{WithName("")}},
		{"empty subdir", []string{"title"}, []UnitOption{WithSubdir("")}},
		{"uncovered handler type", []string{"title"}, []UnitOption{
			WithHandler(record.OpInsert, "User", func(*store.Writer, record.Record) error { return nil }),
		}},
		{"nil handler", []string{"title"}, []UnitOption{WithHandler(record.OpInsert, "Entry", nil)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewModelUnit(entryType, tt.attrs, tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ftserr.ErrSchemaInvalid)
		})
	}
}

func TestNewCustomUnit(t *testing.T) {
	src := newMemSource()
	u := entryUserUnit(t, src)

	assert.Equal(t, "entry_user_whoosheer", u.Subdir())
	assert.Equal(t, []string{"Entry", "User"}, u.Types())
	assert.Equal(t, schema.KeyTarget{Type: "Entry", Attribute: "id"}, u.Schema().Target)

	_, ok := u.Handler(record.OpDelete, "User")
	assert.False(t, ok, "no user delete handler registered")
	_, ok = u.Handler(record.OpUpdate, "User")
	assert.True(t, ok)
}

func TestNewCustomUnit_Errors(t *testing.T) {
	s, err := schema.Custom([]*record.Type{userType}, schema.Field{Name: "id", Kind: schema.UniqueKey},
		schema.Field{Name: "name", Kind: schema.Text})
	require.NoError(t, err)

	_, err = NewCustomUnit("", []*record.Type{userType}, s)
	assert.ErrorIs(t, err, ftserr.ErrSchemaInvalid)

	_, err = NewCustomUnit("Users", nil, s)
	assert.ErrorIs(t, err, ftserr.ErrSchemaInvalid)

	_, err = NewCustomUnit("Users", []*record.Type{userType}, nil)
	assert.ErrorIs(t, err, ftserr.ErrSchemaInvalid)

	_, err = NewCustomUnit("Users", []*record.Type{userType, userType}, s)
	assert.ErrorIs(t, err, ftserr.ErrSchemaInvalid)

	// Key must map to a covered type
	_, err = NewCustomUnit("Entries", []*record.Type{entryType}, s)
	assert.ErrorIs(t, err, ftserr.ErrSchemaInvalid)
}

func TestDocument(t *testing.T) {
	u := entryUnit(t)
	doc := Document(u.Schema(), record.NewRow("Entry", map[string]any{"id": int64(4), "title": "chuck", "user_id": int64(1)}))

	assert.Equal(t, store.Document{"id": int64(4), "title": "chuck"}, doc)
}
