// Package index keeps full-text index units consistent with the record
// store and searches them.
//
// A Unit is a stateless definition: its schema, the record types it covers
// and a handler table keyed by (operation, record type). A Registry binds
// units to storage under one root and owns the open indexes, so several
// registries can share unit definitions while staying isolated.
package index

import (
	"fmt"

	ftserr "github.com/Aman-CERP/ftsync/internal/errors"
	"github.com/Aman-CERP/ftsync/internal/record"
	"github.com/Aman-CERP/ftsync/internal/schema"
	"github.com/Aman-CERP/ftsync/internal/store"
)

// Handler applies one changed record to a unit's pending writer. It must
// leave the index consistent with the record's post-change state.
type Handler func(w *store.Writer, r record.Record) error

// Unit is a named set of indexed fields covering one or more record types.
type Unit interface {
	Name() string
	Types() []string
	Schema() *schema.Schema
	Subdir() string
	AutoUpdate() bool

	// Handler returns the handler for op on records of typeName.
	// A missing entry means the unit ignores that combination.
	Handler(op record.Operation, typeName string) (Handler, bool)
}

type handlerKey struct {
	op       record.Operation
	typeName string
}

// baseUnit is the table-driven Unit shared by both built-in variants.
type baseUnit struct {
	name       string
	types      []string
	schema     *schema.Schema
	subdir     string
	autoUpdate bool
	handlers   map[handlerKey]Handler
}

func (u *baseUnit) Name() string           { return u.name }
func (u *baseUnit) Schema() *schema.Schema { return u.schema }
func (u *baseUnit) Subdir() string         { return u.subdir }
func (u *baseUnit) AutoUpdate() bool       { return u.autoUpdate }

func (u *baseUnit) Types() []string {
	return append([]string(nil), u.types...)
}

func (u *baseUnit) Handler(op record.Operation, typeName string) (Handler, bool) {
	h, ok := u.handlers[handlerKey{op, typeName}]
	return h, ok
}

func (u *baseUnit) covers(typeName string) bool {
	for _, t := range u.types {
		if t == typeName {
			return true
		}
	}
	return false
}

// UnitOption configures a unit at construction.
type UnitOption func(*baseUnit) error

// WithName overrides the unit name.
func WithName(name string) UnitOption {
	return func(u *baseUnit) error {
		if name == "" {
			return ftserr.SchemaError("unit name must not be empty", nil)
		}
		u.name = name
		return nil
	}
}

// WithSubdir overrides the storage subdirectory under the index root.
func WithSubdir(dir string) UnitOption {
	return func(u *baseUnit) error {
		if dir == "" {
			return ftserr.SchemaError("unit subdirectory must not be empty", nil)
		}
		u.subdir = dir
		return nil
	}
}

// WithAutoUpdate controls whether change events update the unit.
// A unit without auto update is only refreshed by reindexing.
func WithAutoUpdate(on bool) UnitOption {
	return func(u *baseUnit) error {
		u.autoUpdate = on
		return nil
	}
}

// WithHandler registers fn for op on records of typeName. The type must
// be covered by the unit.
func WithHandler(op record.Operation, typeName string, fn Handler) UnitOption {
	return func(u *baseUnit) error {
		if !u.covers(typeName) {
			return ftserr.SchemaError(fmt.Sprintf("unit %s does not cover %s", u.name, typeName), nil)
		}
		if fn == nil {
			return ftserr.SchemaError(fmt.Sprintf("unit %s: nil %s handler for %s", u.name, op, typeName), nil)
		}
		u.handlers[handlerKey{op, typeName}] = fn
		return nil
	}
}

func (u *baseUnit) apply(opts []UnitOption) error {
	for _, opt := range opts {
		if err := opt(u); err != nil {
			return err
		}
	}
	return nil
}

// ModelUnit indexes selected attributes of a single record type.
type ModelUnit struct {
	baseUnit
}

// NewModelUnit derives a unit from t indexing attrs as text. Inserts and
// updates upsert the record's document, deletes remove it by primary key.
// The default name is the type name, the default subdirectory its table.
func NewModelUnit(t *record.Type, attrs []string, opts ...UnitOption) (*ModelUnit, error) {
	if err := t.Validate(); err != nil {
		return nil, ftserr.SchemaError(err.Error(), err)
	}
	s, err := schema.FromType(t, attrs...)
	if err != nil {
		return nil, err
	}

	u := &ModelUnit{baseUnit{
		name:       t.Name,
		types:      []string{t.Name},
		schema:     s,
		subdir:     t.TableName(),
		autoUpdate: true,
		handlers:   make(map[handlerKey]Handler, 3),
	}}
	upsert := UpsertHandler(s)
	u.handlers[handlerKey{record.OpInsert, t.Name}] = upsert
	u.handlers[handlerKey{record.OpUpdate, t.Name}] = upsert
	u.handlers[handlerKey{record.OpDelete, t.Name}] = DeleteHandler(s)

	if err := u.apply(opts); err != nil {
		return nil, err
	}
	return u, nil
}

// CustomUnit is a hand-built unit, typically spanning several record types.
type CustomUnit struct {
	baseUnit
}

// NewCustomUnit creates a unit named name over types with schema s.
// Handlers are registered with WithHandler; combinations without one are
// ignored. The default subdirectory is the snake_case form of name.
func NewCustomUnit(name string, types []*record.Type, s *schema.Schema, opts ...UnitOption) (*CustomUnit, error) {
	if name == "" {
		return nil, ftserr.SchemaError("unit name must not be empty", nil)
	}
	if s == nil {
		return nil, ftserr.SchemaError(fmt.Sprintf("unit %s has no schema", name), nil)
	}
	if len(types) == 0 {
		return nil, ftserr.SchemaError(fmt.Sprintf("unit %s covers no record types", name), nil)
	}

	u := &CustomUnit{baseUnit{
		name:       name,
		subdir:     record.SnakeCase(name),
		schema:     s,
		autoUpdate: true,
		handlers:   make(map[handlerKey]Handler),
	}}
	for _, t := range types {
		if u.covers(t.Name) {
			return nil, ftserr.SchemaError(fmt.Sprintf("unit %s covers %s twice", name, t.Name), nil)
		}
		u.types = append(u.types, t.Name)
	}
	if !u.covers(s.Target.Type) {
		return nil, ftserr.SchemaError(fmt.Sprintf("unit %s: unique key %s maps to uncovered type %s",
			name, s.Key.Name, s.Target.Type), nil)
	}

	if err := u.apply(opts); err != nil {
		return nil, err
	}
	return u, nil
}

// Document builds the index document of r for a schema whose field names
// are attribute names of r's type. Absent attributes are left out.
func Document(s *schema.Schema, r record.Record) store.Document {
	doc := make(store.Document, len(s.Fields))
	for _, f := range s.Fields {
		attr := f.Name
		if f.Kind == schema.UniqueKey {
			attr = s.Target.Attribute
		}
		if v, ok := r.Value(attr); ok {
			doc[f.Name] = v
		}
	}
	return doc
}

// UpsertHandler indexes the record's current attribute values.
func UpsertHandler(s *schema.Schema) Handler {
	return func(w *store.Writer, r record.Record) error {
		return w.Upsert(Document(s, r))
	}
}

// DeleteHandler removes the record's document by primary key.
func DeleteHandler(s *schema.Schema) Handler {
	return func(w *store.Writer, r record.Record) error {
		key, ok := r.Value(s.Target.Attribute)
		if !ok {
			return ftserr.ValidationError(fmt.Sprintf("%s record has no %s value", r.TypeName(), s.Target.Attribute), nil)
		}
		return w.Delete(key)
	}
}

var (
	_ Unit = (*ModelUnit)(nil)
	_ Unit = (*CustomUnit)(nil)
)
