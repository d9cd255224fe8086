// Package schema builds the field set of an index unit.
//
// A unit's schema has exactly one UniqueKey field, which round-trips to the
// primary key of a record type. For units derived from a single record type
// the key is the type's primary key attribute. Units covering several types
// name the key "<lowercased type>_<attr>"; the mapping back to the record
// attribute is resolved and validated once, when the schema is built.
package schema

import (
	"fmt"
	"strings"

	ftserr "github.com/Aman-CERP/ftsync/internal/errors"
	"github.com/Aman-CERP/ftsync/internal/record"
)

// Kind is the index kind of a field.
type Kind int

const (
	// Text fields are analyzed and searchable.
	Text Kind = iota
	// Numeric fields are stored numbers; they are not searched by text queries.
	Numeric
	// UniqueKey is the stored field that identifies a document.
	UniqueKey
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Numeric:
		return "numeric"
	case UniqueKey:
		return "unique_key"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field is one field of a unit schema.
type Field struct {
	Name   string
	Kind   Kind
	Stored bool

	// NumericKey is set on a UniqueKey field whose values are integers.
	NumericKey bool
}

// KeyTarget is the record attribute the unique key maps back to.
type KeyTarget struct {
	Type      string
	Attribute string
}

// Schema is the validated field set of a unit.
type Schema struct {
	Fields []Field
	Key    Field
	Target KeyTarget
}

// Field returns the named field.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// TextFields returns the names of the searchable fields in declaration order.
func (s *Schema) TextFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Kind == Text {
			names = append(names, f.Name)
		}
	}
	return names
}

// Names returns all field names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// FromType derives a schema from a record type: the primary key becomes a
// stored UniqueKey field, each selected attribute a Text field.
func FromType(t *record.Type, attrs ...string) (*Schema, error) {
	pk, ok := t.PrimaryKey()
	if !ok {
		return nil, ftserr.SchemaError(fmt.Sprintf("record type %s has no primary key", t.Name), nil).
			WithDetail("type", t.Name)
	}
	if len(attrs) == 0 {
		return nil, ftserr.SchemaError(fmt.Sprintf("no attributes selected for %s", t.Name), nil).
			WithDetail("type", t.Name)
	}

	key := Field{Name: pk.Name, Kind: UniqueKey, Stored: true, NumericKey: pk.Kind.IsInteger()}
	s := &Schema{
		Fields: []Field{key},
		Key:    key,
		Target: KeyTarget{Type: t.Name, Attribute: pk.Name},
	}

	seen := map[string]bool{pk.Name: true}
	for _, name := range attrs {
		if _, ok := t.Attribute(name); !ok {
			return nil, ftserr.SchemaError(fmt.Sprintf("record type %s has no attribute %s", t.Name, name), nil).
				WithDetail("type", t.Name).
				WithDetail("attribute", name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		s.Fields = append(s.Fields, Field{Name: name, Kind: Text})
	}

	return s, nil
}

// Custom validates a hand-built schema for a unit covering types.
//
// With a single covered type the key field may name the primary key
// attribute directly. With several types it must be "<type>_<attr>" where
// type is the lowercased record type name.
func Custom(types []*record.Type, fields ...Field) (*Schema, error) {
	if len(types) == 0 {
		return nil, ftserr.SchemaError("custom schema covers no record types", nil)
	}

	s := &Schema{}
	seen := make(map[string]bool, len(fields))
	keys := 0
	for _, f := range fields {
		if f.Name == "" {
			return nil, ftserr.SchemaError("custom schema has an unnamed field", nil)
		}
		if seen[f.Name] {
			return nil, ftserr.SchemaError(fmt.Sprintf("custom schema declares %s twice", f.Name), nil)
		}
		seen[f.Name] = true
		if f.Kind == UniqueKey {
			f.Stored = true
			s.Key = f
			keys++
		}
		s.Fields = append(s.Fields, f)
	}
	if keys != 1 {
		return nil, ftserr.SchemaError(fmt.Sprintf("custom schema must have exactly one unique key field, got %d", keys), nil)
	}

	target, attr, err := resolveKey(types, s.Key.Name)
	if err != nil {
		return nil, err
	}
	s.Target = target

	numeric := attr.Kind.IsInteger()
	for i := range s.Fields {
		if s.Fields[i].Kind == UniqueKey {
			s.Fields[i].NumericKey = numeric
			s.Key = s.Fields[i]
		}
	}

	return s, nil
}

// resolveKey maps a unique key field name back to a record attribute.
func resolveKey(types []*record.Type, key string) (KeyTarget, record.Attribute, error) {
	if len(types) == 1 {
		if a, ok := types[0].Attribute(key); ok {
			return KeyTarget{Type: types[0].Name, Attribute: a.Name}, a, nil
		}
	}

	prefix, attrName, ok := strings.Cut(key, "_")
	if !ok {
		return KeyTarget{}, record.Attribute{}, ftserr.SchemaError(
			fmt.Sprintf("unique key %s must be named <type>_<attribute>", key), nil).
			WithDetail("field", key)
	}
	for _, t := range types {
		if strings.ToLower(t.Name) != prefix {
			continue
		}
		a, ok := t.Attribute(attrName)
		if !ok {
			return KeyTarget{}, record.Attribute{}, ftserr.SchemaError(
				fmt.Sprintf("unique key %s: record type %s has no attribute %s", key, t.Name, attrName), nil).
				WithDetail("field", key)
		}
		return KeyTarget{Type: t.Name, Attribute: a.Name}, a, nil
	}

	return KeyTarget{}, record.Attribute{}, ftserr.SchemaError(
		fmt.Sprintf("unique key %s does not name a covered record type", key), nil).
		WithDetail("field", key)
}
