// Package record defines the record-store vocabulary shared by the index,
// the search reconciler and the record store: record types and their
// attributes, record values and the change events a store emits on commit.
package record

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is the storage kind of an attribute.
type Kind string

const (
	KindInteger    Kind = "integer"
	KindBigInteger Kind = "bigint"
	KindString     Kind = "string"
	KindText       Kind = "text"
	KindFloat      Kind = "float"
	KindBool       Kind = "bool"
)

// IsInteger reports whether values of this kind are integers.
func (k Kind) IsInteger() bool {
	return k == KindInteger || k == KindBigInteger
}

// Attribute describes one attribute (column) of a record type.
type Attribute struct {
	Name       string `yaml:"name" json:"name"`
	Kind       Kind   `yaml:"kind" json:"kind"`
	PrimaryKey bool   `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
}

// Type describes the shape of a record type in the store.
type Type struct {
	// Name is the type identity (e.g. "BlogPost").
	Name string `yaml:"name" json:"name"`

	// Table is the storage table name. Defaults to SnakeCase(Name).
	Table string `yaml:"table,omitempty" json:"table,omitempty"`

	Attributes []Attribute `yaml:"attributes" json:"attributes"`
}

// TableName returns the storage table name.
func (t *Type) TableName() string {
	if t.Table != "" {
		return t.Table
	}
	return SnakeCase(t.Name)
}

// Attribute returns the named attribute.
func (t *Type) Attribute(name string) (Attribute, bool) {
	for _, a := range t.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// PrimaryKey returns the primary key attribute.
// Returns false if the type declares none.
func (t *Type) PrimaryKey() (Attribute, bool) {
	for _, a := range t.Attributes {
		if a.PrimaryKey {
			return a, true
		}
	}
	return Attribute{}, false
}

// Validate checks the type declaration is usable by the store.
func (t *Type) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("record type name is required")
	}
	if len(t.Attributes) == 0 {
		return fmt.Errorf("record type %s has no attributes", t.Name)
	}

	seen := make(map[string]bool, len(t.Attributes))
	pks := 0
	for _, a := range t.Attributes {
		if a.Name == "" {
			return fmt.Errorf("record type %s has an unnamed attribute", t.Name)
		}
		if seen[a.Name] {
			return fmt.Errorf("record type %s declares %s twice", t.Name, a.Name)
		}
		seen[a.Name] = true
		switch a.Kind {
		case KindInteger, KindBigInteger, KindString, KindText, KindFloat, KindBool:
		default:
			return fmt.Errorf("record type %s: attribute %s has unknown kind %q", t.Name, a.Name, a.Kind)
		}
		if a.PrimaryKey {
			pks++
		}
	}
	if pks > 1 {
		return fmt.Errorf("record type %s declares %d primary keys, composite keys are not supported", t.Name, pks)
	}
	return nil
}

var (
	underscoreRe1 = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	underscoreRe2 = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// SnakeCase converts a CamelCase name into snake_case, e.g.
// FooBar => foo_bar, HTTPServer => http_server.
func SnakeCase(s string) string {
	s = underscoreRe1.ReplaceAllString(s, "${1}_${2}")
	s = underscoreRe2.ReplaceAllString(s, "${1}_${2}")
	return strings.ToLower(s)
}
