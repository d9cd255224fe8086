package record

import "fmt"

// Record is a record instance as seen by the index. Records are owned by
// the record store; the index only reads attribute values from them.
type Record interface {
	// TypeName returns the name of the record's Type.
	TypeName() string

	// Value returns the value of the named attribute.
	Value(attr string) (any, bool)
}

// Row is a map-backed Record.
type Row struct {
	Type   string
	Values map[string]any
}

// NewRow creates a row of the given type.
func NewRow(typeName string, values map[string]any) *Row {
	if values == nil {
		values = make(map[string]any)
	}
	return &Row{Type: typeName, Values: values}
}

// TypeName implements Record.
func (r *Row) TypeName() string {
	return r.Type
}

// Value implements Record.
func (r *Row) Value(attr string) (any, bool) {
	v, ok := r.Values[attr]
	return v, ok
}

// Set sets an attribute value and returns the row for chaining.
func (r *Row) Set(attr string, v any) *Row {
	r.Values[attr] = v
	return r
}

// String returns a short representation for logs.
func (r *Row) String() string {
	return fmt.Sprintf("%s%v", r.Type, r.Values)
}

var _ Record = (*Row)(nil)
