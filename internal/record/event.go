package record

import "fmt"

// Operation is the kind of mutation a change event reports.
type Operation int

const (
	// OpInsert reports a newly inserted record.
	OpInsert Operation = iota
	// OpUpdate reports a modified record.
	OpUpdate
	// OpDelete reports a removed record. The record carries its last state.
	OpDelete
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("operation(%d)", int(o))
	}
}

// ChangeEvent is produced once per committed store mutation.
type ChangeEvent struct {
	Op     Operation
	Record Record
}

// Type returns the record type name of the changed record.
func (e ChangeEvent) Type() string {
	return e.Record.TypeName()
}

// Insert creates an insert event.
func Insert(r Record) ChangeEvent {
	return ChangeEvent{Op: OpInsert, Record: r}
}

// Update creates an update event.
func Update(r Record) ChangeEvent {
	return ChangeEvent{Op: OpUpdate, Record: r}
}

// Delete creates a delete event.
func Delete(r Record) ChangeEvent {
	return ChangeEvent{Op: OpDelete, Record: r}
}
