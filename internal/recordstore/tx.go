package recordstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	ftserr "github.com/Aman-CERP/ftsync/internal/errors"
	"github.com/Aman-CERP/ftsync/internal/record"
	"github.com/Aman-CERP/ftsync/internal/search"
)

// Tx is a store transaction. Its change events are delivered to the
// commit hooks as one batch after the SQL commit succeeds.
type Tx struct {
	s      *Store
	tx     *sql.Tx
	events []record.ChangeEvent
	done   bool
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, ftserr.New(ftserr.ErrCodeStoreFailed, "failed to begin transaction", err)
	}
	return &Tx{s: s, tx: tx}, nil
}

// Insert adds r. An absent integer primary key is assigned by the store
// and set on r.
func (t *Tx) Insert(ctx context.Context, r *record.Row) (*record.Row, error) {
	typ, err := t.check(r)
	if err != nil {
		return nil, err
	}
	pk, _ := typ.PrimaryKey()

	var cols, marks []string
	var args []any
	for _, a := range typ.Attributes {
		v, ok := r.Value(a.Name)
		if !ok {
			continue
		}
		if a.Name == pk.Name && v == nil {
			continue
		}
		cols = append(cols, search.QuoteIdent(a.Name))
		marks = append(marks, "?")
		args = append(args, toSQL(a.Kind, v))
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		search.QuoteIdent(typ.TableName()), strings.Join(cols, ", "), strings.Join(marks, ", "))
	if len(cols) == 0 {
		stmt = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", search.QuoteIdent(typ.TableName()))
	}
	res, err := t.tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, ftserr.New(ftserr.ErrCodeStoreFailed, fmt.Sprintf("failed to insert %s", typ.Name), err)
	}

	key, ok := r.Value(pk.Name)
	if !ok || key == nil {
		if !pk.Kind.IsInteger() {
			return nil, ftserr.ValidationError(fmt.Sprintf("%s needs a %s value", typ.Name, pk.Name), nil)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read assigned key: %w", err)
		}
		key = id
		r.Set(pk.Name, id)
	}

	return t.record(ctx, typ, key, record.Insert)
}

// Update writes the attributes present on r to the record with r's
// primary key.
func (t *Tx) Update(ctx context.Context, r *record.Row) (*record.Row, error) {
	typ, err := t.check(r)
	if err != nil {
		return nil, err
	}
	pk, _ := typ.PrimaryKey()
	key, ok := r.Value(pk.Name)
	if !ok || key == nil {
		return nil, ftserr.ValidationError(fmt.Sprintf("%s update needs a %s value", typ.Name, pk.Name), nil)
	}

	var sets []string
	var args []any
	for _, a := range typ.Attributes {
		if a.Name == pk.Name {
			continue
		}
		v, ok := r.Value(a.Name)
		if !ok {
			continue
		}
		sets = append(sets, search.QuoteIdent(a.Name)+" = ?")
		args = append(args, toSQL(a.Kind, v))
	}
	if len(sets) > 0 {
		stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
			search.QuoteIdent(typ.TableName()), strings.Join(sets, ", "), search.QuoteIdent(pk.Name))
		res, err := t.tx.ExecContext(ctx, stmt, append(args, toSQL(pk.Kind, key))...)
		if err != nil {
			return nil, ftserr.New(ftserr.ErrCodeStoreFailed, fmt.Sprintf("failed to update %s", typ.Name), err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("%s %v: %w", typ.Name, key, ErrNotFound)
		}
	}

	return t.record(ctx, typ, key, record.Update)
}

// Delete removes the record with the given primary key. The change event
// carries the record's last state.
func (t *Tx) Delete(ctx context.Context, typeName string, pk any) (*record.Row, error) {
	if t.done {
		return nil, fmt.Errorf("transaction already finished")
	}
	typ, err := t.s.mustType(typeName)
	if err != nil {
		return nil, err
	}
	last, err := getRow(ctx, t.tx, typ, pk)
	if err != nil {
		return nil, err
	}

	pkAttr, _ := typ.PrimaryKey()
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", search.QuoteIdent(typ.TableName()), search.QuoteIdent(pkAttr.Name))
	if _, err := t.tx.ExecContext(ctx, stmt, toSQL(pkAttr.Kind, pk)); err != nil {
		return nil, ftserr.New(ftserr.ErrCodeStoreFailed, fmt.Sprintf("failed to delete %s", typ.Name), err)
	}

	t.events = append(t.events, record.Delete(last))
	return last, nil
}

// record reloads the stored row and queues its change event.
func (t *Tx) record(ctx context.Context, typ *record.Type, key any, event func(record.Record) record.ChangeEvent) (*record.Row, error) {
	row, err := getRow(ctx, t.tx, typ, key)
	if err != nil {
		return nil, err
	}
	t.events = append(t.events, event(row))
	return row, nil
}

func (t *Tx) check(r *record.Row) (*record.Type, error) {
	if t.done {
		return nil, fmt.Errorf("transaction already finished")
	}
	typ, err := t.s.mustType(r.TypeName())
	if err != nil {
		return nil, err
	}
	for name := range r.Values {
		if _, ok := typ.Attribute(name); !ok {
			return nil, ftserr.ValidationError(fmt.Sprintf("%s has no attribute %s", typ.Name, name), nil)
		}
	}
	return typ, nil
}

// Events returns the change events queued so far.
func (t *Tx) Events() []record.ChangeEvent {
	return append([]record.ChangeEvent(nil), t.events...)
}

// Commit commits the transaction and then runs the commit hooks with its
// events. A hook error means the data is committed but the index may be
// stale; it is returned so the caller can retry or reindex.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return ftserr.New(ftserr.ErrCodeStoreFailed, "commit failed", err)
	}

	slog.Debug("store_commit", slog.Int("events", len(t.events)))
	if err := t.s.runHooks(ctx, t.events); err != nil {
		return fmt.Errorf("commit hooks failed: %w", err)
	}
	return nil
}

// Rollback discards the transaction. Rolling back a finished transaction is
// a no-op.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.events = nil
	return t.tx.Rollback()
}
