// Package recordstore is the transactional SQLite record store whose
// commits feed change events to the full-text index.
package recordstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	ftserr "github.com/Aman-CERP/ftsync/internal/errors"
	"github.com/Aman-CERP/ftsync/internal/record"
	"github.com/Aman-CERP/ftsync/internal/search"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Hook receives the change events of one committed transaction.
type Hook func(ctx context.Context, events []record.ChangeEvent) error

// Store is a SQLite database holding one table per record type.
type Store struct {
	db   *sql.DB
	path string

	mu     sync.RWMutex
	types  map[string]*record.Type
	order  []string
	hooks  []Hook
	closed bool
}

// Open opens or creates the database at path and ensures a table for each
// type. An empty path opens a private in-memory database.
func Open(path string, types ...*record.Type) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, ftserr.New(ftserr.ErrCodeStoreFailed, "failed to open record store", err).
			WithDetail("path", path)
	}

	// A single connection serializes writers and keeps :memory: alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db, path: path, types: make(map[string]*record.Type)}
	for _, t := range types {
		if err := s.define(t); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) define(t *record.Type) error {
	if err := t.Validate(); err != nil {
		return ftserr.SchemaError(err.Error(), err)
	}
	pk, ok := t.PrimaryKey()
	if !ok {
		return ftserr.SchemaError(fmt.Sprintf("record type %s has no primary key", t.Name), nil)
	}
	if _, dup := s.types[t.Name]; dup {
		return ftserr.SchemaError(fmt.Sprintf("record type %s defined twice", t.Name), nil)
	}

	cols := make([]string, 0, len(t.Attributes))
	for _, a := range t.Attributes {
		col := search.QuoteIdent(a.Name) + " " + columnType(a.Kind)
		if a.Name == pk.Name {
			col += " PRIMARY KEY"
			if !a.Kind.IsInteger() {
				col += " NOT NULL"
			}
		}
		cols = append(cols, col)
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", search.QuoteIdent(t.TableName()), strings.Join(cols, ", "))
	if _, err := s.db.Exec(ddl); err != nil {
		return ftserr.New(ftserr.ErrCodeStoreFailed, fmt.Sprintf("failed to create table for %s", t.Name), err)
	}

	s.types[t.Name] = t
	s.order = append(s.order, t.Name)
	return nil
}

func columnType(k record.Kind) string {
	switch k {
	case record.KindInteger, record.KindBigInteger, record.KindBool:
		return "INTEGER"
	case record.KindFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// Type returns the named record type.
func (s *Store) Type(name string) (*record.Type, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[name]
	return t, ok
}

// Types returns the record types in definition order.
func (s *Store) Types() []*record.Type {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*record.Type, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.types[name])
	}
	return out
}

func (s *Store) mustType(name string) (*record.Type, error) {
	t, ok := s.Type(name)
	if !ok {
		return nil, ftserr.ValidationError(fmt.Sprintf("unknown record type %s", name), nil)
	}
	return t, nil
}

// OnCommit registers a hook run after every successful commit. Hooks run
// synchronously in registration order; their errors are returned from
// Tx.Commit after the data is already durable.
func (s *Store) OnCommit(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

func (s *Store) runHooks(ctx context.Context, events []record.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}
	s.mu.RLock()
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.RUnlock()

	var errs []error
	for _, h := range hooks {
		if err := h(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Get loads one record by primary key.
func (s *Store) Get(ctx context.Context, typeName string, pk any) (*record.Row, error) {
	t, err := s.mustType(typeName)
	if err != nil {
		return nil, err
	}
	return getRow(ctx, s.db, t, pk)
}

// All loads every record of a type in primary key order.
func (s *Store) All(ctx context.Context, typeName string) ([]*record.Row, error) {
	return s.Query(typeName).OrderBy(search.QuoteIdent(s.pkName(typeName))).All(ctx)
}

func (s *Store) pkName(typeName string) string {
	if t, ok := s.Type(typeName); ok {
		if pk, ok := t.PrimaryKey(); ok {
			return pk.Name
		}
	}
	return "rowid"
}

// Each calls fn for every record of a type. Rows are fully read before fn
// runs, so fn may query the store.
func (s *Store) Each(ctx context.Context, typeName string, fn func(record.Record) error) error {
	rows, err := s.All(ctx, typeName)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of records of a type.
func (s *Store) Count(ctx context.Context, typeName string) (int, error) {
	t, err := s.mustType(typeName)
	if err != nil {
		return 0, err
	}
	var n int
	q := "SELECT COUNT(*) FROM " + search.QuoteIdent(t.TableName())
	if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", typeName, err)
	}
	return n, nil
}

// Exec runs raw SQL outside any transaction. No change events are emitted,
// so the index drifts until it is reindexed.
func (s *Store) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, ftserr.New(ftserr.ErrCodeStoreFailed, "exec failed", err)
	}
	n, _ := res.RowsAffected()
	slog.Debug("store_exec", slog.Int64("rows", n))
	return n, nil
}

// DB returns the underlying database for components sharing the file.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func selectColumns(t *record.Type, qualifier string) string {
	cols := make([]string, len(t.Attributes))
	for i, a := range t.Attributes {
		cols[i] = search.QuoteIdent(qualifier) + "." + search.QuoteIdent(a.Name)
	}
	return strings.Join(cols, ", ")
}

func getRow(ctx context.Context, q queryer, t *record.Type, pk any) (*record.Row, error) {
	pkAttr, _ := t.PrimaryKey()
	table := t.TableName()
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		selectColumns(t, table), search.QuoteIdent(table), search.QuoteIdent(pkAttr.Name))

	rows, err := q.QueryContext(ctx, stmt, toSQL(pkAttr.Kind, pk))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", t.Name, err)
	}
	out, err := scanRows(rows, t)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s %v: %w", t.Name, pk, ErrNotFound)
	}
	return out[0], nil
}

func scanRows(rows *sql.Rows, t *record.Type) ([]*record.Row, error) {
	defer rows.Close()

	var out []*record.Row
	for rows.Next() {
		vals := make([]any, len(t.Attributes))
		ptrs := make([]any, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", t.Name, err)
		}
		row := record.NewRow(t.Name, make(map[string]any, len(vals)))
		for i, a := range t.Attributes {
			row.Set(a.Name, fromSQL(a.Kind, vals[i]))
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", t.Name, err)
	}
	return out, nil
}

// toSQL normalizes a value for the column kind.
func toSQL(k record.Kind, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	}
	return v
}

// fromSQL maps driver values back to the attribute kind.
func fromSQL(k record.Kind, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case int64:
		if k == record.KindBool {
			return x != 0
		}
		if k == record.KindFloat {
			return float64(x)
		}
	}
	return v
}
