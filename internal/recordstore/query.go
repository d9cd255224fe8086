package recordstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aman-CERP/ftsync/internal/record"
	"github.com/Aman-CERP/ftsync/internal/search"
)

// Searcher turns a search request into a record filter. *index.Registry
// implements it.
type Searcher interface {
	Filter(ctx context.Context, req search.Request, types ...string) (search.Filter, error)
}

type clause struct {
	sql  string
	args []any
}

type join struct {
	t  *record.Type
	on string
}

// Query selects records of one type, optionally joined with others and
// filtered by a full-text search.
type Query struct {
	s     *Store
	base  *record.Type
	joins []join
	where []clause
	order []clause
	limit int
	empty bool
	err   error
}

// Query starts a query over typeName.
func (s *Store) Query(typeName string) *Query {
	q := &Query{s: s}
	q.base, q.err = s.mustType(typeName)
	return q
}

// Join adds an inner join with typeName using the SQL condition on.
func (q *Query) Join(typeName, on string) *Query {
	if q.err != nil {
		return q
	}
	t, err := q.s.mustType(typeName)
	if err != nil {
		q.err = err
		return q
	}
	q.joins = append(q.joins, join{t: t, on: on})
	return q
}

// Where adds a SQL condition. Conditions are ANDed.
func (q *Query) Where(cond string, args ...any) *Query {
	q.where = append(q.where, clause{sql: cond, args: args})
	return q
}

// OrderBy appends a SQL ordering term. Terms added before Search take
// precedence over relevance, terms added after it only break ties.
func (q *Query) OrderBy(expr string, args ...any) *Query {
	q.order = append(q.order, clause{sql: expr, args: args})
	return q
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Types returns the record types the query covers: the base type first,
// then joined types.
func (q *Query) Types() []string {
	if q.base == nil {
		return nil
	}
	out := []string{q.base.Name}
	for _, j := range q.joins {
		out = append(out, j.t.Name)
	}
	return out
}

// Search restricts the query to records matching text. Without
// search.WithUnit the unit is the one covering exactly the query's types.
// An invalid search leaves the query returning no rows; All reports why.
func (q *Query) Search(ctx context.Context, s Searcher, text string, opts ...search.Option) *Query {
	if q.err != nil {
		return q
	}

	req := search.NewRequest(text, opts...)
	f, err := s.Filter(ctx, req, q.Types()...)
	if err != nil {
		q.err = err
		q.empty = true
		return q
	}
	if f.Empty {
		q.empty = true
		return q
	}

	qualifier, err := q.qualifier(f.Type)
	if err != nil {
		q.err = err
		q.empty = true
		return q
	}
	rendered := f.SQL(qualifier)
	q.where = append(q.where, clause{sql: rendered.Where, args: rendered.WhereArgs})
	if rendered.OrderBy != "" {
		q.order = append(q.order, clause{sql: rendered.OrderBy, args: rendered.OrderArgs})
	}
	return q
}

// qualifier returns the table owning records of typeName in this query.
func (q *Query) qualifier(typeName string) (string, error) {
	if q.base.Name == typeName {
		return q.base.TableName(), nil
	}
	for _, j := range q.joins {
		if j.t.Name == typeName {
			return j.t.TableName(), nil
		}
	}
	return "", fmt.Errorf("search key type %s is not part of the query", typeName)
}

// SQL renders the statement and its arguments.
func (q *Query) SQL() (string, []any) {
	table := q.base.TableName()

	var b strings.Builder
	var args []any
	fmt.Fprintf(&b, "SELECT %s FROM %s", selectColumns(q.base, table), search.QuoteIdent(table))
	for _, j := range q.joins {
		fmt.Fprintf(&b, " JOIN %s ON %s", search.QuoteIdent(j.t.TableName()), j.on)
	}
	for i, c := range q.where {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString("(" + c.sql + ")")
		args = append(args, c.args...)
	}
	for i, c := range q.order {
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(c.sql)
		args = append(args, c.args...)
	}
	if q.limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.limit)
	}
	return b.String(), args
}

// All runs the query. Rows repeated by joins are returned once, at their
// first position.
func (q *Query) All(ctx context.Context) ([]*record.Row, error) {
	if q.err != nil {
		return []*record.Row{}, q.err
	}
	if q.empty {
		return []*record.Row{}, nil
	}

	stmt, args := q.SQL()
	rows, err := q.s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s failed: %w", q.base.Name, err)
	}
	out, err := scanRows(rows, q.base)
	if err != nil {
		return nil, err
	}
	if len(q.joins) == 0 {
		if out == nil {
			out = []*record.Row{}
		}
		return out, nil
	}
	return dedupe(q.base, out), nil
}

func dedupe(t *record.Type, rows []*record.Row) []*record.Row {
	pk, _ := t.PrimaryKey()
	seen := make(map[any]struct{}, len(rows))
	out := make([]*record.Row, 0, len(rows))
	for _, r := range rows {
		k, _ := r.Value(pk.Name)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
