package search

import (
	"strings"

	"github.com/Aman-CERP/ftsync/internal/schema"
)

// Result is the ranked output of one unit search.
type Result struct {
	Unit   string
	Target schema.KeyTarget

	// Keys are primary key values in rank order.
	Keys []any
}

// Filter restricts a record-store query to a search result.
type Filter struct {
	// Empty is set when nothing matched; the store returns no rows
	// without scanning.
	Empty bool

	Type      string
	Attribute string
	Keys      []any

	// Ranked is how many leading keys get their own priority.
	Ranked int
	// Rest is the shared priority of matched keys past Ranked.
	Rest int
}

// Reconcile turns a search result into a record filter.
func Reconcile(res Result, orderByRelevance int) Filter {
	if len(res.Keys) == 0 {
		return Filter{Empty: true, Type: res.Target.Type, Attribute: res.Target.Attribute}
	}

	f := Filter{
		Type:      res.Target.Type,
		Attribute: res.Target.Attribute,
		Keys:      res.Keys,
	}
	switch {
	case orderByRelevance < 0:
		f.Ranked = len(res.Keys)
		f.Rest = len(res.Keys)
	case orderByRelevance > 0:
		f.Ranked = min(orderByRelevance, len(res.Keys))
		f.Rest = orderByRelevance
	}
	return f
}

// Ordered reports whether the filter carries a priority expression.
func (f Filter) Ordered() bool { return !f.Empty && f.Ranked > 0 }

// Priority returns the sort priority of key, lower first.
func (f Filter) Priority(key any) int {
	for i := 0; i < f.Ranked; i++ {
		if f.Keys[i] == key {
			return i
		}
	}
	return f.Rest
}

// SQL is a rendered filter. OrderBy is empty when no reordering applies.
type SQL struct {
	Where     string
	WhereArgs []any
	OrderBy   string
	OrderArgs []any
}

// SQL renders the filter for a SQL record store. qualifier is the table
// or alias owning the key attribute; empty leaves the column unqualified.
func (f Filter) SQL(qualifier string) SQL {
	if f.Empty {
		return SQL{Where: "1 = 0"}
	}

	col := QuoteIdent(f.Attribute)
	if qualifier != "" {
		col = QuoteIdent(qualifier) + "." + col
	}

	var b strings.Builder
	b.WriteString(col)
	b.WriteString(" IN (")
	b.WriteString(placeholders(len(f.Keys)))
	b.WriteString(")")
	out := SQL{Where: b.String(), WhereArgs: append([]any(nil), f.Keys...)}

	if !f.Ordered() {
		return out
	}

	b.Reset()
	b.WriteString("CASE ")
	b.WriteString(col)
	args := make([]any, 0, 2*f.Ranked+1)
	for i := 0; i < f.Ranked; i++ {
		b.WriteString(" WHEN ? THEN ?")
		args = append(args, f.Keys[i], i)
	}
	b.WriteString(" ELSE ? END")
	args = append(args, f.Rest)

	out.OrderBy = b.String()
	out.OrderArgs = args
	return out
}

// QuoteIdent quotes a SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
