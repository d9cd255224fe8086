package search

import (
	"fmt"
	"strings"
)

// DefaultOrderByRelevance is the number of leading hits ranked by relevance
// when a request does not say otherwise.
const DefaultOrderByRelevance = 10

// Group combines the tokens of a search string.
type Group int

const (
	// GroupOr matches records containing any token.
	GroupOr Group = iota
	// GroupAnd matches records containing every token.
	GroupAnd
)

// String returns the group name.
func (g Group) String() string {
	if g == GroupAnd {
		return "and"
	}
	return "or"
}

// ParseGroup parses "and" or "or", case-insensitively. Empty means GroupOr.
func ParseGroup(s string) (Group, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "or":
		return GroupOr, nil
	case "and":
		return GroupAnd, nil
	default:
		return GroupOr, fmt.Errorf("unknown group %q: expected and or or", s)
	}
}

// Request is one full-text search.
type Request struct {
	Text  string
	Group Group

	// MatchSubstrings matches every token anywhere inside a word.
	MatchSubstrings bool

	// Limit caps the number of hits. Zero or less returns every hit.
	Limit int

	// Unit names the unit to search. Empty resolves it from the queried
	// record types.
	Unit string

	// OrderByRelevance < 0 ranks every hit, 0 keeps the store's order and
	// K > 0 ranks the first K hits.
	OrderByRelevance int
}

// Option configures a Request.
type Option func(*Request)

// NewRequest returns a request for text with the defaults: OR grouping,
// substring matching, no limit and the first ten hits ranked.
func NewRequest(text string, opts ...Option) Request {
	r := Request{
		Text:             text,
		Group:            GroupOr,
		MatchSubstrings:  true,
		OrderByRelevance: DefaultOrderByRelevance,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// WithGroup sets the token grouping.
func WithGroup(g Group) Option {
	return func(r *Request) { r.Group = g }
}

// WithMatchSubstrings toggles substring matching.
func WithMatchSubstrings(on bool) Option {
	return func(r *Request) { r.MatchSubstrings = on }
}

// WithLimit caps the number of hits.
func WithLimit(n int) Option {
	return func(r *Request) { r.Limit = n }
}

// WithUnit searches the named unit instead of resolving one.
func WithUnit(name string) Option {
	return func(r *Request) { r.Unit = name }
}

// WithOrderByRelevance sets the relevance ordering policy.
func WithOrderByRelevance(k int) Option {
	return func(r *Request) { r.OrderByRelevance = k }
}
