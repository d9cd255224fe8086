package search

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultQueryCacheSize is the number of compiled queries kept per Parser.
const DefaultQueryCacheSize = 256

// Analyzer splits text into index terms. *store.Handle implements it.
type Analyzer interface {
	Analyze(text string) []string
}

// Parser compiles prepared search strings into bleve queries scoped to a
// fixed set of text fields. Compiled queries are immutable and cached.
type Parser struct {
	cache *lru.Cache[string, query.Query]
}

// NewParser creates a parser with an LRU cache of the given size.
func NewParser(cacheSize int) *Parser {
	if cacheSize <= 0 {
		cacheSize = DefaultQueryCacheSize
	}
	cache, _ := lru.New[string, query.Query](cacheSize)
	return &Parser{cache: cache}
}

// Compile builds the query for prepared over fields.
//
// Each token matches when any field matches it. A token wrapped in
// wildcards (*tok*) matches its terms as substrings, otherwise as whole
// terms. Tokens are combined per group.
func (p *Parser) Compile(scope string, fields []string, a Analyzer, prepared string, group Group) query.Query {
	key := scope + "\x00" + strings.Join(fields, ",") + "\x00" + group.String() + "\x00" + prepared
	if q, ok := p.cache.Get(key); ok {
		return q
	}

	q := compile(fields, a, prepared, group)
	p.cache.Add(key, q)
	return q
}

// Len returns the number of cached queries.
func (p *Parser) Len() int { return p.cache.Len() }

func compile(fields []string, a Analyzer, prepared string, group Group) query.Query {
	var clauses []query.Query
	for _, tok := range strings.Fields(prepared) {
		wildcard := strings.Contains(tok, "*")
		terms := a.Analyze(strings.ReplaceAll(tok, "*", ""))
		if len(terms) == 0 || len(fields) == 0 {
			continue
		}

		perField := make([]query.Query, 0, len(fields))
		for _, f := range fields {
			perField = append(perField, termsQuery(f, terms, wildcard))
		}
		clauses = append(clauses, anyOf(perField))
	}

	if len(clauses) == 0 {
		return bleve.NewMatchNoneQuery()
	}
	if group == GroupAnd {
		return allOf(clauses)
	}
	return anyOf(clauses)
}

// termsQuery requires every analyzed term of one token in field.
func termsQuery(field string, terms []string, wildcard bool) query.Query {
	leaves := make([]query.Query, 0, len(terms))
	for _, term := range terms {
		if wildcard {
			q := bleve.NewWildcardQuery("*" + term + "*")
			q.SetField(field)
			leaves = append(leaves, q)
			continue
		}
		q := bleve.NewTermQuery(term)
		q.SetField(field)
		leaves = append(leaves, q)
	}
	return allOf(leaves)
}

func anyOf(qs []query.Query) query.Query {
	if len(qs) == 1 {
		return qs[0]
	}
	return bleve.NewDisjunctionQuery(qs...)
}

func allOf(qs []query.Query) query.Query {
	if len(qs) == 1 {
		return qs[0]
	}
	return bleve.NewConjunctionQuery(qs...)
}
