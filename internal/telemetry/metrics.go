// Package telemetry records search statistics: queries per unit, top query
// terms, recent zero-result queries and a latency histogram. Statistics stay
// local to the project's record database.
package telemetry

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// Buckets lists the histogram buckets in ascending order.
var Buckets = []LatencyBucket{BucketP10, BucketP50, BucketP100, BucketP500, BucketP1000}

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// SearchEvent is one executed search.
type SearchEvent struct {
	Unit    string
	Query   string
	Hits    int
	Latency time.Duration
	Failed  bool
}

// IsZeroResult reports whether a successful search matched nothing.
func (e SearchEvent) IsZeroResult() bool {
	return !e.Failed && e.Hits == 0
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	mu       sync.RWMutex
	items    []T
	head     int
	size     int
	capacity int
}

// NewCircularBuffer creates a buffer holding at most capacity items.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = DefaultZeroResultsCapacity
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add appends item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns the buffered items, oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the number of buffered items.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// ExtractTerms splits a query into lowercased terms of at least minLen
// runes. Field prefixes and wildcards are stripped.
func ExtractTerms(query string, minLen int) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, "*?\"'()")
		if len([]rune(w)) >= minLen {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount is a term and how often it was searched.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time copy of the statistics.
type Snapshot struct {
	UnitCounts          map[string]int64        `json:"unit_counts"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	FailedCount         int64                   `json:"failed_count"`
	Since               time.Time               `json:"since"`
}

// ZeroResultRate is the share of queries that matched nothing.
func (s *Snapshot) ZeroResultRate() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries)
}

// Store persists flushed statistics.
type Store interface {
	SaveUnitCounts(date string, counts map[string]int64) error
	UpsertTermCounts(terms map[string]int64) error
	AddZeroResultQueries(queries []string) error
	SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error
	Summary(topTerms, zeroResults int) (*Snapshot, error)
}

const (
	DefaultTopTermsCapacity    = 100
	DefaultZeroResultsCapacity = 100
	DefaultMinTermLength       = 3
)

// Config configures a SearchMetrics collector.
type Config struct {
	TopTermsCapacity    int           // distinct terms tracked in memory
	ZeroResultsCapacity int           // recent zero-result queries kept
	MinTermLength       int           // shorter terms are not counted
	FlushInterval       time.Duration // 0 flushes only on Close
}

// DefaultConfig returns the default collector configuration.
func DefaultConfig() Config {
	return Config{
		TopTermsCapacity:    DefaultTopTermsCapacity,
		ZeroResultsCapacity: DefaultZeroResultsCapacity,
		MinTermLength:       DefaultMinTermLength,
	}
}

// SearchMetrics collects search statistics. Safe for concurrent use.
//
// Flush writes the counts gathered since the previous flush, so totals in
// the store accumulate across processes.
type SearchMetrics struct {
	mu sync.Mutex

	units           map[string]int64
	terms           *lru.Cache[string, int64]
	zeroResults     *CircularBuffer[string]
	latencies       map[LatencyBucket]int64
	totalQueries    int64
	zeroResultCount int64
	failedCount     int64
	startTime       time.Time

	// pending holds the deltas not yet flushed.
	pendingUnits   map[string]int64
	pendingTerms   map[string]int64
	pendingZero    []string
	pendingLatency map[LatencyBucket]int64

	store  Store
	cfg    Config
	ticker *time.Ticker
	stopCh chan struct{}
	closed bool
}

// New creates a collector. A nil store keeps statistics in memory only.
func New(store Store, cfg Config) *SearchMetrics {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = DefaultTopTermsCapacity
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = DefaultZeroResultsCapacity
	}
	if cfg.MinTermLength <= 0 {
		cfg.MinTermLength = DefaultMinTermLength
	}

	terms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	m := &SearchMetrics{
		units:       make(map[string]int64),
		terms:       terms,
		zeroResults: NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		latencies:   make(map[LatencyBucket]int64),
		startTime:   time.Now(),
		store:       store,
		cfg:         cfg,
		stopCh:      make(chan struct{}),
	}
	m.resetPending()

	if cfg.FlushInterval > 0 && store != nil {
		m.ticker = time.NewTicker(cfg.FlushInterval)
		go m.flushLoop()
	}
	return m
}

func (m *SearchMetrics) resetPending() {
	m.pendingUnits = make(map[string]int64)
	m.pendingTerms = make(map[string]int64)
	m.pendingZero = nil
	m.pendingLatency = make(map[LatencyBucket]int64)
}

func (m *SearchMetrics) flushLoop() {
	for {
		select {
		case <-m.ticker.C:
			_ = m.Flush()
		case <-m.stopCh:
			return
		}
	}
}

// Record captures one search. Events after Close are dropped.
func (m *SearchMetrics) Record(event SearchEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.totalQueries++
	m.units[event.Unit]++
	m.pendingUnits[event.Unit]++

	if event.Failed {
		m.failedCount++
		return
	}

	for _, term := range ExtractTerms(event.Query, m.cfg.MinTermLength) {
		count, _ := m.terms.Get(term)
		m.terms.Add(term, count+1)
		m.pendingTerms[term]++
	}

	if event.IsZeroResult() {
		m.zeroResultCount++
		m.zeroResults.Add(event.Query)
		m.pendingZero = append(m.pendingZero, event.Query)
	}

	bucket := LatencyToBucket(event.Latency)
	m.latencies[bucket]++
	m.pendingLatency[bucket]++
}

// Snapshot returns the in-memory statistics of this process.
func (m *SearchMetrics) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var top []TermCount
	for _, key := range m.terms.Keys() {
		if count, ok := m.terms.Peek(key); ok {
			top = append(top, TermCount{Term: key, Count: count})
		}
	}
	SortTerms(top)

	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}
	units := make(map[string]int64, len(m.units))
	for k, v := range m.units {
		units[k] = v
	}

	return &Snapshot{
		UnitCounts:          units,
		TopTerms:            top,
		ZeroResultQueries:   m.zeroResults.Items(),
		LatencyDistribution: latencies,
		TotalQueries:        m.totalQueries,
		ZeroResultCount:     m.zeroResultCount,
		FailedCount:         m.failedCount,
		Since:               m.startTime,
	}
}

// SortTerms orders terms by count descending, then alphabetically.
func SortTerms(terms []TermCount) {
	slices.SortFunc(terms, func(a, b TermCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Term, b.Term)
	})
}

// Flush writes pending deltas to the store. Without a store it is a no-op.
func (m *SearchMetrics) Flush() error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	units, terms, zero, latency := m.pendingUnits, m.pendingTerms, m.pendingZero, m.pendingLatency
	m.resetPending()
	m.mu.Unlock()

	today := time.Now().Format("2006-01-02")
	if err := m.store.SaveUnitCounts(today, units); err != nil {
		return err
	}
	if err := m.store.UpsertTermCounts(terms); err != nil {
		return err
	}
	if err := m.store.AddZeroResultQueries(zero); err != nil {
		return err
	}
	return m.store.SaveLatencyCounts(today, latency)
}

// Close stops the flush loop and performs a final flush.
func (m *SearchMetrics) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	if m.ticker != nil {
		m.ticker.Stop()
		close(m.stopCh)
	}
	return m.Flush()
}
