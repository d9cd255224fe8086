package ui

import (
	"sync"
	"time"
)

// UnitProgress is the tracked state of one unit.
type UnitProgress struct {
	Unit    string
	Type    string
	Current int
	Total   int
	Done    bool
	Failed  bool
}

// Fraction returns progress within the current type, 0 to 1.
func (u UnitProgress) Fraction() float64 {
	if u.Done {
		return 1
	}
	if u.Total <= 0 {
		return 0
	}
	f := float64(u.Current) / float64(u.Total)
	if f > 1 {
		return 1
	}
	return f
}

// ProgressTracker accumulates progress events by unit.
// It is safe for concurrent use.
type ProgressTracker struct {
	mu        sync.RWMutex
	order     []string
	units     map[string]*UnitProgress
	records   int
	errors    []ErrorEvent
	startTime time.Time
}

// NewProgressTracker creates a tracker starting now.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{
		units:     make(map[string]*UnitProgress),
		startTime: time.Now(),
	}
}

func (p *ProgressTracker) unit(name string) *UnitProgress {
	u, ok := p.units[name]
	if !ok {
		u = &UnitProgress{Unit: name}
		p.units[name] = u
		p.order = append(p.order, name)
	}
	return u
}

// Update records a progress event.
func (p *ProgressTracker) Update(event ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	u := p.unit(event.Unit)
	if event.Done {
		u.Done = true
		return
	}
	if event.Type == u.Type && event.Current > u.Current {
		p.records += event.Current - u.Current
	} else if event.Type != u.Type {
		p.records += event.Current
	}
	u.Type = event.Type
	u.Current = event.Current
	u.Total = event.Total
}

// AddError marks a unit failed.
func (p *ProgressTracker) AddError(event ErrorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.unit(event.Unit).Failed = true
	p.errors = append(p.errors, event)
}

// Units returns a snapshot in first-seen order.
func (p *ProgressTracker) Units() []UnitProgress {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]UnitProgress, len(p.order))
	for i, name := range p.order {
		out[i] = *p.units[name]
	}
	return out
}

// Records returns the number of records seen so far.
func (p *ProgressTracker) Records() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.records
}

// Errors returns the recorded errors.
func (p *ProgressTracker) Errors() []ErrorEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]ErrorEvent(nil), p.errors...)
}

// Elapsed returns the time since the tracker was created.
func (p *ProgressTracker) Elapsed() time.Duration {
	return time.Since(p.startTime)
}

// Rate returns records per second so far.
func (p *ProgressTracker) Rate() float64 {
	secs := p.Elapsed().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(p.Records()) / secs
}
