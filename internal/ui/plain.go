package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer writes one line per progress event, for CI and pipes.
type PlainRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	return nil
}

// UpdateProgress implements Renderer. Only type boundaries and unit
// completion are printed.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case event.Done:
		_, _ = fmt.Fprintf(r.out, "[INDEX] %s done\n", event.Unit)
	case event.Current == event.Total:
		_, _ = fmt.Fprintf(r.out, "[INDEX] %s/%s %d/%d\n", event.Unit, event.Type, event.Current, event.Total)
	}
}

// AddError implements Renderer.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "ERROR: %s: %v\n", event.Unit, event.Err)
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "Complete: %d units, %d records indexed in %s",
		len(stats.Units), stats.Records(), stats.Duration.Round(100*time.Millisecond))
	if stats.Errors > 0 {
		_, _ = fmt.Fprintf(r.out, " (%d errors)", stats.Errors)
	}
	_, _ = fmt.Fprintln(r.out)

	for _, u := range stats.Units {
		_, _ = fmt.Fprintf(r.out, "  %-20s %6d records  %4d removed  %s\n",
			u.Unit, u.Records, u.Removed, u.Duration.Round(time.Millisecond))
	}
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}
