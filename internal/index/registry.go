package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	ftserr "github.com/Aman-CERP/ftsync/internal/errors"
	"github.com/Aman-CERP/ftsync/internal/search"
	"github.com/Aman-CERP/ftsync/internal/store"
	"github.com/Aman-CERP/ftsync/internal/telemetry"
)

// DefaultRootDir is the index root used when none is configured.
const DefaultRootDir = "whooshee"

// Options configures a Registry.
type Options struct {
	// RootDir holds one index directory per unit.
	RootDir string

	// WriterTimeout bounds writer acquisition per unit and commit batch.
	WriterTimeout time.Duration

	// MinSearchLength is the shortest accepted search string.
	MinSearchLength int

	// EnableIndexing is the initial state of the global indexing switch.
	EnableIndexing bool

	// MemoryStorage keeps every index in memory; RootDir is not touched.
	MemoryStorage bool

	// QueryCacheSize bounds the compiled query cache.
	QueryCacheSize int

	// Metrics receives one event per executed search when set.
	Metrics *telemetry.SearchMetrics
}

// DefaultOptions returns the default registry options.
func DefaultOptions() Options {
	return Options{
		RootDir:         DefaultRootDir,
		WriterTimeout:   store.DefaultWriterTimeout,
		MinSearchLength: search.DefaultMinLength,
		EnableIndexing:  true,
		QueryCacheSize:  search.DefaultQueryCacheSize,
	}
}

// registered is a unit bound to its open index.
type registered struct {
	unit   Unit
	handle *store.Handle
}

// Registry owns the indexes of one deployment context.
type Registry struct {
	opts Options

	mu     sync.RWMutex
	units  map[string]*registered
	order  []string
	byType map[string][]string
	closed bool

	enabled    atomic.Bool
	lock       *store.RootLock
	translator search.Translator
	parser     *search.Parser
}

// New creates an empty registry. On-disk registries lock their root
// against other processes until Close.
func New(ctx context.Context, opts Options) (*Registry, error) {
	if opts.RootDir == "" {
		opts.RootDir = DefaultRootDir
	}
	if opts.WriterTimeout <= 0 {
		opts.WriterTimeout = store.DefaultWriterTimeout
	}
	if opts.MinSearchLength <= 0 {
		opts.MinSearchLength = search.DefaultMinLength
	}

	r := &Registry{
		opts:       opts,
		units:      make(map[string]*registered),
		byType:     make(map[string][]string),
		translator: search.Translator{MinLength: opts.MinSearchLength},
		parser:     search.NewParser(opts.QueryCacheSize),
	}
	r.enabled.Store(opts.EnableIndexing)

	if !opts.MemoryStorage {
		r.lock = store.NewRootLock(opts.RootDir)
		if err := r.lock.Acquire(ctx, opts.WriterTimeout); err != nil {
			return nil, err
		}
	}

	slog.Debug("registry_created",
		slog.String("root", opts.RootDir),
		slog.Bool("memory", opts.MemoryStorage),
		slog.Bool("indexing", opts.EnableIndexing))
	return r, nil
}

// Options returns the effective options.
func (r *Registry) Options() Options { return r.opts }

// Register opens the unit's index and subscribes its record types.
// Registering the same unit twice is a no-op; a different unit under a
// taken name is a configuration error.
func (r *Registry) Register(u Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("registry is closed")
	}
	if existing, ok := r.units[u.Name()]; ok {
		if existing.unit == u {
			return nil
		}
		return ftserr.SchemaError(fmt.Sprintf("a different unit named %s is already registered", u.Name()), nil).
			WithDetail("unit", u.Name())
	}
	if len(u.Schema().TextFields()) == 0 {
		return ftserr.SchemaError(fmt.Sprintf("unit %s has no text fields", u.Name()), nil).
			WithDetail("unit", u.Name())
	}

	path := ""
	if !r.opts.MemoryStorage {
		path = filepath.Join(r.opts.RootDir, u.Subdir())
	}
	h, err := store.Open(path, u.Schema(), store.Options{Name: u.Name(), WriterTimeout: r.opts.WriterTimeout})
	if err != nil {
		return err
	}

	r.units[u.Name()] = &registered{unit: u, handle: h}
	r.order = append(r.order, u.Name())
	for _, t := range u.Types() {
		r.byType[t] = append(r.byType[t], u.Name())
	}

	slog.Info("unit_registered",
		slog.String("unit", u.Name()),
		slog.String("types", strings.Join(u.Types(), ",")),
		slog.String("path", path))
	return nil
}

// Unit returns the registered unit with the given name.
func (r *Registry) Unit(name string) (Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.units[name]
	if !ok {
		return nil, false
	}
	return reg.unit, true
}

// Units returns the registered units in registration order.
func (r *Registry) Units() []Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Unit, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.units[name].unit)
	}
	return out
}

// Resolve returns the single unit whose covered types are exactly types.
func (r *Registry) Resolve(types ...string) (Unit, error) {
	want := typeSet(types)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []string
	for _, name := range r.order {
		if typeSet(r.units[name].unit.Types()) == want {
			matches = append(matches, name)
		}
	}

	switch len(matches) {
	case 0:
		return nil, ftserr.LookupError(ftserr.ErrCodeUnitNotFound,
			fmt.Sprintf("no unit covers exactly %s", want)).
			WithDetail("types", want)
	case 1:
		return r.units[matches[0]].unit, nil
	default:
		return nil, ftserr.LookupError(ftserr.ErrCodeUnitAmbiguous,
			fmt.Sprintf("units %s all cover %s", strings.Join(matches, ", "), want)).
			WithDetail("types", want)
	}
}

// typeSet renders a set of type names in a canonical form.
func typeSet(types []string) string {
	seen := make(map[string]struct{}, len(types))
	set := make([]string, 0, len(types))
	for _, t := range types {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		set = append(set, t)
	}
	sort.Strings(set)
	return "{" + strings.Join(set, ", ") + "}"
}

// SetIndexingEnabled flips the global indexing switch. While off, change
// events leave every index untouched.
func (r *Registry) SetIndexingEnabled(on bool) {
	r.enabled.Store(on)
	slog.Info("indexing_toggled", slog.Bool("enabled", on))
}

// IndexingEnabled reports the global indexing switch.
func (r *Registry) IndexingEnabled() bool { return r.enabled.Load() }

// lookup returns the registered entry for name.
func (r *Registry) lookup(name string) (*registered, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("registry is closed")
	}
	reg, ok := r.units[name]
	if !ok {
		return nil, ftserr.LookupError(ftserr.ErrCodeUnitNotFound, fmt.Sprintf("unit %s is not registered", name)).
			WithDetail("unit", name)
	}
	return reg, nil
}

// UnitStats describes one registered unit.
type UnitStats struct {
	Name       string
	Types      []string
	Path       string
	Documents  uint64
	AutoUpdate bool
}

// Stats returns per-unit statistics in registration order.
func (r *Registry) Stats() ([]UnitStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]UnitStats, 0, len(r.order))
	for _, name := range r.order {
		reg := r.units[name]
		n, err := reg.handle.DocCount()
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}
		out = append(out, UnitStats{
			Name:       name,
			Types:      reg.unit.Types(),
			Path:       reg.handle.Path(),
			Documents:  n,
			AutoUpdate: reg.unit.AutoUpdate(),
		})
	}
	return out, nil
}

// Close closes every index and releases the root lock.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for _, name := range r.order {
		if err := r.units[name].handle.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	if r.lock != nil {
		if err := r.lock.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
