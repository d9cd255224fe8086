package config

import (
	"fmt"
	"path/filepath"

	"github.com/Aman-CERP/ftsync/internal/index"
	"github.com/Aman-CERP/ftsync/internal/search"
)

// RegistryOptions converts the index section into registry options for the
// project rooted at dir.
func (c *Config) RegistryOptions(dir string) index.Options {
	opts := index.DefaultOptions()
	opts.RootDir = resolve(dir, c.Index.RootDir)
	opts.WriterTimeout = c.WriterTimeout()
	opts.MinSearchLength = c.Index.MinSearchLength
	opts.EnableIndexing = c.IndexingEnabled()
	opts.MemoryStorage = c.Index.MemoryStorage
	return opts
}

// StorePath returns the record database path for the project rooted at
// dir, or "" for an in-memory store.
func (c *Config) StorePath(dir string) string {
	if c.Store.Path == "" {
		return ""
	}
	return resolve(dir, c.Store.Path)
}

// SearchOptions returns the configured request defaults.
func (c *Config) SearchOptions() []search.Option {
	group, _ := search.ParseGroup(c.Search.Group)
	return []search.Option{
		search.WithGroup(group),
		search.WithMatchSubstrings(c.MatchSubstrings()),
		search.WithLimit(c.Search.Limit),
		search.WithOrderByRelevance(c.OrderByRelevance()),
	}
}

// Units builds one model unit per declared type that indexes attributes.
func (c *Config) Units() ([]index.Unit, error) {
	types := c.RecordTypes()
	units := make([]index.Unit, 0, len(types))
	for i, t := range types {
		tc := c.Types[i]
		if len(tc.Index) == 0 {
			continue
		}
		var opts []index.UnitOption
		if tc.Unit != "" {
			opts = append(opts, index.WithName(tc.Unit))
		}
		if tc.Subdir != "" {
			opts = append(opts, index.WithSubdir(tc.Subdir))
		}
		opts = append(opts, index.WithAutoUpdate(tc.AutoUpdateEnabled()))

		u, err := index.NewModelUnit(t, tc.Index, opts...)
		if err != nil {
			return nil, fmt.Errorf("unit for %s: %w", t.Name, err)
		}
		units = append(units, u)
	}
	return units, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) || dir == "" {
		return p
	}
	return filepath.Join(dir, p)
}
