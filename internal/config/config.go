// Package config loads ftsync configuration from YAML files and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/ftsync/configs"
	ftserr "github.com/Aman-CERP/ftsync/internal/errors"
	"github.com/Aman-CERP/ftsync/internal/record"
)

// ProjectFileName is the per-project configuration file.
const ProjectFileName = ".ftsync.yaml"

// Config is the complete ftsync configuration.
type Config struct {
	Version int          `yaml:"version" json:"version"`
	Index   IndexConfig  `yaml:"index" json:"index"`
	Store   StoreConfig  `yaml:"store" json:"store"`
	Search  SearchConfig `yaml:"search" json:"search"`
	Log     LogConfig    `yaml:"log" json:"log"`
	Types   []TypeConfig `yaml:"types,omitempty" json:"types,omitempty"`
}

// IndexConfig configures the full-text index.
type IndexConfig struct {
	// RootDir holds one index directory per unit. Relative paths are
	// resolved against the project directory.
	RootDir string `yaml:"root_dir" json:"root_dir"`

	// WriterTimeout bounds writer acquisition, as a Go duration.
	WriterTimeout string `yaml:"writer_timeout" json:"writer_timeout"`

	MinSearchLength int `yaml:"min_search_length" json:"min_search_length"`

	// EnableIndexing is the global indexing switch. Nil means true.
	EnableIndexing *bool `yaml:"enable_indexing,omitempty" json:"enable_indexing,omitempty"`

	// MemoryStorage keeps indexes in memory only.
	MemoryStorage bool `yaml:"memory_storage" json:"memory_storage"`
}

// StoreConfig configures the SQLite record store.
type StoreConfig struct {
	// Path is the database file, relative to the project directory.
	// Empty keeps the store in memory.
	Path string `yaml:"path" json:"path"`
}

// SearchConfig holds search defaults for the CLI.
type SearchConfig struct {
	Group string `yaml:"group" json:"group"`

	// MatchSubstrings defaults to true when unset.
	MatchSubstrings *bool `yaml:"match_substrings,omitempty" json:"match_substrings,omitempty"`

	// Limit caps hits; zero returns all.
	Limit int `yaml:"limit" json:"limit"`

	// OrderByRelevance defaults to 10 when unset.
	OrderByRelevance *int `yaml:"order_by_relevance,omitempty" json:"order_by_relevance,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level     string `yaml:"level" json:"level"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// TypeConfig declares a record type and the attributes its unit indexes.
type TypeConfig struct {
	record.Type `yaml:",inline"`

	// Index lists the attributes indexed as text.
	Index []string `yaml:"index" json:"index"`

	// Unit overrides the unit name, Subdir its storage directory.
	Unit   string `yaml:"unit,omitempty" json:"unit,omitempty"`
	Subdir string `yaml:"subdir,omitempty" json:"subdir,omitempty"`

	// AutoUpdate nil means true.
	AutoUpdate *bool `yaml:"auto_update,omitempty" json:"auto_update,omitempty"`
}

// NewConfig returns a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			RootDir:         "whooshee",
			WriterTimeout:   "2s",
			MinSearchLength: 3,
		},
		Store: StoreConfig{
			Path: "records.db",
		},
		Search: SearchConfig{
			Group: "or",
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// ExampleTypes returns the record types written by 'ftsync init'.
func ExampleTypes() []TypeConfig {
	return []TypeConfig{{
		Type: record.Type{
			Name: "Entry",
			Attributes: []record.Attribute{
				{Name: "id", Kind: record.KindInteger, PrimaryKey: true},
				{Name: "title", Kind: record.KindString},
				{Name: "content", Kind: record.KindText},
			},
		},
		Index: []string{"title", "content"},
	}}
}

// IndexingEnabled reports the effective global indexing switch.
func (c *Config) IndexingEnabled() bool {
	return c.Index.EnableIndexing == nil || *c.Index.EnableIndexing
}

// WriterTimeout returns the parsed writer timeout.
func (c *Config) WriterTimeout() time.Duration {
	d, err := time.ParseDuration(c.Index.WriterTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// MatchSubstrings returns the effective substring matching default.
func (c *Config) MatchSubstrings() bool {
	return c.Search.MatchSubstrings == nil || *c.Search.MatchSubstrings
}

// OrderByRelevance returns the effective relevance ordering default.
func (c *Config) OrderByRelevance() int {
	if c.Search.OrderByRelevance == nil {
		return 10
	}
	return *c.Search.OrderByRelevance
}

// AutoUpdateEnabled reports whether a declared type's unit follows changes.
func (t TypeConfig) AutoUpdateEnabled() bool {
	return t.AutoUpdate == nil || *t.AutoUpdate
}

// RecordTypes returns the declared record types.
func (c *Config) RecordTypes() []*record.Type {
	out := make([]*record.Type, len(c.Types))
	for i := range c.Types {
		t := c.Types[i].Type
		out[i] = &t
	}
	return out
}

// GetUserConfigPath returns the user configuration file path.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ftsync", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "ftsync", "config.yaml")
	}
	return filepath.Join(home, ".config", "ftsync", "config.yaml")
}

func loadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}
	cfg := &Config{}
	if err := cfg.loadYAML(path); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load builds the configuration for the project in dir: defaults, then the
// user config, then dir/.ftsync.yaml, then FTSYNC_* environment variables.
// The result is validated.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, err
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	path := filepath.Join(dir, ProjectFileName)
	if fileExists(path) {
		var project Config
		if err := project.loadYAML(path); err != nil {
			return nil, err
		}
		cfg.mergeWith(&project)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, ftserr.ConfigError("invalid configuration", err).
			WithDetail("path", path)
	}
	return cfg, nil
}

// loadYAML parses path into c. Unknown keys are rejected.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return ftserr.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path)
	}
	return nil
}

// mergeWith merges values set in other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Index.RootDir != "" {
		c.Index.RootDir = other.Index.RootDir
	}
	if other.Index.WriterTimeout != "" {
		c.Index.WriterTimeout = other.Index.WriterTimeout
	}
	if other.Index.MinSearchLength != 0 {
		c.Index.MinSearchLength = other.Index.MinSearchLength
	}
	if other.Index.EnableIndexing != nil {
		c.Index.EnableIndexing = other.Index.EnableIndexing
	}
	if other.Index.MemoryStorage {
		c.Index.MemoryStorage = true
	}

	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}

	if other.Search.Group != "" {
		c.Search.Group = other.Search.Group
	}
	if other.Search.MatchSubstrings != nil {
		c.Search.MatchSubstrings = other.Search.MatchSubstrings
	}
	if other.Search.Limit != 0 {
		c.Search.Limit = other.Search.Limit
	}
	if other.Search.OrderByRelevance != nil {
		c.Search.OrderByRelevance = other.Search.OrderByRelevance
	}

	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.MaxSizeMB != 0 {
		c.Log.MaxSizeMB = other.Log.MaxSizeMB
	}
	if other.Log.MaxFiles != 0 {
		c.Log.MaxFiles = other.Log.MaxFiles
	}

	// Type declarations replace rather than merge.
	if len(other.Types) > 0 {
		c.Types = other.Types
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FTSYNC_INDEX_ROOT_DIR"); v != "" {
		c.Index.RootDir = v
	}
	if v := os.Getenv("FTSYNC_WRITER_TIMEOUT"); v != "" {
		c.Index.WriterTimeout = v
	}
	if v := os.Getenv("FTSYNC_MIN_SEARCH_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.MinSearchLength = n
		}
	}
	if v := os.Getenv("FTSYNC_ENABLE_INDEXING"); v != "" {
		on := parseBool(v)
		c.Index.EnableIndexing = &on
	}
	if v := os.Getenv("FTSYNC_MEMORY_STORAGE"); v != "" {
		c.Index.MemoryStorage = parseBool(v)
	}
	if v := os.Getenv("FTSYNC_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("FTSYNC_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Index.RootDir == "" && !c.Index.MemoryStorage {
		return fmt.Errorf("index.root_dir must not be empty")
	}
	if d, err := time.ParseDuration(c.Index.WriterTimeout); err != nil || d <= 0 {
		return fmt.Errorf("index.writer_timeout must be a positive duration, got %q", c.Index.WriterTimeout)
	}
	if c.Index.MinSearchLength < 1 {
		return fmt.Errorf("index.min_search_length must be at least 1, got %d", c.Index.MinSearchLength)
	}

	switch strings.ToLower(c.Search.Group) {
	case "and", "or":
	default:
		return fmt.Errorf("search.group must be 'and' or 'or', got %s", c.Search.Group)
	}
	if c.Search.Limit < 0 {
		return fmt.Errorf("search.limit must be non-negative, got %d", c.Search.Limit)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Log.Level)
	}

	seen := make(map[string]bool, len(c.Types))
	for _, t := range c.Types {
		if err := t.Type.Validate(); err != nil {
			return err
		}
		if seen[t.Name] {
			return fmt.Errorf("record type %s declared twice", t.Name)
		}
		seen[t.Name] = true
		for _, attr := range t.Index {
			if _, ok := t.Attribute(attr); !ok {
				return fmt.Errorf("record type %s: indexed attribute %s is not declared", t.Name, attr)
			}
		}
	}
	return nil
}

// WriteYAML writes the configuration to path atomically.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// WriteTemplate writes the annotated project template to path.
func WriteTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := atomic.WriteFile(path, strings.NewReader(configs.ProjectConfigTemplate)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
