// Package config loads the semvec YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/viant/semvec/index"
	"gopkg.in/yaml.v3"
)

// Config holds all semvec settings.
type Config struct {
	DSN       string          `yaml:"dsn"`
	Dimension int             `yaml:"dimension"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Ridge     RidgeConfig     `yaml:"ridge"`
	Condense  CondenseConfig  `yaml:"condense"`
	Rehydrate RehydrateConfig `yaml:"rehydrate"`
	Log       LogConfig       `yaml:"log"`
}

// IndexConfig selects the per-domain vector index.
type IndexConfig struct {
	Kind             string  `yaml:"kind"`
	CoverBase        float32 `yaml:"cover_base"`
	AutoCoverMinDocs int     `yaml:"auto_cover_min_docs"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	DefaultK int `yaml:"default_k"`
}

// RidgeConfig holds ridge retrieval defaults.
type RidgeConfig struct {
	TopK int `yaml:"top_k"`
}

// CondenseConfig holds query condensation defaults.
type CondenseConfig struct {
	K        int     `yaml:"k"`
	Karma    float64 `yaml:"karma"`
	Epsilon  float64 `yaml:"epsilon"`
	MaxSteps int     `yaml:"max_steps"`
}

// RehydrateConfig bounds index rebuilds.
type RehydrateConfig struct {
	Parallelism int `yaml:"parallelism"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DSN:       "semvec.db",
		Dimension: 384,
		Index: IndexConfig{
			Kind:             string(index.KindAuto),
			CoverBase:        1.3,
			AutoCoverMinDocs: 4000,
		},
		Search:    SearchConfig{DefaultK: 10},
		Ridge:     RidgeConfig{TopK: 5},
		Condense:  CondenseConfig{K: 8, Karma: 0.9, Epsilon: 0.001, MaxSteps: 16},
		Rehydrate: RehydrateConfig{Parallelism: 4},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// SEMVEC_DSN and SEMVEC_LOG_LEVEL override the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes c to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("SEMVEC_DSN"); dsn != "" {
		c.DSN = dsn
	}
	if level := os.Getenv("SEMVEC_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// IndexKind returns the parsed index kind.
func (c *Config) IndexKind() (index.Kind, error) {
	return index.ParseKind(c.Index.Kind)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.DSN == "":
		return fmt.Errorf("config: dsn is required")
	case c.Dimension <= 0:
		return fmt.Errorf("config: dimension must be positive, got %d", c.Dimension)
	case c.Index.CoverBase <= 1:
		return fmt.Errorf("config: index.cover_base must be > 1, got %v", c.Index.CoverBase)
	case c.Index.AutoCoverMinDocs < 0:
		return fmt.Errorf("config: index.auto_cover_min_docs must not be negative")
	case c.Search.DefaultK <= 0:
		return fmt.Errorf("config: search.default_k must be positive")
	case c.Ridge.TopK <= 0:
		return fmt.Errorf("config: ridge.top_k must be positive")
	case c.Condense.K <= 0 || c.Condense.MaxSteps <= 0:
		return fmt.Errorf("config: condense.k and condense.max_steps must be positive")
	case c.Condense.Karma < 0 || c.Condense.Karma > 1:
		return fmt.Errorf("config: condense.karma must be within [0, 1], got %v", c.Condense.Karma)
	case c.Rehydrate.Parallelism <= 0:
		return fmt.Errorf("config: rehydrate.parallelism must be positive")
	}
	if _, err := c.IndexKind(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
