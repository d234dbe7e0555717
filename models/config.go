package models

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration. Values come from an optional YAML file and are
// overridden by CLI flags.
type Config struct {
	Fetch    FetchConfig    `yaml:"fetch"`
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
}

// FetchConfig configures the content fetcher.
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second, 0 disables
	CacheDir  string        `yaml:"cache_dir"`  // empty disables the cache
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	MaxBytes  int64         `yaml:"max_bytes"`
}

// AnalyzerConfig selects and tunes the analysis collaborator.
type AnalyzerConfig struct {
	Kind             string  `yaml:"kind"` // local | anthropic
	Model            string  `yaml:"model"`
	MaxTokens        int     `yaml:"max_tokens"`
	Temperature      float64 `yaml:"temperature"`
	ContentMaxTokens int     `yaml:"content_max_tokens"`
	RateLimit        float64 `yaml:"rate_limit"`
	KeyTerms         int     `yaml:"key_terms"`
	Questions        int     `yaml:"questions"`
	SummarySentences int     `yaml:"summary_sentences"`
	APIKey           string  `yaml:"-"`
}

// PipelineConfig tunes batch processing.
type PipelineConfig struct {
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// StoreConfig selects the session store backend.
type StoreConfig struct {
	Kind       string        `yaml:"kind"` // memory | sqlite | redis
	Session    string        `yaml:"session"`
	DBPath     string        `yaml:"db_path"`
	RedisAddr  string        `yaml:"redis_addr"`
	RedisDB    int           `yaml:"redis_db"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxURLs         int           `yaml:"max_urls"`
}

const (
	DefaultSession     = "default"
	DefaultDBName      = "article-analyzer.db"
	minContentMaxToken = 2000
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Fetch: FetchConfig{
			Timeout:   30 * time.Second,
			UserAgent: "article-analyzer/1.0 (+https://github.com/dtnitsch/article-analyzer)",
			RateLimit: 2,
			CacheTTL:  24 * time.Hour,
			MaxBytes:  5 << 20,
		},
		Analyzer: AnalyzerConfig{
			Kind:             "local",
			Model:            "claude-sonnet-4-20250514",
			MaxTokens:        2000,
			Temperature:      0.2,
			ContentMaxTokens: 6000,
			RateLimit:        1,
			KeyTerms:         5,
			Questions:        5,
			SummarySentences: 3,
		},
		Pipeline: PipelineConfig{
			SettleDelay: 250 * time.Millisecond,
		},
		Store: StoreConfig{
			Kind:       "sqlite",
			Session:    DefaultSession,
			DBPath:     DefaultDBName,
			RedisAddr:  "localhost:6379",
			SessionTTL: 24 * time.Hour,
		},
		Server: ServerConfig{
			Addr:            ":3001",
			ShutdownTimeout: 10 * time.Second,
			MaxURLs:         50,
		},
	}
}

// LoadConfig reads a YAML config file on top of the defaults. A missing file is not an
// error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Analyzer.Kind {
	case "local", "anthropic":
	default:
		return fmt.Errorf("unknown analyzer kind %q", c.Analyzer.Kind)
	}
	switch c.Store.Kind {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch timeout must be greater than 0")
	}
	if c.Analyzer.ContentMaxTokens < minContentMaxToken {
		c.Analyzer.ContentMaxTokens = minContentMaxToken
	}
	if c.Store.Session == "" {
		c.Store.Session = DefaultSession
	}
	return nil
}
