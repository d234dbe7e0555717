// Package common holds the wiring shared by the CLI commands and the HTTP service.
package common

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dtnitsch/article-analyzer/models"
	"github.com/dtnitsch/article-analyzer/pkg/analytics"
	"github.com/dtnitsch/article-analyzer/pkg/caching"
	"github.com/dtnitsch/article-analyzer/pkg/fetcher"
	"github.com/dtnitsch/article-analyzer/pkg/llm"
	"github.com/dtnitsch/article-analyzer/pkg/metrics"
	"github.com/dtnitsch/article-analyzer/pkg/parser"
	"github.com/dtnitsch/article-analyzer/pkg/pipeline"
	"github.com/dtnitsch/article-analyzer/pkg/storage"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// GlobalFlags are accepted by every command.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path to YAML config file",
			Value:   "config.yaml",
			EnvVars: []string{"ARTICLE_ANALYZER_CONFIG"},
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Only log errors",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Log debug output",
		},
		&cli.StringFlag{
			Name:    "session",
			Usage:   "Session name results are stored under",
			EnvVars: []string{"ARTICLE_ANALYZER_SESSION"},
		},
		&cli.StringFlag{
			Name:    "store",
			Usage:   "Session store: memory, sqlite or redis",
			EnvVars: []string{"ARTICLE_ANALYZER_STORE"},
		},
		&cli.StringFlag{
			Name:    "db-path",
			Usage:   "SQLite session database path",
			EnvVars: []string{"ARTICLE_ANALYZER_DB_PATH"},
		},
		&cli.StringFlag{
			Name:    "redis-addr",
			Usage:   "Redis address for the redis store",
			EnvVars: []string{"ARTICLE_ANALYZER_REDIS_ADDR"},
		},
		&cli.StringFlag{
			Name:    "analyzer",
			Usage:   "Analysis backend: local or anthropic",
			EnvVars: []string{"ARTICLE_ANALYZER_ANALYZER"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "Anthropic API key",
			EnvVars: []string{"ANTHROPIC_API_KEY"},
		},
	}
}

// NewLogger builds the JSON stderr logger honoring --quiet and --verbose.
func NewLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	} else if c.Bool("verbose") {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// LoadConfig reads --config and applies flag overrides on top.
func LoadConfig(c *cli.Context) (*models.Config, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if c.IsSet("session") {
		cfg.Store.Session = c.String("session")
	}
	if c.IsSet("store") {
		cfg.Store.Kind = c.String("store")
	}
	if c.IsSet("db-path") {
		cfg.Store.DBPath = c.String("db-path")
	}
	if c.IsSet("redis-addr") {
		cfg.Store.RedisAddr = c.String("redis-addr")
	}
	if c.IsSet("analyzer") {
		cfg.Analyzer.Kind = c.String("analyzer")
	}
	cfg.Analyzer.APIKey = c.String("api-key")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewAnalyzer builds the analysis backend named by cfg.Kind.
func NewAnalyzer(cfg models.AnalyzerConfig, logger *slog.Logger) (pipeline.Analyzer, error) {
	switch cfg.Kind {
	case "anthropic":
		a, err := llm.NewAnthropicAnalyzer(cfg, llm.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic analyzer: %w", err)
		}
		return a, nil
	case "local", "":
		return analytics.NewLocalAnalyzer(cfg), nil
	}
	return nil, fmt.Errorf("unknown analyzer kind %q", cfg.Kind)
}

// NewPipeline wires fetcher, parser and analyzer from cfg. Metrics are always recorded.
func NewPipeline(cfg *models.Config, logger *slog.Logger, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	fetchOpts := []fetcher.Option{fetcher.WithLogger(logger)}
	if cfg.Fetch.CacheDir != "" {
		cache, err := caching.NewCache(cfg.Fetch.CacheDir, cfg.Fetch.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize fetch cache: %w", err)
		}
		fetchOpts = append(fetchOpts, fetcher.WithCache(cache))
	}

	analyzer, err := NewAnalyzer(cfg.Analyzer, logger)
	if err != nil {
		return nil, err
	}

	base := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithRecorder(metrics.Recorder{}),
		pipeline.WithSettleDelay(cfg.Pipeline.SettleDelay),
	}
	return pipeline.New(
		fetcher.NewFetcher(cfg.Fetch, fetchOpts...),
		parser.NewParser(parser.MinWords),
		analyzer,
		append(base, opts...)...,
	), nil
}

// Marshal renders v as indented JSON or as YAML.
func Marshal(v interface{}, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return data, nil
	case "json", "":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return append(data, '\n'), nil
	}
	return nil, fmt.Errorf("unknown output format %q (use json or yaml)", format)
}

// WriteOutput writes data to path, or to w when path is empty.
func WriteOutput(w io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	s := &storage.Storage{}
	if err := s.SaveFile(path, data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// FilterResultFields keeps only the comma separated JSON fields of result. An empty
// fieldsStr keeps everything.
func FilterResultFields(result interface{}, fieldsStr string) map[string]interface{} {
	fullMap := structToMap(result)
	if fieldsStr == "" {
		return fullMap
	}

	includeFields := make(map[string]bool)
	for _, field := range strings.Split(fieldsStr, ",") {
		includeFields[strings.TrimSpace(field)] = true
	}

	filtered := make(map[string]interface{})
	for key, value := range fullMap {
		if includeFields[key] {
			filtered[key] = value
		}
	}
	return filtered
}

// structToMap converts a struct to map[string]interface{} using JSON marshaling.
func structToMap(obj interface{}) map[string]interface{} {
	data, _ := json.Marshal(obj)
	var result map[string]interface{}
	_ = json.Unmarshal(data, &result)
	return result
}
