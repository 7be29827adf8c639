// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package config loads CLI configuration with viper. Values come from built-in
// defaults, then an optional config.yaml in the XDG config dir (or an explicit
// path), then PANELQ_* environment variables, e.g. PANELQ_QUERY_MAX_CONCURRENT.
// Only non-secret settings are kept here; dataset endpoints go to the OS keychain
// or the environment.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"panelq/cli/internal/xdg"
)

// EnvPrefix is the environment variable prefix for every setting.
const EnvPrefix = "PANELQ"

// Execution strategies.
const (
	StrategyPooled = "pooled"
	StrategyDirect = "direct"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Query     QueryConfig     `mapstructure:"query"`
	Pool      PoolConfig      `mapstructure:"pool"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Datasets  DatasetsConfig  `mapstructure:"datasets"`
	QueryLog  QueryLogConfig  `mapstructure:"query_log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// LogConfig selects log level and output format (text or json).
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// QueryConfig bounds batches and result sizes.
type QueryConfig struct {
	MaxConcurrent          int  `mapstructure:"max_concurrent"`
	MaxBatchSize           int  `mapstructure:"max_batch_size"`
	RawRowCap              int  `mapstructure:"raw_row_cap"`
	AggregatedRowCap       int  `mapstructure:"aggregated_row_cap"`
	ComputeWeightedColumns bool `mapstructure:"compute_weighted_columns"`
}

// PoolConfig sizes the per-dataset connection pools.
type PoolConfig struct {
	MinConns       int32         `mapstructure:"min_conns"`
	MaxConns       int32         `mapstructure:"max_conns"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// ExecutionConfig picks how queries reach a dataset: pooled or direct.
type ExecutionConfig struct {
	Strategy string `mapstructure:"strategy"`
}

// DatasetsConfig locates dataset endpoints.
type DatasetsConfig struct {
	File     string `mapstructure:"file"`
	Keychain bool   `mapstructure:"keychain"`
}

// QueryLogConfig controls the fire-and-forget query log.
type QueryLogConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	File    string `mapstructure:"file"`
	Buffer  int    `mapstructure:"buffer"`
}

// MetricsConfig controls the Prometheus textfile written after each command.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Textfile string `mapstructure:"textfile"`
}

var defaults = map[string]any{
	"log.level":                      "info",
	"log.format":                     "text",
	"query.max_concurrent":           10,
	"query.max_batch_size":           30,
	"query.raw_row_cap":              5,
	"query.aggregated_row_cap":       1000,
	"query.compute_weighted_columns": false,
	"pool.min_conns":                 2,
	"pool.max_conns":                 10,
	"pool.idle_timeout":              "300s",
	"pool.command_timeout":           "60s",
	"pool.connect_timeout":           "30s",
	"execution.strategy":             StrategyPooled,
	"datasets.file":                  "",
	"datasets.keychain":              true,
	"query_log.enabled":              true,
	"query_log.file":                 "",
	"query_log.buffer":               256,
	"metrics.enabled":                false,
	"metrics.textfile":               "",
}

// Default returns the built-in configuration without reading files or env.
func Default() *Config {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	var c Config
	_ = v.Unmarshal(&c)
	return &c
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration. An explicit path must exist; otherwise config.yaml in
// the XDG config dir is used when present. Unset file settings default into
// the XDG dirs.
func Load(path string) (*Config, error) {
	v := newViper()

	configDir, err := xdg.ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if c.Datasets.File == "" {
		c.Datasets.File = filepath.Join(configDir, "datasets.yaml")
	}
	if c.QueryLog.Enabled && c.QueryLog.File == "" || c.Metrics.Enabled && c.Metrics.Textfile == "" {
		stateDir, err := xdg.StateDir()
		if err != nil {
			return nil, fmt.Errorf("resolve state dir: %w", err)
		}
		if c.QueryLog.Enabled && c.QueryLog.File == "" {
			c.QueryLog.File = filepath.Join(stateDir, "queries.jsonl")
		}
		if c.Metrics.Enabled && c.Metrics.Textfile == "" {
			c.Metrics.Textfile = filepath.Join(stateDir, "panelq.prom")
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Query.MaxConcurrent > 0, "query.max_concurrent must be positive, got %d", c.Query.MaxConcurrent)
	check(c.Query.MaxBatchSize > 0, "query.max_batch_size must be positive, got %d", c.Query.MaxBatchSize)
	check(c.Query.RawRowCap > 0, "query.raw_row_cap must be positive, got %d", c.Query.RawRowCap)
	check(c.Query.AggregatedRowCap > 0, "query.aggregated_row_cap must be positive, got %d", c.Query.AggregatedRowCap)
	check(c.Pool.MinConns >= 0, "pool.min_conns must not be negative, got %d", c.Pool.MinConns)
	check(c.Pool.MaxConns > 0, "pool.max_conns must be positive, got %d", c.Pool.MaxConns)
	check(c.Pool.MinConns <= c.Pool.MaxConns, "pool.min_conns (%d) exceeds pool.max_conns (%d)", c.Pool.MinConns, c.Pool.MaxConns)
	check(c.Pool.IdleTimeout > 0, "pool.idle_timeout must be positive")
	check(c.Pool.CommandTimeout > 0, "pool.command_timeout must be positive")
	check(c.Pool.ConnectTimeout > 0, "pool.connect_timeout must be positive")
	check(c.Execution.Strategy == StrategyPooled || c.Execution.Strategy == StrategyDirect,
		"execution.strategy must be %q or %q, got %q", StrategyPooled, StrategyDirect, c.Execution.Strategy)
	check(c.Log.Format == "text" || c.Log.Format == "json", "log.format must be text or json, got %q", c.Log.Format)
	check(c.QueryLog.Buffer > 0, "query_log.buffer must be positive, got %d", c.QueryLog.Buffer)

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
