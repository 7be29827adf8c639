// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"panelq/cli/internal/config"
	"panelq/cli/internal/dsn"
	"panelq/cli/internal/errors"
	"panelq/cli/internal/logging"
	"panelq/cli/internal/metrics"
)

// Strategy executes one validated query against one dataset.
type Strategy interface {
	Execute(ctx context.Context, datasetID int64, endpoint, sql string) (*Result, error)
}

// Conn is a single-use connection.
type Conn interface {
	Querier
	Close(ctx context.Context) error
}

// Dialer opens a single-use connection to a canonical endpoint.
type Dialer func(ctx context.Context, endpoint string, cfg config.PoolConfig) (Conn, error)

// DialPgx opens a pgx connection with the session settings pools use.
func DialPgx(ctx context.Context, endpoint string, cfg config.PoolConfig) (Conn, error) {
	cc, err := pgx.ParseConfig(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	applyConnConfig(cc, cfg)

	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	return pgx.ConnectConfig(dialCtx, cc)
}

// DirectStrategy opens a fresh connection per query and closes it afterwards.
type DirectStrategy struct {
	cfg  config.PoolConfig
	dial Dialer
}

// NewDirectStrategy returns a DirectStrategy. A nil dial uses DialPgx.
func NewDirectStrategy(cfg config.PoolConfig, dial Dialer) *DirectStrategy {
	if dial == nil {
		dial = DialPgx
	}
	return &DirectStrategy{cfg: cfg, dial: dial}
}

// Execute implements Strategy.
func (s *DirectStrategy) Execute(ctx context.Context, datasetID int64, endpoint, sql string) (*Result, error) {
	conn, err := s.dial(ctx, dsn.Canonical(endpoint), s.cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ConnectionFailure,
			fmt.Sprintf("open connection to dataset %d", datasetID), err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	res, err := collect(ctx, conn, sql, s.cfg.CommandTimeout)
	if err != nil {
		return nil, classify(err, s.cfg.CommandTimeout)
	}
	return res, nil
}

// PooledStrategy runs queries on the dataset's pool. When the pool cannot be
// created and a fallback is set, that one query runs on a direct connection.
type PooledStrategy struct {
	registry *Registry
	fallback *DirectStrategy
	cfg      config.PoolConfig
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewPooledStrategy returns a PooledStrategy. fallback may be nil.
func NewPooledStrategy(registry *Registry, fallback *DirectStrategy, cfg config.PoolConfig, log *slog.Logger, m *metrics.Metrics) *PooledStrategy {
	if log == nil {
		log = slog.Default()
	}
	return &PooledStrategy{registry: registry, fallback: fallback, cfg: cfg, log: log, metrics: m}
}

// Execute implements Strategy.
func (s *PooledStrategy) Execute(ctx context.Context, datasetID int64, endpoint, sql string) (*Result, error) {
	pool, err := s.registry.Acquire(ctx, datasetID, endpoint)
	if err != nil {
		if s.fallback != nil && errors.Is(err, errors.PoolCreationFailed) {
			s.log.Warn("pool unavailable, using direct connection",
				"dataset_id", datasetID, "error", logging.Mask(err.Error()))
			s.metrics.DirectFallback()
			return s.fallback.Execute(ctx, datasetID, endpoint, sql)
		}
		return nil, err
	}

	res, err := collect(ctx, pool, sql, s.cfg.CommandTimeout)
	if err != nil {
		return nil, classify(err, s.cfg.CommandTimeout)
	}
	return res, nil
}

// NewStrategy builds the strategy named by cfg.Execution.Strategy. The pooled
// strategy falls back to direct connections.
func NewStrategy(cfg *config.Config, registry *Registry, log *slog.Logger, m *metrics.Metrics) (Strategy, error) {
	direct := NewDirectStrategy(cfg.Pool, nil)
	switch cfg.Execution.Strategy {
	case config.StrategyDirect:
		return direct, nil
	case config.StrategyPooled, "":
		if registry == nil {
			return nil, fmt.Errorf("pooled strategy needs a registry")
		}
		return NewPooledStrategy(registry, direct, cfg.Pool, log, m), nil
	default:
		return nil, fmt.Errorf("unknown execution strategy %q", cfg.Execution.Strategy)
	}
}
