// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"panelq/cli/internal/config"
)

// Pool is a dataset connection pool as the registry sees it.
type Pool interface {
	Querier
	Close()
}

// PoolFactory opens a pool for an already canonical endpoint.
type PoolFactory func(ctx context.Context, endpoint string, cfg config.PoolConfig) (Pool, error)

// NewPgxPool opens a pgxpool sized by cfg and pings it, so an unreachable dataset
// fails here instead of on first query.
func NewPgxPool(ctx context.Context, endpoint string, cfg config.PoolConfig) (Pool, error) {
	pc, err := pgxpool.ParseConfig(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	pc.MinConns = cfg.MinConns
	pc.MaxConns = cfg.MaxConns
	pc.MaxConnIdleTime = cfg.IdleTimeout
	applyConnConfig(pc.ConnConfig, cfg)

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func applyConnConfig(cc *pgx.ConnConfig, cfg config.PoolConfig) {
	cc.ConnectTimeout = cfg.ConnectTimeout
	if cc.RuntimeParams == nil {
		cc.RuntimeParams = map[string]string{}
	}
	for k, v := range sessionParams(cfg.CommandTimeout) {
		cc.RuntimeParams[k] = v
	}
}
