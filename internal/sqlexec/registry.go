// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"panelq/cli/internal/config"
	"panelq/cli/internal/dsn"
	"panelq/cli/internal/errors"
	"panelq/cli/internal/metrics"
)

// ErrRegistryClosed is returned by Acquire after Close.
var ErrRegistryClosed = stderrors.New("pool registry closed")

// Registry owns one connection pool per dataset. Pools are created on first use
// and live until Evict or Close. Concurrent first use of a dataset shares one
// creation attempt and its outcome, so an unreachable dataset is dialed once.
type Registry struct {
	cfg     config.PoolConfig
	factory PoolFactory
	log     *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	pools  map[int64]Pool
	closed bool

	creating singleflight.Group
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithPoolFactory replaces the pgxpool factory.
func WithPoolFactory(f PoolFactory) RegistryOption { return func(r *Registry) { r.factory = f } }

// WithRegistryLogger sets the logger.
func WithRegistryLogger(l *slog.Logger) RegistryOption { return func(r *Registry) { r.log = l } }

// WithRegistryMetrics sets the metrics sink.
func WithRegistryMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg config.PoolConfig, opts ...RegistryOption) *Registry {
	r := &Registry{
		cfg:     cfg,
		factory: NewPgxPool,
		log:     slog.Default(),
		pools:   make(map[int64]Pool),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Acquire returns the pool of a dataset, creating it from endpoint if needed. The
// endpoint only matters on first use; later calls reuse the pool keyed by id.
// Creation failures carry errors.PoolCreationFailed.
func (r *Registry) Acquire(ctx context.Context, datasetID int64, endpoint string) (Pool, error) {
	if p, err := r.lookup(datasetID); p != nil || err != nil {
		return p, err
	}

	v, err, _ := r.creating.Do(strconv.FormatInt(datasetID, 10), func() (any, error) {
		// An earlier flight may have finished between lookup and Do.
		if p, err := r.lookup(datasetID); p != nil || err != nil {
			return p, err
		}
		return r.create(ctx, datasetID, endpoint)
	})
	if err != nil {
		return nil, err
	}
	return v.(Pool), nil
}

func (r *Registry) create(ctx context.Context, datasetID int64, endpoint string) (Pool, error) {
	p, err := r.factory(ctx, dsn.Canonical(endpoint), r.cfg)
	if err != nil {
		r.metrics.PoolCreationFailed()
		return nil, errors.Wrap(errors.PoolCreationFailed,
			fmt.Sprintf("create pool for dataset %d", datasetID), err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		p.Close()
		return nil, ErrRegistryClosed
	}
	r.pools[datasetID] = p
	r.mu.Unlock()

	r.metrics.PoolCreated()
	r.log.Debug("pool created", "dataset_id", datasetID,
		"min_conns", r.cfg.MinConns, "max_conns", r.cfg.MaxConns)
	return p, nil
}

func (r *Registry) lookup(datasetID int64) (Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	return r.pools[datasetID], nil
}

// Len returns the number of open pools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}

// Evict closes and forgets the pool of one dataset.
func (r *Registry) Evict(datasetID int64) {
	r.mu.Lock()
	p, ok := r.pools[datasetID]
	delete(r.pools, datasetID)
	r.mu.Unlock()
	if ok {
		p.Close()
	}
}

// Close closes every pool. Acquire fails afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	pools := r.pools
	r.pools = make(map[int64]Pool)
	r.closed = true
	r.mu.Unlock()

	for id, p := range pools {
		p.Close()
		r.log.Debug("pool closed", "dataset_id", id)
	}
}
