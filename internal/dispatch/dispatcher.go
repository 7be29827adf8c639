// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package dispatch runs batches of read-only queries against many datasets at
// once. A batch is checked for shape, then every query runs in its own task under
// a concurrency limit. A failing query becomes a failed result record; it never
// cancels or delays its siblings, and results come back in request order.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"panelq/cli/internal/config"
	"panelq/cli/internal/credentials"
	"panelq/cli/internal/errors"
	"panelq/cli/internal/metrics"
	"panelq/cli/internal/policy"
	"panelq/cli/internal/progress"
	"panelq/cli/internal/querylog"
	"panelq/cli/internal/result"
	"panelq/cli/internal/sqlexec"
)

// BatchRequest is the input to ExecuteBatch. Nil switches default to true.
type BatchRequest struct {
	Queries           []result.Request `json:"queries" yaml:"queries"`
	ApplyWeights      *bool            `json:"apply_weights,omitempty" yaml:"apply_weights,omitempty"`
	ApplySegmentMerge *bool            `json:"apply_segment_merge,omitempty" yaml:"apply_segment_merge,omitempty"`
}

// Options wires a Dispatcher. Resolver and Strategy are required.
type Options struct {
	Query    config.QueryConfig
	Resolver credentials.Resolver
	Strategy sqlexec.Strategy
	Sink     querylog.Sink
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Observer progress.Observer
	// ClientInfo is attached to every query log entry, e.g. {"tool": "run"}.
	ClientInfo map[string]string
}

// Dispatcher executes batches. It is safe for concurrent use.
type Dispatcher struct {
	cfg      config.QueryConfig
	limits   policy.Limits
	resolver credentials.Resolver
	strategy sqlexec.Strategy
	sink     querylog.Sink
	log      *slog.Logger
	metrics  *metrics.Metrics
	observer progress.Observer
	client   map[string]string
}

// New validates opts and returns a Dispatcher.
func New(opts Options) (*Dispatcher, error) {
	if opts.Resolver == nil {
		return nil, fmt.Errorf("dispatch: resolver is required")
	}
	if opts.Strategy == nil {
		return nil, fmt.Errorf("dispatch: strategy is required")
	}
	if opts.Query.MaxConcurrent <= 0 || opts.Query.MaxBatchSize <= 0 {
		return nil, fmt.Errorf("dispatch: max_concurrent and max_batch_size must be positive")
	}
	limits := policy.DefaultLimits()
	if opts.Query.RawRowCap > 0 {
		limits.Raw = opts.Query.RawRowCap
	}
	if opts.Query.AggregatedRowCap > 0 {
		limits.Aggregated = opts.Query.AggregatedRowCap
	}

	d := &Dispatcher{
		cfg:      opts.Query,
		limits:   limits,
		resolver: opts.Resolver,
		strategy: opts.Strategy,
		sink:     opts.Sink,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		observer: opts.Observer,
		client:   opts.ClientInfo,
	}
	if d.sink == nil {
		d.sink = querylog.Nop{}
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	return d, nil
}

// Execute runs a single query as a batch of one.
func (d *Dispatcher) Execute(ctx context.Context, req result.Request) (result.QueryResult, error) {
	b, err := d.ExecuteBatch(ctx, BatchRequest{Queries: []result.Request{req}})
	if err != nil {
		return result.QueryResult{}, err
	}
	return b.Results[0], nil
}

// ExecuteBatch rejects a malformed batch as a whole, otherwise runs every query
// and returns one result per request in request order.
func (d *Dispatcher) ExecuteBatch(ctx context.Context, req BatchRequest) (*result.BatchResult, error) {
	if err := d.validateBatch(req.Queries); err != nil {
		d.metrics.BatchRejected(string(errors.KindOf(err)))
		return nil, err
	}
	d.metrics.BatchAccepted()

	batchID := uuid.NewString()
	opts := taskOptions{
		batchID:  batchID,
		total:    len(req.Queries),
		weights:  enabled(req.ApplyWeights),
		merge:    enabled(req.ApplySegmentMerge),
		weighted: d.cfg.ComputeWeightedColumns,
	}
	log := d.log.With("batch_id", batchID)
	log.Debug("batch dispatching", "queries", opts.total, "max_concurrent", d.cfg.MaxConcurrent)

	start := time.Now()
	results := make([]result.QueryResult, len(req.Queries))

	// Tasks never return an error, so one failure cannot cancel the others.
	var g errgroup.Group
	g.SetLimit(d.cfg.MaxConcurrent)
	for i, q := range req.Queries {
		g.Go(func() error {
			results[i] = d.runTask(ctx, i, q, opts)
			return nil
		})
	}
	_ = g.Wait()

	batch := result.NewBatchResult(batchID, results, time.Since(start))
	log.Info("batch completed",
		"queries", batch.TotalQueries, "successful", batch.Successful,
		"failed", batch.Failed, "ms", batch.TotalExecutionMillis)
	return batch, nil
}

func enabled(b *bool) bool { return b == nil || *b }

func (d *Dispatcher) validateBatch(queries []result.Request) error {
	if len(queries) == 0 {
		return errors.New(errors.EmptyBatch, "batch contains no queries")
	}
	if len(queries) > d.cfg.MaxBatchSize {
		return errors.New(errors.BatchTooLarge,
			fmt.Sprintf("batch has %d queries, maximum is %d", len(queries), d.cfg.MaxBatchSize))
	}
	for i, q := range queries {
		var missing []string
		if q.DatasetID == 0 {
			missing = append(missing, "dataset_id")
		}
		if strings.TrimSpace(q.SQL) == "" {
			missing = append(missing, "query")
		}
		if len(missing) > 0 {
			return errors.New(errors.MalformedRequest,
				fmt.Sprintf("query %d is missing %s", i+1, strings.Join(missing, " and ")))
		}
	}
	return nil
}
