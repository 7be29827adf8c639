// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"panelq/cli/internal/errors"
	"panelq/cli/internal/logging"
	"panelq/cli/internal/policy"
	"panelq/cli/internal/progress"
	"panelq/cli/internal/querylog"
	"panelq/cli/internal/result"
	"panelq/cli/internal/semantics"
)

type taskOptions struct {
	batchID  string
	total    int
	weights  bool
	merge    bool
	weighted bool
}

// runTask produces the result record for one request. It never panics and
// never returns an error: every failure is recorded on the result.
func (d *Dispatcher) runTask(ctx context.Context, index int, req result.Request, opts taskOptions) (res result.QueryResult) {
	start := time.Now()
	res = result.QueryResult{
		Index:     index,
		Label:     req.LabelAt(index),
		DatasetID: req.DatasetID,
		Query:     req.SQL,
		Columns:   []string{},
		Rows:      []result.Row{},
	}

	d.metrics.QueryStarted()
	d.notify(progress.Event{Type: progress.EventStarted, BatchID: opts.batchID, Index: index,
		Total: opts.total, Label: res.Label, DatasetID: req.DatasetID})

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("query task panicked", "batch_id", opts.batchID, "query_index", index,
				"panic", r, "stack", string(debug.Stack()))
			res = d.fail(res, errors.New(errors.Internal, fmt.Sprintf("internal error: %v", r)))
		}
		res.ExecutionMillis = time.Since(start).Milliseconds()
		d.finish(res, opts, time.Since(start))
	}()

	if err := d.execute(ctx, req, &res, opts); err != nil {
		res = d.fail(res, err)
	}
	return res
}

func (d *Dispatcher) execute(ctx context.Context, req result.Request, res *result.QueryResult, opts taskOptions) error {
	sql, err := policy.Validate(req.SQL)
	if err != nil {
		return err
	}

	res.IsAggregated = policy.IsAggregated(sql)
	sql, res.LimitInjected = policy.ApplyRowCap(sql, res.IsAggregated, d.limits)
	res.Query = sql

	cred, err := d.resolver.Resolve(ctx, req.DatasetID)
	if err != nil {
		if errors.KindOf(err) == "" {
			err = errors.Wrap(errors.DatasetUnavailable, fmt.Sprintf("dataset %d", req.DatasetID), err)
		}
		return err
	}
	if !cred.Active {
		return errors.New(errors.DatasetUnavailable, fmt.Sprintf("dataset %d is inactive", req.DatasetID))
	}
	res.DatasetName = cred.Name

	out, err := d.strategy.Execute(ctx, req.DatasetID, cred.Endpoint, sql)
	if err != nil {
		if errors.KindOf(err) == "" {
			err = errors.Wrap(errors.ExecutionFailure, "", err)
		}
		return err
	}

	res.Success = true
	res.Columns = append([]string{}, out.Columns...)
	res.Rows = out.Rows
	res.RowCount = len(out.Rows)
	res.RowLimitApplied = policy.RowLimitApplied(res.IsAggregated, res.LimitInjected, res.RowCount, d.limits.Raw)

	if opts.weights {
		if col, ok := semantics.DetectWeightColumn(out.Columns); ok {
			res.WeightColumn = col
		}
	}
	if col, ok := semantics.DetectSegmentColumn(out.Columns); ok {
		res.SegmentColumn = col
		if opts.merge {
			res.Rows = semantics.MergeSegments(res.Rows, col)
		}
	}
	if opts.weights && opts.weighted {
		rows, w := semantics.ApplyWeighting(res.Rows, res.WeightColumn, nil)
		res.Rows = rows
		res.Weighting = &w
		for _, col := range w.WeightedColumns {
			res.Columns = append(res.Columns, col+semantics.WeightedSuffix)
		}
		res.Warnings = append(res.Warnings, semantics.WeightingHints(req.SQL)...)
	}
	return nil
}

func (d *Dispatcher) fail(res result.QueryResult, err error) result.QueryResult {
	res.Success = false
	res.Columns = []string{}
	res.Rows = []result.Row{}
	res.RowCount = 0
	res.Weighting = nil
	res.Error = errors.Describe(err)
	res.ErrorKind = string(errors.KindOf(err))
	if res.ErrorKind == "" {
		res.ErrorKind = string(errors.Internal)
	}
	return res
}

func (d *Dispatcher) finish(res result.QueryResult, opts taskOptions, elapsed time.Duration) {
	d.metrics.QueryFinished(res.Success, res.ErrorKind, elapsed)

	if res.Success {
		d.log.Debug("query succeeded", "batch_id", opts.batchID, "query_index", res.Index,
			"dataset_id", res.DatasetID, "rows", res.RowCount, "ms", res.ExecutionMillis)
	} else {
		d.log.Warn("query failed", "batch_id", opts.batchID, "query_index", res.Index,
			"dataset_id", res.DatasetID, "kind", res.ErrorKind, "error", logging.Mask(res.Error))
	}

	d.sink.Record(querylog.Entry{
		BatchID:         opts.batchID,
		DatasetID:       res.DatasetID,
		Query:           res.Query,
		ExecutedAt:      time.Now().UTC(),
		ExecutionMillis: res.ExecutionMillis,
		RowCount:        res.RowCount,
		Success:         res.Success,
		Error:           logging.Mask(res.Error),
		ErrorKind:       res.ErrorKind,
		ClientInfo:      d.client,
	})

	d.notify(progress.Event{Type: progress.EventFinished, BatchID: opts.batchID, Index: res.Index,
		Total: opts.total, Label: res.Label, DatasetID: res.DatasetID, Success: res.Success,
		ErrorKind: res.ErrorKind, RowCount: res.RowCount, Elapsed: elapsed})
}

func (d *Dispatcher) notify(ev progress.Event) {
	if d.observer != nil {
		d.observer.Observe(ev)
	}
}
