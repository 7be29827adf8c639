// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panelq/cli/internal/config"
	"panelq/cli/internal/credentials"
	"panelq/cli/internal/errors"
	"panelq/cli/internal/progress"
	"panelq/cli/internal/querylog"
	"panelq/cli/internal/result"
	"panelq/cli/internal/sqlexec"
)

// fakeStrategy answers queries from a function and records what it saw.
type fakeStrategy struct {
	mu    sync.Mutex
	seen  []string
	eps   []string
	delay time.Duration
	fn    func(datasetID int64, sql string) (*sqlexec.Result, error)

	running atomic.Int32
	peak    atomic.Int32
}

func (f *fakeStrategy) Execute(ctx context.Context, datasetID int64, endpoint, sql string) (*sqlexec.Result, error) {
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.seen = append(f.seen, sql)
	f.eps = append(f.eps, endpoint)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fn != nil {
		return f.fn(datasetID, sql)
	}
	return rowsResult([]string{"n"}, [][]any{{int64(datasetID)}}), nil
}

func rowsResult(cols []string, vals [][]any) *sqlexec.Result {
	res := &sqlexec.Result{Columns: cols, Rows: []result.Row{}}
	for _, v := range vals {
		res.Rows = append(res.Rows, result.NewRow(cols, v))
	}
	return res
}

// recordingSink keeps every entry in memory.
type recordingSink struct {
	mu      sync.Mutex
	entries []querylog.Entry
}

func (s *recordingSink) Record(e querylog.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

func activeResolver() credentials.Resolver {
	return credentials.ResolverFunc(func(_ context.Context, id int64) (credentials.Credential, error) {
		return credentials.Credential{
			DatasetID: id,
			Name:      fmt.Sprintf("ds-%d", id),
			Endpoint:  fmt.Sprintf("postgres://u:p@db%d:5432/panel", id),
			Active:    true,
		}, nil
	})
}

func newDispatcher(t *testing.T, s sqlexec.Strategy, mutate func(*Options)) *Dispatcher {
	t.Helper()
	opts := Options{
		Query:    config.Default().Query,
		Resolver: activeResolver(),
		Strategy: s,
	}
	if mutate != nil {
		mutate(&opts)
	}
	d, err := New(opts)
	require.NoError(t, err)
	return d
}

func requests(n int) []result.Request {
	out := make([]result.Request, n)
	for i := range out {
		out[i] = result.Request{DatasetID: int64(i + 1), SQL: "SELECT COUNT(*) FROM t"}
	}
	return out
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{Query: config.Default().Query, Strategy: &fakeStrategy{}})
	assert.Error(t, err)
	_, err = New(Options{Query: config.Default().Query, Resolver: activeResolver()})
	assert.Error(t, err)
}

func TestExecuteBatchRejectsShape(t *testing.T) {
	d := newDispatcher(t, &fakeStrategy{}, nil)

	tests := []struct {
		name    string
		queries []result.Request
		kind    errors.Kind
		msg     string
	}{
		{name: "empty", queries: nil, kind: errors.EmptyBatch},
		{name: "too large", queries: requests(31), kind: errors.BatchTooLarge, msg: "31"},
		{name: "missing sql", queries: []result.Request{{DatasetID: 1, SQL: "SELECT 1"}, {DatasetID: 2}},
			kind: errors.MalformedRequest, msg: "query 2"},
		{name: "missing dataset", queries: []result.Request{{SQL: "SELECT 1"}},
			kind: errors.MalformedRequest, msg: "dataset_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := d.ExecuteBatch(context.Background(), BatchRequest{Queries: tt.queries})
			require.Error(t, err)
			assert.Nil(t, b)
			assert.Equal(t, tt.kind, errors.KindOf(err))
			assert.True(t, errors.IsBatchShape(errors.KindOf(err)))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestExecuteBatchAcceptsMaximumSize(t *testing.T) {
	d := newDispatcher(t, &fakeStrategy{}, nil)
	b, err := d.ExecuteBatch(context.Background(), BatchRequest{Queries: requests(30)})
	require.NoError(t, err)
	assert.Equal(t, 30, b.TotalQueries)
	assert.Equal(t, 30, b.Successful)
}

func TestExecuteBatchPreservesOrder(t *testing.T) {
	s := &fakeStrategy{fn: func(id int64, _ string) (*sqlexec.Result, error) {
		// Later requests finish first.
		time.Sleep(time.Duration(10-id) * 3 * time.Millisecond)
		return rowsResult([]string{"id"}, [][]any{{id}}), nil
	}}
	d := newDispatcher(t, s, nil)

	b, err := d.ExecuteBatch(context.Background(), BatchRequest{Queries: requests(8)})
	require.NoError(t, err)
	require.Len(t, b.Results, 8)
	for i, r := range b.Results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, int64(i+1), r.DatasetID)
		assert.Equal(t, fmt.Sprintf("Query %d", i+1), r.Label)
		assert.Equal(t, fmt.Sprintf("ds-%d", i+1), r.DatasetName)
	}
	assert.NotEmpty(t, b.ID)
}

func TestExecuteBatchIsolatesFailures(t *testing.T) {
	resolver := credentials.ResolverFunc(func(ctx context.Context, id int64) (credentials.Credential, error) {
		if id == 2 {
			return credentials.Credential{}, errors.New(errors.DatasetUnavailable, "dataset 2 not found or has no endpoint")
		}
		return activeResolver().Resolve(ctx, id)
	})
	d := newDispatcher(t, &fakeStrategy{}, func(o *Options) { o.Resolver = resolver })

	b, err := d.ExecuteBatch(context.Background(), BatchRequest{Queries: requests(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, b.TotalQueries)
	assert.Equal(t, 2, b.Successful)
	assert.Equal(t, 1, b.Failed)

	failed := b.Results[1]
	assert.False(t, failed.Success)
	assert.Equal(t, string(errors.DatasetUnavailable), failed.ErrorKind)
	assert.Equal(t, "dataset 2 not found or has no endpoint", failed.Error)
	assert.Empty(t, failed.Rows)
	assert.True(t, b.Results[0].Success)
	assert.True(t, b.Results[2].Success)
}

func TestExecuteRejectsUnsafeQueriesPerItem(t *testing.T) {
	s := &fakeStrategy{}
	d := newDispatcher(t, s, nil)

	b, err := d.ExecuteBatch(context.Background(), BatchRequest{Queries: []result.Request{
		{DatasetID: 1, SQL: "UPDATE t SET a = 1"},
		{DatasetID: 1, SQL: "SELECT updated_at FROM t"},
		{DatasetID: 1, SQL: "SELEC oops"},
		{DatasetID: 1, SQL: "SELECT 1"},
	}})
	require.NoError(t, err)
	assert.Equal(t, string(errors.DisallowedStatement), b.Results[0].ErrorKind)
	assert.Equal(t, string(errors.DangerousKeyword), b.Results[1].ErrorKind)
	assert.Equal(t, string(errors.InvalidQuery), b.Results[2].ErrorKind)
	assert.True(t, b.Results[3].Success)
	assert.Len(t, s.seen, 1, "rejected queries never reach the backend")
}

func TestRawQueryIsCapped(t *testing.T) {
	s := &fakeStrategy{fn: func(_ int64, sql string) (*sqlexec.Result, error) {
		vals := make([][]any, 5)
		for i := range vals {
			vals[i] = []any{int64(i)}
		}
		return rowsResult([]string{"id"}, vals), nil
	}}
	d := newDispatcher(t, s, nil)

	r, err := d.Execute(context.Background(), result.Request{DatasetID: 1, SQL: "SELECT id FROM users;"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM users LIMIT 5", s.seen[0])
	assert.Equal(t, "SELECT id FROM users LIMIT 5", r.Query)
	assert.True(t, r.LimitInjected)
	assert.True(t, r.RowLimitApplied)
	assert.False(t, r.IsAggregated)
	assert.Equal(t, 5, r.RowCount)
}

func TestAggregatedQueryUsesAggregatedCap(t *testing.T) {
	s := &fakeStrategy{}
	d := newDispatcher(t, s, nil)

	r, err := d.Execute(context.Background(), result.Request{DatasetID: 1, SQL: "SELECT nccs, COUNT(*) FROM t GROUP BY nccs"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(s.seen[0], " LIMIT 1000"))
	assert.True(t, r.IsAggregated)
	assert.False(t, r.RowLimitApplied)
}

func TestCallerLimitIsKept(t *testing.T) {
	s := &fakeStrategy{}
	d := newDispatcher(t, s, nil)

	r, err := d.Execute(context.Background(), result.Request{DatasetID: 1, SQL: "SELECT id FROM t LIMIT 50"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM t LIMIT 50", s.seen[0])
	assert.False(t, r.LimitInjected)
}

func TestCallerLimitAboveRawCapReturnsEveryRow(t *testing.T) {
	s := &fakeStrategy{fn: func(int64, string) (*sqlexec.Result, error) {
		vals := make([][]any, 40)
		for i := range vals {
			vals[i] = []any{int64(i)}
		}
		return rowsResult([]string{"id"}, vals), nil
	}}
	d := newDispatcher(t, s, nil)

	r, err := d.Execute(context.Background(), result.Request{DatasetID: 1, SQL: "SELECT id FROM t LIMIT 50"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM t LIMIT 50", s.seen[0])
	assert.Equal(t, "SELECT id FROM t LIMIT 50", r.Query)
	assert.False(t, r.LimitInjected)
	assert.Equal(t, 40, r.RowCount)
	assert.Len(t, r.Rows, 40, "rows are never truncated client side")
	assert.True(t, r.RowLimitApplied, "raw result above the cap is flagged")
}

func TestSemanticsAreDetectedAndMerged(t *testing.T) {
	s := &fakeStrategy{fn: func(int64, string) (*sqlexec.Result, error) {
		return rowsResult([]string{"NCCS_Class", "Panel_Weight", "n"}, [][]any{
			{"A1", 1.5, int64(10)},
			{" d ", 2.0, int64(4)},
			{nil, 1.0, int64(1)},
			{"B", 0.5, int64(3)},
		}), nil
	}}
	d := newDispatcher(t, s, nil)

	r, err := d.Execute(context.Background(), result.Request{DatasetID: 1, SQL: "SELECT nccs_class, panel_weight, COUNT(*) AS n FROM t GROUP BY 1, 2"})
	require.NoError(t, err)
	assert.Equal(t, "Panel_Weight", r.WeightColumn)
	assert.Equal(t, "NCCS_Class", r.SegmentColumn)

	segment := func(i int) any {
		v, _ := r.Rows[i].Get("NCCS_Class")
		return v.Any()
	}
	assert.Equal(t, "A", segment(0))
	assert.Equal(t, "C/D/E", segment(1))
	assert.Nil(t, segment(2))
	assert.Equal(t, "B", segment(3))
	assert.Nil(t, r.Weighting, "weighted columns are opt-in")
}

func TestSwitchesDisableWeightsAndMerge(t *testing.T) {
	s := &fakeStrategy{fn: func(int64, string) (*sqlexec.Result, error) {
		return rowsResult([]string{"nccs", "weight"}, [][]any{{"A1", 1.0}}), nil
	}}
	d := newDispatcher(t, s, nil)
	off := false

	b, err := d.ExecuteBatch(context.Background(), BatchRequest{
		Queries:           []result.Request{{DatasetID: 1, SQL: "SELECT nccs, weight FROM t"}},
		ApplyWeights:      &off,
		ApplySegmentMerge: &off,
	})
	require.NoError(t, err)
	r := b.Results[0]
	assert.Empty(t, r.WeightColumn)
	assert.Equal(t, "nccs", r.SegmentColumn)
	v, _ := r.Rows[0].Get("nccs")
	assert.Equal(t, "A1", v.Any())
}

func TestWeightedColumnsWhenEnabled(t *testing.T) {
	s := &fakeStrategy{fn: func(int64, string) (*sqlexec.Result, error) {
		return rowsResult([]string{"segment", "n", "weight"}, [][]any{
			{"x", int64(10), 2.0},
			{"y", int64(3), nil},
		}), nil
	}}
	d := newDispatcher(t, s, func(o *Options) { o.Query.ComputeWeightedColumns = true })

	r, err := d.Execute(context.Background(), result.Request{DatasetID: 1, SQL: "SELECT segment, n, weight FROM t"})
	require.NoError(t, err)
	require.NotNil(t, r.Weighting)
	assert.True(t, r.Weighting.Weighted)
	assert.Equal(t, []string{"segment", "n", "weight", "n_weighted"}, r.Columns)

	v, ok := r.Rows[0].Get("n_weighted")
	require.True(t, ok)
	assert.Equal(t, 20.0, v.Any())
	_, ok = r.Rows[1].Get("n_weighted")
	assert.False(t, ok, "rows with a null weight are left alone")
}

func TestBackendErrorTextIsVerbatim(t *testing.T) {
	s := &fakeStrategy{fn: func(int64, string) (*sqlexec.Result, error) {
		return nil, errors.Wrap(errors.ExecutionFailure, "", fmt.Errorf(`relation "nope" does not exist`))
	}}
	d := newDispatcher(t, s, nil)

	r, err := d.Execute(context.Background(), result.Request{DatasetID: 1, SQL: "SELECT * FROM nope"})
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, string(errors.ExecutionFailure), r.ErrorKind)
	assert.Equal(t, `relation "nope" does not exist`, r.Error)
}

func TestPanicBecomesFailedResult(t *testing.T) {
	s := &fakeStrategy{fn: func(id int64, _ string) (*sqlexec.Result, error) {
		if id == 1 {
			panic("boom")
		}
		return rowsResult([]string{"n"}, [][]any{{int64(1)}}), nil
	}}
	d := newDispatcher(t, s, nil)

	b, err := d.ExecuteBatch(context.Background(), BatchRequest{Queries: requests(2)})
	require.NoError(t, err)
	assert.Equal(t, string(errors.Internal), b.Results[0].ErrorKind)
	assert.True(t, b.Results[1].Success)
}

func TestConcurrencyIsBounded(t *testing.T) {
	s := &fakeStrategy{delay: 20 * time.Millisecond}
	d := newDispatcher(t, s, func(o *Options) { o.Query.MaxConcurrent = 3 })

	b, err := d.ExecuteBatch(context.Background(), BatchRequest{Queries: requests(12)})
	require.NoError(t, err)
	assert.Equal(t, 12, b.Successful)
	assert.LessOrEqual(t, s.peak.Load(), int32(3))
	assert.Greater(t, s.peak.Load(), int32(1), "queries run in parallel")
}

func TestTotalTimeIsBatchWallClock(t *testing.T) {
	s := &fakeStrategy{delay: 100 * time.Millisecond}
	d := newDispatcher(t, s, func(o *Options) { o.Query.MaxConcurrent = 3 })

	b, err := d.ExecuteBatch(context.Background(), BatchRequest{Queries: requests(3)})
	require.NoError(t, err)
	require.Equal(t, 3, b.Successful)

	var sum int64
	for _, r := range b.Results {
		sum += r.ExecutionMillis
	}
	assert.GreaterOrEqual(t, sum, int64(300))
	assert.GreaterOrEqual(t, b.TotalExecutionMillis, int64(100))
	assert.Less(t, b.TotalExecutionMillis, int64(250), "parallel queries overlap, total is not their sum")
}

func TestLogAndProgressAreRecorded(t *testing.T) {
	sink := &recordingSink{}
	var mu sync.Mutex
	var events []progress.Event
	obs := progress.ObserverFunc(func(ev progress.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	})
	d := newDispatcher(t, &fakeStrategy{}, func(o *Options) {
		o.Sink = sink
		o.Observer = obs
		o.ClientInfo = map[string]string{"tool": "test"}
	})

	b, err := d.ExecuteBatch(context.Background(), BatchRequest{Queries: requests(2)})
	require.NoError(t, err)

	require.Len(t, sink.entries, 2)
	for _, e := range sink.entries {
		assert.Equal(t, b.ID, e.BatchID)
		assert.True(t, e.Success)
		assert.Equal(t, "test", e.ClientInfo["tool"])
	}
	assert.Len(t, events, 4)
}

func TestEndpointReachesStrategyUnchanged(t *testing.T) {
	s := &fakeStrategy{}
	d := newDispatcher(t, s, nil)

	_, err := d.Execute(context.Background(), result.Request{DatasetID: 4, SQL: "SELECT 1"})
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db4:5432/panel", s.eps[0])
}

// erroringPool fails every query; it only exists to observe pool creation.
type erroringPool struct{}

func (erroringPool) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, fmt.Errorf("no backend in tests")
}
func (erroringPool) Close() {}

func TestLegacySchemeReachesPoolLayerNormalized(t *testing.T) {
	var mu sync.Mutex
	var endpoints []string
	factory := func(_ context.Context, endpoint string, _ config.PoolConfig) (sqlexec.Pool, error) {
		mu.Lock()
		defer mu.Unlock()
		endpoints = append(endpoints, endpoint)
		return erroringPool{}, nil
	}
	cfg := config.Default()
	registry := sqlexec.NewRegistry(cfg.Pool, sqlexec.WithPoolFactory(factory))
	defer registry.Close()
	strategy, err := sqlexec.NewStrategy(cfg, registry, nil, nil)
	require.NoError(t, err)

	resolver := credentials.ResolverFunc(func(_ context.Context, id int64) (credentials.Credential, error) {
		scheme := "postgres://"
		if id == 2 {
			scheme = "postgresql://"
		}
		return credentials.Credential{DatasetID: id, Endpoint: scheme + "u:p@h:5432/db", Active: true}, nil
	})
	d := newDispatcher(t, strategy, func(o *Options) { o.Resolver = resolver })

	_, err = d.ExecuteBatch(context.Background(), BatchRequest{Queries: requests(2)})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"postgresql://u:p@h:5432/db", "postgresql://u:p@h:5432/db"}, endpoints)
}
