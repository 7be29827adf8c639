// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package metrics holds the Prometheus collectors for the query engine. Collectors
// live on a private registry so tests and embedders can own their own instance;
// the CLI writes the registry to a node_exporter textfile after each command.
// All methods are safe on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the engine updates.
type Metrics struct {
	Registry *prometheus.Registry

	batches       *prometheus.CounterVec
	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	inFlight      prometheus.Gauge
	poolsCreated  prometheus.Counter
	poolFailures  prometheus.Counter
	fallbacks     prometheus.Counter
	logDropped    prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		batches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panelq_batches_total",
				Help: "Total number of batches submitted",
			},
			[]string{"outcome"},
		),
		queries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panelq_queries_total",
				Help: "Total number of queries executed, by status and error kind",
			},
			[]string{"status", "kind"},
		),
		queryDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "panelq_query_duration_seconds",
				Help:    "Query latency in seconds, including connection acquisition",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "panelq_queries_in_flight",
			Help: "Queries currently holding a concurrency slot",
		}),
		poolsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "panelq_pools_created_total",
			Help: "Dataset connection pools created",
		}),
		poolFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "panelq_pool_creation_failures_total",
			Help: "Dataset connection pools that could not be established",
		}),
		fallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "panelq_direct_fallbacks_total",
			Help: "Queries that fell back to a direct connection after pool creation failed",
		}),
		logDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "panelq_query_log_dropped_total",
			Help: "Query log entries dropped because the sink was full or closed",
		}),
	}
}

// BatchAccepted counts a batch that passed shape validation.
func (m *Metrics) BatchAccepted() {
	if m == nil {
		return
	}
	m.batches.WithLabelValues("accepted").Inc()
}

// BatchRejected counts a batch rejected with the given error kind.
func (m *Metrics) BatchRejected(kind string) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(kind).Inc()
}

// QueryStarted marks a query as holding a slot.
func (m *Metrics) QueryStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// QueryFinished releases the slot and records outcome and latency. kind is empty
// on success.
func (m *Metrics) QueryFinished(success bool, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.inFlight.Dec()
	m.queries.WithLabelValues(status, kind).Inc()
	m.queryDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

// PoolCreated counts a new dataset pool.
func (m *Metrics) PoolCreated() {
	if m == nil {
		return
	}
	m.poolsCreated.Inc()
}

// PoolCreationFailed counts a pool that could not be established.
func (m *Metrics) PoolCreationFailed() {
	if m == nil {
		return
	}
	m.poolFailures.Inc()
}

// DirectFallback counts a query rerouted to a direct connection.
func (m *Metrics) DirectFallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

// LogDropped counts a query log entry that was not recorded.
func (m *Metrics) LogDropped() {
	if m == nil {
		return
	}
	m.logDropped.Inc()
}

// WriteTextfile writes every collector to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
