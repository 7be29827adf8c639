// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.BatchAccepted()
	m.BatchRejected("batch_too_large")
	m.QueryStarted()
	m.QueryStarted()
	m.QueryFinished(true, "", 20*time.Millisecond)
	m.QueryFinished(false, "execution_failure", time.Second)
	m.PoolCreated()
	m.DirectFallback()

	assert.Equal(t, 1.0, value(t, m, "panelq_batches_total", "outcome", "accepted"))
	assert.Equal(t, 1.0, value(t, m, "panelq_batches_total", "outcome", "batch_too_large"))
	assert.Equal(t, 1.0, value(t, m, "panelq_queries_total", "kind", "execution_failure"))
	assert.Equal(t, 0.0, value(t, m, "panelq_queries_in_flight", "", ""))
	assert.Equal(t, 1.0, value(t, m, "panelq_pools_created_total", "", ""))
	assert.Equal(t, 1.0, value(t, m, "panelq_direct_fallbacks_total", "", ""))
}

// value returns the counter or gauge value of the first series of name whose
// label matches, or of the first series when label is empty.
func value(t *testing.T, m *Metrics, name, label, want string) float64 {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if label != "" && !hasLabel(metric.GetLabel(), label, want) {
				continue
			}
			if c := metric.GetCounter(); c != nil {
				return c.GetValue()
			}
			return metric.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s{%s=%q} not found", name, label, want)
	return 0
}

func hasLabel(pairs []*dto.LabelPair, name, value string) bool {
	for _, p := range pairs {
		if p.GetName() == name && p.GetValue() == value {
			return true
		}
	}
	return false
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.BatchAccepted()
	m.QueryStarted()
	m.QueryFinished(true, "", time.Second)
	m.LogDropped()
	assert.NoError(t, m.WriteTextfile("/nonexistent/dir/file.prom"))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.PoolCreated()

	path := filepath.Join(t.TempDir(), "panelq.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "panelq_pools_created_total 1"))
}
