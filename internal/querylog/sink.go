// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package querylog records every executed query without ever slowing down or
// failing the query path. Entries are handed to a buffered sink that writes them
// as JSON lines in the background; when the buffer is full the entry is dropped.
package querylog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"panelq/cli/internal/metrics"
)

// Entry is one executed query.
type Entry struct {
	ID              string            `json:"id"`
	BatchID         string            `json:"batch_id,omitempty"`
	DatasetID       int64             `json:"dataset_id"`
	Query           string            `json:"query"`
	ExecutedAt      time.Time         `json:"executed_at"`
	ExecutionMillis int64             `json:"execution_time_ms"`
	RowCount        int               `json:"row_count"`
	Success         bool              `json:"success"`
	Error           string            `json:"error,omitempty"`
	ErrorKind       string            `json:"error_kind,omitempty"`
	ClientInfo      map[string]string `json:"client_info,omitempty"`
}

// Sink receives entries. Record must not block and must not fail.
type Sink interface {
	Record(Entry)
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(Entry) {}

// AsyncSink buffers entries on a channel and writes them from one goroutine.
type AsyncSink struct {
	w       io.Writer
	log     *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	ch     chan Entry
	closed bool
	done   chan struct{}
}

// DefaultBuffer is the channel capacity used when buffer is not positive.
const DefaultBuffer = 256

// NewAsyncSink starts the writer goroutine. w may be nil to only emit debug log
// lines. buffer is the channel capacity; an unbuffered sink would drop nearly
// every entry, so values below 1 fall back to DefaultBuffer.
func NewAsyncSink(w io.Writer, buffer int, log *slog.Logger, m *metrics.Metrics) *AsyncSink {
	if log == nil {
		log = slog.Default()
	}
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	s := &AsyncSink{
		w:       w,
		log:     log,
		metrics: m,
		ch:      make(chan Entry, buffer),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Record enqueues e, dropping it when the buffer is full or the sink is closed.
func (s *AsyncSink) Record(e Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.ExecutedAt.IsZero() {
		e.ExecutedAt = time.Now().UTC()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.metrics.LogDropped()
		return
	}
	select {
	case s.ch <- e:
	default:
		s.metrics.LogDropped()
	}
}

func (s *AsyncSink) run() {
	defer close(s.done)
	var enc *json.Encoder
	if s.w != nil {
		enc = json.NewEncoder(s.w)
	}
	for e := range s.ch {
		s.log.Debug("query logged",
			"dataset_id", e.DatasetID, "success", e.Success,
			"rows", e.RowCount, "ms", e.ExecutionMillis)
		if enc == nil {
			continue
		}
		if err := enc.Encode(e); err != nil {
			s.log.Warn("query log write failed", "error", err)
		}
	}
}

// Close stops accepting entries and waits for the buffer to drain or ctx to end.
func (s *AsyncSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
