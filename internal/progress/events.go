// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package progress carries per-query lifecycle events from the dispatcher to an
// optional observer and renders them as a live, docker-compose-like status block.
package progress

import "time"

// EventType enumerates query lifecycle events.
type EventType string

const (
	// EventStarted is sent when a query task takes a concurrency slot.
	EventStarted EventType = "query_started"
	// EventFinished is sent once the query's result record is complete.
	EventFinished EventType = "query_finished"
)

// Event describes one lifecycle step of one query in a batch.
// Only Started-relevant fields are set for EventStarted.
type Event struct {
	Type      EventType     `json:"type"`
	BatchID   string        `json:"batch_id"`
	Index     int           `json:"query_index"`
	Total     int           `json:"total"`
	Label     string        `json:"label"`
	DatasetID int64         `json:"dataset_id"`
	Success   bool          `json:"success,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"`
	RowCount  int           `json:"row_count,omitempty"`
	Elapsed   time.Duration `json:"elapsed,omitempty"`
}

// Observer receives events. Observe is called from many goroutines at once and
// must not block for long.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }
