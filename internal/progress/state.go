// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package progress

import (
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Status is the display state of one query.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusDone
	StatusFailed
)

type entry struct {
	label     string
	datasetID int64
	status    Status
	rows      int
	kind      string
	elapsed   time.Duration
}

// State tracks every query of the batch being displayed.
type State struct {
	mu      sync.Mutex
	total   int
	entries map[int]*entry
}

// NewState creates an empty State.
func NewState() *State {
	return &State{entries: make(map[int]*entry)}
}

// Apply folds ev into the state.
func (s *State) Apply(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.Total > s.total {
		s.total = ev.Total
	}
	e, ok := s.entries[ev.Index]
	if !ok {
		e = &entry{}
		s.entries[ev.Index] = e
	}
	e.label = ev.Label
	e.datasetID = ev.DatasetID
	switch ev.Type {
	case EventStarted:
		e.status = StatusRunning
	case EventFinished:
		e.elapsed = ev.Elapsed
		e.rows = ev.RowCount
		e.kind = ev.ErrorKind
		if ev.Success {
			e.status = StatusDone
		} else {
			e.status = StatusFailed
		}
	}
}

// Counts returns how many queries are running, done and failed.
func (s *State) Counts() (running, done, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		switch e.status {
		case StatusRunning:
			running++
		case StatusDone:
			done++
		case StatusFailed:
			failed++
		}
	}
	return running, done, failed
}

// Total is the batch size seen so far.
func (s *State) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Snapshot is a read-only copy of one query's state.
type Snapshot struct {
	Index     int
	Label     string
	DatasetID int64
	Status    Status
	Rows      int
	ErrorKind string
	Elapsed   time.Duration
}

// Snapshots returns every known query ordered by index.
func (s *State) Snapshots() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Snapshot, 0, len(s.entries))
	for idx, e := range s.entries {
		out = append(out, Snapshot{
			Index: idx, Label: e.label, DatasetID: e.datasetID, Status: e.status,
			Rows: e.rows, ErrorKind: e.kind, Elapsed: e.elapsed,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// lineFormatter pads lines to the widest seen so far to avoid flicker when a
// shorter line replaces a longer one.
type lineFormatter struct {
	maxLen int
}

func (f *lineFormatter) format(line string) string {
	n := utf8.RuneCountInString(line)
	if n > f.maxLen {
		f.maxLen = n
	}
	if pad := f.maxLen - n; pad > 0 {
		return line + strings.Repeat(" ", pad)
	}
	return line
}
