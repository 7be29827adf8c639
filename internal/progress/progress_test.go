// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateApply(t *testing.T) {
	s := NewState()
	s.Apply(Event{Type: EventStarted, Index: 1, Total: 3, Label: "b", DatasetID: 2})
	s.Apply(Event{Type: EventStarted, Index: 0, Total: 3, Label: "a", DatasetID: 1})
	s.Apply(Event{Type: EventFinished, Index: 0, Total: 3, Label: "a", DatasetID: 1, Success: true, RowCount: 4})
	s.Apply(Event{Type: EventStarted, Index: 2, Total: 3, Label: "c", DatasetID: 3})
	s.Apply(Event{Type: EventFinished, Index: 2, Total: 3, Label: "c", DatasetID: 3, ErrorKind: "dataset_unavailable"})

	running, done, failed := s.Counts()
	assert.Equal(t, 1, running)
	assert.Equal(t, 1, done)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 3, s.Total())

	snaps := s.Snapshots()
	require.Len(t, snaps, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{snaps[0].Index, snaps[1].Index, snaps[2].Index})
	assert.Equal(t, 4, snaps[0].Rows)
	assert.Equal(t, StatusFailed, snaps[2].Status)
}

func TestStateConcurrentApply(t *testing.T) {
	s := NewState()
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Apply(Event{Type: EventStarted, Index: i, Total: 30})
			s.Apply(Event{Type: EventFinished, Index: i, Total: 30, Success: true})
		}(i)
	}
	wg.Wait()
	_, done, _ := s.Counts()
	assert.Equal(t, 30, done)
}

func TestRendererRender(t *testing.T) {
	pterm.DisableColor()
	defer pterm.EnableColor()

	r := NewRenderer()
	var obs Observer = r
	obs.Observe(Event{Type: EventStarted, Index: 0, Total: 2, Label: "reach", DatasetID: 7})
	obs.Observe(Event{Type: EventFinished, Index: 1, Total: 2, Label: "nccs", DatasetID: 8,
		Success: true, RowCount: 5, Elapsed: 42 * time.Millisecond})

	out := r.Render()
	assert.Contains(t, out, "Running queries 1/2")
	assert.Contains(t, out, "reach (dataset 7)")
	assert.Contains(t, out, "5 rows, 42ms")
}

func TestLineFormatterPads(t *testing.T) {
	var f lineFormatter
	assert.Equal(t, "long line", f.format("long line"))
	assert.Equal(t, "short    ", f.format("short"))
}

func TestObserverFunc(t *testing.T) {
	var got Event
	ObserverFunc(func(ev Event) { got = ev }).Observe(Event{Index: 3})
	assert.Equal(t, 3, got.Index)
}
