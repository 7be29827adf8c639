// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package progress

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Renderer draws the batch state into a pterm area that is redrawn on a ticker
// and removed when the batch completes.
type Renderer struct {
	state *State
	lines lineFormatter

	mu    sync.Mutex
	area  *pterm.AreaPrinter
	frame int
	stop  chan struct{}
	done  chan struct{}
}

// NewRenderer creates a renderer over a fresh State.
func NewRenderer() *Renderer {
	return &Renderer{state: NewState()}
}

// Observe implements Observer.
func (r *Renderer) Observe(ev Event) { r.state.Apply(ev) }

// State exposes the tracked state.
func (r *Renderer) State() *State { return r.state }

// Start begins redrawing. It is a no-op when the area cannot be started, for
// instance when stdout is not a terminal.
func (r *Renderer) Start() {
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		return
	}
	cursor.Hide()

	r.mu.Lock()
	r.area = area
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	r.mu.Unlock()

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				r.mu.Lock()
				r.frame++
				text := r.render(r.frame)
				r.mu.Unlock()
				area.Update(text)
			}
		}
	}()
}

// Stop ends redrawing and clears the area.
func (r *Renderer) Stop() {
	r.mu.Lock()
	area, stop, done := r.area, r.stop, r.done
	r.area = nil
	r.mu.Unlock()
	if area == nil {
		return
	}
	close(stop)
	<-done
	_ = area.Stop()
	cursor.Show()
}

// Render returns the current block of status lines.
func (r *Renderer) Render() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.render(r.frame)
}

func (r *Renderer) render(frame int) string {
	_, done, failed := r.state.Counts()
	total := r.state.Total()

	var b strings.Builder
	b.WriteString(r.lines.format(fmt.Sprintf("%s Running queries %d/%d",
		frames[frame%len(frames)], done+failed, total)))
	b.WriteByte('\n')
	for _, s := range r.state.Snapshots() {
		b.WriteString(r.lines.format(statusLine(s, frame)))
		b.WriteByte('\n')
	}
	return b.String()
}

func statusLine(s Snapshot, frame int) string {
	name := fmt.Sprintf("%s (dataset %d)", s.Label, s.DatasetID)
	switch s.Status {
	case StatusRunning:
		return fmt.Sprintf(" %s %s", frames[frame%len(frames)], name)
	case StatusDone:
		return fmt.Sprintf(" %s %s %s", pterm.Green("✓"), name,
			pterm.Gray(fmt.Sprintf("%d rows, %dms", s.Rows, s.Elapsed.Milliseconds())))
	case StatusFailed:
		return fmt.Sprintf(" %s %s %s", pterm.Red("✗"), name, pterm.Gray(s.ErrorKind))
	default:
		return fmt.Sprintf("   %s", name)
	}
}
