// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pterm/pterm"
)

// Options selects the logger output.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Writer io.Writer
}

// New builds the process logger. Text output goes through pterm so log lines match
// the rest of the terminal UI; json output is meant for piping.
func New(opts Options) *slog.Logger {
	level := ParseLevel(opts.Level)
	if strings.EqualFold(opts.Format, "json") {
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}

	pl := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)
	if opts.Writer != nil {
		pl = pl.WithWriter(opts.Writer)
	}
	return slog.New(&levelFilter{Handler: pterm.NewSlogHandler(pl), level: level})
}

// ParseLevel maps a level name to an slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// levelFilter gates records by level before they reach the pterm handler.
type levelFilter struct {
	slog.Handler
	level slog.Level
}

func (h *levelFilter) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level }

func (h *levelFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelFilter{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h *levelFilter) WithGroup(name string) slog.Handler {
	return &levelFilter{Handler: h.Handler.WithGroup(name), level: h.level}
}
