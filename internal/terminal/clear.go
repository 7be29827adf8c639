// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package terminal holds small helpers for interactive terminal use: detecting a
// TTY and erasing prompt lines that echoed sensitive input.
package terminal

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const defaultWidth = 80

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of f, or 80 when it cannot be determined.
func Width(f *os.File) int {
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		return w
	}
	return defaultWidth
}

// LinesFor returns how many terminal rows textLength characters occupy at the
// given width, plus the empty row left by the user pressing Enter.
func LinesFor(textLength, width int) int {
	if width <= 0 {
		width = defaultWidth
	}
	lines := (textLength + width - 1) / width
	if lines < 1 {
		lines = 1
	}
	return lines + 1
}

// ClearPreviousLines erases the rows used by a prompt plus its echoed answer.
func ClearPreviousLines(w io.Writer, textLength, width int) {
	n := LinesFor(textLength, width)
	for i := 0; i < n; i++ {
		fmt.Fprint(w, "\r\x1b[2K")
		if i < n-1 {
			fmt.Fprint(w, "\x1b[1A")
		}
	}
}
