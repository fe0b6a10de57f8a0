// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// isTerminal reports whether w is a terminal.
func isTerminal(w interface{}) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// colorsEnabled reports whether styled output should be written to w.
// Respects NO_COLOR (https://no-color.org/) and FORCE_COLOR.
func colorsEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	return isTerminal(w)
}

// =============================================================================
// TERMINAL SIZE
// =============================================================================

const (
	// DefaultTerminalWidth is the fallback width when detection fails
	DefaultTerminalWidth = 80

	// DefaultTerminalHeight is the fallback height when detection fails
	DefaultTerminalHeight = 24

	// MinTerminalWidth is the minimum width we'll use for wrapping
	MinTerminalWidth = 40
)

// terminalSize returns the size of w, or the defaults when w is not a
// terminal.
func terminalSize(w io.Writer) (width, height int) {
	f, ok := w.(*os.File)
	if !ok {
		return DefaultTerminalWidth, DefaultTerminalHeight
	}
	width, height, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 || height <= 0 {
		return DefaultTerminalWidth, DefaultTerminalHeight
	}
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	return width, height
}

// newOutput wraps w for cursor control and window titles.
func newOutput(w io.Writer) *termenv.Output {
	profile := termenv.Ascii
	if colorsEnabled(w) {
		profile = termenv.ANSI256
	}
	return termenv.NewOutput(w, termenv.WithProfile(profile), termenv.WithTTY(isTerminal(w)))
}
