// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// Glamour style names accepted by NewTerminal.
const (
	StyleDark  = "dark"
	StyleLight = "light"
	StyleNoTTY = "notty"
)

// DefaultWordWrap is the wrap width used when none is given.
const DefaultWordWrap = 80

// Terminal renders Markdown for a terminal with glamour.
type Terminal struct {
	mu       sync.Mutex
	renderer *glamour.TermRenderer
	style    string
	width    int
}

// NewTerminal creates a terminal formatter with a glamour standard style.
func NewTerminal(style string, width int) (*Terminal, error) {
	if style == "" {
		style = StyleDark
	}
	if width <= 0 {
		width = DefaultWordWrap
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}

	return &Terminal{renderer: r, style: style, width: width}, nil
}

// Style returns the glamour style in use.
func (t *Terminal) Style() string {
	return t.style
}

// Width returns the wrap width.
func (t *Terminal) Width() int {
	return t.width
}

// Render formats text. Escape sequences in the input are removed first so
// the answer cannot drive the terminal.
func (t *Terminal) Render(text string) (string, error) {
	clean := StripControl(text)

	t.mu.Lock()
	defer t.mu.Unlock()

	out, err := t.renderer.Render(clean)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}

// Literal returns text with control sequences removed and no formatting.
func (t *Terminal) Literal(text string) string {
	return StripControl(text)
}
