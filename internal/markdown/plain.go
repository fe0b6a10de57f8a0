// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import "strings"

// Plain shows text without formatting. Used when output is piped.
type Plain struct{}

// Render returns text with control sequences removed.
func (Plain) Render(text string) (string, error) {
	return StripControl(text), nil
}

// Literal returns text with control sequences removed.
func (Plain) Literal(text string) string {
	return StripControl(text)
}

// =============================================================================
// SELECTION
// =============================================================================

// Formatter is satisfied by every formatter in this package.
type Formatter interface {
	Render(text string) (string, error)
	Literal(text string) string
}

// ForTheme picks the formatter for an output. Non-terminal output gets
// Plain; otherwise the theme selects the glamour style. A glamour failure
// falls back to Plain.
func ForTheme(theme string, width int, tty bool) Formatter {
	if !tty {
		return Plain{}
	}
	t, err := NewTerminal(StyleForTheme(theme), width)
	if err != nil {
		return Plain{}
	}
	return t
}

// StyleForTheme maps a UI theme name to a glamour style.
func StyleForTheme(theme string) string {
	switch strings.ToLower(theme) {
	case "light":
		return StyleLight
	case "none", "notty", "plain":
		return StyleNoTTY
	default:
		return StyleDark
	}
}
