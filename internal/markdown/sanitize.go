// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown provides formatters for server answers.
package markdown

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// StripControl removes terminal escape sequences and control characters
// other than newline and tab. Carriage returns are dropped so text cannot
// overwrite what is already on the line.
func StripControl(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		case r >= 0x80 && r < 0xa0:
			// C1 controls, including single-byte CSI and OSC.
			return -1
		default:
			return r
		}
	}, s)
}
