// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// PALETTES
// =============================================================================

// Palette is the set of colors one theme draws with.
type Palette struct {
	Accent  lipgloss.Color
	User    lipgloss.Color
	Bot     lipgloss.Color
	Error   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Border  lipgloss.Color
	Surface lipgloss.Color
}

// DarkPalette is used on dark terminal backgrounds.
var DarkPalette = Palette{
	Accent:  lipgloss.Color("#A78BFA"),
	User:    lipgloss.Color("#22D3EE"),
	Bot:     lipgloss.Color("#A78BFA"),
	Error:   lipgloss.Color("#FB7185"),
	Success: lipgloss.Color("#34D399"),
	Warning: lipgloss.Color("#FBBF24"),
	Text:    lipgloss.Color("#CDD6F4"),
	Muted:   lipgloss.Color("#6C7086"),
	Border:  lipgloss.Color("#45475A"),
	Surface: lipgloss.Color("#181825"),
}

// LightPalette is used on light terminal backgrounds.
var LightPalette = Palette{
	Accent:  lipgloss.Color("#7C3AED"),
	User:    lipgloss.Color("#0891B2"),
	Bot:     lipgloss.Color("#7C3AED"),
	Error:   lipgloss.Color("#E11D48"),
	Success: lipgloss.Color("#059669"),
	Warning: lipgloss.Color("#D97706"),
	Text:    lipgloss.Color("#1F2937"),
	Muted:   lipgloss.Color("#9CA3AF"),
	Border:  lipgloss.Color("#D4D4D4"),
	Surface: lipgloss.Color("#F5F5F5"),
}

// PaletteFor returns the palette of a resolved theme name.
func PaletteFor(name string) Palette {
	if name == ThemeLight {
		return LightPalette
	}
	return DarkPalette
}
