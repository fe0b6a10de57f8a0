// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme names.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
	ThemeAuto  = "auto"
)

// detectDark reports the terminal background. Replaced in tests.
var detectDark = termenv.HasDarkBackground

// Resolve maps a configured theme name to "dark" or "light". "auto" asks
// the terminal for its background color.
func Resolve(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ThemeLight:
		return ThemeLight
	case ThemeAuto:
		if detectDark() {
			return ThemeDark
		}
		return ThemeLight
	default:
		return ThemeDark
	}
}

// StatusKind selects how a status line message is drawn.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusError
	StatusBusy
)

// Theme holds all the styled components for the application.
type Theme struct {
	// Name is the resolved theme, "dark" or "light"
	Name    string
	IsDark  bool
	Palette Palette

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header        lipgloss.Style
	HeaderTitle   lipgloss.Style
	HeaderSession lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserLabel   lipgloss.Style
	UserBubble  lipgloss.Style
	BotLabel    lipgloss.Style
	BotBubble   lipgloss.Style
	ErrorText   lipgloss.Style
	Placeholder lipgloss.Style
	Pending     lipgloss.Style
	Notice      lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS STYLES
	// ==========================================================================

	InputPrompt  lipgloss.Style
	InputText    lipgloss.Style
	InputHint    lipgloss.Style
	StatusBar    lipgloss.Style
	StatusOK     lipgloss.Style
	StatusError  lipgloss.Style
	StatusInfo   lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
}

// NewTheme creates a theme for a configured name ("dark", "light" or
// "auto").
func NewTheme(name string) *Theme {
	resolved := Resolve(name)
	t := &Theme{
		Name:    resolved,
		IsDark:  resolved == ThemeDark,
		Palette: PaletteFor(resolved),
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	p := t.Palette

	t.Header = lipgloss.NewStyle().
		Foreground(p.Text).
		Background(p.Surface).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent).
		Background(p.Surface)
	t.HeaderSession = lipgloss.NewStyle().
		Foreground(p.Muted).
		Background(p.Surface)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(p.User)
	t.UserBubble = lipgloss.NewStyle().
		Foreground(p.Text).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(p.User).
		PaddingLeft(1)
	t.BotLabel = lipgloss.NewStyle().Bold(true).Foreground(p.Bot)
	t.BotBubble = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(p.Border)
	t.ErrorText = lipgloss.NewStyle().Bold(true).Foreground(p.Error)
	t.Placeholder = lipgloss.NewStyle().Italic(true).Foreground(p.Muted)
	t.Pending = lipgloss.NewStyle().Foreground(p.Accent)
	t.Notice = lipgloss.NewStyle().Italic(true).Foreground(p.Muted)

	t.InputPrompt = lipgloss.NewStyle().Bold(true).Foreground(p.Accent)
	t.InputText = lipgloss.NewStyle().Foreground(p.Text)
	t.InputHint = lipgloss.NewStyle().Foreground(p.Muted)

	t.StatusBar = lipgloss.NewStyle().Foreground(p.Muted)
	t.StatusOK = lipgloss.NewStyle().Foreground(p.Success)
	t.StatusError = lipgloss.NewStyle().Foreground(p.Error)
	t.StatusInfo = lipgloss.NewStyle().Foreground(p.Warning)
	t.ShortcutKey = lipgloss.NewStyle().Bold(true).Foreground(p.Accent)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(p.Muted)
}

// Status renders a status line message with its indicator.
func (t *Theme) Status(kind StatusKind, text string) string {
	switch kind {
	case StatusSuccess:
		return t.StatusOK.Render(StatusIndicators.Success + " " + text)
	case StatusError:
		return t.StatusError.Render(StatusIndicators.Error + " " + text)
	case StatusBusy:
		return t.StatusInfo.Render(StatusIndicators.Busy + " " + text)
	default:
		return t.StatusInfo.Render(StatusIndicators.Info + " " + text)
	}
}
