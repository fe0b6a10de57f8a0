// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withBackground(t *testing.T, dark bool) {
	t.Helper()
	prev := detectDark
	detectDark = func() bool { return dark }
	t.Cleanup(func() { detectDark = prev })
}

func TestResolve(t *testing.T) {
	withBackground(t, false)

	tests := []struct {
		in   string
		want string
	}{
		{"dark", ThemeDark},
		{"light", ThemeLight},
		{" Light ", ThemeLight},
		{"auto", ThemeLight},
		{"", ThemeDark},
		{"neon", ThemeDark},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Resolve(tt.in), "Resolve(%q)", tt.in)
	}
}

func TestResolveAutoDark(t *testing.T) {
	withBackground(t, true)
	assert.Equal(t, ThemeDark, Resolve(ThemeAuto))
}

func TestNewTheme(t *testing.T) {
	dark := NewTheme(ThemeDark)
	assert.True(t, dark.IsDark)
	assert.Equal(t, DarkPalette, dark.Palette)

	light := NewTheme(ThemeLight)
	assert.False(t, light.IsDark)
	assert.Equal(t, LightPalette, light.Palette)

	assert.NotEqual(t, dark.Palette.Text, light.Palette.Text)
}

func TestThemeStylesRender(t *testing.T) {
	theme := NewTheme(ThemeDark)
	for name, r := range map[string]func(...string) string{
		"Header":      theme.Header.Render,
		"UserBubble":  theme.UserBubble.Render,
		"BotBubble":   theme.BotBubble.Render,
		"ErrorText":   theme.ErrorText.Render,
		"Placeholder": theme.Placeholder.Render,
		"StatusBar":   theme.StatusBar.Render,
	} {
		assert.Contains(t, r("sample"), "sample", name)
	}
}

func TestStatusIndicators(t *testing.T) {
	theme := NewTheme(ThemeLight)

	assert.Contains(t, theme.Status(StatusSuccess, "done"), StatusIndicators.Success)
	assert.Contains(t, theme.Status(StatusError, "boom"), StatusIndicators.Error)
	assert.Contains(t, theme.Status(StatusBusy, "wait"), StatusIndicators.Busy)
	assert.True(t, strings.Contains(theme.Status(StatusInfo, "note"), "note"))
}

func TestSpinnerDuration(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, PendingSpinner.Duration())
	assert.Equal(t, time.Second, SpinnerConfig{}.Duration())
}
