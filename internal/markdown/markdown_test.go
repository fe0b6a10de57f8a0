// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// HTML FORMATTER TESTS
// =============================================================================

func TestHTMLRenderBold(t *testing.T) {
	h := NewHTML()

	out, err := h.Render("Hello **world**")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>world</strong>")
}

func TestHTMLRenderNeutralizesScripts(t *testing.T) {
	h := NewHTML()

	tests := []struct {
		name  string
		input string
		bad   string
	}{
		{"script tag", "hi <script>alert(1)</script>", "<script"},
		{"event handler", `<img src="x" onerror="alert(1)">`, "onerror"},
		{"javascript link", "[click](javascript:alert(1))", "javascript:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Render(tt.input)
			require.NoError(t, err)
			assert.NotContains(t, out, tt.bad)
		})
	}
}

func TestHTMLRenderUnclosedMarker(t *testing.T) {
	h := NewHTML()

	// A bold marker that has not closed yet renders as text, not an error.
	out, err := h.Render("Hello **wor")
	require.NoError(t, err)
	assert.Contains(t, out, "wor")
	assert.NotContains(t, out, "<strong>")
}

func TestHTMLLiteralEscapes(t *testing.T) {
	h := NewHTML()

	got := h.Literal(`<b>hi</b> & "you"`)
	if got != "&lt;b&gt;hi&lt;/b&gt; &amp; &#34;you&#34;" {
		t.Errorf("Literal = %q", got)
	}
}

// =============================================================================
// TERMINAL FORMATTER TESTS
// =============================================================================

func TestTerminalRender(t *testing.T) {
	term, err := NewTerminal(StyleNoTTY, 60)
	require.NoError(t, err)

	out, err := term.Render("Hello **world**")
	require.NoError(t, err)
	assert.Contains(t, ansi.Strip(out), "world")
	assert.Equal(t, StyleNoTTY, term.Style())
	assert.Equal(t, 60, term.Width())
}

func TestTerminalRenderStripsEscapes(t *testing.T) {
	term, err := NewTerminal(StyleNoTTY, 60)
	require.NoError(t, err)

	out, err := term.Render("safe \x1b]0;pwned\x07text")
	require.NoError(t, err)
	assert.NotContains(t, out, "pwned")
	assert.NotContains(t, out, "\x07")
}

func TestTerminalDefaults(t *testing.T) {
	term, err := NewTerminal("", 0)
	require.NoError(t, err)
	assert.Equal(t, StyleDark, term.Style())
	assert.Equal(t, DefaultWordWrap, term.Width())
}

// =============================================================================
// SANITIZER TESTS
// =============================================================================

func TestStripControl(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"line1\nline2\tx", "line1\nline2\tx"},
		{"\x1b[31mred\x1b[0m", "red"},
		{"over\rwrite", "overwrite"},
		{"bell\x07", "bell"},
		{"héllo wörld", "héllo wörld"},
	}

	for _, tt := range tests {
		if got := StripControl(tt.input); got != tt.want {
			t.Errorf("StripControl(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPlain(t *testing.T) {
	var p Plain

	out, err := p.Render("**bold** \x1b[1mx")
	require.NoError(t, err)
	assert.Equal(t, "**bold** x", out)
	assert.Equal(t, "<b>", p.Literal("<b>"))
}

func TestStyleForTheme(t *testing.T) {
	tests := map[string]string{
		"dark":  StyleDark,
		"light": StyleLight,
		"LIGHT": StyleLight,
		"none":  StyleNoTTY,
		"":      StyleDark,
		"weird": StyleDark,
	}
	for theme, want := range tests {
		if got := StyleForTheme(theme); got != want {
			t.Errorf("StyleForTheme(%q) = %q, want %q", theme, got, want)
		}
	}
}

func TestForThemeNonTTY(t *testing.T) {
	f := ForTheme("dark", 80, false)
	if _, ok := f.(Plain); !ok {
		t.Errorf("ForTheme(non-tty) = %T, want Plain", f)
	}

	f = ForTheme("light", 80, true)
	term, ok := f.(*Terminal)
	require.True(t, ok)
	assert.True(t, strings.EqualFold(term.Style(), StyleLight))
}
