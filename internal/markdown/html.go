// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown provides formatters for server answers.
package markdown

import (
	"bytes"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// HTML renders Markdown to sanitized HTML.
type HTML struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewHTML creates an HTML formatter with GitHub-flavoured Markdown and the
// bluemonday user-generated-content policy.
func NewHTML() *HTML {
	return &HTML{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render converts text to HTML and sanitizes the result.
func (h *HTML) Render(text string) (string, error) {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return h.policy.Sanitize(buf.String()), nil
}

// Literal escapes text so the browser shows it verbatim.
func (h *HTML) Literal(text string) string {
	return html.EscapeString(text)
}

// Sanitize cleans markup that did not come from Render.
func (h *HTML) Sanitize(markup string) string {
	return h.policy.Sanitize(markup)
}
