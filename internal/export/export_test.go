// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/docchat-tui/internal/history"
)

func sampleConversation() *Conversation {
	created := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	return &Conversation{
		ID:        "abc123",
		Title:     "Q3 report: <draft>",
		Server:    "http://127.0.0.1:8000",
		CreatedAt: created,
		UpdatedAt: created.Add(5 * time.Minute),
		Messages: []Message{
			{Role: "user", Content: "What does <b>section 2</b> say?", Timestamp: created},
			{Role: "bot", Content: "It says **revenue grew**.\n\n<script>alert(1)</script>", State: "completed", Timestamp: created.Add(time.Minute)},
			{Role: "user", Content: "And costs?", Timestamp: created.Add(2 * time.Minute)},
			{Role: "bot", Content: "Costs were", State: "errored", Timestamp: created.Add(3 * time.Minute)},
		},
	}
}

func TestHTMLExporter(t *testing.T) {
	out, err := NewHTMLExporter(DefaultOptions()).Export(sampleConversation())
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, `data-theme="dark"`)
	assert.Contains(t, page, "<title>Q3 report: &lt;draft&gt;</title>")
	assert.Equal(t, 2, strings.Count(page, `class="msg msg-user"`))
	assert.Equal(t, 2, strings.Count(page, `class="msg msg-bot"`))

	// Questions are escaped, answers rendered and sanitized
	assert.Contains(t, page, "What does &lt;b&gt;section 2&lt;/b&gt; say?")
	assert.Contains(t, page, "<strong>revenue grew</strong>")
	assert.NotContains(t, page, "<script>alert(1)</script>")
	assert.Contains(t, page, "Answer interrupted by an error.")
}

func TestHTMLExporter_LightTheme(t *testing.T) {
	opts := DefaultOptions()
	opts.Theme = "Light"
	opts.IncludeMetadata = false
	out, err := NewHTMLExporter(opts).Export(sampleConversation())
	require.NoError(t, err)
	assert.Contains(t, string(out), `data-theme="light"`)
	assert.NotContains(t, string(out), `class="header"`)
}

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(DefaultOptions()).Export(sampleConversation())
	require.NoError(t, err)
	doc := string(out)

	require.True(t, strings.HasPrefix(doc, "---\n"))
	end := strings.Index(doc[4:], "---\n")
	require.Greater(t, end, 0)

	var fm frontmatter
	require.NoError(t, yaml.Unmarshal([]byte(doc[4:4+end]), &fm))
	assert.Equal(t, "Q3 report: <draft>", fm.Title)
	assert.Equal(t, "abc123", fm.Session)
	assert.Equal(t, 4, fm.Messages)

	assert.Contains(t, doc, "# Q3 report: \\<draft>")
	assert.Contains(t, doc, "> What does <b>section 2</b> say?")
	assert.Contains(t, doc, "It says **revenue grew**.")
	assert.Contains(t, doc, "*Answer interrupted by an error.*")
	assert.Contains(t, doc, "### Assistant <sub>10:31:00</sub>")
}

func TestMarkdownExporter_NoMetadata(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeMetadata = false
	opts.IncludeTimestamps = false
	out, err := NewMarkdownExporter(opts).Export(sampleConversation())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "# "))
	assert.Contains(t, string(out), "### You\n")
}

func TestJSONExporter(t *testing.T) {
	out, err := NewJSONExporter(nil).Export(sampleConversation())
	require.NoError(t, err)

	var conv Conversation
	require.NoError(t, json.Unmarshal(out, &conv))
	assert.Equal(t, "abc123", conv.ID)
	assert.Len(t, conv.Messages, 4)
}

func TestExportErrors(t *testing.T) {
	_, err := NewHTMLExporter(nil).Export(nil)
	assert.Error(t, err)
	_, err = NewMarkdownExporter(nil).Export(&Conversation{ID: "x"})
	assert.Error(t, err)
	_, err = NewJSONExporter(nil).Export(nil)
	assert.Error(t, err)
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format string
		ext    string
	}{
		{"", ".html"},
		{"HTML", ".html"},
		{"md", ".md"},
		{"markdown", ".md"},
		{"json", ".json"},
	}
	for _, tt := range tests {
		exp, err := ForFormat(tt.format, nil)
		require.NoError(t, err)
		if got := exp.FileExtension(); got != tt.ext {
			t.Errorf("ForFormat(%q).FileExtension() = %q, want %q", tt.format, got, tt.ext)
		}
	}
	_, err := ForFormat("pdf", nil)
	assert.Error(t, err)
}

func TestExportToFile(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()

	path, err := ExportToFile(sampleConversation(), NewMarkdownExporter(opts), opts)
	require.NoError(t, err)
	assert.Equal(t, opts.OutputDir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "docchat_Q3_report-_-draft-_"))
	assert.True(t, strings.HasSuffix(path, ".md"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "revenue grew")

	opts.OutputPath = filepath.Join(opts.OutputDir, "out", "chat.html")
	path, err = ExportToFile(sampleConversation(), NewHTMLExporter(opts), opts)
	require.NoError(t, err)
	assert.Equal(t, opts.OutputPath, path)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello world", "hello_world"},
		{"a/b\\c:d", "a-b-c-d"},
		{"   ", "conversation"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
		{"bell\x07", "bell-"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFromHistory(t *testing.T) {
	now := time.Now()
	sess := &history.Session{ID: "s1", Preview: "first question", CreatedAt: now, UpdatedAt: now}
	msgs := []history.Message{
		{Role: history.RoleUser, Content: "first question", CreatedAt: now},
		{Role: history.RoleBot, Content: "answer", State: "completed", CreatedAt: now},
	}

	conv := FromHistory(sess, msgs)
	assert.Equal(t, "first question", conv.Title)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "completed", conv.Messages[1].State)
}

func TestRoleLabel(t *testing.T) {
	assert.Equal(t, "You", roleLabel("user"))
	assert.Equal(t, "Assistant", roleLabel("bot"))
	assert.Equal(t, "Unknown", roleLabel(""))
	assert.Equal(t, "System", roleLabel("SYSTEM"))
}
