// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"strings"

	"github.com/jeranaias/docchat-tui/internal/history"
	"github.com/jeranaias/docchat-tui/internal/render"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

// =============================================================================
// BLOCKS
// =============================================================================

type blockKind int

const (
	kindUser blockKind = iota
	kindBot
	kindNotice
)

// block is one entry of the message list. A bot block is the display
// target of one answer.
type block struct {
	kind blockKind
	// raw is the source text once known, used to re-render after a theme
	// change
	raw         string
	markup      string
	errMarkup   string
	pending     bool
	placeholder bool
	live        bool

	owner *transcript
}

func (b *block) ShowPending() {
	b.pending = true
	b.placeholder = false
	b.markup = ""
	b.owner.changed = true
}

func (b *block) SetContent(markup string) {
	b.pending = false
	b.placeholder = false
	b.markup = markup
	b.owner.changed = true
}

func (b *block) ShowPlaceholder() {
	b.pending = false
	b.placeholder = true
	b.markup = ""
	b.owner.changed = true
}

func (b *block) AppendError(markup string) {
	b.pending = false
	if b.errMarkup != "" {
		b.errMarkup += "\n"
	}
	b.errMarkup += markup
	b.owner.changed = true
}

func (b *block) ScrollToLatest() {
	b.owner.follow = true
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// transcript is the chat screen's message list.
type transcript struct {
	blocks []*block
	// changed is set whenever a block was modified
	changed bool
	// follow asks the viewport to scroll to the bottom
	follow bool
}

// AppendUser adds a user message.
func (t *transcript) AppendUser(markup string) {
	t.blocks = append(t.blocks, &block{kind: kindUser, markup: markup, owner: t})
	t.changed = true
	t.follow = true
}

// AppendBot adds an empty answer and returns it as a display target.
func (t *transcript) AppendBot() render.Target {
	b := &block{kind: kindBot, live: true, owner: t}
	t.blocks = append(t.blocks, b)
	t.changed = true
	t.follow = true
	return b
}

// Notice adds an informational line that is not part of the conversation.
func (t *transcript) Notice(text string) {
	t.blocks = append(t.blocks, &block{kind: kindNotice, raw: text, owner: t})
	t.changed = true
	t.follow = true
}

// Clear removes everything.
func (t *transcript) Clear() {
	t.blocks = nil
	t.changed = true
	t.follow = true
}

// Load replaces the transcript with recorded messages.
func (t *transcript) Load(msgs []history.Message, f render.Formatter) {
	t.Clear()
	for _, m := range msgs {
		switch m.Role {
		case history.RoleUser:
			t.blocks = append(t.blocks, &block{kind: kindUser, raw: m.Content, markup: f.Literal(m.Content), owner: t})
		default:
			b := &block{kind: kindBot, raw: m.Content, owner: t}
			b.fill(f)
			if m.State == render.StateErrored.String() {
				b.errMarkup = f.Literal("Error: answer was interrupted")
			}
			t.blocks = append(t.blocks, b)
		}
	}
}

// Restyle re-renders every finished block with f.
func (t *transcript) Restyle(f render.Formatter) {
	for _, b := range t.blocks {
		if b.live {
			continue
		}
		switch b.kind {
		case kindUser:
			if b.raw != "" {
				b.markup = f.Literal(b.raw)
			}
		case kindBot:
			if b.raw != "" {
				b.fill(f)
			}
		}
	}
	t.changed = true
}

// fill renders raw into the block.
func (b *block) fill(f render.Formatter) {
	if b.raw == "" {
		b.placeholder = true
		return
	}
	markup, err := f.Render(b.raw)
	if err != nil {
		markup = f.Literal(b.raw)
	}
	b.markup = markup
}

// lastAnswer returns the source text of the most recent answer.
func (t *transcript) lastAnswer() string {
	for i := len(t.blocks) - 1; i >= 0; i-- {
		if b := t.blocks[i]; b.kind == kindBot && b.raw != "" {
			return b.raw
		}
	}
	return ""
}

// Render draws the transcript for a viewport of the given width.
func (t *transcript) Render(theme *styles.Theme, width int, spinner string) string {
	if len(t.blocks) == 0 {
		return theme.Notice.Render("Ask a question about your documents. Type /help for commands.")
	}

	inner := width - 2
	if inner < 10 {
		inner = 10
	}

	parts := make([]string, 0, len(t.blocks))
	for _, b := range t.blocks {
		switch b.kind {
		case kindUser:
			parts = append(parts, theme.UserLabel.Render("You")+"\n"+
				theme.UserBubble.Width(inner).Render(b.markup))
		case kindBot:
			parts = append(parts, theme.BotLabel.Render("Assistant")+"\n"+
				theme.BotBubble.Render(b.body(theme, spinner)))
		default:
			parts = append(parts, theme.Notice.Width(inner).Render(b.raw))
		}
	}
	return strings.Join(parts, "\n\n")
}

// body is the content of a bot block.
func (b *block) body(theme *styles.Theme, spinner string) string {
	var sb strings.Builder
	switch {
	case b.pending:
		sb.WriteString(theme.Pending.Render(spinner + " " + render.PendingText))
	case b.placeholder:
		sb.WriteString(theme.Placeholder.Render(render.PlaceholderText))
	default:
		sb.WriteString(strings.Trim(b.markup, "\n"))
	}
	if b.errMarkup != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(theme.ErrorText.Render(b.errMarkup))
	}
	return sb.String()
}
