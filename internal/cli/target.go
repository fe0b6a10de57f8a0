// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/jeranaias/docchat-tui/internal/render"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
	"github.com/jeranaias/docchat-tui/internal/ui/tui"
)

// =============================================================================
// STREAM VIEW
// =============================================================================

// streamView prints a conversation to a writer.
//
// On a terminal each answer is redrawn in place as it grows. When output
// is piped only the newly appended text is written, so the result is the
// plain answer.
type streamView struct {
	out    *termenv.Output
	errOut io.Writer
	theme  *styles.Theme
	live   bool
	echo   bool
	width  int
	height int

	current *streamTarget
}

// newStreamView creates a view on out. Errors of piped output go to
// errOut. echo prints the user's messages too.
func newStreamView(out, errOut io.Writer, theme *styles.Theme, echo bool) *streamView {
	width, height := terminalSize(out)
	return &streamView{
		out:    newOutput(out),
		errOut: errOut,
		theme:  theme,
		live:   isTerminal(out),
		echo:   echo,
		width:  width,
		height: height,
	}
}

// AppendUser prints the user's message when echo is on.
func (v *streamView) AppendUser(markup string) {
	if !v.echo {
		return
	}
	fmt.Fprintln(v.out, v.theme.UserLabel.Render("You:")+" "+markup)
}

// AppendBot starts a new answer.
func (v *streamView) AppendBot() render.Target {
	v.current = &streamTarget{view: v}
	return v.current
}

// Finish writes the last answer in full and ends its line.
func (v *streamView) Finish() {
	if v.current != nil {
		v.current.finish()
	}
}

// =============================================================================
// STREAM TARGET
// =============================================================================

// streamTarget is the display region of one answer.
type streamTarget struct {
	view *streamView

	markup      string
	errMarkup   string
	pending     bool
	placeholder bool

	// printed is what piped output has written so far
	printed string
	// lines is the height of the region drawn on a terminal
	lines int
}

func (t *streamTarget) ShowPending() {
	t.pending = true
	if t.view.live {
		t.redraw(false)
	}
}

func (t *streamTarget) SetContent(markup string) {
	t.pending = false
	t.markup = markup
	if t.view.live {
		t.redraw(false)
		return
	}
	t.appendSuffix(markup)
}

func (t *streamTarget) ShowPlaceholder() {
	t.pending = false
	t.placeholder = true
	if t.view.live {
		t.redraw(false)
		return
	}
	t.appendSuffix(render.PlaceholderText)
}

func (t *streamTarget) AppendError(markup string) {
	t.pending = false
	if t.errMarkup != "" {
		t.errMarkup += "\n"
	}
	t.errMarkup += markup
	if t.view.live {
		t.redraw(false)
		return
	}
	t.endLine()
	fmt.Fprintln(t.view.errOut, markup)
}

// ScrollToLatest is a no-op: the terminal follows the cursor.
func (t *streamTarget) ScrollToLatest() {}

// appendSuffix writes the part of content not yet printed.
func (t *streamTarget) appendSuffix(content string) {
	if strings.HasPrefix(content, t.printed) {
		fmt.Fprint(t.view.out, content[len(t.printed):])
	} else {
		// Not an extension of what was printed; start over on a new line.
		t.endLine()
		fmt.Fprint(t.view.out, content)
	}
	t.printed = content
}

// endLine terminates a partially printed line.
func (t *streamTarget) endLine() {
	if t.printed != "" && !strings.HasSuffix(t.printed, "\n") {
		fmt.Fprintln(t.view.out)
		t.printed += "\n"
	}
}

// body is what the region shows.
func (t *streamTarget) body() string {
	var sb strings.Builder
	switch {
	case t.pending:
		sb.WriteString(t.view.theme.Pending.Render(render.PendingText))
	case t.placeholder:
		sb.WriteString(t.view.theme.Placeholder.Render(render.PlaceholderText))
	default:
		sb.WriteString(strings.Trim(t.markup, "\n"))
	}
	if t.errMarkup != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(t.view.theme.ErrorText.Render(t.errMarkup))
	}
	return sb.String()
}

// redraw replaces the region with the current body. While streaming only
// the lines that fit on the screen are drawn, since lines scrolled off
// cannot be cleared; final draws everything.
func (t *streamTarget) redraw(final bool) {
	text := t.body()
	if !final {
		text = tailLines(text, t.view.height-1)
	}
	if t.lines > 0 {
		t.view.out.ClearLines(t.lines)
	}
	if text == "" {
		t.lines = 0
		return
	}
	fmt.Fprint(t.view.out, text+"\n")
	t.lines = visualLines(text, t.view.width)
}

func (t *streamTarget) finish() {
	if t.view.live {
		t.redraw(true)
		return
	}
	t.endLine()
}

// tailLines keeps the last n lines of s.
func tailLines(s string, n int) string {
	if n < 1 {
		n = 1
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

// visualLines counts terminal rows s occupies at the given width.
func visualLines(s string, width int) int {
	if width <= 0 {
		width = DefaultTerminalWidth
	}
	n := 0
	for _, line := range strings.Split(s, "\n") {
		w := ansi.StringWidth(line)
		if w <= width {
			n++
			continue
		}
		n += (w + width - 1) / width
	}
	return n
}

// =============================================================================
// WINDOW TITLE
// =============================================================================

// titleChrome shows the conversation in the terminal title bar.
type titleChrome struct {
	out *termenv.Output
}

func (c titleChrome) SessionAssigned(id, title string) {
	c.out.SetWindowTitle(tui.WindowTitle(title, id))
}
