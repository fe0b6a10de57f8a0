// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jeranaias/docchat-tui/internal/markdown"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML page with
// embedded CSS. Questions are escaped; answers are rendered from Markdown
// and sanitized.
type HTMLExporter struct {
	options   *Options
	formatter *markdown.HTML
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts, formatter: markdown.NewHTML()}
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(conv *Conversation) ([]byte, error) {
	if err := conv.validate(); err != nil {
		return nil, err
	}

	theme := "dark"
	if strings.EqualFold(e.options.Theme, "light") {
		theme = "light"
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString(fmt.Sprintf("<html lang=\"en\" data-theme=\"%s\">\n", theme))
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(conv.Title)))
	sb.WriteString("    <meta name=\"generator\" content=\"docchat\">\n")
	if !conv.CreatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", conv.CreatedAt.Format(time.RFC3339)))
	}
	sb.WriteString(css)
	sb.WriteString("</head>\n")
	sb.WriteString("<body>\n")
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(conv))
	}

	sb.WriteString("        <main id=\"chat-box\">\n")
	for i := range conv.Messages {
		sb.WriteString(e.renderMessage(&conv.Messages[i]))
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Exported from <strong>docchat</strong> on %s</p>\n",
		time.Now().Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// renderHeader renders the session header.
func (e *HTMLExporter) renderHeader(conv *Conversation) string {
	var sb strings.Builder

	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", html.EscapeString(conv.Title)))
	sb.WriteString("            <div class=\"metadata\">\n")
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Session:</strong> %s</span>\n", html.EscapeString(conv.ID)))
	if conv.Server != "" {
		sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Server:</strong> %s</span>\n", html.EscapeString(conv.Server)))
	}
	if !conv.CreatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(conv.CreatedAt)))
	}
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(conv.Messages)))
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")

	return sb.String()
}

// renderMessage renders one msg block.
func (e *HTMLExporter) renderMessage(msg *Message) string {
	var sb strings.Builder

	sender := "bot"
	if msg.Role == "user" {
		sender = "user"
	}
	sb.WriteString(fmt.Sprintf("            <div class=\"msg msg-%s\">\n", sender))

	if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
		sb.WriteString(fmt.Sprintf("                <div class=\"msg-meta\">%s <span class=\"timestamp\">%s</span></div>\n",
			roleLabel(msg.Role), formatShortTimestamp(msg.Timestamp)))
	}

	sb.WriteString("                <div class=\"msg-content\">")
	sb.WriteString(e.renderContent(msg))
	sb.WriteString("</div>\n")

	if note := stateNote(msg.State); note != "" {
		sb.WriteString(fmt.Sprintf("                <div class=\"msg-error\">%s</div>\n", html.EscapeString(note)))
	}

	sb.WriteString("            </div>\n")
	return sb.String()
}

// renderContent escapes questions and renders answers.
func (e *HTMLExporter) renderContent(msg *Message) string {
	if msg.Role == "user" {
		return strings.ReplaceAll(e.formatter.Literal(msg.Content), "\n", "<br>")
	}
	if strings.TrimSpace(msg.Content) == "" {
		return "<p class=\"placeholder\">(no answer)</p>"
	}
	out, err := e.formatter.Render(msg.Content)
	if err != nil {
		return "<pre>" + e.formatter.Literal(msg.Content) + "</pre>"
	}
	return out
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const css = `    <style>
        :root {
            --bg: #0f1115; --panel: #181b22; --text: #e6e6e6; --muted: #8a8f98;
            --user: #2b5cab; --bot: #222733; --border: #2c313c; --code: #11141a;
            --error: #ff6b6b;
        }
        [data-theme="light"] {
            --bg: #f5f6f8; --panel: #ffffff; --text: #1d1f23; --muted: #6b7079;
            --user: #dbe7ff; --bot: #ffffff; --border: #d9dce1; --code: #f0f1f3;
            --error: #c0392b;
        }
        * { box-sizing: border-box; }
        body {
            margin: 0; background: var(--bg); color: var(--text);
            font: 15px/1.6 -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
        }
        .container { max-width: 860px; margin: 0 auto; padding: 24px; }
        .header { border-bottom: 1px solid var(--border); margin-bottom: 24px; }
        .header h1 { margin: 0 0 8px; font-size: 1.5em; }
        .metadata { display: flex; flex-wrap: wrap; gap: 16px; color: var(--muted); font-size: 0.9em; padding-bottom: 12px; }
        .msg { margin: 12px 0; padding: 12px 16px; border-radius: 10px; border: 1px solid var(--border); }
        .msg-user { background: var(--user); margin-left: 15%; }
        .msg-bot { background: var(--bot); margin-right: 5%; }
        .msg-meta { color: var(--muted); font-size: 0.8em; margin-bottom: 4px; }
        .msg-content p:first-child { margin-top: 0; }
        .msg-content p:last-child { margin-bottom: 0; }
        .msg-content pre { background: var(--code); padding: 12px; border-radius: 6px; overflow-x: auto; }
        .msg-content code { background: var(--code); padding: 1px 4px; border-radius: 3px; }
        .msg-content table { border-collapse: collapse; }
        .msg-content th, .msg-content td { border: 1px solid var(--border); padding: 4px 8px; }
        .msg-error { color: var(--error); font-size: 0.9em; margin-top: 6px; }
        .placeholder { color: var(--muted); font-style: italic; }
        .footer { color: var(--muted); font-size: 0.8em; text-align: center; margin-top: 32px; }
    </style>
`
