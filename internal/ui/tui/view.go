// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/docchat-tui/internal/ui/styles"
	"github.com/jeranaias/docchat-tui/internal/util"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the screen: header, messages, input and status bar.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.input.View(),
		m.renderStatusBar(),
	)
}

// renderHeader shows the app name and the current session.
func (m Model) renderHeader() string {
	session := "new chat"
	if m.ctrl != nil {
		page := m.ctrl.Page()
		switch {
		case page.Title() != "":
			session = util.OneLine(page.Title())
		case page.SessionID() != "":
			session = "session " + shortID(page.SessionID())
		}
	}

	name := "docchat"
	room := m.width - util.StringWidth(name) - 5
	line := m.theme.HeaderTitle.Render(name) +
		m.theme.HeaderSession.Render("  "+util.TruncateWidth(session, room))
	return m.theme.Header.Width(m.width).MaxHeight(1).Render(line)
}

// renderStatusBar shows the current status, or key help when idle.
func (m Model) renderStatusBar() string {
	var line string
	switch {
	case m.status != "":
		text := m.status
		switch {
		case m.statusKind == styles.StatusBusy && m.uploading:
			text = m.uploadSpin.View() + " " + text
		case m.statusKind == styles.StatusBusy:
			text = strings.TrimSpace(m.spinner.View()) + " " + text
		}
		line = m.theme.Status(m.statusKind, text)
	case m.showHelp:
		line = m.help.ShortHelpView(m.allBindings())
	default:
		line = m.help.ShortHelpView(m.keys.ShortHelp())
	}
	return m.theme.StatusBar.MaxWidth(m.width).MaxHeight(1).Render(line)
}

// allBindings flattens the full key map for the one-line help.
func (m Model) allBindings() []key.Binding {
	var all []key.Binding
	for _, group := range m.keys.FullHelp() {
		all = append(all, group...)
	}
	return all
}
