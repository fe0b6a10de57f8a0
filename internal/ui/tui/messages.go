// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docchat-tui/internal/client"
	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/render"
)

// =============================================================================
// STREAM MESSAGES
// =============================================================================

// streamEventMsg carries one transport event into the Update loop.
type streamEventMsg struct {
	sess   *render.Session
	text   string
	events <-chan client.StreamEvent
	event  client.StreamEvent
	// closed is set when the channel ended without a final event
	closed bool
}

// waitForEvent reads the next event of an exchange.
func waitForEvent(sess *render.Session, text string, events <-chan client.StreamEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		return streamEventMsg{sess: sess, text: text, events: events, event: ev, closed: !ok}
	}
}

// =============================================================================
// UPLOAD MESSAGES
// =============================================================================

// uploadDoneMsg reports a finished upload.
type uploadDoneMsg struct {
	status *statusLog
	err    error
}

// statusLog collects what an upload reported so it can be applied in
// Update.
type statusLog struct {
	statuses  []string
	refreshed bool
	sessionID string
}

func (s *statusLog) ShowStatus(text string) {
	s.statuses = append(s.statuses, text)
}

func (s *statusLog) Refresh(sessionID string) {
	s.refreshed = true
	s.sessionID = sessionID
}

// last returns the final status, or "".
func (s *statusLog) last() string {
	if len(s.statuses) == 0 {
		return ""
	}
	return s.statuses[len(s.statuses)-1]
}

// =============================================================================
// MISC MESSAGES
// =============================================================================

// clearStatusMsg clears the status line unless a newer status replaced it.
type clearStatusMsg struct {
	seq int
}

// configReloadedMsg is sent when the config file changed on disk.
type configReloadedMsg struct {
	cfg *config.Config
}

// clipboardMsg reports the result of copying an answer.
type clipboardMsg struct {
	err error
}
