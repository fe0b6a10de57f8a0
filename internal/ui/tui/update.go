// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/docchat-tui/internal/client"
	"github.com/jeranaias/docchat-tui/internal/conversation"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		cmd, quit := m.handleKey(msg)
		if quit {
			return m, tea.Quit
		}
		cmds = append(cmds, cmd)

	case streamEventMsg:
		cmds = append(cmds, m.handleStream(msg))

	case uploadDoneMsg:
		cmds = append(cmds, m.handleUploadDone(msg))

	case clipboardMsg:
		if msg.err != nil {
			cmds = append(cmds, m.setStatus(styles.StatusError, "Copy failed: "+msg.err.Error()))
		} else {
			cmds = append(cmds, m.setStatus(styles.StatusSuccess, "Answer copied"))
		}

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}

	case configReloadedMsg:
		m.applyConfig(msg.cfg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		m.uploadSpin, cmd = m.uploadSpin.Update(msg)
		cmds = append(cmds, cmd)
		if m.live != nil && m.live.pending {
			m.chat.changed = true
		}

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.syncViewport()
	return m, tea.Batch(cmds...)
}

// resize lays out the screen for a new terminal size.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	vh := height - chromeLines
	if vh < 1 {
		vh = 1
	}
	m.viewport.Width = width
	m.viewport.Height = vh
	m.ready = true

	m.input.Width = width - len(m.input.Prompt) - 1
	m.help.Width = width

	if w := m.wrapWidth(); w != m.wrap {
		m.wrap = w
		m.reformat()
	}
	m.chat.changed = true
}

// syncViewport redraws the transcript when it changed.
func (m *Model) syncViewport() {
	if !m.ready || !m.chat.changed {
		return
	}
	m.viewport.SetContent(m.chat.Render(m.theme, m.viewport.Width, m.spinner.View()))
	m.chat.changed = false
	if m.chat.follow {
		m.viewport.GotoBottom()
		m.chat.follow = false
	}
}

// =============================================================================
// KEYS
// =============================================================================

// handleKey processes a key press. quit is set when the program should
// exit.
func (m *Model) handleKey(msg tea.KeyMsg) (cmd tea.Cmd, quit bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.ctrl != nil {
			m.ctrl.Close()
		}
		return nil, true

	case key.Matches(msg, m.keys.Submit):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return nil, false
		}
		m.input.Reset()
		return m.submit(text)

	case key.Matches(msg, m.keys.Cancel):
		if m.ctrl != nil && m.ctrl.Cancel() {
			return m.setStatus(styles.StatusBusy, "Canceling..."), false
		}
		m.input.Reset()
		return nil, false

	case key.Matches(msg, m.keys.NewChat):
		return m.newChat(), false

	case key.Matches(msg, m.keys.ToggleTheme):
		return m.toggleTheme(), false

	case key.Matches(msg, m.keys.CopyAnswer):
		return m.copyAnswer(), false

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return nil, false

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return nil, false

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return nil, false
	}

	m.input, cmd = m.input.Update(msg)
	return cmd, false
}

// submit runs a slash command or sends a message.
func (m *Model) submit(text string) (tea.Cmd, bool) {
	if strings.HasPrefix(text, "/") {
		return m.runCommand(text)
	}
	return m.send(text), false
}

// send starts an exchange. A previous one still streaming is superseded.
func (m *Model) send(text string) tea.Cmd {
	if m.ctrl == nil {
		return nil
	}
	m.retireLive()

	sess, err := m.ctrl.Begin(text, m.chat)
	if err != nil {
		return m.setStatus(styles.StatusError, err.Error())
	}
	m.live = m.chat.blocks[len(m.chat.blocks)-1]
	m.liveSess = sess
	m.status = ""
	return waitForEvent(sess, text, m.ctrl.Start(sess, text))
}

// retireLive detaches the answer currently bound to a session.
func (m *Model) retireLive() {
	if m.live != nil && m.liveSess != nil {
		m.live.raw = m.liveSess.Text()
		m.live.live = false
	}
	m.live = nil
	m.liveSess = nil
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

// handleStream applies one transport event. Events of a session that is no
// longer current are dropped.
func (m *Model) handleStream(msg streamEventMsg) tea.Cmd {
	if msg.sess != m.liveSess {
		return nil
	}

	ev := msg.event
	if msg.closed {
		ev = client.StreamEvent{Kind: client.EventError, Err: client.ErrCanceled}
	}

	done, err := m.ctrl.Apply(msg.sess, msg.text, ev)
	if !done {
		return tea.Batch(waitForEvent(msg.sess, msg.text, msg.events), m.titleCmd())
	}

	m.retireLive()
	var status tea.Cmd
	switch {
	case err == nil:
		if m.statusKind == styles.StatusBusy && !m.uploading {
			m.status = ""
		}
	case client.IsCanceled(err):
		status = m.setStatus(styles.StatusInfo, "Answer canceled")
	default:
		log.Warn().Err(err).Msg("answer failed")
		status = m.setStatus(styles.StatusError, err.Error())
	}
	return tea.Batch(status, m.titleCmd())
}

// =============================================================================
// ACTIONS
// =============================================================================

// newChat forgets the session so the next message starts a new one.
func (m *Model) newChat() tea.Cmd {
	if m.ctrl == nil {
		return nil
	}
	m.retireLive()
	m.ctrl.NewChat()
	m.chat.Clear()
	return tea.Batch(m.setStatus(styles.StatusInfo, "New chat"), m.titleCmd())
}

// copyAnswer puts the last answer on the clipboard.
func (m *Model) copyAnswer() tea.Cmd {
	text := m.chat.lastAnswer()
	if m.liveSess != nil {
		if live := m.liveSess.Text(); live != "" {
			text = live
		}
	}
	if text == "" {
		return m.setStatus(styles.StatusInfo, "Nothing to copy")
	}
	write := m.copyText
	return func() tea.Msg {
		return clipboardMsg{err: write(text)}
	}
}

// upload sends files for indexing in the background.
func (m *Model) upload(paths []string) tea.Cmd {
	if len(paths) == 0 {
		return m.setStatus(styles.StatusError, conversation.ErrNoFiles.Error())
	}
	if m.uploading {
		return m.setStatus(styles.StatusError, "An upload is already running")
	}
	m.uploading = true
	ctrl := m.ctrl
	return tea.Batch(
		m.setStatus(styles.StatusBusy, conversation.UploadingStatus(len(paths))),
		func() tea.Msg {
			st := &statusLog{}
			err := ctrl.Upload(context.Background(), paths, st)
			return uploadDoneMsg{status: st, err: err}
		},
	)
}

// uploadURL asks the server to index a web page in the background.
func (m *Model) uploadURL(url string) tea.Cmd {
	if strings.TrimSpace(url) == "" {
		return m.setStatus(styles.StatusError, conversation.ErrEmptyURL.Error())
	}
	if m.uploading {
		return m.setStatus(styles.StatusError, "An upload is already running")
	}
	m.uploading = true
	ctrl := m.ctrl
	return tea.Batch(
		m.setStatus(styles.StatusBusy, conversation.StatusScanningURL),
		func() tea.Msg {
			st := &statusLog{}
			err := ctrl.UploadURL(context.Background(), url, st)
			return uploadDoneMsg{status: st, err: err}
		},
	)
}

func (m *Model) handleUploadDone(msg uploadDoneMsg) tea.Cmd {
	m.uploading = false

	kind := styles.StatusSuccess
	if msg.err != nil {
		kind = styles.StatusError
	}
	text := msg.status.last()
	if text == "" && msg.err != nil {
		text = msg.err.Error()
	}

	if msg.status.refreshed {
		m.chat.Notice("Documents indexed for session " + shortID(msg.status.sessionID) + ".")
	}
	return tea.Batch(m.setStatus(kind, text), m.titleCmd())
}
