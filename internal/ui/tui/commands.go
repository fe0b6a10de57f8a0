// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docchat-tui/internal/export"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
	"github.com/jeranaias/docchat-tui/internal/util"
)

// commandTimeout bounds history lookups made by slash commands.
const commandTimeout = 5 * time.Second

// recentSessions is how many sessions /resume lists.
const recentSessions = 10

// commandHandler runs a slash command. quit is set when the program should
// exit.
type commandHandler func(m *Model, args []string) (cmd tea.Cmd, quit bool)

// commandHandlers maps command names to their handler functions.
var commandHandlers = map[string]commandHandler{
	// Help & Meta
	"help": handleHelpCommand,
	"h":    handleHelpCommand,
	"?":    handleHelpCommand,
	"quit": handleQuitCommand,
	"q":    handleQuitCommand,
	"exit": handleQuitCommand,

	// Session Management
	"new":      handleNewCommand,
	"n":        handleNewCommand,
	"resume":   handleResumeCommand,
	"r":        handleResumeCommand,
	"sessions": handleResumeCommand,
	"export":   handleExportCommand,
	"e":        handleExportCommand,
	"copy":     handleCopyCommand,

	// Documents
	"upload": handleUploadCommand,
	"u":      handleUploadCommand,
	"url":    handleURLCommand,

	// Preferences
	"theme": handleThemeCommand,
}

// helpText lists the slash commands.
const helpText = `Commands:
  /upload <paths...>   index local files
  /url <url>           index a web page
  /new                 start a new chat
  /resume [id]         list recent sessions, or switch to one
  /export [html|md|json]  save this conversation
  /theme [dark|light|auto]  switch theme (no argument toggles)
  /copy                copy the last answer
  /quit                exit`

// runCommand dispatches a line starting with "/".
func (m *Model) runCommand(line string) (tea.Cmd, bool) {
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return m.setStatus(styles.StatusError, "Empty command. Type /help for commands"), false
	}
	name := strings.ToLower(fields[0])
	handler, ok := commandHandlers[name]
	if !ok {
		return m.setStatus(styles.StatusError, fmt.Sprintf("Unknown command '/%s'. Type /help for commands", name)), false
	}
	return handler(m, fields[1:])
}

// =============================================================================
// HELP AND META COMMANDS
// =============================================================================

func handleHelpCommand(m *Model, _ []string) (tea.Cmd, bool) {
	m.chat.Notice(helpText + "\n\n" + m.help.FullHelpView(m.keys.FullHelp()))
	return nil, false
}

func handleQuitCommand(m *Model, _ []string) (tea.Cmd, bool) {
	if m.ctrl != nil {
		m.ctrl.Close()
	}
	return nil, true
}

func handleCopyCommand(m *Model, _ []string) (tea.Cmd, bool) {
	return m.copyAnswer(), false
}

func handleThemeCommand(m *Model, args []string) (tea.Cmd, bool) {
	if len(args) == 0 {
		return m.toggleTheme(), false
	}
	return m.changeTheme(args[0]), false
}

// =============================================================================
// SESSION COMMANDS
// =============================================================================

func handleNewCommand(m *Model, _ []string) (tea.Cmd, bool) {
	return m.newChat(), false
}

func handleResumeCommand(m *Model, args []string) (tea.Cmd, bool) {
	if m.ctrl == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if len(args) == 0 {
		return m.listSessions(ctx), false
	}

	id := args[0]
	if m.hist != nil {
		if sess, err := m.hist.Find(ctx, id); err == nil {
			id = sess.ID
		}
	}

	m.retireLive()
	msgs, err := m.ctrl.Resume(ctx, id)
	if err != nil {
		return m.setStatus(styles.StatusError, "Resume failed: "+err.Error()), false
	}
	m.chat.Load(msgs, m.ctrl.Formatter())
	if len(msgs) == 0 {
		m.chat.Notice("Resumed session " + shortID(id) + ". No local messages recorded.")
	}
	return tea.Batch(m.setStatus(styles.StatusSuccess, "Resumed session "+shortID(id)), m.titleCmd()), false
}

// listSessions shows the most recent recorded sessions.
func (m *Model) listSessions(ctx context.Context) tea.Cmd {
	if m.hist == nil {
		return m.setStatus(styles.StatusError, "History is disabled")
	}
	sessions, err := m.hist.List(ctx, recentSessions)
	if err != nil {
		return m.setStatus(styles.StatusError, err.Error())
	}
	if len(sessions) == 0 {
		m.chat.Notice("No recorded sessions.")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("Recent sessions (/resume <id>):")
	for _, s := range sessions {
		fmt.Fprintf(&sb, "\n  %-8s  %s  %s", shortID(s.ID), s.UpdatedAt.Format("Jan 02 15:04"), s.DisplayTitle())
	}
	m.chat.Notice(sb.String())
	return nil
}

func handleExportCommand(m *Model, args []string) (tea.Cmd, bool) {
	if m.ctrl == nil {
		return nil, false
	}
	if m.hist == nil {
		return m.setStatus(styles.StatusError, "History is disabled"), false
	}
	id := m.ctrl.Page().SessionID()
	if id == "" {
		return m.setStatus(styles.StatusError, "Nothing to export yet"), false
	}

	format := ""
	if len(args) > 0 {
		format = args[0]
	}
	opts := export.DefaultOptions()
	opts.Theme = m.theme.Name
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return m.setStatus(styles.StatusError, err.Error()), false
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	sess, err := m.hist.Get(ctx, id)
	if err != nil {
		return m.setStatus(styles.StatusError, "Export failed: "+err.Error()), false
	}
	msgs, err := m.hist.Messages(ctx, id)
	if err != nil {
		return m.setStatus(styles.StatusError, "Export failed: "+err.Error()), false
	}
	path, err := export.ExportToFile(export.FromHistory(sess, msgs), exporter, opts)
	if err != nil {
		return m.setStatus(styles.StatusError, err.Error()), false
	}
	return m.setStatus(styles.StatusSuccess, "Exported to "+path), false
}

// =============================================================================
// DOCUMENT COMMANDS
// =============================================================================

func handleUploadCommand(m *Model, args []string) (tea.Cmd, bool) {
	if m.ctrl == nil {
		return nil, false
	}
	paths := make([]string, 0, len(args))
	for _, a := range args {
		paths = append(paths, util.ExpandHome(a))
	}
	return m.upload(paths), false
}

func handleURLCommand(m *Model, args []string) (tea.Cmd, bool) {
	if m.ctrl == nil {
		return nil, false
	}
	return m.uploadURL(strings.Join(args, " ")), false
}
