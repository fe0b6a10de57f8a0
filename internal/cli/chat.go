// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/conversation"
	"github.com/jeranaias/docchat-tui/internal/history"
	"github.com/jeranaias/docchat-tui/internal/render"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
	"github.com/jeranaias/docchat-tui/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader reads one line of input.
type lineReader interface {
	ReadInput(prompt string) (string, error)
	Close()
}

// lineEditor provides input history and line editing for the chat REPL.
type lineEditor struct {
	line        *liner.State
	historyFile string
}

// newLineEditor creates a line editor with the saved input history.
func newLineEditor() *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	e := &lineEditor{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	e.loadHistory()
	return e
}

func (e *lineEditor) loadHistory() {
	if f, err := os.Open(e.historyFile); err == nil {
		e.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with arrow-key history navigation.
func (e *lineEditor) ReadInput(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// saveHistory writes the input history owner-only; questions can be
// sensitive.
func (e *lineEditor) saveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	e.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (e *lineEditor) Close() {
	e.saveHistory()
	e.line.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

const chatPrompt = "docchat> "

const chatHelp = `Commands:
  /upload <paths...>        index local files
  /url <url>                index a web page
  /new                      start a new chat
  /sessions                 list recent sessions
  /resume <id>              switch to a recorded session
  /theme [dark|light|auto]  show or change the theme
  /quit                     exit (or Ctrl+D)

Ctrl+C stops an answer while it streams.`

func (a *app) newChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat in the terminal, line by line",
		Long: `An interactive chat without the full-screen interface. Answers stream in
below each question. Input history is kept between runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := a.sessionID(ctx)
			if err != nil {
				return err
			}
			in := a.openReader()
			defer in.Close()

			r := &repl{
				app:   a,
				in:    in,
				theme: a.theme(),
			}
			r.ctrl = a.controller(a.formatter(a.stdout), id, a.chrome())
			defer r.ctrl.Close()
			r.view = newStreamView(a.stdout, a.stderr, r.theme, true)
			return r.run(ctx)
		},
	}
}

// openReader returns the line source of the chat REPL.
func (a *app) openReader() lineReader {
	if a.newReader != nil {
		return a.newReader()
	}
	return newLineEditor()
}

// =============================================================================
// REPL
// =============================================================================

// repl is one interactive chat session.
type repl struct {
	app   *app
	in    lineReader
	ctrl  *conversation.Controller
	view  *streamView
	theme *styles.Theme
}

func (r *repl) out() io.Writer {
	return r.app.stdout
}

func (r *repl) run(ctx context.Context) error {
	fmt.Fprintf(r.out(), "%s %s\n",
		r.theme.HeaderTitle.Render("docchat"),
		r.theme.InputHint.Render("connected to "+r.app.cfg.Server.URL+". Type /help for commands, Ctrl+D to exit."))
	if id := r.ctrl.Page().SessionID(); id != "" {
		fmt.Fprintf(r.out(), "Continuing session %s\n", id)
	}

	for {
		input, err := r.in.ReadInput(chatPrompt)
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or a closed stdin.
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				log.Debug().Err(err).Msg("input ended")
			}
			fmt.Fprintln(r.out())
			r.summary()
			return nil
		}

		input = strings.TrimSpace(input)
		switch {
		case input == "":
			continue
		case strings.EqualFold(input, "exit"), strings.EqualFold(input, "quit"):
			r.summary()
			return nil
		case strings.HasPrefix(input, "/"):
			if quit := r.command(ctx, input); quit {
				r.summary()
				return nil
			}
		default:
			r.ask(ctx, input)
		}
	}
}

// ask streams one answer. Ctrl+C cancels just this exchange.
func (r *repl) ask(ctx context.Context, text string) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	err := r.ctrl.Submit(ctx, text, r.view)
	r.view.Finish()
	if err != nil {
		// The target already shows the error marker.
		log.Debug().Err(err).Msg("exchange failed")
	}
}

// command runs a slash command and reports whether to quit.
func (r *repl) command(ctx context.Context, line string) bool {
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		r.errorf("Empty command. Type /help for commands")
		return false
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "help", "h", "?":
		fmt.Fprintln(r.out(), chatHelp)
	case "quit", "q", "exit":
		return true
	case "new", "n":
		r.ctrl.NewChat()
		r.printStatus(styles.StatusSuccess, "New chat started")
	case "upload", "u":
		paths := make([]string, 0, len(args))
		for _, p := range args {
			paths = append(paths, util.ExpandHome(p))
		}
		r.upload(func(status statusPrinter) error { return r.ctrl.Upload(ctx, paths, status) })
	case "url":
		r.upload(func(status statusPrinter) error { return r.ctrl.UploadURL(ctx, strings.Join(args, " "), status) })
	case "sessions":
		r.listSessions(ctx)
	case "resume", "r":
		if len(args) == 0 {
			r.listSessions(ctx)
			break
		}
		r.resume(ctx, args[0])
	case "theme":
		r.setTheme(args)
	default:
		r.errorf("Unknown command '/%s'. Type /help for commands", name)
	}
	return false
}

func (r *repl) upload(fn func(status statusPrinter) error) {
	if err := fn(statusPrinter{out: r.out(), theme: r.theme}); err != nil {
		var rejected *conversation.UploadRejectedError
		if !errors.As(err, &rejected) {
			r.errorf("%v", err)
		}
	}
}

func (r *repl) listSessions(ctx context.Context) {
	store, err := r.app.requireHistory()
	if err != nil {
		r.errorf("%v", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	sessions, err := store.List(ctx, 10)
	if err != nil {
		r.errorf("%v", err)
		return
	}
	if len(sessions) == 0 {
		fmt.Fprintln(r.out(), "No recorded sessions.")
		return
	}
	writeSessionTable(r.out(), sessions)
}

func (r *repl) resume(ctx context.Context, idOrPrefix string) {
	id := idOrPrefix
	if store, err := r.app.history(); err == nil && store != nil {
		if sess, err := store.Find(ctx, idOrPrefix); err == nil {
			id = sess.ID
		}
	}
	msgs, err := r.ctrl.Resume(ctx, id)
	if err != nil {
		r.errorf("Resume failed: %v", err)
		return
	}
	printMessages(r.out(), r.theme, r.ctrl.Formatter(), msgs)
	r.printStatus(styles.StatusSuccess, "Resumed session "+id)
}

func (r *repl) setTheme(args []string) {
	if len(args) > 0 {
		if err := r.app.updateConfig(func(c *config.Config) error { return c.SetTheme(args[0]) }); err != nil {
			r.errorf("%v", err)
			return
		}
		r.theme = r.app.theme()
		r.view.theme = r.theme
		r.ctrl.SetFormatter(r.app.formatter(r.out()))
	}
	fmt.Fprintf(r.out(), "Theme: %s\n", r.app.cfg.UI.Theme)
}

func (r *repl) summary() {
	if id := r.ctrl.Page().SessionID(); id != "" {
		fmt.Fprintf(r.out(), "Session %s. Continue with: docchat chat --session %s\n", id, id)
	}
}

func (r *repl) printStatus(kind styles.StatusKind, text string) {
	fmt.Fprintln(r.out(), r.theme.Status(kind, text))
}

func (r *repl) errorf(format string, args ...interface{}) {
	fmt.Fprintln(r.app.stderr, r.theme.Status(styles.StatusError, fmt.Sprintf(format, args...)))
}

// =============================================================================
// TRANSCRIPT PRINTING
// =============================================================================

// printMessages writes recorded messages, answers formatted with f.
func printMessages(w io.Writer, theme *styles.Theme, f render.Formatter, msgs []history.Message) {
	for _, m := range msgs {
		if m.Role == history.RoleUser {
			fmt.Fprintln(w, theme.UserLabel.Render("You:")+" "+f.Literal(m.Content))
			continue
		}
		body, err := f.Render(m.Content)
		if err != nil {
			body = f.Literal(m.Content)
		}
		fmt.Fprintln(w, strings.TrimRight(body, "\n"))
		if m.State == render.StateErrored.String() {
			fmt.Fprintln(w, theme.ErrorText.Render("Error: answer was interrupted"))
		}
	}
}
