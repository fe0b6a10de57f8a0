// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/docchat-tui/internal/client"
	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/conversation"
	"github.com/jeranaias/docchat-tui/internal/history"
	"github.com/jeranaias/docchat-tui/internal/logging"
	"github.com/jeranaias/docchat-tui/internal/markdown"
	"github.com/jeranaias/docchat-tui/internal/render"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// APPLICATION STATE
// =============================================================================

// globalFlags are accepted by every command.
type globalFlags struct {
	server     string
	csrfToken  string
	theme      string
	logLevel   string
	logConsole bool
	noHistory  bool
	session    string
	resumeLast bool
}

// app holds what the commands share: configuration, the server client
// and the history store.
type app struct {
	flags globalFlags

	cfg    *config.Config
	client *client.Client
	store  *history.Store

	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader

	closers []func() error

	// newReader replaces the chat line editor.
	newReader func() lineReader
}

// setup loads the configuration, applies flags and starts logging.
func (a *app) setup(cmd *cobra.Command) error {
	a.stdout = cmd.OutOrStdout()
	a.stderr = cmd.ErrOrStderr()
	a.stdin = cmd.InOrStdin()

	cfg, err := config.Load()
	if err != nil {
		// Defaults are used; say so but carry on.
		fmt.Fprintf(a.stderr, "warning: %v (using defaults)\n", err)
		if cfg == nil {
			cfg = config.Default()
			cfg.ApplyEnvOverrides()
		}
	}
	if err := a.applyFlags(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return &CommandError{Command: "config", Reason: "invalid configuration", Err: err}
	}
	a.cfg = cfg

	logFile, err := cfg.LogPath()
	if err != nil {
		return err
	}
	closeLog, err := logging.Setup(logging.Options{
		Level:   cfg.Log.Level,
		File:    logFile,
		Console: a.flags.logConsole,
		Stderr:  a.stderr,
	})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closeLog)

	a.client = client.NewClientWithConfig(&client.ClientConfig{
		BaseURL:           cfg.Server.URL,
		ChatPath:          cfg.Server.ChatPath,
		UploadPath:        cfg.Server.UploadPath,
		DeletePath:        cfg.Server.DeletePath,
		CSRFToken:         cfg.Server.CSRFToken,
		ConnectTimeout:    cfg.ConnectTimeout(),
		IdleTimeout:       cfg.IdleTimeout(),
		ChunkSize:         cfg.Stream.ChunkSize,
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
		Burst:             cfg.Server.Burst,
	})

	log.Debug().
		Str("command", cmd.Name()).
		Str("server", cfg.Server.URL).
		Str("theme", cfg.UI.Theme).
		Bool("history", cfg.History.Enabled).
		Msg("docchat starting")
	return nil
}

// applyFlags overrides configuration with command line flags.
func (a *app) applyFlags(cfg *config.Config) error {
	f := a.flags
	if f.server != "" {
		cfg.Server.URL = strings.TrimRight(f.server, "/")
	}
	if f.csrfToken != "" {
		cfg.Server.CSRFToken = f.csrfToken
	}
	if f.theme != "" {
		if err := cfg.SetTheme(f.theme); err != nil {
			return err
		}
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.noHistory {
		cfg.History.Enabled = false
	}
	return nil
}

// history opens the history store on first use. It returns nil when
// history is disabled.
func (a *app) history() (*history.Store, error) {
	if a.store != nil || !a.cfg.History.Enabled {
		return a.store, nil
	}
	path, err := a.cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(path)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)
	return store, nil
}

var errHistoryDisabled = errors.New("history is disabled (history.enabled = false)")

// requireHistory is history for commands that cannot work without it.
func (a *app) requireHistory() (*history.Store, error) {
	store, err := a.history()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errHistoryDisabled
	}
	return store, nil
}

// controller creates a conversation controller writing answers with f.
// A nil chrome leaves the window title alone.
func (a *app) controller(f render.Formatter, sessionID string, chrome render.Chrome) *conversation.Controller {
	opts := conversation.Options{
		Transport:    a.client,
		Formatter:    f,
		HistoryLimit: a.cfg.History.MaxSessions,
		Server:       a.cfg.Server.URL,
		SessionID:    sessionID,
		Chrome:       chrome,
	}
	store, err := a.history()
	if err != nil {
		log.Warn().Err(err).Msg("history unavailable")
	} else if store != nil {
		opts.History = store
	}
	return conversation.New(opts)
}

// sessionID resolves --session and --continue to a server session id.
// Empty means a new session.
func (a *app) sessionID(ctx context.Context) (string, error) {
	switch {
	case a.flags.session != "":
		store, err := a.history()
		if err != nil || store == nil {
			return a.flags.session, nil
		}
		sess, err := store.Find(ctx, a.flags.session)
		if errors.Is(err, history.ErrNotFound) {
			// Known to the server only.
			return a.flags.session, nil
		}
		if err != nil {
			return "", err
		}
		return sess.ID, nil

	case a.flags.resumeLast:
		store, err := a.requireHistory()
		if err != nil {
			return "", err
		}
		recent, err := store.List(ctx, 1)
		if err != nil {
			return "", err
		}
		if len(recent) == 0 {
			return "", &CommandError{Command: "continue", Reason: "no recorded sessions", Err: history.ErrNotFound}
		}
		return recent[0].ID, nil
	}
	return "", nil
}

// updateConfig applies fn to the configuration file and saves it. The
// file is re-read so flag overrides are not persisted.
func (a *app) updateConfig(fn func(*config.Config) error) error {
	cfg, err := config.LoadStored()
	if err != nil {
		return &CommandError{Command: "config", Action: "save", Reason: "config file is unreadable", Err: err}
	}
	if err := fn(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}
	return fn(a.cfg)
}

// chrome sets the terminal title when stdout is a terminal.
func (a *app) chrome() render.Chrome {
	if !a.cfg.UI.SetWindowTitle || !isTerminal(a.stdout) {
		return nil
	}
	return titleChrome{out: newOutput(a.stdout)}
}

// theme returns the UI theme for the configured name.
func (a *app) theme() *styles.Theme {
	return styles.NewTheme(a.cfg.UI.Theme)
}

// formatter picks the answer formatter for out.
func (a *app) formatter(out io.Writer) render.Formatter {
	width, _ := terminalSize(out)
	wrap := a.cfg.UI.WordWrap
	if width-2 < wrap {
		wrap = width - 2
	}
	return markdown.ForTheme(a.theme().Name, wrap, colorsEnabled(out))
}

// close releases everything setup and history opened.
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	a.store = nil
	return errors.Join(errs...)
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// Execute runs the docchat command line and releases what the command
// opened, whether or not it failed.
func Execute(ctx context.Context) error {
	return execute(ctx, &app{}, nil)
}

func execute(ctx context.Context, a *app, configure func(*cobra.Command)) error {
	root := newRootCommand(a)
	if configure != nil {
		configure(root)
	}
	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

// newRootCommand builds the docchat command tree around a.
func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "docchat",
		Short: "Chat with your documents from the terminal",
		Long: `docchat talks to a document-chat server: upload files or web pages,
then ask questions about them. Answers stream in as they are written.

Run without a command for the full-screen chat.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd)
		},
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Message: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.server, "server", "", "server base URL (overrides server.url)")
	pf.StringVar(&a.flags.csrfToken, "csrf-token", "", "CSRF token sent with every request")
	pf.StringVar(&a.flags.theme, "theme", "", "theme: dark, light or auto")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	pf.BoolVar(&a.flags.logConsole, "log-console", false, "log to stderr instead of the log file")
	pf.BoolVar(&a.flags.noHistory, "no-history", false, "do not read or write local session history")
	pf.StringVarP(&a.flags.session, "session", "s", "", "continue a server session (id or unique prefix)")
	pf.BoolVarP(&a.flags.resumeLast, "continue", "c", false, "continue the most recent session")

	root.AddCommand(
		a.newAskCommand(),
		a.newChatCommand(),
		a.newUploadCommand(),
		a.newUploadURLCommand(),
		a.newSessionsCommand(),
		a.newExportCommand(),
		a.newThemeCommand(),
		a.newConfigCommand(),
	)
	return root
}
