// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"errors"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/conversation"
	"github.com/jeranaias/docchat-tui/internal/history"
	"github.com/jeranaias/docchat-tui/internal/markdown"
	"github.com/jeranaias/docchat-tui/internal/render"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
	"github.com/jeranaias/docchat-tui/internal/util"
)

// StatusTimeout is how long a finished status stays visible.
const StatusTimeout = 3 * time.Second

// chromeLines is the height of everything but the message viewport:
// header, input and status bar.
const chromeLines = 3

// History is the part of the history store the chat screen reads.
// *history.Store implements it.
type History interface {
	List(ctx context.Context, limit int) ([]history.Session, error)
	Get(ctx context.Context, id string) (*history.Session, error)
	Find(ctx context.Context, idOrPrefix string) (*history.Session, error)
	Messages(ctx context.Context, sessionID string) ([]history.Message, error)
}

// Options configures the chat screen.
type Options struct {
	Config     *config.Config
	Controller *conversation.Controller
	// History may be nil
	History History
	// ConfigPath is watched for changes when set
	ConfigPath string
	// Persist saves preference changes; nil keeps them in memory only
	Persist func(*config.Config) error
	// Clipboard defaults to the system clipboard
	Clipboard func(string) error
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the bubbletea model of the chat screen.
type Model struct {
	cfg      *config.Config
	ctrl     *conversation.Controller
	hist     History
	persist  func(*config.Config) error
	copyText func(string) error

	theme *styles.Theme
	keys  KeyMap

	viewport   viewport.Model
	input      textinput.Model
	spinner    spinner.Model
	uploadSpin spinner.Model
	help       help.Model

	chat     *transcript
	live     *block
	liveSess *render.Session

	uploading  bool
	status     string
	statusKind styles.StatusKind
	statusSeq  int

	title    string
	wrap     int
	width    int
	height   int
	ready    bool
	showHelp bool
}

// New creates the chat screen model.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	copyText := opts.Clipboard
	if copyText == nil {
		copyText = clipboard.WriteAll
	}

	ti := textinput.New()
	ti.Placeholder = "Ask about your documents..."
	ti.Prompt = "> "
	ti.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Spinner{
		Frames: styles.PendingSpinner.Frames,
		FPS:    styles.PendingSpinner.Duration(),
	}))
	up := spinner.New(spinner.WithSpinner(spinner.Spinner{
		Frames: styles.UploadSpinner.Frames,
		FPS:    styles.UploadSpinner.Duration(),
	}))

	m := Model{
		cfg:        cfg,
		ctrl:       opts.Controller,
		hist:       opts.History,
		persist:    opts.Persist,
		copyText:   copyText,
		keys:       DefaultKeyMap(),
		input:      ti,
		spinner:    sp,
		uploadSpin: up,
		help:       help.New(),
		chat:       &transcript{},
		wrap:       cfg.UI.WordWrap,
	}
	m.setTheme(styles.NewTheme(cfg.UI.Theme))
	m.loadResumed()
	return m
}

// loadResumed shows the recorded messages of a session the controller was
// started with.
func (m *Model) loadResumed() {
	if m.ctrl == nil || m.hist == nil {
		return
	}
	id := m.ctrl.Page().SessionID()
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	msgs, err := m.hist.Messages(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("session_id", id).Msg("could not load session messages")
		return
	}
	m.chat.Load(msgs, m.ctrl.Formatter())
}

// Init starts the cursor blink and the spinners.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.uploadSpin.Tick, m.titleCmd())
}

// =============================================================================
// THEME AND FORMATTING
// =============================================================================

// setTheme applies t to the chrome and switches the answer formatter.
func (m *Model) setTheme(t *styles.Theme) {
	m.theme = t
	m.input.PromptStyle = t.InputPrompt
	m.input.TextStyle = t.InputText
	m.input.PlaceholderStyle = t.InputHint
	m.spinner.Style = t.Pending
	m.uploadSpin.Style = t.Pending
	m.help.Styles.ShortKey = t.ShortcutKey
	m.help.Styles.ShortDesc = t.ShortcutDesc
	m.help.Styles.FullKey = t.ShortcutKey
	m.help.Styles.FullDesc = t.ShortcutDesc
	m.reformat()
}

// reformat rebuilds the answer formatter for the current theme and width
// and re-renders finished messages with it.
func (m *Model) reformat() {
	if m.ctrl == nil {
		return
	}
	f := markdown.ForTheme(m.theme.Name, m.wrapWidth(), true)
	m.ctrl.SetFormatter(f)
	m.chat.Restyle(f)
}

// wrapWidth is the configured word wrap, narrowed to fit the window.
func (m *Model) wrapWidth() int {
	w := m.cfg.UI.WordWrap
	if m.width > 0 && m.width-4 < w {
		w = m.width - 4
	}
	if w < 20 {
		w = 20
	}
	return w
}

// toggleTheme flips between dark and light and persists the choice.
func (m *Model) toggleTheme() tea.Cmd {
	next := styles.ThemeDark
	if m.theme.IsDark {
		next = styles.ThemeLight
	}
	return m.changeTheme(next)
}

// changeTheme switches to name ("dark", "light" or "auto").
func (m *Model) changeTheme(name string) tea.Cmd {
	if err := m.cfg.SetTheme(name); err != nil {
		return m.setStatus(styles.StatusError, err.Error())
	}
	m.setTheme(styles.NewTheme(name))
	m.syncViewport()

	if m.persist != nil {
		if err := m.persist(m.cfg); err != nil {
			log.Warn().Err(err).Msg("save theme preference")
			return m.setStatus(styles.StatusError, "Theme not saved: "+err.Error())
		}
	}
	return m.setStatus(styles.StatusSuccess, "Theme: "+m.cfg.UI.Theme)
}

// applyConfig takes over UI settings from a reloaded config file.
func (m *Model) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	themeChanged := cfg.UI.Theme != m.cfg.UI.Theme
	wrapChanged := cfg.UI.WordWrap != m.cfg.UI.WordWrap
	m.cfg.UI = cfg.UI

	switch {
	case themeChanged:
		m.setTheme(styles.NewTheme(cfg.UI.Theme))
	case wrapChanged:
		m.reformat()
	}
	m.syncViewport()
}

// =============================================================================
// STATUS LINE
// =============================================================================

// setStatus shows text in the status bar. Anything but a busy status is
// cleared after StatusTimeout.
func (m *Model) setStatus(kind styles.StatusKind, text string) tea.Cmd {
	m.statusSeq++
	m.status = text
	m.statusKind = kind
	if kind == styles.StatusBusy {
		return nil
	}
	seq := m.statusSeq
	return tea.Tick(StatusTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

// =============================================================================
// WINDOW TITLE
// =============================================================================

// WindowTitle is the terminal title for a page.
func WindowTitle(title, sessionID string) string {
	switch {
	case title != "":
		return "docchat - " + util.TruncateWidth(util.OneLine(title), 48)
	case sessionID != "":
		return "docchat - session " + shortID(sessionID)
	default:
		return "docchat"
	}
}

// shortID abbreviates a session id for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// titleCmd updates the terminal title when the page changed.
func (m *Model) titleCmd() tea.Cmd {
	if m.ctrl == nil || !m.cfg.UI.SetWindowTitle {
		return nil
	}
	page := m.ctrl.Page()
	t := WindowTitle(page.Title(), page.SessionID())
	if t == m.title {
		return nil
	}
	m.title = t
	return tea.SetWindowTitle(t)
}

// =============================================================================
// RUN
// =============================================================================

// Run shows the chat screen until the user quits or ctx is done.
func Run(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))

	if opts.ConfigPath != "" {
		err := config.Watch(ctx, opts.ConfigPath, func(cfg *config.Config) {
			p.Send(configReloadedMsg{cfg: cfg})
		})
		if err != nil {
			log.Warn().Err(err).Str("path", opts.ConfigPath).Msg("config not watched")
		}
	}

	_, err := p.Run()
	if opts.Controller != nil {
		opts.Controller.Close()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
