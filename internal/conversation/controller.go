// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/docchat-tui/internal/client"
	"github.com/jeranaias/docchat-tui/internal/history"
	"github.com/jeranaias/docchat-tui/internal/render"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// View is the message list of a front end.
type View interface {
	// AppendUser adds a user message. markup is already inert.
	AppendUser(markup string)
	// AppendBot adds an empty bot message and returns its display target.
	AppendBot() render.Target
}

// StatusReporter shows upload progress.
type StatusReporter interface {
	// ShowStatus replaces the status line.
	ShowStatus(text string)
	// Refresh asks the front end to reload the conversation for sessionID
	// after the server changed it.
	Refresh(sessionID string)
}

// Transport is the server connection. *client.Client implements it.
type Transport interface {
	ChatStreamChan(ctx context.Context, req client.ChatRequest) <-chan client.StreamEvent
	Upload(ctx context.Context, paths []string, sessionID string) (*client.UploadResult, error)
	UploadURL(ctx context.Context, url, sessionID string) (*client.UploadResult, error)
}

// Recorder stores sessions and exchanges. *history.Store implements it.
type Recorder interface {
	Touch(ctx context.Context, id, title, server string) error
	AppendMessage(ctx context.Context, sessionID, role, content, state string) (string, error)
	Get(ctx context.Context, id string) (*history.Session, error)
	Messages(ctx context.Context, sessionID string) ([]history.Message, error)
	Prune(ctx context.Context, keep int) (int, error)
}

// Errors returned by the controller.
var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrNoFiles      = errors.New("no files selected")
	ErrEmptyURL     = errors.New("please enter a URL")
)

// UploadRejectedError is a server-side upload failure.
type UploadRejectedError struct {
	Message string
}

func (e *UploadRejectedError) Error() string {
	if e.Message == "" {
		return "upload rejected"
	}
	return e.Message
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Options configures a Controller.
type Options struct {
	Transport Transport
	Formatter render.Formatter
	// History may be nil
	History Recorder
	// HistoryLimit prunes history to this many sessions (0 = keep all)
	HistoryLimit int
	// Server is recorded with each session
	Server string
	// SessionID resumes a known session
	SessionID string
	// Chrome is notified when the page adopts a session id
	Chrome render.Chrome
}

// Controller is the chat page controller. Safe for concurrent use, but a
// Session's events must be applied from one goroutine.
type Controller struct {
	mu        sync.Mutex
	page      *render.Page
	transport Transport
	formatter render.Formatter
	store     Recorder
	keep      int
	server    string
	current   *render.Session

	base   context.Context
	cancel context.CancelFunc
}

// New creates a controller.
func New(opts Options) *Controller {
	base, cancel := context.WithCancel(context.Background())
	c := &Controller{
		transport: opts.Transport,
		formatter: opts.Formatter,
		store:     opts.History,
		keep:      opts.HistoryLimit,
		server:    opts.Server,
		base:      base,
		cancel:    cancel,
	}
	c.page = render.NewPage(opts.SessionID, render.MultiChrome{render.ChromeFunc(c.recordSession), opts.Chrome})
	return c
}

// Page returns the page context.
func (c *Controller) Page() *render.Page {
	return c.page
}

// Formatter returns the active formatter.
func (c *Controller) Formatter() render.Formatter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.formatter
}

// SetFormatter switches formatters, e.g. after a theme change. Sessions
// already started keep theirs.
func (c *Controller) SetFormatter(f render.Formatter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.formatter = f
}

// Current returns the most recent session, or nil.
func (c *Controller) Current() *render.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Close cancels everything in flight.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.current != nil {
		c.current.Supersede()
	}
	c.mu.Unlock()
	c.cancel()
}

// Begin starts an exchange for text: the previous session is superseded,
// the user message is shown inert and a pending bot message is created.
func (c *Controller) Begin(text string, view View) (*render.Session, error) {
	return c.begin(c.base, text, view)
}

func (c *Controller) begin(ctx context.Context, text string, view View) (*render.Session, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.current.Supersede()
	}
	view.AppendUser(c.formatter.Literal(text))
	target := view.AppendBot()
	c.current = render.NewSessionContext(ctx, c.page, target, c.formatter)
	return c.current, nil
}

// Start sends text for sess and returns its event stream. The session id
// sent is the page's at the time of the call.
func (c *Controller) Start(sess *render.Session, text string) <-chan client.StreamEvent {
	req := client.ChatRequest{Message: text, SessionID: c.page.SessionID()}
	log.Debug().Str("session_id", req.SessionID).Int("len", len(text)).Msg("sending message")
	return c.transport.ChatStreamChan(sess.Context(), req)
}

// Apply feeds one event to sess. It returns true on the final event, along
// with the stream error, if any. text is the user message, recorded in
// history when the exchange ends.
func (c *Controller) Apply(sess *render.Session, text string, ev client.StreamEvent) (bool, error) {
	switch ev.Kind {
	case client.EventMetadata:
		sess.OnSessionMetadata(ev.Metadata.SessionID, ev.Metadata.Title)
		return false, nil
	case client.EventChunk:
		if err := sess.OnChunk(ev.Data); err != nil && !errors.Is(err, render.ErrSessionClosed) {
			log.Warn().Err(err).Msg("chunk rejected")
		}
		return false, nil
	case client.EventDone:
		c.finish(sess, text, nil)
		return true, nil
	default:
		c.finish(sess, text, ev.Err)
		return true, ev.Err
	}
}

// Stream runs an exchange started with Begin to the end.
func (c *Controller) Stream(sess *render.Session, text string) error {
	for ev := range c.Start(sess, text) {
		if done, err := c.Apply(sess, text, ev); done {
			return err
		}
	}
	// Channel closed without a final event: the context was cancelled.
	err := error(client.ErrCanceled)
	c.finish(sess, text, err)
	return err
}

// Submit sends text and renders the answer into view, blocking until the
// exchange ends.
func (c *Controller) Submit(ctx context.Context, text string, view View) error {
	sess, err := c.begin(ctx, text, view)
	if err != nil {
		return err
	}
	return c.Stream(sess, text)
}

// finish ends the session and records the exchange.
func (c *Controller) finish(sess *render.Session, text string, err error) {
	if err == nil {
		sess.OnComplete()
	} else {
		sess.OnTransportError(err)
	}
	sess.Close()

	log.Debug().
		Str("state", sess.State().String()).
		Str("session_id", c.page.SessionID()).
		Int("bytes", len(sess.Text())).
		Err(err).
		Msg("exchange finished")

	c.record(text, sess)
}

// =============================================================================
// USER ACTIONS
// =============================================================================

// Cancel stops the in-flight exchange. Its text stays and an error marker
// is shown. Returns false if nothing was in flight.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.State().Terminal() {
		return false
	}
	c.current.Close()
	return true
}

// NewChat forgets the current session so the next message starts a new one.
func (c *Controller) NewChat() {
	c.mu.Lock()
	if c.current != nil {
		c.current.Supersede()
		c.current = nil
	}
	c.mu.Unlock()
	c.page.Reset()
}

// Resume switches to a known session and returns its locally recorded
// messages, if any.
func (c *Controller) Resume(ctx context.Context, id string) ([]history.Message, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("empty session id")
	}

	c.mu.Lock()
	if c.current != nil {
		c.current.Supersede()
		c.current = nil
	}
	c.mu.Unlock()

	if c.store == nil {
		c.page.Resume(id, "")
		return nil, nil
	}

	title := ""
	sess, err := c.store.Get(ctx, id)
	switch {
	case err == nil:
		title = sess.Title
	case errors.Is(err, history.ErrNotFound):
		// Known to the server only.
	default:
		return nil, err
	}
	c.page.Resume(id, title)
	return c.store.Messages(ctx, id)
}
