// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns a streamed chat answer into safe display output.
package render

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Texts shown by targets for the pending and empty states.
const (
	PendingText     = "Thinking..."
	PlaceholderText = "(empty response)"
)

// Target is the display region that receives one answer.
type Target interface {
	// ShowPending shows the "waiting for the first byte" indicator.
	ShowPending()
	// SetContent replaces everything shown with markup.
	SetContent(markup string)
	// ShowPlaceholder shows the empty-answer state.
	ShowPlaceholder()
	// AppendError adds a visibly distinct error marker after the content.
	AppendError(markup string)
	// ScrollToLatest brings the end of the content into view.
	ScrollToLatest()
}

// Formatter turns text into markup that is safe to display.
type Formatter interface {
	// Render formats Markdown. Any embedded executable content is
	// neutralized.
	Render(text string) (string, error)
	// Literal returns text as inert content, never interpreted as markup.
	Literal(text string) string
}

// =============================================================================
// STATE
// =============================================================================

// State is the lifecycle position of a Session.
type State int

const (
	StatePending State = iota
	StateStreaming
	StateCompleted
	StateErrored
	StateSuperseded
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	case StateSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further events are accepted.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateErrored || s == StateSuperseded
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrSessionClosed is returned by OnChunk once the session has ended.
var ErrSessionClosed = errors.New("render session closed")

// TransportError marks a network or stream failure that ended a session.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	if e.Cause == nil {
		return "transport failure"
	}
	return e.Cause.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// IsTransportFailure reports whether err ended a session in the errored
// state.
func IsTransportFailure(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// =============================================================================
// SESSION
// =============================================================================

// Session is one in-flight exchange. It is created when the user submits a
// message and discarded when the next one starts.
//
// Accumulated text only grows. Rendering it is idempotent: the target always
// shows Render(full text), never a concatenation of partial renders.
type Session struct {
	mu sync.Mutex

	page      *Page
	target    Target
	formatter Formatter
	decoder   *Decoder

	text     strings.Builder
	state    State
	err      error
	metaSeen bool
	rendered bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession starts an exchange bound to page and shows the pending
// indicator on target.
func NewSession(page *Page, target Target, formatter Formatter) *Session {
	return NewSessionContext(context.Background(), page, target, formatter)
}

// NewSessionContext is NewSession with a parent context. The session's own
// context is cancelled when it is superseded.
func NewSessionContext(parent context.Context, page *Page, target Target, formatter Formatter) *Session {
	if page == nil {
		page = NewPage("", nil)
	}
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		page:      page,
		target:    target,
		formatter: formatter,
		decoder:   NewDecoder(),
		state:     StatePending,
		ctx:       ctx,
		cancel:    cancel,
	}
	target.ShowPending()
	return s
}

// Context is cancelled when the session is superseded. Transports should
// use it for the request.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Page returns the page the session reports metadata to.
func (s *Session) Page() *Page {
	return s.page
}

// Text returns the text decoded so far.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure that ended the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// OnChunk decodes b, appends it and re-renders the whole answer.
func (s *Session) OnChunk(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return ErrSessionClosed
	}
	s.state = StateStreaming

	decoded := s.decoder.Decode(b)
	if decoded == "" {
		// Only part of a multi-byte character so far.
		return nil
	}
	s.text.WriteString(decoded)
	s.renderLocked()
	s.target.ScrollToLatest()
	return nil
}

// OnComplete ends the exchange normally. An empty answer shows the
// placeholder rather than the pending indicator.
func (s *Session) OnComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return
	}
	if tail := s.decoder.Flush(); tail != "" {
		s.text.WriteString(tail)
	}
	s.state = StateCompleted

	if s.text.Len() == 0 {
		s.target.ShowPlaceholder()
		return
	}
	s.renderLocked()
	s.target.ScrollToLatest()
}

// OnSessionMetadata hands a server-issued session id and title to the page.
// Only the first call per session has any effect, and the page ignores it
// if it already knows an id.
func (s *Session) OnSessionMetadata(id, title string) {
	s.mu.Lock()
	if s.metaSeen || s.state == StateSuperseded {
		s.mu.Unlock()
		return
	}
	s.metaSeen = true
	s.mu.Unlock()

	s.page.Assign(id, title)
}

// OnTransportError ends the exchange as failed. Text already shown stays;
// an error marker is appended after it.
func (s *Session) OnTransportError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return
	}
	if tail := s.decoder.Flush(); tail != "" {
		s.text.WriteString(tail)
		s.renderLocked()
	}
	s.state = StateErrored
	s.err = &TransportError{Cause: err}

	if !s.rendered {
		// Clear the pending indicator.
		s.target.SetContent("")
	}
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	s.target.AppendError(s.formatter.Literal("Error: " + msg))
	s.target.ScrollToLatest()
}

// Supersede abandons the exchange because a newer one started. The
// session context is cancelled and later events are ignored.
func (s *Session) Supersede() {
	s.mu.Lock()
	if !s.state.Terminal() {
		s.state = StateSuperseded
	}
	s.mu.Unlock()
	s.cancel()
}

// Close releases the session context. It does not change the state.
func (s *Session) Close() {
	s.cancel()
}

func (s *Session) renderLocked() {
	text := s.text.String()
	markup, err := s.formatter.Render(text)
	if err != nil {
		markup = s.formatter.Literal(text)
	}
	s.target.SetContent(markup)
	s.rendered = true
}
