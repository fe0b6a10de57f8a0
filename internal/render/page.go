// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns a streamed chat answer into safe display output.
package render

import "sync"

// =============================================================================
// PAGE CHROME
// =============================================================================

// Chrome is the surrounding UI that reflects the server session, such as a
// window title, a status bar, or the local history store.
type Chrome interface {
	SessionAssigned(id, title string)
}

// ChromeFunc adapts a function to Chrome.
type ChromeFunc func(id, title string)

// SessionAssigned calls f(id, title).
func (f ChromeFunc) SessionAssigned(id, title string) {
	f(id, title)
}

// MultiChrome notifies every non-nil Chrome in order.
type MultiChrome []Chrome

// SessionAssigned forwards to each member.
func (m MultiChrome) SessionAssigned(id, title string) {
	for _, c := range m {
		if c != nil {
			c.SessionAssigned(id, title)
		}
	}
}

// =============================================================================
// PAGE
// =============================================================================

// Page holds the state that outlives a single exchange: the identifier the
// server issued for the conversation and its title.
//
// The identifier is assigned at most once per page lifetime. Reset and
// Resume start a new lifetime.
type Page struct {
	mu        sync.RWMutex
	sessionID string
	title     string
	chrome    Chrome
}

// NewPage creates a page. An empty sessionID means no server session is
// known yet.
func NewPage(sessionID string, chrome Chrome) *Page {
	return &Page{sessionID: sessionID, chrome: chrome}
}

// SessionID returns the server session identifier, or "" if none has been
// assigned.
func (p *Page) SessionID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sessionID
}

// Title returns the conversation title reported by the server.
func (p *Page) Title() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.title
}

// HasSession reports whether a server session identifier is known.
func (p *Page) HasSession() bool {
	return p.SessionID() != ""
}

// SetChrome replaces the chrome notified on assignment.
func (p *Page) SetChrome(c Chrome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chrome = c
}

// Assign records id as the page's session identifier if none is known yet
// and notifies the chrome. It returns false, changing nothing, when id is
// empty or an identifier is already set.
func (p *Page) Assign(id, title string) bool {
	if id == "" {
		return false
	}

	p.mu.Lock()
	if p.sessionID != "" {
		p.mu.Unlock()
		return false
	}
	p.sessionID = id
	p.title = title
	chrome := p.chrome
	p.mu.Unlock()

	if chrome != nil {
		chrome.SessionAssigned(id, title)
	}
	return true
}

// Reset forgets the session identifier so the next exchange starts a new
// server session.
func (p *Page) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionID = ""
	p.title = ""
}

// Resume starts a page lifetime bound to an existing server session.
func (p *Page) Resume(id, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionID = id
	p.title = title
}
