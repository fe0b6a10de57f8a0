// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"bytes"
	"encoding/json"
	"strings"
)

// =============================================================================
// CHAT TYPES
// =============================================================================

// NullSessionID is the form value the server treats as "no session yet".
const NullSessionID = "null"

// Response headers carrying session metadata.
const (
	HeaderSessionID    = "X-Session-ID"
	HeaderSessionTitle = "X-Session-Title"
)

// ChatRequest is one user message.
type ChatRequest struct {
	Message string
	// SessionID is empty for a new conversation
	SessionID string
}

// Metadata identifies the server session that owns an exchange.
type Metadata struct {
	SessionID string
	Title     string
}

// Empty reports whether no metadata was present.
func (m Metadata) Empty() bool {
	return m.SessionID == "" && m.Title == ""
}

// StreamHandler receives stream events. Callbacks run on the goroutine
// that called ChatStream, in arrival order. Either may be nil.
type StreamHandler struct {
	// OnMetadata is called at most once, before the first chunk
	OnMetadata func(Metadata)
	// OnChunk receives raw body bytes; the slice is not reused
	OnChunk func([]byte)
}

// EventKind distinguishes StreamEvent values.
type EventKind int

const (
	EventMetadata EventKind = iota
	EventChunk
	EventDone
	EventError
)

// StreamEvent is one item from ChatStreamChan.
type StreamEvent struct {
	Kind     EventKind
	Metadata Metadata
	Data     []byte
	Err      error
}

// jsonChatResponse is the non-streaming chat reply some server versions send.
type jsonChatResponse struct {
	Response     string          `json:"response"`
	SessionID    json.RawMessage `json:"session_id"`
	SessionTitle string          `json:"session_title"`
	Error        string          `json:"error"`
}

// errorBody is the JSON error object returned with non-2xx statuses.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// =============================================================================
// UPLOAD TYPES
// =============================================================================

// UploadResult is the upload endpoint's JSON reply.
type UploadResult struct {
	Status    string       `json:"status"`
	SessionID string       `json:"-"`
	Message   string       `json:"message,omitempty"`
	Files     []FileResult `json:"files,omitempty"`

	RawSessionID json.RawMessage `json:"session_id,omitempty"`
}

// FileResult reports one indexed file.
type FileResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// OK reports whether the server accepted the upload.
func (r *UploadResult) OK() bool {
	return r != nil && strings.EqualFold(r.Status, "success")
}

// idString accepts a JSON string or number id; null and "null" become "".
func idString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == NullSessionID {
			return ""
		}
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
