// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns a streamed chat answer into progressively updated,
// safe-to-display output.
//
// A Session tracks one exchange: the bytes received so far, the decoder
// that turns them into text, and the display Target that shows the
// result. Every chunk re-renders the full accumulated text, because a
// Markdown marker opened in one chunk may only close in a later one.
//
// # Key Types
//
//   - Page: page-level context holding the server session identifier
//   - Session: one in-flight exchange (accumulated text, state, target)
//   - Decoder: incremental UTF-8 decoder safe across chunk boundaries
//   - Target: where rendered output goes (TUI viewport, terminal, HTML)
//   - Formatter: Markdown formatting and sanitization
//   - Chrome: notified once when the server assigns a session id
//
// # Usage
//
//	page := render.NewPage("", chrome)
//	sess := render.NewSession(page, target, formatter)
//	sess.OnSessionMetadata(id, title)
//	for chunk := range chunks {
//	    sess.OnChunk(chunk)
//	}
//	sess.OnComplete()
package render
