// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package client provides the HTTP client for the document-chat server.
//
// The server exposes two endpoints:
//
//   - the chat endpoint, which answers a multipart form (message,
//     session_id) with a chunked plain-text body and reports the session
//     in the X-Session-ID and X-Session-Title response headers
//   - the upload endpoint, which indexes uploaded files or a URL and
//     answers with a JSON status object
//
// # Streaming
//
// ChatStream delivers metadata first, then body chunks in arrival order.
// A stream that goes quiet for longer than the idle timeout is aborted
// with ErrIdleTimeout; a cancelled context yields ErrCanceled.
//
//	c := client.NewClientWithConfig(cfg)
//	err := c.ChatStream(ctx, client.ChatRequest{Message: "hi"}, client.StreamHandler{
//	    OnMetadata: func(m client.Metadata) { ... },
//	    OnChunk:    func(b []byte) { ... },
//	})
//
// Requests are never retried: a chat message may already have been stored
// server-side when the connection drops.
package client
