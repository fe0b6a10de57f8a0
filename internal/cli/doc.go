// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the docchat command line.
//
// Without a command docchat opens the full-screen chat. The commands cover
// the same ground for scripts and plain terminals:
//
//   - ask: one question, answer streamed to stdout
//   - chat: a line-by-line chat with input history
//   - upload, upload-url: index files or a web page
//   - sessions: list, show, remove and prune recorded sessions
//   - export: save a recorded conversation as HTML, Markdown or JSON
//   - theme, config: preferences
//
// On a terminal answers are formatted and redrawn in place as they grow.
// Piped output is the plain answer text, with error markers on stderr.
//
// Errors map to exit codes through GetExitCode.
package cli
