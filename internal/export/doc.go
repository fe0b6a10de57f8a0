// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes recorded conversations to files.
//
// # Supported Formats
//
//   - HTML: a standalone page styled like the chat view, with a dark or
//     light theme; answers are rendered from Markdown and sanitized
//   - Markdown: the raw exchange, suitable for notes
//   - JSON: machine-readable with full metadata
//
// # Usage
//
//	conv := export.FromHistory(sess, msgs)
//	path, err := export.ExportToFile(conv, export.NewHTMLExporter(opts), opts)
package export
