// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown provides the formatters that turn server answers into
// safe display markup.
//
//   - Terminal: glamour rendering for interactive terminals
//   - HTML: goldmark rendering sanitized by bluemonday
//   - Plain: unformatted text for pipes and logs
//
// Every formatter strips content that could act on the display (terminal
// escape sequences, scripts, event handlers) before it is shown. Literal
// returns user-authored text as inert content.
package markdown
