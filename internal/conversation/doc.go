// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation provides the chat page controller.
//
// A Controller owns the page-level session identity (render.Page), the
// in-flight render.Session, the transport and the history recorder. Front
// ends supply a View for message blocks and a StatusReporter for upload
// progress; the controller never draws anything itself.
//
// Starting a new exchange supersedes the previous one: its context is
// cancelled and any late events it produces are ignored.
//
// Synchronous use (REPL, one-shot commands):
//
//	err := ctl.Submit(ctx, "What does the contract say about renewal?", view)
//
// Event-loop use (TUI): Begin, then feed each event from Start to Apply
// on the UI goroutine.
package conversation
