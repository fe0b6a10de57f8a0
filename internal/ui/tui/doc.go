// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tui is the full-screen chat front end.
//
// The stream of an answer is read in a command goroutine; every event is
// handed to Update, which applies it to the render session. Rendering is
// therefore single-threaded, and events of a superseded answer are
// dropped there.
//
// Keys: Enter sends, Esc cancels the answer, C-n starts a new chat, C-t
// toggles the theme, C-y copies the last answer, C-c quits. Type /help for
// the slash commands.
package tui
