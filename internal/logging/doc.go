// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process-wide zerolog logger.
//
// Interactive front ends own the terminal, so logs go to a file by
// default; the --log-console flag sends them to stderr through a
// zerolog.ConsoleWriter instead.
package logging
