// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for docchat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - $DOCCHAT_HOME/config.toml (default ~/.docchat/config.toml)
//   - $DOCCHAT_HOME/config.json
//   - Built-in defaults
//
// The theme preference ("dark" or "light") is persisted here; Watch
// reloads the file when it changes on disk so running clients pick up a
// theme switched from another terminal.
package config
