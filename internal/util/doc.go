// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by docchat packages:
// crash-safe file writes and display-width aware string truncation.
package util
