// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history keeps a local SQLite record of server chat sessions.
//
// The server is the source of truth for conversations; this store only
// remembers which sessions the user has opened from this machine, with
// their titles and the exchanges seen here, so they can be listed,
// resumed and exported offline.
//
// Usage:
//
//	store, err := history.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	store.Touch(ctx, "abc123", "Quarterly report", serverURL)
//	store.AppendMessage(ctx, "abc123", history.RoleUser, "Summarize it", "")
package history
