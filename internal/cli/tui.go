// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/ui/tui"
)

// runTUI starts the full-screen chat.
func (a *app) runTUI(cmd *cobra.Command) error {
	if !isTerminal(a.stdin) || !isTerminal(a.stdout) {
		return &UsageError{Message: "the chat screen needs a terminal; use 'docchat ask' or 'docchat chat' instead"}
	}

	ctx := cmd.Context()
	id, err := a.sessionID(ctx)
	if err != nil {
		return err
	}

	// The screen installs its own formatter once it knows its width.
	opts := tui.Options{
		Config:     a.cfg,
		Controller: a.controller(a.formatter(a.stdout), id, nil),
		Persist: func(c *config.Config) error {
			theme := c.UI.Theme
			return a.updateConfig(func(f *config.Config) error { return f.SetTheme(theme) })
		},
	}
	if store, err := a.history(); err != nil {
		log.Warn().Err(err).Msg("history unavailable")
	} else if store != nil {
		opts.History = store
	}
	if err := config.EnsureConfigDir(); err == nil {
		if path, err := config.ConfigPathTOML(); err == nil {
			opts.ConfigPath = path
		}
	}

	return tui.Run(ctx, opts)
}
