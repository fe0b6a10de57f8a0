// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/docchat-tui/internal/history"
	"github.com/jeranaias/docchat-tui/internal/render"
)

// recordTimeout bounds history writes so a locked database cannot stall
// the UI.
const recordTimeout = 5 * time.Second

// recordSession is the page chrome that remembers adopted sessions.
func (c *Controller) recordSession(id, title string) {
	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := c.store.Touch(ctx, id, title, c.server); err != nil {
		log.Warn().Err(err).Str("session_id", id).Msg("record session")
	}
}

// record stores a finished exchange under the page's session. Exchanges
// that never learned a session id or were superseded are not recorded.
func (c *Controller) record(text string, sess *render.Session) {
	if c.store == nil {
		return
	}
	if sess.State() == render.StateSuperseded {
		log.Debug().Msg("exchange superseded, not recorded")
		return
	}
	id := c.page.SessionID()
	if id == "" {
		log.Debug().Msg("exchange has no session id, not recorded")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := c.store.Touch(ctx, id, c.page.Title(), c.server); err != nil {
		log.Warn().Err(err).Str("session_id", id).Msg("record session")
		return
	}
	if _, err := c.store.AppendMessage(ctx, id, history.RoleUser, text, ""); err != nil {
		log.Warn().Err(err).Str("session_id", id).Msg("record user message")
		return
	}
	if _, err := c.store.AppendMessage(ctx, id, history.RoleBot, sess.Text(), sess.State().String()); err != nil {
		log.Warn().Err(err).Str("session_id", id).Msg("record answer")
		return
	}
	if c.keep > 0 {
		if _, err := c.store.Prune(ctx, c.keep); err != nil {
			log.Warn().Err(err).Msg("prune history")
		}
	}
}
