// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrNoSessionID is returned when a session operation gets an empty id.
var ErrNoSessionID = errors.New("session id is required")

// DeleteEndpoint returns the absolute delete endpoint for id.
func (c *Client) DeleteEndpoint(id string) string {
	return c.config.BaseURL + strings.ReplaceAll(c.config.DeletePath, "{id}", url.PathEscape(id))
}

// DeleteSession removes a session on the server. The server answers a
// successful delete with a redirect back to its chat page, so any 2xx or
// 3xx reply counts as done.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNoSessionID
	}

	body, contentType, err := c.form(id, func(*multipart.Writer) error { return nil })
	if err != nil {
		return err
	}
	if err := c.wait(ctx); err != nil {
		return err
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	deadline := startWatchdog(c.config.ConnectTimeout, cancel, ErrTimeout)
	defer deadline.stop()

	req, err := c.newRequest(reqCtx, c.DeleteEndpoint(id), body, contentType)
	if err != nil {
		return err
	}

	hc := *c.httpClient
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := hc.Do(req)
	if err != nil {
		return classify(ctx, reqCtx, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 399 {
		return statusError(resp)
	}

	log.Debug().Str("session_id", id).Int("http_status", resp.StatusCode).Msg("server session deleted")
	return nil
}
