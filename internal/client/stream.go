// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// =============================================================================
// WATCHDOG
// =============================================================================

// watchdog cancels a request with cause when it is not kicked within d.
// A zero duration disables it.
type watchdog struct {
	timer *time.Timer
	d     time.Duration
}

func startWatchdog(d time.Duration, cancel context.CancelCauseFunc, cause error) *watchdog {
	w := &watchdog{d: d}
	if d > 0 {
		w.timer = time.AfterFunc(d, func() { cancel(cause) })
	}
	return w
}

func (w *watchdog) kick() {
	if w.timer != nil {
		w.timer.Reset(w.d)
	}
}

func (w *watchdog) stop() {
	if w.timer != nil {
		w.timer.Stop()
	}
}

// =============================================================================
// CHAT STREAM
// =============================================================================

// ChatStream posts a message and streams the answer to handler.
// Returns nil when the body ends normally.
func (c *Client) ChatStream(ctx context.Context, chatReq ChatRequest, handler StreamHandler) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	body, contentType, err := c.form(chatReq.SessionID, func(w *multipart.Writer) error {
		return w.WriteField("message", chatReq.Message)
	})
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to encode request", Cause: err}
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	req, err := c.newRequest(reqCtx, c.ChatURL(), body, contentType)
	if err != nil {
		return err
	}

	start := time.Now()
	connect := startWatchdog(c.config.ConnectTimeout, cancel, ErrTimeout)
	resp, err := c.httpClient.Do(req)
	connect.stop()
	if err != nil {
		return classify(ctx, reqCtx, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	log.Debug().
		Str("session_id", chatReq.SessionID).
		Dur("ttfb", time.Since(start)).
		Msg("chat stream opened")

	if isJSON(resp) {
		return readJSONAnswer(ctx, reqCtx, resp, handler)
	}

	if handler.OnMetadata != nil {
		meta := Metadata{
			SessionID: resp.Header.Get(HeaderSessionID),
			Title:     resp.Header.Get(HeaderSessionTitle),
		}
		if !meta.Empty() {
			handler.OnMetadata(meta)
		}
	}

	idle := startWatchdog(c.config.IdleTimeout, cancel, ErrIdleTimeout)
	defer idle.stop()

	total := 0
	buf := make([]byte, c.config.ChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			idle.kick()
			total += n
			if handler.OnChunk != nil {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				handler.OnChunk(chunk)
			}
		}
		if readErr == io.EOF {
			log.Debug().Int("bytes", total).Dur("elapsed", time.Since(start)).Msg("chat stream complete")
			return nil
		}
		if readErr != nil {
			err := classify(ctx, reqCtx, readErr)
			log.Debug().Err(err).Int("bytes", total).Msg("chat stream failed")
			return err
		}
	}
}

// readJSONAnswer handles servers that reply with a single JSON object
// instead of a stream.
func readJSONAnswer(ctx, reqCtx context.Context, resp *http.Response, handler StreamHandler) error {
	var answer jsonChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		if ctx.Err() != nil || context.Cause(reqCtx) != nil {
			return classify(ctx, reqCtx, err)
		}
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "malformed chat response", Cause: err}
	}
	if answer.Error != "" {
		return &ClientError{Type: ErrTypeHTTPStatus, StatusCode: resp.StatusCode, Message: answer.Error}
	}

	meta := Metadata{SessionID: idString(answer.SessionID), Title: answer.SessionTitle}
	if handler.OnMetadata != nil && !meta.Empty() {
		handler.OnMetadata(meta)
	}
	if handler.OnChunk != nil && answer.Response != "" {
		handler.OnChunk([]byte(answer.Response))
	}
	return nil
}

// ChatStreamChan runs ChatStream in a goroutine and returns its events.
// The channel ends with exactly one EventDone or EventError and is then
// closed. If ctx is cancelled before a reader takes an event, remaining
// events are dropped.
func (c *Client) ChatStreamChan(ctx context.Context, chatReq ChatRequest) <-chan StreamEvent {
	ch := make(chan StreamEvent, 16)

	send := func(ev StreamEvent) bool {
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(ch)

		err := c.ChatStream(ctx, chatReq, StreamHandler{
			OnMetadata: func(m Metadata) { send(StreamEvent{Kind: EventMetadata, Metadata: m}) },
			OnChunk:    func(b []byte) { send(StreamEvent{Kind: EventChunk, Data: b}) },
		})

		final := StreamEvent{Kind: EventDone}
		if err != nil {
			final = StreamEvent{Kind: EventError, Err: err}
		}
		// The final event must not be lost to a cancelled ctx when there is room.
		select {
		case ch <- final:
		default:
			send(final)
		}
	}()

	return ch
}
