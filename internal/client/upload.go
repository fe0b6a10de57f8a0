// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// =============================================================================
// UPLOADS
// =============================================================================

// Upload sends files for indexing as repeated "files" form fields.
// A server-side rejection is returned as a result with OK() false; err is
// reserved for transport failures and unreadable replies.
func (c *Client) Upload(ctx context.Context, paths []string, sessionID string) (*UploadResult, error) {
	if len(paths) == 0 {
		return nil, errors.New("no files to upload")
	}
	// Files are read before the request so a missing file fails fast.
	fill := func(w *multipart.Writer) error {
		for _, path := range paths {
			if err := addFile(w, path); err != nil {
				return err
			}
		}
		return nil
	}
	return c.upload(ctx, sessionID, fill)
}

// UploadURL asks the server to fetch and index a web page.
func (c *Client) UploadURL(ctx context.Context, url, sessionID string) (*UploadResult, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("empty URL")
	}
	return c.upload(ctx, sessionID, func(w *multipart.Writer) error {
		return w.WriteField("url", url)
	})
}

func addFile(w *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	part, err := w.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

func (c *Client) upload(ctx context.Context, sessionID string, fill func(*multipart.Writer) error) (*UploadResult, error) {
	body, contentType, err := c.form(sessionID, fill)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	// Indexing happens before the reply, so the whole request gets one bound.
	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	deadline := startWatchdog(c.config.UploadTimeout, cancel, ErrTimeout)
	defer deadline.stop()

	req, err := c.newRequest(reqCtx, c.UploadEndpoint(), body, contentType)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(ctx, reqCtx, err)
	}
	defer drainAndClose(resp.Body)

	var result UploadResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		if ctx.Err() != nil || context.Cause(reqCtx) != nil {
			return nil, classify(ctx, reqCtx, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &ClientError{
				Type:       ErrTypeHTTPStatus,
				StatusCode: resp.StatusCode,
				Message:    "server returned " + resp.Status,
			}
		}
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "malformed upload response", Cause: err}
	}
	result.SessionID = idString(result.RawSessionID)

	log.Debug().
		Str("status", result.Status).
		Str("session_id", result.SessionID).
		Int("files", len(result.Files)).
		Int("http_status", resp.StatusCode).
		Msg("upload finished")

	return &result, nil
}
