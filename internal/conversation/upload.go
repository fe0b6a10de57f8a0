// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/docchat-tui/internal/client"
)

// Upload status texts.
const (
	StatusUploadDone   = "Indexing Complete!"
	StatusUploadFailed = "Upload Failed"
	StatusScanningURL  = "Scanning URL..."
	StatusURLDone      = "URL Indexed!"
	StatusNetworkError = "Network Error"
)

// UploadingStatus is shown while files are sent.
func UploadingStatus(n int) string {
	return fmt.Sprintf("Uploading %d file(s)...", n)
}

// Upload sends files for indexing, reporting progress through status.
func (c *Controller) Upload(ctx context.Context, paths []string, status StatusReporter) error {
	if len(paths) == 0 {
		return ErrNoFiles
	}
	status.ShowStatus(UploadingStatus(len(paths)))

	res, err := c.transport.Upload(ctx, paths, c.page.SessionID())
	if err != nil {
		log.Warn().Err(err).Int("files", len(paths)).Msg("upload failed")
		status.ShowStatus(StatusUploadFailed)
		return err
	}
	return c.uploaded(res, StatusUploadDone, status)
}

// UploadURL asks the server to index a web page.
func (c *Controller) UploadURL(ctx context.Context, url string, status StatusReporter) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return ErrEmptyURL
	}
	status.ShowStatus(StatusScanningURL)

	res, err := c.transport.UploadURL(ctx, url, c.page.SessionID())
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("url upload failed")
		status.ShowStatus(StatusNetworkError)
		return err
	}
	return c.uploaded(res, StatusURLDone, status)
}

func (c *Controller) uploaded(res *client.UploadResult, done string, status StatusReporter) error {
	if !res.OK() {
		rejected := &UploadRejectedError{Message: res.Message}
		status.ShowStatus("Error: " + rejected.Error())
		return rejected
	}
	status.ShowStatus(done)

	// A new session is adopted; either way the view reloads to show the
	// server's updated state.
	c.page.Assign(res.SessionID, "")
	status.Refresh(c.page.SessionID())
	return nil
}
