// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the chat client.
type ClientConfig struct {
	// BaseURL is the server base URL (default: http://127.0.0.1:8000)
	BaseURL string

	// ChatPath is the chat endpoint path (default: /api/chat/)
	ChatPath string

	// UploadPath is the upload endpoint path (default: /api/upload/)
	UploadPath string

	// DeletePath deletes a server session; {id} is replaced by the session
	// id (default: /delete_chat_session/{id}/)
	DeletePath string

	// CSRFToken is sent as csrfmiddlewaretoken and X-CSRFToken when set
	CSRFToken string

	// ConnectTimeout bounds the wait for response headers (default: 30s)
	ConnectTimeout time.Duration

	// IdleTimeout aborts a stream with no bytes for this long (0 = never)
	IdleTimeout time.Duration

	// UploadTimeout bounds a whole upload request, indexing included (default: 10m)
	UploadTimeout time.Duration

	// ChunkSize is the stream read buffer size (default: 4096)
	ChunkSize int

	// RequestsPerSecond limits outgoing requests (0 = unlimited)
	RequestsPerSecond float64

	// Burst is the limiter burst (default: 1 when limited)
	Burst int

	// HTTPClient overrides the transport; its Timeout must be zero for streaming
	HTTPClient *http.Client
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:        "http://127.0.0.1:8000",
		ChatPath:       "/api/chat/",
		UploadPath:     "/api/upload/",
		DeletePath:     "/delete_chat_session/{id}/",
		ConnectTimeout: 30 * time.Second,
		IdleTimeout:    120 * time.Second,
		UploadTimeout:  10 * time.Minute,
		ChunkSize:      4096,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the chat and upload endpoints.
//
// The Client is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	defaults := DefaultConfig()

	// Fill in defaults for any zero values
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ChatPath == "" {
		cfg.ChatPath = defaults.ChatPath
	}
	if cfg.UploadPath == "" {
		cfg.UploadPath = defaults.UploadPath
	}
	if cfg.DeletePath == "" {
		cfg.DeletePath = defaults.DeletePath
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaults.ConnectTimeout
	}
	if cfg.UploadTimeout == 0 {
		cfg.UploadTimeout = defaults.UploadTimeout
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaults.ChunkSize
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// No client-wide Timeout: streams are bounded by the watchdogs instead.
		httpClient = &http.Client{}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		config:     &cfg,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

// GetConfig returns the effective configuration.
func (c *Client) GetConfig() *ClientConfig {
	return c.config
}

// ChatURL returns the absolute chat endpoint.
func (c *Client) ChatURL() string {
	return c.config.BaseURL + c.config.ChatPath
}

// UploadEndpoint returns the absolute upload endpoint.
func (c *Client) UploadEndpoint() string {
	return c.config.BaseURL + c.config.UploadPath
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// wait blocks on the rate limiter.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return &ClientError{Type: ErrTypeCanceled, Message: "request canceled", Cause: ctx.Err()}
		}
		return &ClientError{Type: ErrTypeConnection, Message: "rate limited", Cause: err}
	}
	return nil
}

// form builds a multipart body. fill adds endpoint-specific fields; the
// session id and CSRF token are added here.
func (c *Client) form(sessionID string, fill func(*multipart.Writer) error) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := fill(w); err != nil {
		return nil, "", err
	}
	if sessionID == "" {
		sessionID = NullSessionID
	}
	if err := w.WriteField("session_id", sessionID); err != nil {
		return nil, "", err
	}
	if c.config.CSRFToken != "" {
		if err := w.WriteField("csrfmiddlewaretoken", c.config.CSRFToken); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// newRequest creates a POST with the common headers.
func (c *Client) newRequest(ctx context.Context, url string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", contentType)
	if c.config.CSRFToken != "" {
		req.Header.Set("X-CSRFToken", c.config.CSRFToken)
	}
	return req, nil
}

// classify maps a transport failure to a ClientError. parent is the
// caller's context, reqCtx the per-request context cancelled by watchdogs.
func classify(parent, reqCtx context.Context, err error) error {
	if parent.Err() != nil {
		return &ClientError{Type: ErrTypeCanceled, Message: "request canceled", Cause: parent.Err()}
	}
	var cause *ClientError
	if errors.As(context.Cause(reqCtx), &cause) {
		return &ClientError{Type: cause.Type, Message: cause.Message}
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr
	}
	return &ClientError{Type: ErrTypeConnection, Message: "could not reach server", Cause: err}
}

// statusError reads a non-2xx response into an ErrTypeHTTPStatus error.
func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		msg := body.Error
		if msg == "" {
			msg = body.Message
		}
		if msg != "" {
			return &ClientError{Type: ErrTypeHTTPStatus, StatusCode: resp.StatusCode, Message: msg}
		}
	}
	return &ClientError{
		Type:       ErrTypeHTTPStatus,
		StatusCode: resp.StatusCode,
		Message:    "server returned " + resp.Status,
	}
}

// isJSON reports whether the response declares a JSON body.
func isJSON(resp *http.Response) bool {
	return strings.HasPrefix(strings.ToLower(resp.Header.Get("Content-Type")), "application/json")
}

// drainAndClose drains the body so the connection can be reused.
func drainAndClose(r io.ReadCloser) {
	if _, err := io.Copy(io.Discard, io.LimitReader(r, 64<<10)); err != nil {
		log.Debug().Err(err).Msg("drain response body")
	}
	r.Close()
}
