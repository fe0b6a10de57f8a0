// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient points a client at srv with short timeouts.
func newTestClient(srv *httptest.Server, mutate func(*ClientConfig)) *Client {
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.ConnectTimeout = 2 * time.Second
	cfg.IdleTimeout = 2 * time.Second
	if mutate != nil {
		mutate(cfg)
	}
	return NewClientWithConfig(cfg)
}

// streamChunks writes each chunk and flushes, like a streaming view.
func streamChunks(w http.ResponseWriter, chunks ...string) {
	flusher := w.(http.Flusher)
	for _, c := range chunks {
		io.WriteString(w, c)
		flusher.Flush()
	}
}

type recorder struct {
	mu     sync.Mutex
	events []string
	text   strings.Builder
}

func (r *recorder) handler() StreamHandler {
	return StreamHandler{
		OnMetadata: func(m Metadata) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, "meta:"+m.SessionID+":"+m.Title)
		},
		OnChunk: func(b []byte) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, "chunk")
			r.text.Write(b)
		},
	}
}

func (r *recorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text.String()
}

func TestDefaultConfig(t *testing.T) {
	c := NewClientWithConfig(&ClientConfig{BaseURL: "http://example.com/"})
	cfg := c.GetConfig()

	assert.Equal(t, "http://example.com/api/chat/", c.ChatURL())
	assert.Equal(t, "http://example.com/api/upload/", c.UploadEndpoint())
	assert.Equal(t, 4096, cfg.ChunkSize)
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)
	assert.Nil(t, c.limiter)
}

func TestChatStream_FormAndMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat/", r.URL.Path)
		assert.Equal(t, "hello", r.FormValue("message"))
		assert.Equal(t, "null", r.FormValue("session_id"))
		assert.Equal(t, "tok", r.FormValue("csrfmiddlewaretoken"))
		assert.Equal(t, "tok", r.Header.Get("X-CSRFToken"))

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set(HeaderSessionID, "abc123")
		w.Header().Set(HeaderSessionTitle, "hello")
		streamChunks(w, "Hel", "lo **wor", "ld**")
	}))
	defer srv.Close()

	c := newTestClient(srv, func(cfg *ClientConfig) { cfg.CSRFToken = "tok" })
	var rec recorder
	err := c.ChatStream(context.Background(), ChatRequest{Message: "hello"}, rec.handler())
	require.NoError(t, err)

	assert.Equal(t, "Hello **world**", rec.String())
	require.NotEmpty(t, rec.events)
	assert.Equal(t, "meta:abc123:hello", rec.events[0], "metadata must precede chunks")
}

func TestChatStream_KnownSessionAndNoMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "xyz", r.FormValue("session_id"))
		assert.Empty(t, r.FormValue("csrfmiddlewaretoken"))
		streamChunks(w, "ok")
	}))
	defer srv.Close()

	var rec recorder
	err := newTestClient(srv, nil).ChatStream(context.Background(),
		ChatRequest{Message: "q", SessionID: "xyz"}, rec.handler())
	require.NoError(t, err)
	assert.Equal(t, []string{"chunk"}, rec.events)
}

func TestChatStream_SmallChunkSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		streamChunks(w, strings.Repeat("x", 1000))
	}))
	defer srv.Close()

	var rec recorder
	c := newTestClient(srv, func(cfg *ClientConfig) { cfg.ChunkSize = 64 })
	require.NoError(t, c.ChatStream(context.Background(), ChatRequest{Message: "q"}, rec.handler()))
	assert.Equal(t, 1000, len(rec.String()))
	assert.GreaterOrEqual(t, len(rec.events), 1000/64)
}

func TestChatStream_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error": "Empty message"}`)
	}))
	defer srv.Close()

	err := newTestClient(srv, nil).ChatStream(context.Background(), ChatRequest{}, StreamHandler{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHTTPStatus))
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	assert.Equal(t, "Empty message", err.Error())
}

func TestChatStream_HTTPStatusNoBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := newTestClient(srv, nil).ChatStream(context.Background(), ChatRequest{Message: "q"}, StreamHandler{})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, StatusCode(err))
	assert.Contains(t, err.Error(), "502")
}

func TestChatStream_IdleTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		streamChunks(w, "AB")
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := newTestClient(srv, func(cfg *ClientConfig) { cfg.IdleTimeout = 100 * time.Millisecond })
	var rec recorder
	err := c.ChatStream(context.Background(), ChatRequest{Message: "q"}, rec.handler())

	require.Error(t, err)
	assert.True(t, IsIdleTimeout(err), "got %v", err)
	assert.True(t, IsTimeout(err))
	assert.False(t, IsCanceled(err))
	assert.Equal(t, "AB", rec.String())
}

func TestChatStream_ConnectTimeout(t *testing.T) {
	// The handler never answers. It is released before the server closes,
	// since a handler that has not read the body is not told the client
	// went away.
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(srv, func(cfg *ClientConfig) { cfg.ConnectTimeout = 100 * time.Millisecond })
	err := c.ChatStream(context.Background(), ChatRequest{Message: "q"}, StreamHandler{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	assert.False(t, IsIdleTimeout(err))
}

func TestChatStream_Canceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		streamChunks(w, "partial")
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newTestClient(srv, nil)
	err := c.ChatStream(ctx, ChatRequest{Message: "q"}, StreamHandler{
		OnChunk: func([]byte) { cancel() },
	})
	require.Error(t, err)
	assert.True(t, IsCanceled(err), "got %v", err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestChatStream_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: url})
	err := c.ChatStream(context.Background(), ChatRequest{Message: "q"}, StreamHandler{})
	require.Error(t, err)
	assert.True(t, IsConnection(err), "got %v", err)
}

func TestChatStream_JSONAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"response": "**hi**", "session_id": 42, "session_title": "greeting"}`)
	}))
	defer srv.Close()

	var rec recorder
	err := newTestClient(srv, nil).ChatStream(context.Background(), ChatRequest{Message: "q"}, rec.handler())
	require.NoError(t, err)
	assert.Equal(t, []string{"meta:42:greeting", "chunk"}, rec.events)
	assert.Equal(t, "**hi**", rec.String())
}

func TestChatStream_JSONMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"response": `)
	}))
	defer srv.Close()

	err := newTestClient(srv, nil).ChatStream(context.Background(), ChatRequest{Message: "q"}, StreamHandler{})
	var clientErr *ClientError
	require.True(t, errors.As(err, &clientErr))
	assert.Equal(t, ErrTypeInvalidResponse, clientErr.Type)
}

func TestChatStream_JSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"error": "no documents indexed"}`)
	}))
	defer srv.Close()

	var rec recorder
	err := newTestClient(srv, nil).ChatStream(context.Background(), ChatRequest{Message: "q"}, rec.handler())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHTTPStatus), "got %v", err)
	assert.Equal(t, "no documents indexed", err.Error())
	assert.Empty(t, rec.events)
}

func TestChatStreamChan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(HeaderSessionID, "s1")
		streamChunks(w, "a", "b")
	}))
	defer srv.Close()

	var kinds []EventKind
	var text strings.Builder
	for ev := range newTestClient(srv, nil).ChatStreamChan(context.Background(), ChatRequest{Message: "q"}) {
		kinds = append(kinds, ev.Kind)
		text.Write(ev.Data)
		if ev.Kind == EventMetadata {
			assert.Equal(t, "s1", ev.Metadata.SessionID)
		}
	}

	require.NotEmpty(t, kinds)
	assert.Equal(t, EventMetadata, kinds[0])
	assert.Equal(t, EventDone, kinds[len(kinds)-1])
	assert.Equal(t, "ab", text.String())
}

func TestChatStreamChan_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var last StreamEvent
	for ev := range newTestClient(srv, nil).ChatStreamChan(context.Background(), ChatRequest{Message: "q"}) {
		last = ev
	}
	assert.Equal(t, EventError, last.Kind)
	assert.Equal(t, 500, StatusCode(last.Err))
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.pdf")
	require.NoError(t, os.WriteFile(a, []byte("alpha"), 0600))
	require.NoError(t, os.WriteFile(b, []byte("beta"), 0600))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "/api/upload/", r.URL.Path)
		files := r.MultipartForm.File["files"]
		require.Len(t, files, 2)
		assert.Equal(t, "a.txt", files[0].Filename)
		assert.Equal(t, "b.pdf", files[1].Filename)
		assert.Equal(t, "null", r.FormValue("session_id"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status": "success", "session_id": 42, "files": [
			{"name": "a.txt", "status": "Indexed"}, {"name": "b.pdf", "status": "Indexed"}]}`)
	}))
	defer srv.Close()

	res, err := newTestClient(srv, nil).Upload(context.Background(), []string{a, b}, "")
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "42", res.SessionID)
	require.Len(t, res.Files, 2)
	assert.Equal(t, "Indexed", res.Files[1].Status)
}

func TestUpload_Rejected(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(a, []byte("alpha"), 0600))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"status": "error", "message": "unsupported type"}`)
	}))
	defer srv.Close()

	res, err := newTestClient(srv, nil).Upload(context.Background(), []string{a}, "s9")
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, "unsupported type", res.Message)
	assert.Empty(t, res.SessionID)
}

func TestUpload_NonJSONFailure(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(a, []byte("alpha"), 0600))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "<html>Server Error</html>")
	}))
	defer srv.Close()

	_, err := newTestClient(srv, nil).Upload(context.Background(), []string{a}, "")
	require.Error(t, err)
	assert.Equal(t, 500, StatusCode(err))
}

func TestUpload_MissingFile(t *testing.T) {
	c := NewClient()
	_, err := c.Upload(context.Background(), []string{filepath.Join(t.TempDir(), "nope.txt")}, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = c.Upload(context.Background(), nil, "")
	assert.Error(t, err)
}

func TestUploadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://example.com/doc", r.FormValue("url"))
		assert.Equal(t, "s1", r.FormValue("session_id"))
		io.WriteString(w, `{"status": "success", "session_id": "s1"}`)
	}))
	defer srv.Close()

	res, err := newTestClient(srv, nil).UploadURL(context.Background(), "  https://example.com/doc ", "s1")
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "s1", res.SessionID)

	_, err = newTestClient(srv, nil).UploadURL(context.Background(), "  ", "")
	assert.Error(t, err)
}

func TestRateLimiter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		streamChunks(w, "ok")
	}))
	defer srv.Close()

	c := newTestClient(srv, func(cfg *ClientConfig) {
		cfg.RequestsPerSecond = 0.01
		cfg.Burst = 1
	})
	require.NotNil(t, c.limiter)
	require.NoError(t, c.ChatStream(context.Background(), ChatRequest{Message: "q"}, StreamHandler{}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.ChatStream(ctx, ChatRequest{Message: "q"}, StreamHandler{})
	assert.Error(t, err, "second request inside the window must be limited")
}

func TestIDString(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{``, ""},
		{`null`, ""},
		{`"null"`, ""},
		{`"abc"`, "abc"},
		{`17`, "17"},
		{`{}`, ""},
	}
	for _, tt := range tests {
		if got := idString([]byte(tt.raw)); got != tt.want {
			t.Errorf("idString(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "idle_timeout", ErrTypeIdleTimeout.String())
	assert.Equal(t, "unknown", ErrorType(99).String())
	assert.False(t, errors.Is(&ClientError{Type: ErrTypeUnknown}, &ClientError{Type: ErrTypeUnknown}))
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestDeleteSession(t *testing.T) {
	var gotPath, gotSession, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSession = r.FormValue("session_id")
		gotToken = r.FormValue("csrfmiddlewaretoken")
		http.Redirect(w, r, "/home/", http.StatusFound)
	}))
	defer srv.Close()

	c := newTestClient(srv, func(cfg *ClientConfig) { cfg.CSRFToken = "tok" })
	require.NoError(t, c.DeleteSession(context.Background(), "42"))
	assert.Equal(t, "/delete_chat_session/42/", gotPath)
	assert.Equal(t, "42", gotSession)
	assert.Equal(t, "tok", gotToken)
}

func TestDeleteSession_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := newTestClient(srv, nil)
	err := c.DeleteSession(context.Background(), "7")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))

	err = c.DeleteSession(context.Background(), " ")
	assert.True(t, errors.Is(err, ErrNoSessionID))
}

func TestDeleteEndpoint(t *testing.T) {
	c := NewClientWithConfig(&ClientConfig{BaseURL: "http://h/", DeletePath: "/chat/{id}/delete/"})
	assert.Equal(t, "http://h/chat/a%2Fb/delete/", c.DeleteEndpoint("a/b"))
}
