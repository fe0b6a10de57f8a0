// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/docchat-tui/internal/client"
	"github.com/jeranaias/docchat-tui/internal/history"
	"github.com/jeranaias/docchat-tui/internal/markdown"
	"github.com/jeranaias/docchat-tui/internal/render"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// fakeTransport replays a script of events. If block is set it waits for
// cancellation after the script and then reports ErrCanceled.
type fakeTransport struct {
	mu       sync.Mutex
	script   []client.StreamEvent
	block    bool
	requests []client.ChatRequest

	upload    *client.UploadResult
	uploadErr error
	uploaded  []string
	urls      []string
	uploadSID []string
}

func (f *fakeTransport) ChatStreamChan(ctx context.Context, req client.ChatRequest) <-chan client.StreamEvent {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	script := f.script
	block := f.block
	f.mu.Unlock()

	ch := make(chan client.StreamEvent, len(script)+1)
	go func() {
		defer close(ch)
		for _, ev := range script {
			ch <- ev
		}
		if block {
			<-ctx.Done()
			ch <- client.StreamEvent{Kind: client.EventError, Err: client.ErrCanceled}
		}
	}()
	return ch
}

func (f *fakeTransport) Upload(ctx context.Context, paths []string, sessionID string) (*client.UploadResult, error) {
	f.uploaded = append(f.uploaded, paths...)
	f.uploadSID = append(f.uploadSID, sessionID)
	return f.upload, f.uploadErr
}

func (f *fakeTransport) UploadURL(ctx context.Context, url, sessionID string) (*client.UploadResult, error) {
	f.urls = append(f.urls, url)
	f.uploadSID = append(f.uploadSID, sessionID)
	return f.upload, f.uploadErr
}

func chunk(s string) client.StreamEvent {
	return client.StreamEvent{Kind: client.EventChunk, Data: []byte(s)}
}

func meta(id, title string) client.StreamEvent {
	return client.StreamEvent{Kind: client.EventMetadata, Metadata: client.Metadata{SessionID: id, Title: title}}
}

var done = client.StreamEvent{Kind: client.EventDone}

// fakeTarget records what a bot message shows.
type fakeTarget struct {
	mu      sync.Mutex
	content string
	errs    []string
}

func (t *fakeTarget) ShowPending()             { t.set("Thinking...") }
func (t *fakeTarget) SetContent(markup string) { t.set(markup) }
func (t *fakeTarget) ShowPlaceholder()         { t.set("(no answer)") }
func (t *fakeTarget) ScrollToLatest()          {}

func (t *fakeTarget) AppendError(markup string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errs = append(t.errs, markup)
}

func (t *fakeTarget) set(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.content = s
}

func (t *fakeTarget) shown() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.content + strings.Join(t.errs, "")
}

type fakeView struct {
	users []string
	bots  []*fakeTarget
}

func (v *fakeView) AppendUser(markup string) { v.users = append(v.users, markup) }

func (v *fakeView) AppendBot() render.Target {
	t := &fakeTarget{}
	v.bots = append(v.bots, t)
	return t
}

type fakeStatus struct {
	texts     []string
	refreshed []string
}

func (s *fakeStatus) ShowStatus(text string) { s.texts = append(s.texts, text) }
func (s *fakeStatus) Refresh(id string)      { s.refreshed = append(s.refreshed, id) }

func newController(t *testing.T, tr *fakeTransport, store Recorder) *Controller {
	t.Helper()
	c := New(Options{
		Transport: tr,
		Formatter: markdown.NewHTML(),
		History:   store,
		Server:    "http://srv",
	})
	t.Cleanup(c.Close)
	return c
}

func openStore(t *testing.T) *history.Store {
	t.Helper()
	s, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// =============================================================================
// EXCHANGE TESTS
// =============================================================================

func TestSubmit_RendersAndAdoptsSession(t *testing.T) {
	tr := &fakeTransport{script: []client.StreamEvent{
		meta("abc123", "Hello"), chunk("Hel"), chunk("lo **wor"), chunk("ld**"), done,
	}}
	var assigned []string
	c := New(Options{
		Transport: tr,
		Formatter: markdown.NewHTML(),
		Chrome:    render.ChromeFunc(func(id, title string) { assigned = append(assigned, id+"|"+title) }),
	})
	defer c.Close()

	view := &fakeView{}
	require.NoError(t, c.Submit(context.Background(), "Hello <b>there</b>", view))

	require.Len(t, view.users, 1)
	assert.Equal(t, "Hello &lt;b&gt;there&lt;/b&gt;", view.users[0], "user text is never markup")
	require.Len(t, view.bots, 1)
	assert.Contains(t, view.bots[0].shown(), "<strong>world</strong>")

	assert.Equal(t, "abc123", c.Page().SessionID())
	assert.Equal(t, []string{"abc123|Hello"}, assigned)
	assert.Equal(t, render.StateCompleted, c.Current().State())
	require.Len(t, tr.requests, 1)
	assert.Equal(t, "", tr.requests[0].SessionID)
}

func TestSubmit_SendsKnownSession(t *testing.T) {
	tr := &fakeTransport{script: []client.StreamEvent{meta("other", ""), chunk("x"), done}}
	c := New(Options{Transport: tr, Formatter: markdown.Plain{}, SessionID: "known"})
	defer c.Close()

	require.NoError(t, c.Submit(context.Background(), "q", &fakeView{}))
	assert.Equal(t, "known", tr.requests[0].SessionID)
	assert.Equal(t, "known", c.Page().SessionID(), "a known id is never replaced")
}

func TestSubmit_EmptyMessage(t *testing.T) {
	c := newController(t, &fakeTransport{}, nil)
	view := &fakeView{}
	err := c.Submit(context.Background(), "  \n", view)
	assert.True(t, errors.Is(err, ErrEmptyMessage))
	assert.Empty(t, view.users)
	assert.Empty(t, view.bots)
}

func TestSubmit_EmptyAnswerShowsPlaceholder(t *testing.T) {
	c := newController(t, &fakeTransport{script: []client.StreamEvent{done}}, nil)
	view := &fakeView{}
	require.NoError(t, c.Submit(context.Background(), "q", view))
	assert.Equal(t, "(no answer)", view.bots[0].shown())
}

func TestSubmit_TransportErrorKeepsText(t *testing.T) {
	boom := &client.ClientError{Type: client.ErrTypeConnection, Message: "connection reset"}
	tr := &fakeTransport{script: []client.StreamEvent{
		chunk("AB"), {Kind: client.EventError, Err: boom},
	}}
	c := newController(t, tr, nil)
	view := &fakeView{}

	err := c.Submit(context.Background(), "q", view)
	require.Error(t, err)
	shown := view.bots[0].shown()
	assert.Contains(t, shown, "AB")
	assert.Contains(t, shown, "Error: connection reset")
	assert.Equal(t, render.StateErrored, c.Current().State())
}

func TestStream_ClosedWithoutFinalEvent(t *testing.T) {
	tr := &fakeTransport{script: []client.StreamEvent{chunk("part")}}
	c := newController(t, tr, nil)
	view := &fakeView{}

	sess, err := c.Begin("q", view)
	require.NoError(t, err)
	err = c.Stream(sess, "q")
	assert.True(t, client.IsCanceled(err))
	assert.Equal(t, render.StateErrored, sess.State())
}

func TestCancel(t *testing.T) {
	tr := &fakeTransport{script: []client.StreamEvent{chunk("partial")}, block: true}
	c := newController(t, tr, nil)
	view := &fakeView{}

	assert.False(t, c.Cancel(), "nothing in flight yet")

	sess, err := c.Begin("q", view)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Stream(sess, "q") }()

	require.Eventually(t, func() bool { return strings.Contains(view.bots[0].shown(), "partial") },
		2*time.Second, 10*time.Millisecond)
	assert.True(t, c.Cancel())

	select {
	case err := <-errCh:
		assert.True(t, client.IsCanceled(err))
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}
	assert.Contains(t, view.bots[0].shown(), "partial")
	assert.Contains(t, view.bots[0].shown(), "Error: request canceled")
	assert.False(t, c.Cancel(), "already finished")
}

func TestBegin_SupersedesPrevious(t *testing.T) {
	tr := &fakeTransport{}
	c := newController(t, tr, nil)
	view := &fakeView{}

	first, err := c.Begin("one", view)
	require.NoError(t, err)
	second, err := c.Begin("two", view)
	require.NoError(t, err)

	assert.Equal(t, render.StateSuperseded, first.State())
	assert.Error(t, first.Context().Err())
	assert.Same(t, second, c.Current())

	// Late events for the old session change nothing.
	isDone, _ := c.Apply(first, "one", chunk("late"))
	assert.False(t, isDone)
	isDone, _ = c.Apply(first, "one", meta("late-id", ""))
	assert.False(t, isDone)
	assert.Equal(t, "Thinking...", view.bots[0].shown())
	assert.False(t, c.Page().HasSession())
}

func TestNewChatAndResume(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.Touch(ctx, "s1", "Contracts", ""))
	_, err := store.AppendMessage(ctx, "s1", history.RoleUser, "renewal?", "")
	require.NoError(t, err)

	c := newController(t, &fakeTransport{}, store)

	msgs, err := c.Resume(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "s1", c.Page().SessionID())
	assert.Equal(t, "Contracts", c.Page().Title())

	c.NewChat()
	assert.False(t, c.Page().HasSession())

	msgs, err = c.Resume(ctx, "server-only")
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, "server-only", c.Page().SessionID())

	_, err = c.Resume(ctx, " ")
	assert.Error(t, err)
}

func TestSubmit_RecordsHistory(t *testing.T) {
	store := openStore(t)
	tr := &fakeTransport{script: []client.StreamEvent{meta("s9", "Q title"), chunk("answer"), done}}
	c := newController(t, tr, store)

	require.NoError(t, c.Submit(context.Background(), "question", &fakeView{}))

	sess, err := store.Get(context.Background(), "s9")
	require.NoError(t, err)
	assert.Equal(t, "Q title", sess.Title)
	assert.Equal(t, "http://srv", sess.Server)

	msgs, err := store.Messages(context.Background(), "s9")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "question", msgs[0].Content)
	assert.Equal(t, "answer", msgs[1].Content)
	assert.Equal(t, "completed", msgs[1].State)
}

func TestSubmit_NoSessionNotRecorded(t *testing.T) {
	store := openStore(t)
	c := newController(t, &fakeTransport{script: []client.StreamEvent{chunk("x"), done}}, store)

	require.NoError(t, c.Submit(context.Background(), "q", &fakeView{}))
	list, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStream_SupersededNotRecorded(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.Touch(ctx, "s1", "Handbook", ""))

	tr := &fakeTransport{script: []client.StreamEvent{chunk("partial")}, block: true}
	c := New(Options{Transport: tr, Formatter: markdown.Plain{}, History: store, SessionID: "s1"})
	defer c.Close()
	view := &fakeView{}

	first, err := c.Begin("one", view)
	require.NoError(t, err)
	errCh := make(chan error, 1)
	go func() { errCh <- c.Stream(first, "one") }()

	require.Eventually(t, func() bool { return strings.Contains(view.bots[0].shown(), "partial") },
		2*time.Second, 10*time.Millisecond)
	_, err = c.Begin("two", view)
	require.NoError(t, err)

	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("superseded stream did not stop")
	}
	assert.Equal(t, render.StateSuperseded, first.State())

	msgs, err := store.Messages(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSetFormatter(t *testing.T) {
	c := newController(t, &fakeTransport{}, nil)
	c.SetFormatter(markdown.Plain{})
	assert.Equal(t, markdown.Plain{}, c.Formatter())
}

// =============================================================================
// UPLOAD TESTS
// =============================================================================

func TestUpload_AdoptsSession(t *testing.T) {
	tr := &fakeTransport{upload: &client.UploadResult{Status: "success", SessionID: "new1"}}
	c := newController(t, tr, nil)
	status := &fakeStatus{}

	require.NoError(t, c.Upload(context.Background(), []string{"a.pdf", "b.txt"}, status))
	assert.Equal(t, []string{"Uploading 2 file(s)...", "Indexing Complete!"}, status.texts)
	assert.Equal(t, "new1", c.Page().SessionID())
	assert.Equal(t, []string{"new1"}, status.refreshed)
	assert.Equal(t, []string{""}, tr.uploadSID)
}

func TestUpload_KeepsKnownSession(t *testing.T) {
	tr := &fakeTransport{upload: &client.UploadResult{Status: "success", SessionID: "other"}}
	c := New(Options{Transport: tr, Formatter: markdown.Plain{}, SessionID: "mine"})
	defer c.Close()
	status := &fakeStatus{}

	require.NoError(t, c.UploadURL(context.Background(), "https://example.com", status))
	assert.Equal(t, []string{"Scanning URL...", "URL Indexed!"}, status.texts)
	assert.Equal(t, "mine", c.Page().SessionID())
	assert.Equal(t, []string{"mine"}, status.refreshed)
	assert.Equal(t, []string{"mine"}, tr.uploadSID)
}

func TestUpload_Rejected(t *testing.T) {
	tr := &fakeTransport{upload: &client.UploadResult{Status: "error", Message: "bad file"}}
	c := newController(t, tr, nil)
	status := &fakeStatus{}

	err := c.Upload(context.Background(), []string{"a"}, status)
	var rejected *UploadRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, []string{"Uploading 1 file(s)...", "Error: bad file"}, status.texts)
	assert.Empty(t, status.refreshed)
}

func TestUpload_TransportFailures(t *testing.T) {
	tr := &fakeTransport{uploadErr: client.ErrConnection}
	c := newController(t, tr, nil)

	status := &fakeStatus{}
	assert.Error(t, c.Upload(context.Background(), []string{"a"}, status))
	assert.Equal(t, "Upload Failed", status.texts[len(status.texts)-1])

	status = &fakeStatus{}
	assert.Error(t, c.UploadURL(context.Background(), "https://x", status))
	assert.Equal(t, "Network Error", status.texts[len(status.texts)-1])
}

func TestUpload_InputValidation(t *testing.T) {
	c := newController(t, &fakeTransport{}, nil)
	status := &fakeStatus{}
	assert.True(t, errors.Is(c.Upload(context.Background(), nil, status), ErrNoFiles))
	assert.True(t, errors.Is(c.UploadURL(context.Background(), " ", status), ErrEmptyURL))
	assert.Empty(t, status.texts)
}
