// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/helia-tui/internal/model"
	"github.com/jeranaias/helia-tui/internal/pending"
	"github.com/jeranaias/helia-tui/internal/transport"
)

// =============================================================================
// FAKES
// =============================================================================

type step struct {
	frag string
	err  error
}

type fakeStream struct {
	ctx    context.Context
	steps  chan step
	closed chan struct{}
	once   sync.Once
}

func (f *fakeStream) Next() (string, error) {
	select {
	case s, ok := <-f.steps:
		if !ok {
			return "", io.EOF
		}
		return s.frag, s.err
	case <-f.ctx.Done():
		return "", &transport.TransportError{NetworkFailure: true, Err: f.ctx.Err()}
	}
}

func (f *fakeStream) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

type fakeSender struct {
	mu      sync.Mutex
	reqs    []transport.Request
	openErr error
	opened  chan *fakeStream
}

func newFakeSender() *fakeSender {
	return &fakeSender{opened: make(chan *fakeStream, 8)}
}

func (s *fakeSender) Send(ctx context.Context, req transport.Request) (transport.Fragments, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	err := s.openErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	st := &fakeStream{ctx: ctx, steps: make(chan step, 16), closed: make(chan struct{})}
	s.opened <- st
	return st, nil
}

type fakeHistory struct {
	mu    sync.Mutex
	calls int
	fetch func(ctx context.Context, sessionID string) ([]model.Message, error)
}

func (h *fakeHistory) GetHistory(ctx context.Context, sessionID string) ([]model.Message, error) {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	return h.fetch(ctx, sessionID)
}

func (h *fakeHistory) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func serverHistory(msgs ...model.Message) *fakeHistory {
	return &fakeHistory{fetch: func(context.Context, string) ([]model.Message, error) { return msgs, nil }}
}

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) record(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, len(r.snaps))
	copy(out, r.snaps)
	return out
}

type harness struct {
	engine  *Engine
	sender  *fakeSender
	pending *pending.Store
	rec     *recorder
}

func newHarness(t *testing.T, history HistorySource) *harness {
	t.Helper()
	h := &harness{sender: newFakeSender(), pending: pending.NewStore(), rec: &recorder{}}
	h.engine = New(Options{Sender: h.sender, History: history, Pending: h.pending})
	h.engine.Subscribe(h.rec.record)
	t.Cleanup(h.engine.Close)
	return h
}

// sendAsync starts SendMessage and returns the opened stream plus a
// channel that yields SendMessage's result.
func (h *harness) sendAsync(t *testing.T, req SendRequest) (*fakeStream, <-chan error) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- h.engine.SendMessage(context.Background(), req) }()
	select {
	case st := <-h.sender.opened:
		return st, done
	case err := <-done:
		t.Fatalf("SendMessage returned before opening a stream: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("stream was not opened")
	}
	return nil, nil
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("SendMessage did not return")
		return nil
	}
}

func (h *harness) waitContent(t *testing.T, replyID, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, m := range h.engine.Snapshot().Messages {
			if m.ID == replyID {
				return m.Content == want
			}
		}
		return false
	}, 5*time.Second, 5*time.Millisecond)
}

// =============================================================================
// SEND SCENARIOS
// =============================================================================

func TestSendMessage_StreamsAndFinalizes(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.SwitchSession("s1")

	st, done := h.sendAsync(t, SendRequest{SessionID: "s1", Content: "Hello"})

	snap := h.engine.Snapshot()
	require.Len(t, snap.Messages, 2)
	user, reply := snap.Messages[0], snap.Messages[1]
	assert.Equal(t, model.RoleUser, user.Role)
	assert.Equal(t, "Hello", user.Content)
	assert.True(t, model.IsClientID(user.ID))
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.True(t, reply.IsStreaming)
	assert.Empty(t, reply.Content)
	assert.True(t, snap.Responding)
	assert.Equal(t, reply.ID, snap.StreamingID)

	want := ""
	for _, f := range []string{"Hi", " there", "!"} {
		st.steps <- step{frag: f}
		want += f
		h.waitContent(t, reply.ID, want)
	}
	close(st.steps)
	require.NoError(t, waitDone(t, done))

	final := h.engine.Snapshot()
	got, _ := findMessage(final, reply.ID)
	assert.Equal(t, "Hi there!", got.Content)
	assert.False(t, got.IsStreaming)
	assert.False(t, got.IsError)
	assert.Equal(t, model.StatusFinalized, got.Status)
	assert.False(t, final.Responding)
	assert.Empty(t, final.StreamingID)

	<-st.closed

	h.sender.mu.Lock()
	assert.Equal(t, "s1", h.sender.reqs[0].SessionID)
	assert.Equal(t, "Hello", h.sender.reqs[0].Content)
	h.sender.mu.Unlock()

	assertAppendOnly(t, h.rec.all(), reply.ID)
	assertSingleStreaming(t, h.rec.all())
}

func TestSendMessage_FailureReplacesPartialContent(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.SwitchSession("s1")

	st, done := h.sendAsync(t, SendRequest{SessionID: "s1", Content: "Hello"})
	replyID := h.engine.Snapshot().StreamingID

	st.steps <- step{frag: "Hi"}
	h.waitContent(t, replyID, "Hi")
	st.steps <- step{err: &transport.TransportError{NetworkFailure: true, Partial: "Hi", Err: io.ErrUnexpectedEOF}}
	require.NoError(t, waitDone(t, done), "transport errors must not escape the engine")

	snap := h.engine.Snapshot()
	got, ok := findMessage(snap, replyID)
	require.True(t, ok)
	assert.Equal(t, DefaultErrorText, got.Content)
	assert.True(t, got.IsError)
	assert.False(t, got.IsStreaming)
	assert.Equal(t, model.StatusErrored, got.Status)
	assert.False(t, snap.Responding)
	assert.False(t, snap.AuthRequired)

	assertSingleStreaming(t, h.rec.all())
}

func TestSendMessage_OpenFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		auth bool
	}{
		{"http status", &transport.TransportError{HTTPStatus: http.StatusInternalServerError}, false},
		{"auth", &transport.TransportError{AuthFailure: true, Err: transport.ErrNoCredentials}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.sender.openErr = tc.err
			h.engine.SwitchSession("s1")

			require.NoError(t, h.engine.SendMessage(context.Background(), SendRequest{SessionID: "s1", Content: "x"}))

			snap := h.engine.Snapshot()
			require.Len(t, snap.Messages, 2)
			assert.True(t, snap.Messages[1].IsError)
			assert.Equal(t, DefaultErrorText, snap.Messages[1].Content)
			assert.False(t, snap.Responding)
			assert.Equal(t, tc.auth, snap.AuthRequired)
		})
	}
}

func TestSendMessage_CustomErrorText(t *testing.T) {
	sender := newFakeSender()
	sender.openErr = &transport.TransportError{HTTPStatus: 502}
	e := New(Options{Sender: sender, ErrorText: "Try again later."})
	defer e.Close()
	e.SwitchSession("s1")

	require.NoError(t, e.SendMessage(context.Background(), SendRequest{SessionID: "s1", Content: "x"}))
	assert.Equal(t, "Try again later.", e.Snapshot().Messages[1].Content)
}

func TestSendMessage_Validation(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.SwitchSession("s1")
	before := len(h.rec.all())

	err := h.engine.SendMessage(context.Background(), SendRequest{SessionID: "s1", Content: "   "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, h.engine.Snapshot().Messages)
	assert.Len(t, h.rec.all(), before, "rejected submission must not publish")

	st, done := h.sendAsync(t, SendRequest{
		SessionID:  "s1",
		Attachment: &model.Attachment{Name: "cat.png", ContentType: "image/png", Data: []byte{1}},
	})
	user := h.engine.Snapshot().Messages[0]
	assert.Equal(t, "file://cat.png", user.AttachmentURL)
	close(st.steps)
	require.NoError(t, waitDone(t, done))
}

func TestSendMessage_OneOutstandingSend(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.SwitchSession("s1")

	st, done := h.sendAsync(t, SendRequest{SessionID: "s1", Content: "first"})

	err := h.engine.SendMessage(context.Background(), SendRequest{SessionID: "s1", Content: "second"})
	assert.ErrorIs(t, err, ErrResponding)
	assert.Len(t, h.engine.Snapshot().Messages, 2)

	close(st.steps)
	require.NoError(t, waitDone(t, done))

	st2, done2 := h.sendAsync(t, SendRequest{SessionID: "s1", Content: "second"})
	close(st2.steps)
	require.NoError(t, waitDone(t, done2))
	assert.Len(t, h.engine.Snapshot().Messages, 4)
	assertSingleStreaming(t, h.rec.all())
}

func TestSendMessage_SessionMismatch(t *testing.T) {
	h := newHarness(t, nil)
	err := h.engine.SendMessage(context.Background(), SendRequest{SessionID: "s1", Content: "x"})
	assert.ErrorIs(t, err, ErrSessionMismatch)

	h.engine.SwitchSession("s1")
	err = h.engine.SendMessage(context.Background(), SendRequest{SessionID: "s2", Content: "x"})
	assert.ErrorIs(t, err, ErrSessionMismatch)
}

func TestTerminalReplyIgnoresLateFragments(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.SwitchSession("s1")

	st, done := h.sendAsync(t, SendRequest{SessionID: "s1", Content: "x"})
	replyID := h.engine.Snapshot().StreamingID
	st.steps <- step{frag: "done"}
	close(st.steps)
	require.NoError(t, waitDone(t, done))

	assert.False(t, h.engine.apply(replyID, " late"))
	assert.False(t, h.engine.finish(replyID))
	h.engine.fail(replyID, errors.New("late"))

	got, _ := findMessage(h.engine.Snapshot(), replyID)
	assert.Equal(t, "done", got.Content)
	assert.False(t, got.IsError)
	assert.False(t, got.IsStreaming)
}

// =============================================================================
// SESSION SWITCHING
// =============================================================================

func TestSwitchSession_AbandonsStream(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.SwitchSession("s1")

	st, done := h.sendAsync(t, SendRequest{SessionID: "s1", Content: "x"})
	replyID := h.engine.Snapshot().StreamingID
	st.steps <- step{frag: "Hi"}
	h.waitContent(t, replyID, "Hi")

	h.engine.SwitchSession("s2")
	require.NoError(t, waitDone(t, done))

	select {
	case <-st.closed:
	case <-time.After(5 * time.Second):
		t.Fatal("abandoned stream was not closed")
	}
	assert.Error(t, st.ctx.Err(), "abandoned stream context must be cancelled")

	snap := h.engine.Snapshot()
	assert.Equal(t, "s2", snap.SessionID)
	assert.Empty(t, snap.Messages)
	assert.False(t, snap.Responding)

	assert.False(t, h.engine.apply(replyID, "ignored"))
	assert.Empty(t, h.engine.Snapshot().Messages)

	for _, s := range h.rec.all() {
		if s.SessionID != "s2" {
			continue
		}
		_, leaked := findMessage(s, replyID)
		assert.False(t, leaked, "old reply leaked into new session")
	}
}

func TestSwitchSession_DiscardsForeignPending(t *testing.T) {
	h := newHarness(t, nil)
	h.pending.Put(pending.Message{Content: "hi"})
	require.NoError(t, h.pending.Bind("s1"))

	h.engine.SwitchSession("s1")
	_, ok := h.pending.Peek()
	assert.True(t, ok, "pending message for the new session must survive")

	h.engine.SwitchSession("s2")
	_, ok = h.pending.Peek()
	assert.False(t, ok)
}

func TestSwitchSession_SameSessionNoop(t *testing.T) {
	h := newHarness(t, serverHistory(model.Message{ID: "1", Role: model.RoleUser, Content: "a"}))
	h.engine.SwitchSession("s1")
	require.NoError(t, h.engine.LoadHistory(context.Background(), "s1"))

	h.engine.SwitchSession("s1")
	assert.Len(t, h.engine.Snapshot().Messages, 1)
}

// =============================================================================
// HISTORY GUARDS
// =============================================================================

func TestLoadHistory_Replaces(t *testing.T) {
	hist := serverHistory(
		model.Message{ID: "1", Role: model.RoleUser, Content: "a"},
		model.Message{ID: "2", Role: model.RoleAssistant, Content: "b"},
	)
	h := newHarness(t, hist)
	h.engine.SwitchSession("s1")

	require.NoError(t, h.engine.LoadHistory(context.Background(), "s1"))
	snap := h.engine.Snapshot()
	assert.True(t, snap.Loaded)
	assert.Len(t, snap.Messages, 2)

	assert.ErrorIs(t, h.engine.LoadHistory(context.Background(), "other"), ErrSessionMismatch)
}

func TestLoadHistory_DeferredWhileResponding(t *testing.T) {
	hist := serverHistory(model.Message{ID: "old", Role: model.RoleUser, Content: "stale"})
	h := newHarness(t, hist)
	h.engine.SwitchSession("s1")

	st, done := h.sendAsync(t, SendRequest{SessionID: "s1", Content: "Hello"})
	replyID := h.engine.Snapshot().StreamingID
	st.steps <- step{frag: "Hi"}
	h.waitContent(t, replyID, "Hi")

	assert.ErrorIs(t, h.engine.LoadHistory(context.Background(), "s1"), ErrHistoryDeferred)
	assert.Zero(t, hist.Calls(), "no fetch while responding")

	snap := h.engine.Snapshot()
	streaming, ok := snap.Streaming()
	require.True(t, ok)
	assert.Equal(t, "Hi", streaming.Content)
	for _, m := range snap.Messages {
		assert.NotEqual(t, "old", m.ID, "snapshot applied while responding")
	}

	close(st.steps)
	require.NoError(t, waitDone(t, done))

	require.NoError(t, h.engine.LoadHistory(context.Background(), "s1"))
	assert.Len(t, h.engine.Snapshot().Messages, 1)
}

func TestLoadHistory_StaleFetchDoesNotClobberSend(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	hist := &fakeHistory{fetch: func(ctx context.Context, _ string) ([]model.Message, error) {
		close(started)
		<-release
		return []model.Message{{ID: "srv", Role: model.RoleUser, Content: "stale"}}, nil
	}}
	h := newHarness(t, hist)
	h.engine.SwitchSession("s1")

	loadErr := make(chan error, 1)
	go func() { loadErr <- h.engine.LoadHistory(context.Background(), "s1") }()
	<-started

	st, done := h.sendAsync(t, SendRequest{SessionID: "s1", Content: "Hello"})
	st.steps <- step{frag: "Hi"}
	close(st.steps)
	require.NoError(t, waitDone(t, done))

	close(release)
	assert.ErrorIs(t, <-loadErr, ErrHistoryDeferred)

	snap := h.engine.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "Hi", snap.Messages[1].Content)
}

func TestLoadHistory_DeferredForUnsentPending(t *testing.T) {
	hist := serverHistory()
	h := newHarness(t, hist)
	h.pending.Put(pending.Message{Content: "Tell me a joke"})
	require.NoError(t, h.pending.Bind("s1"))
	h.engine.SwitchSession("s1")

	assert.ErrorIs(t, h.engine.LoadHistory(context.Background(), "s1"), ErrHistoryDeferred)
	assert.Zero(t, hist.Calls())

	_, ok := h.pending.Claim("s1")
	require.True(t, ok)
	assert.NoError(t, h.engine.LoadHistory(context.Background(), "s1"))
}

func TestLoadHistory_FetchError(t *testing.T) {
	boom := errors.New("boom")
	h := newHarness(t, &fakeHistory{fetch: func(context.Context, string) ([]model.Message, error) { return nil, boom }})
	h.engine.SwitchSession("s1")
	assert.ErrorIs(t, h.engine.LoadHistory(context.Background(), "s1"), boom)
	assert.False(t, h.engine.Snapshot().Loaded)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestClose_FailsActiveReply(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.SwitchSession("s1")
	_, done := h.sendAsync(t, SendRequest{SessionID: "s1", Content: "x"})
	replyID := h.engine.Snapshot().StreamingID

	h.engine.Close()
	require.NoError(t, waitDone(t, done))

	got, _ := findMessage(h.engine.Snapshot(), replyID)
	assert.True(t, got.IsError)
	assert.ErrorIs(t, h.engine.SendMessage(context.Background(), SendRequest{SessionID: "s1", Content: "x"}), ErrClosed)
	assert.ErrorIs(t, h.engine.LoadHistory(context.Background(), "s1"), ErrClosed)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	e := New(Options{})
	var count int
	var mu sync.Mutex
	unsub := e.Subscribe(func(Snapshot) { mu.Lock(); count++; mu.Unlock() })
	e.SwitchSession("a")
	unsub()
	e.SwitchSession("b")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}

// =============================================================================
// PROPERTY HELPERS
// =============================================================================

func findMessage(s Snapshot, id string) (model.Message, bool) {
	for _, m := range s.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return model.Message{}, false
}

// assertAppendOnly checks that the reply's content only grows while it is
// streaming.
func assertAppendOnly(t *testing.T, snaps []Snapshot, replyID string) {
	t.Helper()
	prev := ""
	for _, s := range snaps {
		m, ok := findMessage(s, replyID)
		if !ok || m.IsError {
			continue
		}
		if !strings.HasPrefix(m.Content, prev) {
			t.Errorf("content %q does not extend %q", m.Content, prev)
		}
		prev = m.Content
	}
}

func assertSingleStreaming(t *testing.T, snaps []Snapshot) {
	t.Helper()
	for _, s := range snaps {
		n := 0
		for _, m := range s.Messages {
			if m.IsStreaming {
				n++
			}
		}
		if n > 1 {
			t.Errorf("snapshot v%d has %d streaming messages", s.Version, n)
		}
	}
}
