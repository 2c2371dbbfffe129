// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/helia-tui/internal/logging"
	"github.com/jeranaias/helia-tui/internal/model"
	"github.com/jeranaias/helia-tui/internal/transport"
)

// DefaultErrorText replaces a reply whose stream failed.
const DefaultErrorText = "Sorry, there was an error processing your request."

// Sender opens reply streams.
type Sender interface {
	Send(ctx context.Context, req transport.Request) (transport.Fragments, error)
}

// HistorySource fetches the server's canonical history.
type HistorySource interface {
	GetHistory(ctx context.Context, sessionID string) ([]model.Message, error)
}

// PendingGuard is the part of the pending store the engine consults.
type PendingGuard interface {
	BlocksHistory(sessionID string) bool
	DiscardUnlessTarget(sessionID string) bool
}

// Options configures an Engine.
type Options struct {
	Sender  Sender
	History HistorySource
	Pending PendingGuard

	// ErrorText replaces failed replies. Defaults to DefaultErrorText.
	ErrorText string

	Logger *slog.Logger
}

// SendRequest is one user submission.
type SendRequest struct {
	SessionID  string
	Content    string
	Attachment *model.Attachment
	ModelID    string
}

// Engine holds the selected session's history and streaming state.
type Engine struct {
	sender    Sender
	history   HistorySource
	pending   PendingGuard
	errorText string
	logger    *slog.Logger

	mu           sync.Mutex
	sessionID    string
	hist         *model.History
	responding   bool
	streamingID  string
	loaded       bool
	authRequired bool
	sendSeq      uint64
	version      uint64
	closed       bool

	cancel *cancelManager

	subsMu  sync.Mutex
	subs    map[int]Subscriber
	nextSub int
}

// New creates an Engine with no session selected.
func New(opts Options) *Engine {
	e := &Engine{
		sender:    opts.Sender,
		history:   opts.History,
		pending:   opts.Pending,
		errorText: opts.ErrorText,
		logger:    logging.OrDiscard(opts.Logger).With("component", "engine"),
		hist:      model.NewHistory(),
		cancel:    newCancelManager(),
		subs:      make(map[int]Subscriber),
	}
	if e.errorText == "" {
		e.errorText = DefaultErrorText
	}
	return e
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers fn for state changes and returns a function that
// removes it.
func (e *Engine) Subscribe(fn Subscriber) func() {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return func() {
		e.subsMu.Lock()
		defer e.subsMu.Unlock()
		delete(e.subs, id)
	}
}

func (e *Engine) publish(snap Snapshot) {
	e.subsMu.Lock()
	subs := make([]Subscriber, 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.subsMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// snapshotLocked bumps the version and captures state. e.mu must be held.
func (e *Engine) snapshotLocked() Snapshot {
	e.version++
	return Snapshot{
		Version:      e.version,
		SessionID:    e.sessionID,
		Messages:     e.hist.Messages(),
		Responding:   e.responding,
		StreamingID:  e.streamingID,
		Loaded:       e.loaded,
		AuthRequired: e.authRequired,
	}
}

// Snapshot returns the current state without bumping the version.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Version:      e.version,
		SessionID:    e.sessionID,
		Messages:     e.hist.Messages(),
		Responding:   e.responding,
		StreamingID:  e.streamingID,
		Loaded:       e.loaded,
		AuthRequired: e.authRequired,
	}
}

// SessionID returns the selected session.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// IsResponding reports whether a reply is streaming.
func (e *Engine) IsResponding() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.responding
}

// =============================================================================
// SEND
// =============================================================================

// SendMessage appends the user message and a streaming placeholder, then
// streams the reply into the placeholder. It blocks until the reply is
// finalized, errored, or abandoned by a session switch.
//
// Transport failures do not surface here; they turn the reply into an
// errored message. The returned error reports only a rejected submission:
// *ValidationError, ErrResponding, ErrSessionMismatch or ErrClosed.
func (e *Engine) SendMessage(ctx context.Context, req SendRequest) error {
	if strings.TrimSpace(req.Content) == "" && req.Attachment == nil {
		return &ValidationError{Reason: "message has no text or image"}
	}

	e.mu.Lock()
	switch {
	case e.closed:
		e.mu.Unlock()
		return ErrClosed
	case req.SessionID == "" || req.SessionID != e.sessionID:
		e.mu.Unlock()
		return fmt.Errorf("send to %q: %w", req.SessionID, ErrSessionMismatch)
	case e.responding:
		e.mu.Unlock()
		return ErrResponding
	}

	user := model.NewUserMessage(req.Content, req.Attachment.LocalURL())
	reply := model.NewAssistantPlaceholder()
	if err := e.hist.Add(user); err != nil {
		e.mu.Unlock()
		return err
	}
	if err := e.hist.Add(reply); err != nil {
		e.mu.Unlock()
		return err
	}

	e.responding = true
	e.streamingID = reply.ID
	e.authRequired = false
	e.sendSeq++

	streamCtx, cancel := context.WithCancel(ctx)
	e.cancel.set(reply.ID, cancel)

	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)

	e.logger.Debug("send started",
		"session", req.SessionID,
		"reply", reply.ID,
		"chars", len(req.Content),
		"has_image", req.Attachment != nil)

	e.stream(streamCtx, req, reply.ID)
	e.cancel.clear(reply.ID)
	return nil
}

// stream pulls fragments until the reply ends or is abandoned.
func (e *Engine) stream(ctx context.Context, req SendRequest, replyID string) {
	start := time.Now()

	if e.sender == nil {
		e.fail(replyID, &transport.TransportError{Err: errors.New("no transport configured")})
		return
	}

	frags, err := e.sender.Send(ctx, transport.Request{
		SessionID:  req.SessionID,
		Content:    req.Content,
		Attachment: req.Attachment,
		ModelID:    req.ModelID,
	})
	if err != nil {
		e.fail(replyID, err)
		return
	}
	defer frags.Close()

	count := 0
	for {
		frag, err := frags.Next()
		if errors.Is(err, io.EOF) {
			if e.finish(replyID) {
				e.logger.Debug("reply finalized",
					"reply", replyID,
					"fragments", count,
					"duration", time.Since(start))
			}
			return
		}
		if err != nil {
			e.fail(replyID, err)
			return
		}
		if frag == "" {
			continue
		}
		if !e.apply(replyID, frag) {
			e.logger.Debug("stream abandoned", "reply", replyID, "fragments", count)
			return
		}
		count++
	}
}

// apply appends one fragment. It returns false when replyID is no longer
// the active stream.
func (e *Engine) apply(replyID, frag string) bool {
	e.mu.Lock()
	if e.streamingID != replyID {
		e.mu.Unlock()
		return false
	}
	e.hist.Apply(replyID, func(m *model.Message) bool { return m.AppendFragment(frag) })
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
	return true
}

func (e *Engine) finish(replyID string) bool {
	return e.settle(replyID, func(m *model.Message) bool { return m.Finalize() })
}

func (e *Engine) fail(replyID string, err error) {
	applied := e.settle(replyID, func(m *model.Message) bool { return m.Fail(e.errorText) })
	if !applied {
		e.logger.Debug("error on abandoned stream", "reply", replyID, "error", err)
		return
	}

	authFailure := transport.IsAuthFailure(err)
	if authFailure {
		e.mu.Lock()
		e.authRequired = true
		snap := e.snapshotLocked()
		e.mu.Unlock()
		e.publish(snap)
	}
	e.logger.Warn("reply failed",
		"reply", replyID,
		"auth", authFailure,
		"error", err)
}

// settle moves the active reply to a terminal state and clears the
// responding gate.
func (e *Engine) settle(replyID string, transition func(*model.Message) bool) bool {
	e.mu.Lock()
	if e.streamingID != replyID {
		e.mu.Unlock()
		return false
	}
	e.hist.Apply(replyID, transition)
	e.streamingID = ""
	e.responding = false
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
	return true
}

// =============================================================================
// HISTORY
// =============================================================================

// LoadHistory replaces local history with the server's copy for
// sessionID. It returns ErrHistoryDeferred, leaving local state untouched,
// when a reply is streaming, an unsent pending message targets the
// session, or a send started while the fetch was in flight.
func (e *Engine) LoadHistory(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if sessionID == "" || sessionID != e.sessionID {
		e.mu.Unlock()
		return fmt.Errorf("load history for %q: %w", sessionID, ErrSessionMismatch)
	}
	if e.historyBlockedLocked(sessionID) {
		e.mu.Unlock()
		return ErrHistoryDeferred
	}
	seq := e.sendSeq
	e.mu.Unlock()

	if e.history == nil {
		return errors.New("no history source configured")
	}
	msgs, err := e.history.GetHistory(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	e.mu.Lock()
	switch {
	case e.sessionID != sessionID:
		e.mu.Unlock()
		return fmt.Errorf("load history for %q: %w", sessionID, ErrSessionMismatch)
	case e.historyBlockedLocked(sessionID), e.sendSeq != seq:
		e.mu.Unlock()
		e.logger.Debug("history snapshot dropped", "session", sessionID, "messages", len(msgs))
		return ErrHistoryDeferred
	}
	e.hist.Replace(msgs)
	e.loaded = true
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)

	e.logger.Debug("history loaded", "session", sessionID, "messages", len(msgs))
	return nil
}

func (e *Engine) historyBlockedLocked(sessionID string) bool {
	if e.responding {
		return true
	}
	return e.pending != nil && e.pending.BlocksHistory(sessionID)
}

// =============================================================================
// SESSION SWITCHING
// =============================================================================

// SwitchSession selects sessionID, discarding the old session's history
// and aborting its stream. A pending message bound to another session is
// discarded. Switching to the selected session is a no-op.
func (e *Engine) SwitchSession(sessionID string) {
	e.mu.Lock()
	if e.closed || sessionID == e.sessionID {
		e.mu.Unlock()
		return
	}

	old := e.sessionID
	abandoned := e.streamingID
	e.cancel.cancel()

	e.sessionID = sessionID
	e.hist = model.NewHistory()
	e.responding = false
	e.streamingID = ""
	e.loaded = false
	e.authRequired = false

	if e.pending != nil {
		e.pending.DiscardUnlessTarget(sessionID)
	}

	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)

	e.logger.Debug("session switched", "from", old, "to", sessionID, "abandoned", abandoned)
}

// Close aborts any active stream, marking its reply errored, and rejects
// further operations.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if e.streamingID != "" {
		e.hist.Apply(e.streamingID, func(m *model.Message) bool { return m.Fail(e.errorText) })
	}
	e.streamingID = ""
	e.responding = false
	e.cancel.cancel()
}
