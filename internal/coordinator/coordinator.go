// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/helia-tui/internal/engine"
	"github.com/jeranaias/helia-tui/internal/logging"
	"github.com/jeranaias/helia-tui/internal/model"
	"github.com/jeranaias/helia-tui/internal/pending"
	"github.com/jeranaias/helia-tui/internal/util"
)

// DefaultNameLength is the number of runes kept from the first message when
// naming a new session.
const DefaultNameLength = 30

// ErrBusy is returned while another first message is being composed.
var ErrBusy = errors.New("session creation already in progress")

// SessionCreator is the part of the sessions API the coordinator needs.
type SessionCreator interface {
	CreateSession(ctx context.Context, name string) (model.Session, error)
}

// Navigator moves the UI to a session.
type Navigator func(sessionID string)

// SessionCreationError reports a failed session creation. The pending
// submission has already been discarded when it is returned.
type SessionCreationError struct {
	Name string
	Err  error
}

func (e *SessionCreationError) Error() string {
	return fmt.Sprintf("create session %q: %v", e.Name, e.Err)
}

func (e *SessionCreationError) Unwrap() error {
	return e.Err
}

// Options configures a Coordinator.
type Options struct {
	Sessions SessionCreator
	Pending  *pending.Store
	Navigate Navigator

	// NameLength bounds derived session names. Defaults to DefaultNameLength.
	NameLength int

	Logger *slog.Logger
}

// Coordinator creates sessions for first messages.
type Coordinator struct {
	sessions   SessionCreator
	pending    *pending.Store
	navigate   Navigator
	nameLength int
	logger     *slog.Logger

	mu       sync.Mutex
	creating bool
}

// New creates a Coordinator.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		sessions:   opts.Sessions,
		pending:    opts.Pending,
		navigate:   opts.Navigate,
		nameLength: opts.NameLength,
		logger:     logging.OrDiscard(opts.Logger).With("component", "coordinator"),
	}
	if c.nameLength <= 0 {
		c.nameLength = DefaultNameLength
	}
	if c.pending == nil {
		c.pending = pending.NewStore()
	}
	return c
}

// Pending returns the store pending messages are written to.
func (c *Coordinator) Pending() *pending.Store {
	return c.pending
}

// Creating reports whether a session creation request is in flight.
func (c *Coordinator) Creating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creating
}

// DeriveSessionName builds a display name from the first message: the
// first maxRunes runes, followed by "..." when the message is longer.
func DeriveSessionName(content string, maxRunes int) string {
	name := strings.Join(strings.Fields(norm.NFC.String(content)), " ")
	if maxRunes <= 0 {
		maxRunes = DefaultNameLength
	}
	return util.TruncatePrefix(name, maxRunes)
}

// ComposeFirstMessage creates a session named after content and leaves the
// submission pending for it. On success the pending message is bound to
// the new session before the navigator runs, so the chat view mounting on
// that session finds it. On failure the submission is discarded and a
// *SessionCreationError is returned; nothing is retried.
func (c *Coordinator) ComposeFirstMessage(ctx context.Context, content string, attachment *model.Attachment, modelID string) (model.Session, error) {
	if strings.TrimSpace(content) == "" && attachment == nil {
		return model.Session{}, &engine.ValidationError{Reason: "message has no text or image"}
	}
	if c.sessions == nil {
		return model.Session{}, errors.New("no sessions API configured")
	}

	c.mu.Lock()
	if c.creating {
		c.mu.Unlock()
		return model.Session{}, ErrBusy
	}
	c.creating = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.creating = false
		c.mu.Unlock()
	}()

	name := DeriveSessionName(content, c.nameLength)
	if name == "" && attachment != nil {
		name = attachment.Name
	}

	pendingID := c.pending.Put(pending.Message{
		Content:    content,
		Attachment: attachment,
		ModelID:    modelID,
	})

	session, err := c.sessions.CreateSession(ctx, name)
	if err == nil && session.ID == "" {
		err = errors.New("server returned a session without an id")
	}
	if err != nil {
		c.pending.Clear(pendingID)
		c.logger.Warn("session creation failed", "error", err)
		return model.Session{}, &SessionCreationError{Name: name, Err: err}
	}

	if err := c.pending.BindID(pendingID, session.ID); err != nil {
		// Replaced or cleared while the request was in flight.
		c.logger.Debug("pending message not bound", "session", session.ID, "error", err)
	}

	c.logger.Info("session created", "session", session.ID, "name_len", util.RuneLen(name))
	if c.navigate != nil {
		c.navigate(session.ID)
	}
	return session, nil
}
