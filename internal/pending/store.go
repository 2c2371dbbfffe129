// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pending

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/jeranaias/helia-tui/internal/model"
)

var (
	// ErrNoPending is returned when there is no pending message to act on.
	ErrNoPending = errors.New("no pending message")

	// ErrAlreadyBound is returned when binding a message that already has a
	// target session.
	ErrAlreadyBound = errors.New("pending message already bound to a session")
)

// Message is a submission waiting for a session id.
type Message struct {
	// ID identifies this pending instance; a new Put always gets a new ID.
	ID string

	Content    string
	Attachment *model.Attachment
	ModelID    string

	// TargetSessionID is empty until session creation succeeds.
	TargetSessionID string

	// Sent flips to true exactly once, when the message is claimed.
	Sent bool
}

// Store holds at most one pending message.
type Store struct {
	mu      sync.Mutex
	current *Message
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Put replaces any pending message with msg, unbound and unsent. It returns
// the stored instance id.
func (s *Store) Put(msg Message) string {
	msg.ID = uuid.NewString()
	msg.TargetSessionID = ""
	msg.Sent = false

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &msg
	return msg.ID
}

// Bind assigns the target session to the pending message.
func (s *Store) Bind(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ErrNoPending
	}
	if s.current.TargetSessionID != "" {
		return ErrAlreadyBound
	}
	s.current.TargetSessionID = sessionID
	return nil
}

// BindID binds the pending message only if it is still the instance id
// returned by Put.
func (s *Store) BindID(id, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.ID != id {
		return ErrNoPending
	}
	if s.current.TargetSessionID != "" {
		return ErrAlreadyBound
	}
	s.current.TargetSessionID = sessionID
	return nil
}

// Peek returns a copy of the pending message.
func (s *Store) Peek() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Message{}, false
	}
	return *s.current, true
}

// Claim marks the pending message sent and returns it, but only when it is
// bound to sessionID and has not been sent. Only the first caller for a
// given instance gets ok == true.
func (s *Store) Claim(sessionID string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.Sent {
		return Message{}, false
	}
	if sessionID == "" || s.current.TargetSessionID != sessionID {
		return Message{}, false
	}
	s.current.Sent = true
	return *s.current, true
}

// BlocksHistory reports whether an unsent pending message targets
// sessionID. History snapshots for that session must not be applied until
// the message is sent.
func (s *Store) BlocksHistory(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current != nil && !s.current.Sent && s.current.TargetSessionID == sessionID
}

// Clear discards the pending message with the given instance id. An empty
// id discards whatever is pending.
func (s *Store) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || (id != "" && s.current.ID != id) {
		return false
	}
	s.current = nil
	return true
}

// DiscardUnlessTarget drops the pending message when it does not target
// sessionID. It is called on session switch.
func (s *Store) DiscardUnlessTarget(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.TargetSessionID == sessionID {
		return false
	}
	s.current = nil
	return true
}
