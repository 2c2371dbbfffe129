// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import "errors"

// ErrAlreadyStreaming is returned when a second streaming message is added.
var ErrAlreadyStreaming = errors.New("history already has a streaming message")

// MaxMessages caps a loaded history; older messages are dropped first.
const MaxMessages = 1000

// =============================================================================
// HISTORY TYPE
// =============================================================================

// History is the ordered message list of one session. Insertion order is
// display order. At most one message is streaming at any time.
//
// History is not safe for concurrent use; the engine guards it.
type History struct {
	messages []Message
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{messages: make([]Message, 0, 16)}
}

// Add appends a message.
func (h *History) Add(msg Message) error {
	if msg.IsStreaming && h.StreamingID() != "" {
		return ErrAlreadyStreaming
	}
	h.messages = append(h.messages, msg)
	return nil
}

// Apply runs fn on the message with the given id. It returns false when the
// id is unknown or fn reports no change.
func (h *History) Apply(id string, fn func(*Message) bool) bool {
	for i := range h.messages {
		if h.messages[i].ID == id {
			return fn(&h.messages[i])
		}
	}
	return false
}

// Get returns a copy of the message with the given id.
func (h *History) Get(id string) (Message, bool) {
	for _, m := range h.messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// StreamingID returns the id of the streaming message, or "".
func (h *History) StreamingID() string {
	for _, m := range h.messages {
		if m.IsStreaming {
			return m.ID
		}
	}
	return ""
}

// Replace swaps in a server snapshot. Snapshot messages are never streaming.
func (h *History) Replace(msgs []Message) {
	if len(msgs) > MaxMessages {
		msgs = msgs[len(msgs)-MaxMessages:]
	}
	h.messages = make([]Message, len(msgs))
	for i, m := range msgs {
		m.IsStreaming = false
		if !m.Status.Terminal() {
			m.Status = StatusFinalized
		}
		h.messages[i] = m
	}
}

// Clear removes all messages.
func (h *History) Clear() {
	h.messages = h.messages[:0]
}

// Len returns the number of messages.
func (h *History) Len() int {
	return len(h.messages)
}

// Messages returns a copy of the messages in display order.
func (h *History) Messages() []Message {
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Last returns the last message, if any.
func (h *History) Last() (Message, bool) {
	if len(h.messages) == 0 {
		return Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}
