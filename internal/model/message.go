// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/helia-tui/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Helia"
	default:
		return string(r)
	}
}

// =============================================================================
// STATUS
// =============================================================================

// Status is the lifecycle state of a message.
//
// Assistant replies move pending -> streaming -> finalized or errored.
// Finalized and errored are terminal. User messages and messages loaded
// from the server are created finalized.
type Status int

const (
	StatusFinalized Status = iota
	StatusPending
	StatusStreaming
	StatusErrored
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusFinalized:
		return "finalized"
	case StatusPending:
		return "pending"
	case StatusStreaming:
		return "streaming"
	case StatusErrored:
		return "errored"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusFinalized || s == StatusErrored
}

// =============================================================================
// IDS
// =============================================================================

// ClientIDPrefix tags ids generated on this side of the wire. Server ids
// never carry it.
const ClientIDPrefix = "local-"

// NewClientID returns a namespaced client id for a message of the given role.
func NewClientID(role Role) string {
	return ClientIDPrefix + string(role) + "-" + uuid.NewString()
}

// IsClientID reports whether id was generated locally.
func IsClientID(id string) bool {
	return strings.HasPrefix(id, ClientIDPrefix)
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// PlaceholderText is shown for a streaming message with no content yet.
const PlaceholderText = "..."

// Message represents a single message in a chat session.
type Message struct {
	ID            string    `json:"id"`
	Role          Role      `json:"role"`
	Content       string    `json:"content"`
	AttachmentURL string    `json:"image_url,omitempty"`
	Timestamp     time.Time `json:"timestamp"`

	// Streaming state (not persisted)
	IsStreaming bool   `json:"-"`
	IsError     bool   `json:"-"`
	Status      Status `json:"-"`
}

// NewUserMessage creates a finalized user message with a client id.
func NewUserMessage(content, attachmentURL string) Message {
	return Message{
		ID:            NewClientID(RoleUser),
		Role:          RoleUser,
		Content:       content,
		AttachmentURL: attachmentURL,
		Timestamp:     time.Now().UTC(),
		Status:        StatusFinalized,
	}
}

// NewAssistantPlaceholder creates an empty assistant message awaiting its
// first fragment.
func NewAssistantPlaceholder() Message {
	return Message{
		ID:          NewClientID(RoleAssistant),
		Role:        RoleAssistant,
		Timestamp:   time.Now().UTC(),
		IsStreaming: true,
		Status:      StatusPending,
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// AppendFragment appends streamed text. Content only ever grows; the call
// is ignored once the message has left streaming.
func (m *Message) AppendFragment(fragment string) bool {
	if m.Status != StatusPending && m.Status != StatusStreaming {
		return false
	}
	m.Status = StatusStreaming
	m.Content += fragment
	return true
}

// Finalize completes a streaming message.
func (m *Message) Finalize() bool {
	if m.Status.Terminal() {
		return false
	}
	m.Status = StatusFinalized
	m.IsStreaming = false
	return true
}

// Fail replaces whatever was streamed with errText and marks the message
// errored.
func (m *Message) Fail(errText string) bool {
	if m.Status.Terminal() {
		return false
	}
	m.Status = StatusErrored
	m.Content = errText
	m.IsStreaming = false
	m.IsError = true
	return true
}

// DisplayContent returns the text to render.
func (m *Message) DisplayContent() string {
	if m.IsStreaming && m.Content == "" {
		return PlaceholderText
	}
	return m.Content
}

// Preview returns a truncated single-line preview of the message content.
func (m *Message) Preview(maxLen int) string {
	content := strings.Join(strings.Fields(m.DisplayContent()), " ")
	return util.TruncateRunes(content, maxLen)
}

// IsEmpty returns true if the message has neither text nor image.
func (m *Message) IsEmpty() bool {
	return m.Content == "" && m.AttachmentURL == ""
}

// UnmarshalJSON accepts numeric or string ids and the timestamp layouts the
// history endpoint emits.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID            json.RawMessage `json:"id"`
		Role          Role            `json:"role"`
		Content       string          `json:"content"`
		AttachmentURL string          `json:"image_url"`
		Timestamp     string          `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := decodeID(raw.ID)
	if err != nil {
		return fmt.Errorf("message id: %w", err)
	}
	ts, err := ParseTimestamp(raw.Timestamp)
	if err != nil {
		return fmt.Errorf("message timestamp: %w", err)
	}
	*m = Message{
		ID:            id,
		Role:          raw.Role,
		Content:       raw.Content,
		AttachmentURL: raw.AttachmentURL,
		Timestamp:     ts,
		Status:        StatusFinalized,
	}
	return nil
}

// =============================================================================
// JSON HELPERS
// =============================================================================

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without a zone are
// taken as UTC. An empty string yields the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
