// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Session is the client-side projection of a server chat session.
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns the session name, or a fallback for unnamed sessions.
func (s Session) DisplayName() string {
	if s.Name == "" {
		return "Untitled chat"
	}
	return s.Name
}

// UnmarshalJSON accepts numeric or string ids and zone-less timestamps.
func (s *Session) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        json.RawMessage `json:"id"`
		Name      string          `json:"name"`
		CreatedAt string          `json:"created_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := decodeID(raw.ID)
	if err != nil {
		return fmt.Errorf("session id: %w", err)
	}
	created, err := ParseTimestamp(raw.CreatedAt)
	if err != nil {
		return fmt.Errorf("session created_at: %w", err)
	}
	*s = Session{ID: id, Name: raw.Name, CreatedAt: created}
	return nil
}
