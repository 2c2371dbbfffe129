// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import "github.com/jeranaias/helia-tui/internal/model"

// Snapshot is an immutable view of engine state.
type Snapshot struct {
	// Version increases with every published change.
	Version uint64

	SessionID string
	Messages  []model.Message

	// Responding is true from the optimistic append until the reply is
	// finalized or errored. Input must be disabled while it is set.
	Responding bool

	// StreamingID is the id of the reply being streamed, or "".
	StreamingID string

	// Loaded is set once server history has been applied for SessionID.
	Loaded bool

	// AuthRequired is set when the last send failed because credentials
	// were missing or rejected.
	AuthRequired bool
}

// Streaming returns the message being streamed.
func (s Snapshot) Streaming() (model.Message, bool) {
	if s.StreamingID == "" {
		return model.Message{}, false
	}
	for _, m := range s.Messages {
		if m.ID == s.StreamingID {
			return m, true
		}
	}
	return model.Message{}, false
}

// Subscriber receives snapshots. It is called outside the engine lock and
// must not block for long.
type Subscriber func(Snapshot)
