// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/jeranaias/helia-tui/internal/pending"

// PendingSource is the part of the pending store the view uses.
type PendingSource interface {
	Peek() (pending.Message, bool)
	Claim(sessionID string) (pending.Message, bool)
	Clear(id string) bool
}

type mountAction int

const (
	mountIdle mountAction = iota
	mountSend
	mountLoadHistory
)

func (a mountAction) String() string {
	switch a {
	case mountSend:
		return "send"
	case mountLoadHistory:
		return "load-history"
	default:
		return "idle"
	}
}

// mountState decides what opening a session triggers. Each action fires at
// most once per (session, pending message) pair, however often step runs.
type mountState struct {
	sessionID string

	// pendingID is the pending instance already evaluated for sessionID.
	// Once set, the pending message owns the session and history is not
	// loaded.
	pendingID        string
	historyRequested bool
}

// step advances the machine for sessionID. On mountSend the returned
// message has already been claimed from store.
func (s *mountState) step(sessionID string, store PendingSource) (mountAction, pending.Message) {
	if sessionID != s.sessionID {
		*s = mountState{sessionID: sessionID}
	}
	if sessionID == "" {
		return mountIdle, pending.Message{}
	}

	if store != nil {
		if p, ok := store.Peek(); ok && p.TargetSessionID == sessionID && p.ID != s.pendingID {
			s.pendingID = p.ID
			if msg, ok := store.Claim(sessionID); ok {
				return mountSend, msg
			}
		}
	}

	if s.pendingID != "" || s.historyRequested {
		return mountIdle, pending.Message{}
	}
	s.historyRequested = true
	return mountLoadHistory, pending.Message{}
}
