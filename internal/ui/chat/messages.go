// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/helia-tui/internal/engine"
	"github.com/jeranaias/helia-tui/internal/model"
)

// =============================================================================
// ENGINE
// =============================================================================

// SnapshotMsg carries engine state into the update loop.
type SnapshotMsg struct {
	Snapshot engine.Snapshot
}

// SendDoneMsg is returned when SendMessage returns, which happens after the
// reply is finalized, errored or abandoned.
type SendDoneMsg struct {
	SessionID string
	// PendingID is set when the send delivered a pending message.
	PendingID string
	Err       error
}

// HistoryLoadedMsg reports the outcome of a history load.
type HistoryLoadedMsg struct {
	SessionID string
	Err       error
}

// =============================================================================
// SESSIONS
// =============================================================================

// OpenSessionMsg asks the view to select a session. An empty ID starts a
// new chat.
type OpenSessionMsg struct {
	ID string
}

// SessionsMsg carries the server's session list.
type SessionsMsg struct {
	Sessions []model.Session
	Err      error
}

// ComposeDoneMsg reports the outcome of creating a session for a first
// message.
type ComposeDoneMsg struct {
	Session model.Session
	// Draft and Attachment are the submission, restored on failure.
	Draft      string
	Attachment *model.Attachment
	Err        error
}

// SessionDeletedMsg reports a session deletion.
type SessionDeletedMsg struct {
	ID  string
	Err error
}

// =============================================================================
// AUTH AND STATUS
// =============================================================================

// AuthChangedMsg is sent when credentials change outside the view.
type AuthChangedMsg struct {
	LoggedIn bool
}

// ErrorMsg shows an error in the status bar.
type ErrorMsg struct {
	Err error
}
