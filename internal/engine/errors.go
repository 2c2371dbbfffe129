// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrResponding is returned by SendMessage while a reply is streaming.
	ErrResponding = errors.New("a reply is still streaming")

	// ErrSessionMismatch is returned when an operation names a session
	// other than the selected one.
	ErrSessionMismatch = errors.New("session is not selected")

	// ErrHistoryDeferred is returned when a history snapshot was dropped to
	// protect local state that the server may not have recorded yet.
	ErrHistoryDeferred = errors.New("history load deferred")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("engine closed")
)

// ValidationError rejects a submission without touching state.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid message: %s", e.Reason)
}
