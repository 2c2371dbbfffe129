// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"sync"
)

// =============================================================================
// CANCEL FUNCTION MANAGEMENT (THREAD-SAFE)
// =============================================================================

// cancelManager holds the cancel function of the active stream, keyed by
// the stream's reply id so a finishing stream never clears its successor.
type cancelManager struct {
	mu         sync.Mutex
	streamID   string
	cancelFunc context.CancelFunc
}

func newCancelManager() *cancelManager {
	return &cancelManager{}
}

// set stores fn for streamID, cancelling any previous stream.
func (cm *cancelManager) set(streamID string, fn context.CancelFunc) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
	}
	cm.streamID = streamID
	cm.cancelFunc = fn
}

// cancel aborts whatever stream is active. Safe to call with none.
func (cm *cancelManager) cancel() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
		cm.cancelFunc = nil
		cm.streamID = ""
	}
}

// clear releases the context of streamID if it is still the active one.
func (cm *cancelManager) clear(streamID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil && cm.streamID == streamID {
		cm.cancelFunc()
		cm.cancelFunc = nil
		cm.streamID = ""
	}
}

// active returns the id of the stream holding a cancel function.
func (cm *cancelManager) active() string {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.streamID
}
