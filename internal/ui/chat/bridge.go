// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/helia-tui/internal/engine"
)

// SnapshotBridge forwards engine snapshots into a running tea.Program.
//
// The engine publishes from whatever goroutine changed its state, including
// from inside Update (SwitchSession). tea.Program.Send blocks until the
// update loop receives the message, so it must never be called from
// Publish. Publish only records the newest snapshot; Run delivers it from
// its own goroutine. Intermediate snapshots may be skipped, never reordered.
type SnapshotBridge struct {
	mu      sync.Mutex
	latest  engine.Snapshot
	pending bool
	signal  chan struct{}
}

// NewSnapshotBridge creates an idle bridge.
func NewSnapshotBridge() *SnapshotBridge {
	return &SnapshotBridge{signal: make(chan struct{}, 1)}
}

// Publish is an engine.Subscriber. It never blocks.
func (b *SnapshotBridge) Publish(s engine.Snapshot) {
	b.mu.Lock()
	if s.Version <= b.latest.Version {
		b.mu.Unlock()
		return
	}
	b.latest = s
	b.pending = true
	b.mu.Unlock()

	select {
	case b.signal <- struct{}{}:
	default:
	}
}

// Run delivers snapshots to send until ctx is done. Pass tea.Program.Send.
func (b *SnapshotBridge) Run(ctx context.Context, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.signal:
		}

		b.mu.Lock()
		snap, ok := b.latest, b.pending
		b.pending = false
		b.mu.Unlock()

		if ok {
			send(SnapshotMsg{Snapshot: snap})
		}
	}
}
