// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/helia-tui/internal/engine"
)

type msgSink struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *msgSink) send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func (s *msgSink) versions() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint64, 0, len(s.msgs))
	for _, m := range s.msgs {
		out = append(out, m.(SnapshotMsg).Snapshot.Version)
	}
	return out
}

func TestSnapshotBridge_CoalescesToLatest(t *testing.T) {
	b := NewSnapshotBridge()
	for v := uint64(1); v <= 3; v++ {
		b.Publish(engine.Snapshot{Version: v})
	}
	// Older snapshots arriving late are dropped.
	b.Publish(engine.Snapshot{Version: 2})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &msgSink{}
	go b.Run(ctx, sink.send)

	require.Eventually(t, func() bool { return len(sink.versions()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []uint64{3}, sink.versions())

	b.Publish(engine.Snapshot{Version: 4})
	require.Eventually(t, func() bool { return len(sink.versions()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []uint64{3, 4}, sink.versions())
}

func TestSnapshotBridge_PublishNeverBlocks(t *testing.T) {
	b := NewSnapshotBridge()
	done := make(chan struct{})
	go func() {
		for v := uint64(1); v <= 1000; v++ {
			b.Publish(engine.Snapshot{Version: v})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked without a running bridge")
	}
}

func TestSnapshotBridge_WithEngine(t *testing.T) {
	e := engine.New(engine.Options{})
	b := NewSnapshotBridge()
	unsub := e.Subscribe(b.Publish)
	defer unsub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &msgSink{}
	go b.Run(ctx, sink.send)

	e.SwitchSession("s1")
	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		n := len(sink.msgs)
		return n > 0 && sink.msgs[n-1].(SnapshotMsg).Snapshot.SessionID == "s1"
	}, time.Second, 5*time.Millisecond)
}
