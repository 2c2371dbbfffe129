// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/helia-tui/internal/pending"
)

func TestMount_ClaimsBoundPendingOnce(t *testing.T) {
	store := pending.NewStore()
	id := store.Put(pending.Message{Content: "Tell me a joke", ModelID: "sunbeam"})
	require.NoError(t, store.BindID(id, "s1"))

	var ms mountState
	action, msg := ms.step("s1", store)
	require.Equal(t, mountSend, action)
	assert.Equal(t, "Tell me a joke", msg.Content)
	assert.Equal(t, "s1", msg.TargetSessionID)

	p, ok := store.Peek()
	require.True(t, ok)
	assert.True(t, p.Sent)

	// Re-running for the same pair, as repeated renders would, does nothing.
	for range 3 {
		action, _ = ms.step("s1", store)
		assert.Equal(t, mountIdle, action)
	}
}

func TestMount_LoadsHistoryOnce(t *testing.T) {
	store := pending.NewStore()
	var ms mountState

	action, _ := ms.step("s1", store)
	assert.Equal(t, mountLoadHistory, action)
	action, _ = ms.step("s1", store)
	assert.Equal(t, mountIdle, action)

	// A different session starts over.
	action, _ = ms.step("s2", store)
	assert.Equal(t, mountLoadHistory, action)

	// Coming back is a new mount.
	action, _ = ms.step("s1", store)
	assert.Equal(t, mountLoadHistory, action)
}

func TestMount_ForeignPendingDoesNotIntercept(t *testing.T) {
	store := pending.NewStore()
	id := store.Put(pending.Message{Content: "hi"})
	require.NoError(t, store.BindID(id, "other"))

	var ms mountState
	action, _ := ms.step("s1", store)
	assert.Equal(t, mountLoadHistory, action)

	p, ok := store.Peek()
	require.True(t, ok)
	assert.False(t, p.Sent)
}

func TestMount_UnboundPendingDoesNotIntercept(t *testing.T) {
	store := pending.NewStore()
	store.Put(pending.Message{Content: "hi"})

	var ms mountState
	action, _ := ms.step("s1", store)
	assert.Equal(t, mountLoadHistory, action)
}

func TestMount_SentPendingSuppressesHistory(t *testing.T) {
	store := pending.NewStore()
	id := store.Put(pending.Message{Content: "hi"})
	require.NoError(t, store.BindID(id, "s1"))
	_, ok := store.Claim("s1")
	require.True(t, ok)

	var ms mountState
	action, _ := ms.step("s1", store)
	assert.Equal(t, mountIdle, action)
}

func TestMount_NoSession(t *testing.T) {
	var ms mountState
	action, _ := ms.step("", pending.NewStore())
	assert.Equal(t, mountIdle, action)
	action, _ = ms.step("", nil)
	assert.Equal(t, mountIdle, action)
}
