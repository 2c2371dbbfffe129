// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credits

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/helia-tui/internal/storage"
)

func TestLedger_InMemory(t *testing.T) {
	ctx := context.Background()
	l, err := NewLedger(ctx, nil, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Balance())

	require.NoError(t, l.Use(ctx))
	require.NoError(t, l.Use(ctx))
	assert.ErrorIs(t, l.Use(ctx), ErrExhausted)
	assert.False(t, l.Available())
	assert.Zero(t, l.Balance())

	bal, err := l.Add(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, bal)

	_, err = l.Add(ctx, 0)
	assert.Error(t, err)

	require.NoError(t, l.Reset(ctx))
	assert.Equal(t, 2, l.Balance())
}

func TestLedger_DefaultInitial(t *testing.T) {
	l, err := NewLedger(context.Background(), nil, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultInitial, l.Balance())
}

func TestLedger_SQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "helia.db")

	db, err := storage.Open(path)
	require.NoError(t, err)
	l, err := NewLedger(ctx, db.Credits(), 100, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, l.Balance())
	require.NoError(t, l.Use(ctx))
	require.NoError(t, db.Close())

	db, err = storage.Open(path)
	require.NoError(t, err)
	defer db.Close()
	l, err = NewLedger(ctx, db.Credits(), 100, nil)
	require.NoError(t, err)
	assert.Equal(t, 99, l.Balance(), "balance survives restarts")

	require.NoError(t, l.Reset(ctx))
	assert.Equal(t, 100, l.Balance())
}
