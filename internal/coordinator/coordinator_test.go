// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package coordinator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/helia-tui/internal/engine"
	"github.com/jeranaias/helia-tui/internal/model"
	"github.com/jeranaias/helia-tui/internal/pending"
)

type fakeCreator struct {
	names []string
	id    string
	err   error
	hook  func()
}

func (f *fakeCreator) CreateSession(_ context.Context, name string) (model.Session, error) {
	f.names = append(f.names, name)
	if f.hook != nil {
		f.hook()
	}
	if f.err != nil {
		return model.Session{}, f.err
	}
	return model.Session{ID: f.id, Name: name}, nil
}

func TestDeriveSessionName(t *testing.T) {
	tests := []struct {
		name    string
		content string
		max     int
		want    string
	}{
		{"short", "Tell me a joke", 30, "Tell me a joke"},
		{"exactly max", strings.Repeat("a", 30), 30, strings.Repeat("a", 30)},
		{"long", "Explain the theory of relativity in simple terms", 30, "Explain the theory of relativi..."},
		{"whitespace collapsed", "  hello\n\n world  ", 30, "hello world"},
		{"multibyte", "こんにちは世界、元気ですか", 5, "こんにちは..."},
		{"default length", strings.Repeat("b", 40), 0, strings.Repeat("b", 30) + "..."},
		{"nfc", "café", 30, "café"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveSessionName(tc.content, tc.max))
		})
	}
}

func TestComposeFirstMessage_BindsAndNavigates(t *testing.T) {
	creator := &fakeCreator{id: "42"}
	store := pending.NewStore()

	var navigated string
	var boundAtNavigation string
	c := New(Options{
		Sessions: creator,
		Pending:  store,
		Navigate: func(id string) {
			navigated = id
			msg, _ := store.Peek()
			boundAtNavigation = msg.TargetSessionID
		},
	})

	var sawPendingDuringCreate bool
	creator.hook = func() {
		msg, ok := store.Peek()
		sawPendingDuringCreate = ok && !msg.Sent && msg.TargetSessionID == ""
		assert.True(t, c.Creating())
	}

	session, err := c.ComposeFirstMessage(context.Background(), "Tell me a joke", nil, "sunbeam")
	require.NoError(t, err)

	assert.Equal(t, "42", session.ID)
	assert.Equal(t, []string{"Tell me a joke"}, creator.names)
	assert.True(t, sawPendingDuringCreate, "pending message stored before creation resolves")
	assert.Equal(t, "42", navigated)
	assert.Equal(t, "42", boundAtNavigation, "pending must be bound before navigation")
	assert.False(t, c.Creating())

	msg, ok := store.Peek()
	require.True(t, ok)
	assert.Equal(t, "Tell me a joke", msg.Content)
	assert.Equal(t, "sunbeam", msg.ModelID)
	assert.False(t, msg.Sent)

	first, ok := store.Claim("42")
	require.True(t, ok)
	assert.True(t, first.Sent)
	_, again := store.Claim("42")
	assert.False(t, again, "pending message delivered at most once")
}

func TestComposeFirstMessage_LongContentTruncatesName(t *testing.T) {
	creator := &fakeCreator{id: "7"}
	c := New(Options{Sessions: creator})

	content := "Write a detailed essay about the history of the printing press"
	_, err := c.ComposeFirstMessage(context.Background(), content, nil, "")
	require.NoError(t, err)

	require.Len(t, creator.names, 1)
	assert.Equal(t, content[:30]+"...", creator.names[0])

	msg, ok := c.Pending().Peek()
	require.True(t, ok)
	assert.Equal(t, content, msg.Content, "payload keeps the full text")
}

func TestComposeFirstMessage_FailureDiscardsPending(t *testing.T) {
	boom := errors.New("503 service unavailable")
	store := pending.NewStore()
	navigated := false
	c := New(Options{
		Sessions: &fakeCreator{err: boom},
		Pending:  store,
		Navigate: func(string) { navigated = true },
	})

	_, err := c.ComposeFirstMessage(context.Background(), "hello", nil, "")
	var cerr *SessionCreationError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "hello", cerr.Name)

	_, ok := store.Peek()
	assert.False(t, ok)
	assert.False(t, navigated)
	assert.False(t, c.Creating())
}

func TestComposeFirstMessage_EmptyID(t *testing.T) {
	store := pending.NewStore()
	c := New(Options{Sessions: &fakeCreator{}, Pending: store})

	_, err := c.ComposeFirstMessage(context.Background(), "hello", nil, "")
	var cerr *SessionCreationError
	require.ErrorAs(t, err, &cerr)
	_, ok := store.Peek()
	assert.False(t, ok)
}

func TestComposeFirstMessage_Validation(t *testing.T) {
	creator := &fakeCreator{id: "1"}
	c := New(Options{Sessions: creator})

	_, err := c.ComposeFirstMessage(context.Background(), "  ", nil, "")
	var verr *engine.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, creator.names)

	img := &model.Attachment{Name: "photo.png", ContentType: "image/png", Data: []byte{1}}
	_, err = c.ComposeFirstMessage(context.Background(), "", img, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"photo.png"}, creator.names)
}

func TestComposeFirstMessage_Busy(t *testing.T) {
	creator := &fakeCreator{id: "1"}
	c := New(Options{Sessions: creator})

	var nested error
	creator.hook = func() {
		_, nested = c.ComposeFirstMessage(context.Background(), "second", nil, "")
	}
	_, err := c.ComposeFirstMessage(context.Background(), "first", nil, "")
	require.NoError(t, err)
	assert.ErrorIs(t, nested, ErrBusy)
}

func TestComposeFirstMessage_ReplacedWhileCreating(t *testing.T) {
	creator := &fakeCreator{id: "1"}
	store := pending.NewStore()
	c := New(Options{Sessions: creator, Pending: store})

	creator.hook = func() { store.Put(pending.Message{Content: "newer"}) }
	_, err := c.ComposeFirstMessage(context.Background(), "older", nil, "")
	require.NoError(t, err)

	msg, ok := store.Peek()
	require.True(t, ok)
	assert.Equal(t, "newer", msg.Content)
	assert.Empty(t, msg.TargetSessionID, "newer submission must not be bound to the older session")
}

func TestComposeFirstMessage_SurvivesEngineSwitch(t *testing.T) {
	store := pending.NewStore()
	eng := engine.New(engine.Options{Pending: store})
	defer eng.Close()

	c := New(Options{
		Sessions: &fakeCreator{id: "99"},
		Pending:  store,
		Navigate: eng.SwitchSession,
	})
	_, err := c.ComposeFirstMessage(context.Background(), "Tell me a joke", nil, "")
	require.NoError(t, err)

	assert.Equal(t, "99", eng.SessionID())
	assert.True(t, store.BlocksHistory("99"))
	_, ok := store.Claim("99")
	assert.True(t, ok)
}
