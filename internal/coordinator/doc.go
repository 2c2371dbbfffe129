// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package coordinator turns a first message composed before any session
// exists into a new session with that message waiting to be sent.
//
// The coordinator stores the submission in the pending store, asks the
// sessions API for a session named after the message, binds the pending
// message to the new session id and hands the id to a Navigator. The chat
// view for that session then claims and sends the message exactly once.
//
//	c := coordinator.New(coordinator.Options{
//		Sessions: apiClient,
//		Pending:  store,
//		Navigate: func(id string) { program.Send(chat.OpenSessionMsg{ID: id}) },
//	})
//	session, err := c.ComposeFirstMessage(ctx, "Tell me a joke", nil, "")
package coordinator
