// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// This package defines the domain types shared by the streaming transport,
// the chat engine and the UI.
//
// # Key Types
//
//   - Message: one chat message with role, content, optional image and a
//     streaming lifecycle (pending, streaming, finalized, errored)
//   - History: ordered messages of one session; holds at most one
//     streaming message
//   - Session: local projection of a server-owned chat session
//   - ModelInfo: entry of the assistant model catalog
//
// # Usage
//
//	h := model.NewHistory()
//	h.Add(model.NewUserMessage("Hello", ""))
//	reply := model.NewAssistantPlaceholder()
//	_ = h.Add(reply)
//	h.Apply(reply.ID, func(m *model.Message) bool { return m.AppendFragment("Hi") })
package model
