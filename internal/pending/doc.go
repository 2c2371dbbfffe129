// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pending holds the one message a user composed before its chat
// session existed.
//
// A Store is created once at startup and passed explicitly to the session
// coordinator (the writer) and the chat view (the consumer). Its contents
// follow a create, bind, consume-or-discard lifecycle:
//
//	store.Put(pending.Message{Content: "Tell me a joke"})
//	store.Bind("42")
//	if msg, ok := store.Claim("42"); ok {
//	    send(msg.Content, msg.Attachment, msg.ModelID)
//	}
//
// Claim flips the sent flag under the store lock, so a pending message is
// delivered at most once regardless of how often the view re-mounts.
package pending
