// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine drives one chat session: optimistic sends, streamed
// replies, and server history loads.
//
// The Engine owns the history of the currently selected session. A send
// appends the user message and an empty assistant placeholder, then pulls
// fragments from the transport and appends them to the placeholder until
// the stream ends (finalized) or fails (errored, content replaced by a
// fixed error text). Only one send runs at a time.
//
// Every state change is published to subscribers as an immutable Snapshot.
// Snapshots carry a Version; a subscriber that receives snapshots from
// several goroutines keeps the highest version it has seen.
//
// # Session switching
//
// SwitchSession drops the old session's state and cancels its stream.
// Fragments still in flight for the old stream are ignored because each
// application checks that the stream id is still the active one.
//
// # History loads
//
// LoadHistory never replaces local state while a reply is streaming, while
// an unsent pending message targets the session, or when a send started
// after the fetch began. Such snapshots are dropped with ErrHistoryDeferred.
package engine
