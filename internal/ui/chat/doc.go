// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the TUI.
//
// The view is a Bubble Tea model that renders engine snapshots. It never
// mutates history itself: submissions go to the engine (or, with no session
// selected, to the session creation coordinator) from tea.Cmds, and every
// state change comes back as a SnapshotMsg delivered by a SnapshotBridge.
//
// When a session is opened the view runs a small mount state machine once
// per (session, pending message) pair: a pending message bound to the
// session is claimed and sent exactly once; otherwise server history is
// loaded once.
package chat
