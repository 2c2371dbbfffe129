// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides local persistence for helia in a single SQLite
// database (by default ~/.helia/helia.db).
//
// # Key Types
//
//   - DB: the database handle, opened with WAL and a single writer
//   - SessionCache: the last session list fetched from the server
//   - CreditStore: the local credit balance
//
// # Usage
//
//	db, err := storage.Open(cfg.DatabasePath())
//	defer db.Close()
//
//	cache := db.Sessions()
//	err = cache.Replace(ctx, sessions)
//	sessions, syncedAt, err := cache.List(ctx)
//
// The server stays the source of truth for sessions; the cache only backs
// `helia sessions --offline`.
package storage
