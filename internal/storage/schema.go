// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 1
)

// Schema creates all tables. Every statement is idempotent.
const Schema = `
-- Metadata table for schema version and sync state
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Sessions: mirror of the last server listing
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at INTEGER NOT NULL,  -- Unix nanoseconds, 0 if unknown
    position INTEGER NOT NULL     -- order returned by the server
);

CREATE INDEX IF NOT EXISTS idx_sessions_position ON sessions(position);

-- Credits: single-row balance
CREATE TABLE IF NOT EXISTS credits (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    balance INTEGER NOT NULL CHECK (balance >= 0),
    updated_at INTEGER NOT NULL
);
`

// InitMetadata seeds metadata rows without overwriting existing values.
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
INSERT OR IGNORE INTO metadata (key, value) VALUES ('sessions_synced_at', '0');
`
