// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jeranaias/helia-tui/internal/model"
)

// SessionCache mirrors the server's session list.
type SessionCache struct {
	db  *DB
	now func() time.Time
}

// Sessions returns the session cache.
func (d *DB) Sessions() *SessionCache {
	return &SessionCache{db: d, now: time.Now}
}

// Replace overwrites the cache with sessions, keeping their order.
func (c *SessionCache) Replace(ctx context.Context, sessions []model.Session) error {
	tx, err := c.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions"); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO sessions (id, name, created_at, position) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer stmt.Close()

	for i, s := range sessions {
		var created int64
		if !s.CreatedAt.IsZero() {
			created = s.CreatedAt.UnixNano()
		}
		if _, err := stmt.ExecContext(ctx, s.ID, s.Name, created, i); err != nil {
			return fmt.Errorf("failed to cache session %s: %w", s.ID, err)
		}
	}

	if err := setMetadata(ctx, tx, "sessions_synced_at", strconv.FormatInt(c.now().UnixNano(), 10)); err != nil {
		return err
	}
	return tx.Commit()
}

// List returns the cached sessions and when they were last synced. The
// time is zero if the cache was never filled.
func (c *SessionCache) List(ctx context.Context) ([]model.Session, time.Time, error) {
	rows, err := c.db.db.QueryContext(ctx, "SELECT id, name, created_at FROM sessions ORDER BY position")
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var s model.Session
		var created int64
		if err := rows.Scan(&s.ID, &s.Name, &created); err != nil {
			return nil, time.Time{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		if created != 0 {
			s.CreatedAt = time.Unix(0, created).UTC()
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	synced, err := c.db.metadata(ctx, "sessions_synced_at")
	if err != nil {
		return nil, time.Time{}, err
	}
	var syncedAt time.Time
	if n, _ := strconv.ParseInt(synced, 10, 64); n != 0 {
		syncedAt = time.Unix(0, n).UTC()
	}
	return sessions, syncedAt, nil
}

// Rename updates a cached session name.
func (c *SessionCache) Rename(ctx context.Context, id, name string) error {
	if _, err := c.db.db.ExecContext(ctx, "UPDATE sessions SET name = ? WHERE id = ?", name, id); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// Delete removes a cached session.
func (c *SessionCache) Delete(ctx context.Context, id string) error {
	if _, err := c.db.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// Clear empties the cache.
func (c *SessionCache) Clear(ctx context.Context) error {
	return c.Replace(ctx, nil)
}
