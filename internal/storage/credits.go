// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreditStore persists the credit balance.
type CreditStore struct {
	db  *DB
	now func() time.Time
}

// Credits returns the credit store.
func (d *DB) Credits() *CreditStore {
	return &CreditStore{db: d, now: time.Now}
}

// Balance returns the stored balance. ok is false if none was ever stored.
func (s *CreditStore) Balance(ctx context.Context) (balance int, ok bool, err error) {
	err = s.db.db.QueryRowContext(ctx, "SELECT balance FROM credits WHERE id = 1").Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return balance, true, nil
}

// Set stores balance.
func (s *CreditStore) Set(ctx context.Context, balance int) error {
	if balance < 0 {
		return fmt.Errorf("negative balance %d", balance)
	}
	_, err := s.db.db.ExecContext(ctx,
		`INSERT INTO credits (id, balance, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET balance = excluded.balance, updated_at = excluded.updated_at`,
		balance, s.now().Unix())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// Spend decrements the balance by one if it is positive. It returns the
// remaining balance and whether a credit was spent.
func (s *CreditStore) Spend(ctx context.Context) (int, bool, error) {
	res, err := s.db.db.ExecContext(ctx,
		"UPDATE credits SET balance = balance - 1, updated_at = ? WHERE id = 1 AND balance > 0",
		s.now().Unix())
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	balance, _, err := s.Balance(ctx)
	if err != nil {
		return 0, false, err
	}
	return balance, n == 1, nil
}

// Add increases the balance by n and returns the new balance.
func (s *CreditStore) Add(ctx context.Context, n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("cannot add negative credits %d", n)
	}
	_, err := s.db.db.ExecContext(ctx,
		`INSERT INTO credits (id, balance, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET balance = balance + excluded.balance, updated_at = excluded.updated_at`,
		n, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	balance, _, err := s.Balance(ctx)
	return balance, err
}
