// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package credits tracks how many messages the user may still send.
//
// The chat view spends one credit before each send and disables input at
// zero. The engine never checks credits itself.
package credits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jeranaias/helia-tui/internal/logging"
)

// DefaultInitial is the balance of a new ledger.
const DefaultInitial = 100

// ErrExhausted is returned by Use at zero balance.
var ErrExhausted = errors.New("no credits left")

// Backend persists the balance. storage.CreditStore implements it.
type Backend interface {
	Balance(ctx context.Context) (int, bool, error)
	Set(ctx context.Context, balance int) error
	Spend(ctx context.Context) (int, bool, error)
	Add(ctx context.Context, n int) (int, error)
}

// Ledger is the credit balance. A nil Backend keeps it in memory only.
type Ledger struct {
	mu      sync.Mutex
	backend Backend
	initial int
	balance int
	logger  *slog.Logger
}

// NewLedger loads the balance from backend, seeding it with initial
// (DefaultInitial if <= 0) the first time.
func NewLedger(ctx context.Context, backend Backend, initial int, logger *slog.Logger) (*Ledger, error) {
	if initial <= 0 {
		initial = DefaultInitial
	}
	l := &Ledger{
		backend: backend,
		initial: initial,
		balance: initial,
		logger:  logging.OrDiscard(logger).With("component", "credits"),
	}
	if backend == nil {
		return l, nil
	}

	balance, ok, err := backend.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credits: %w", err)
	}
	if !ok {
		if err := backend.Set(ctx, initial); err != nil {
			return nil, fmt.Errorf("seed credits: %w", err)
		}
		balance = initial
	}
	l.balance = balance
	return l, nil
}

// Balance returns the current balance.
func (l *Ledger) Balance() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Available reports whether at least one credit remains.
func (l *Ledger) Available() bool {
	return l.Balance() > 0
}

// Use spends one credit. It returns ErrExhausted at zero.
func (l *Ledger) Use(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.backend == nil {
		if l.balance <= 0 {
			return ErrExhausted
		}
		l.balance--
		return nil
	}

	balance, spent, err := l.backend.Spend(ctx)
	if err != nil {
		return fmt.Errorf("spend credit: %w", err)
	}
	l.balance = balance
	if !spent {
		return ErrExhausted
	}
	l.logger.Debug("credit spent", "remaining", balance)
	return nil
}

// Add increases the balance by n.
func (l *Ledger) Add(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("credits to add must be positive, got %d", n)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.backend == nil {
		l.balance += n
		return l.balance, nil
	}
	balance, err := l.backend.Add(ctx, n)
	if err != nil {
		return 0, fmt.Errorf("add credits: %w", err)
	}
	l.balance = balance
	l.logger.Info("credits added", "added", n, "balance", balance)
	return balance, nil
}

// Reset restores the initial balance.
func (l *Ledger) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.backend != nil {
		if err := l.backend.Set(ctx, l.initial); err != nil {
			return fmt.Errorf("reset credits: %w", err)
		}
	}
	l.balance = l.initial
	return nil
}
