// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jeranaias/helia-tui/internal/api"
	"github.com/jeranaias/helia-tui/internal/logging"
	"github.com/jeranaias/helia-tui/internal/model"
	"github.com/jeranaias/helia-tui/internal/transport"
)

var (
	// ErrNotLoggedIn is returned when no access token is stored.
	ErrNotLoggedIn = transport.ErrNoCredentials

	// ErrNoRefreshToken is returned by Refresh when there is nothing to
	// refresh with.
	ErrNoRefreshToken = errors.New("no refresh token available")
)

// Endpoints is the part of the REST client that issues tokens.
type Endpoints interface {
	Login(ctx context.Context, email, password string) (api.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (api.TokenPair, error)
	Register(ctx context.Context, reg api.Registration) (model.User, error)
	Logout(ctx context.Context, accessToken string) error
	Me(ctx context.Context, accessToken string) (model.User, error)
}

// Manager holds the current tokens. It is safe for concurrent use and
// satisfies both api.Credentials and transport.TokenSource.
type Manager struct {
	store     *FileStore
	endpoints Endpoints
	logger    *slog.Logger

	mu    sync.RWMutex
	creds Credentials

	refreshGroup singleflight.Group
	now          func() time.Time
}

// NewManager loads stored credentials and returns a Manager.
func NewManager(store *FileStore, endpoints Endpoints, logger *slog.Logger) (*Manager, error) {
	m := &Manager{
		store:     store,
		endpoints: endpoints,
		logger:    logging.OrDiscard(logger).With("component", "auth"),
		now:       time.Now,
	}
	if store != nil {
		creds, err := store.Load()
		if err != nil {
			return nil, err
		}
		m.creds = creds
	}
	return m, nil
}

// Credentials returns a copy of the current credentials.
func (m *Manager) Credentials() Credentials {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds
}

// LoggedIn reports whether an access token is held.
func (m *Manager) LoggedIn() bool {
	return m.Credentials().LoggedIn()
}

// Token returns the current access token.
func (m *Manager) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := m.Credentials()
	if c.AccessToken == "" {
		return "", ErrNotLoggedIn
	}
	return c.AccessToken, nil
}

// Login signs in and stores the returned tokens.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return errors.New("email and password are required")
	}
	tp, err := m.endpoints.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := m.set(Credentials{
		AccessToken:  tp.AccessToken,
		RefreshToken: tp.RefreshToken,
		Email:        email,
		UpdatedAt:    m.now(),
	}); err != nil {
		return err
	}
	m.logger.Info("logged in")
	return nil
}

// Register creates an account and signs in with it.
func (m *Manager) Register(ctx context.Context, reg api.Registration) (model.User, error) {
	u, err := m.endpoints.Register(ctx, reg)
	if err != nil {
		return model.User{}, err
	}
	if err := m.Login(ctx, reg.Email, reg.Password); err != nil {
		return u, fmt.Errorf("account created but login failed: %w", err)
	}
	return u, nil
}

// Refresh renews the access token. Concurrent callers share one request.
// Any failure clears the stored tokens, so the user must log in again.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		return nil, m.refresh(ctx)
	})
	return err
}

func (m *Manager) refresh(ctx context.Context) error {
	c := m.Credentials()
	if c.RefreshToken == "" {
		m.clear()
		return ErrNoRefreshToken
	}

	tp, err := m.endpoints.RefreshToken(ctx, c.RefreshToken)
	if err != nil {
		m.logger.Warn("token refresh failed, clearing credentials", "error", err)
		m.clear()
		return err
	}

	next := Credentials{
		AccessToken:  tp.AccessToken,
		RefreshToken: tp.RefreshToken,
		Email:        c.Email,
		UpdatedAt:    m.now(),
	}
	if next.RefreshToken == "" {
		next.RefreshToken = c.RefreshToken
	}
	if err := m.set(next); err != nil {
		return err
	}
	m.logger.Debug("token refreshed")
	return nil
}

// Logout tells the server and forgets the tokens. Local state is cleared
// even if the server call fails.
func (m *Manager) Logout(ctx context.Context) error {
	c := m.Credentials()
	var serverErr error
	if c.AccessToken != "" && m.endpoints != nil {
		serverErr = m.endpoints.Logout(ctx, c.AccessToken)
		if serverErr != nil {
			m.logger.Warn("server logout failed", "error", serverErr)
		}
	}
	if err := m.clear(); err != nil {
		return err
	}
	m.logger.Info("logged out")
	return nil
}

// Me returns the signed-in account.
func (m *Manager) Me(ctx context.Context) (model.User, error) {
	token, err := m.Token(ctx)
	if err != nil {
		return model.User{}, err
	}
	u, err := m.endpoints.Me(ctx, token)
	if errors.Is(err, api.ErrUnauthorized) {
		if rerr := m.Refresh(ctx); rerr != nil {
			return model.User{}, err
		}
		token, _ = m.Token(ctx)
		return m.endpoints.Me(ctx, token)
	}
	return u, err
}

func (m *Manager) set(c Credentials) error {
	m.mu.Lock()
	m.creds = c
	m.mu.Unlock()
	if m.store == nil {
		return nil
	}
	return m.store.Save(c)
}

func (m *Manager) clear() error {
	m.mu.Lock()
	m.creds = Credentials{}
	m.mu.Unlock()
	if m.store == nil {
		return nil
	}
	return m.store.Clear()
}

// reload replaces in-memory credentials with the file's contents and
// reports whether the login state changed.
func (m *Manager) reload() (bool, error) {
	if m.store == nil {
		return false, nil
	}
	c, err := m.store.Load()
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	changed := m.creds.LoggedIn() != c.LoggedIn() || m.creds.AccessToken != c.AccessToken
	m.creds = c
	m.mu.Unlock()
	return changed, nil
}
