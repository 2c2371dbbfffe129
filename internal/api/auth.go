// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jeranaias/helia-tui/internal/model"
)

// ErrNoToken is returned when the server answers a token request without
// an access token.
var ErrNoToken = errors.New("server returned no access token")

// TokenPair is the response of the login and refresh endpoints.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
}

// Registration is the sign-up payload.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges an email and password for tokens. The endpoint takes
// form fields, not JSON.
func (c *Client) Login(ctx context.Context, email, password string) (TokenPair, error) {
	var tp TokenPair
	err := c.do(ctx, call{
		method:    http.MethodPost,
		path:      "/api/auth/token",
		form:      url.Values{"username": {email}, "password": {password}},
		out:       &tp,
		anonymous: true,
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("login: %w", err)
	}
	if tp.AccessToken == "" {
		return TokenPair{}, fmt.Errorf("login: %w", ErrNoToken)
	}
	return tp, nil
}

// RefreshToken trades a refresh token for a new pair. A server that does
// not rotate refresh tokens leaves RefreshToken empty.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (TokenPair, error) {
	var tp TokenPair
	err := c.do(ctx, call{
		method:    http.MethodPost,
		path:      "/api/auth/token/refresh",
		body:      map[string]string{"refresh_token": refreshToken},
		out:       &tp,
		anonymous: true,
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("refresh token: %w", err)
	}
	if tp.AccessToken == "" {
		return TokenPair{}, fmt.Errorf("refresh token: %w", ErrNoToken)
	}
	return tp, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, reg Registration) (model.User, error) {
	var u model.User
	err := c.do(ctx, call{
		method:    http.MethodPost,
		path:      "/api/auth/register",
		body:      reg,
		out:       &u,
		anonymous: true,
	})
	if err != nil {
		return model.User{}, fmt.Errorf("register: %w", err)
	}
	return u, nil
}

// Logout invalidates accessToken on the server.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	if err := c.do(ctx, call{method: http.MethodPost, path: "/api/auth/logout", bearer: accessToken}); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Me returns the account that owns accessToken. An empty token uses the
// client's credentials.
func (c *Client) Me(ctx context.Context, accessToken string) (model.User, error) {
	var u model.User
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/auth/me", bearer: accessToken, out: &u}); err != nil {
		return model.User{}, fmt.Errorf("get account: %w", err)
	}
	return u, nil
}
