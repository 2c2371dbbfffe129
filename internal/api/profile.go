// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jeranaias/helia-tui/internal/model"
)

// GetProfile returns the signed-in user.
func (c *Client) GetProfile(ctx context.Context) (model.User, error) {
	var u model.User
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/users/me", out: &u}); err != nil {
		return model.User{}, fmt.Errorf("get profile: %w", err)
	}
	return u, nil
}

// UpdateProfile changes the non-nil fields of upd and returns the result.
func (c *Client) UpdateProfile(ctx context.Context, upd model.ProfileUpdate) (model.User, error) {
	var u model.User
	if err := c.do(ctx, call{method: http.MethodPut, path: "/api/users/me", body: upd, out: &u}); err != nil {
		return model.User{}, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}
