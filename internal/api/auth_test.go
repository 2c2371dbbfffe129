// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_FormEncoded(t *testing.T) {
	creds := &fakeCreds{token: "should-not-be-sent"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/token", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "ada@example.com", r.PostForm.Get("username"))
		assert.Equal(t, "hunter2", r.PostForm.Get("password"))
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "a1", "refresh_token": "r1", "token_type": "bearer"})
	}, creds)

	tp, err := c.Login(context.Background(), "ada@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "a1", tp.AccessToken)
	assert.Equal(t, "r1", tp.RefreshToken)
}

func TestLogin_BadCredentialsNoRefresh(t *testing.T) {
	creds := &fakeCreds{token: "tok"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect email or password"})
	}, creds)

	_, err := c.Login(context.Background(), "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "Incorrect email or password")
	assert.Zero(t, creds.refreshes)
}

func TestRefreshToken_JSONBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/token/refresh", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "r1", body["refresh_token"])
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "a2"})
	}, nil)

	tp, err := c.RefreshToken(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "a2", tp.AccessToken)
	assert.Empty(t, tp.RefreshToken)
}

func TestRefreshToken_MissingAccessToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{})
	}, nil)

	_, err := c.RefreshToken(context.Background(), "r1")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestRegister(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var reg Registration
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reg))
		assert.Equal(t, Registration{Name: "Ada", Email: "ada@example.com", Password: "pw"}, reg)
		writeJSON(w, http.StatusOK, map[string]any{"id": 9, "email": reg.Email, "name": reg.Name})
	}, nil)

	u, err := c.Register(context.Background(), Registration{Name: "Ada", Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "9", u.ID)
}

func TestLogoutAndMe_ExplicitBearer(t *testing.T) {
	creds := &fakeCreds{token: "from-creds"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/logout":
			assert.Equal(t, "Bearer explicit", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
		case "/api/auth/me":
			assert.Equal(t, "Bearer from-creds", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, map[string]any{"id": "u1", "email": "ada@example.com"})
		}
	}, creds)

	require.NoError(t, c.Logout(context.Background(), "explicit"))
	u, err := c.Me(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}
