// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/helia-tui/internal/model"
)

// deleteConcurrency bounds parallel DELETEs in DeleteAllSessions.
const deleteConcurrency = 4

// ErrEmptyName is returned when creating or renaming with a blank name.
var ErrEmptyName = errors.New("session name is required")

func sessionPath(id string) string {
	return "/api/sessions/" + url.PathEscape(id)
}

// ListSessions returns the user's chat sessions.
func (c *Client) ListSessions(ctx context.Context) ([]model.Session, error) {
	var sessions []model.Session
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/sessions", out: &sessions}); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// GetSession returns one session.
func (c *Client) GetSession(ctx context.Context, id string) (model.Session, error) {
	var s model.Session
	if err := c.do(ctx, call{method: http.MethodGet, path: sessionPath(id), out: &s}); err != nil {
		return model.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return s, nil
}

// CreateSession creates a session named name and returns it with its
// server-assigned id.
func (c *Client) CreateSession(ctx context.Context, name string) (model.Session, error) {
	if name == "" {
		return model.Session{}, ErrEmptyName
	}
	var s model.Session
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/sessions",
		query:  url.Values{"name": {name}},
		out:    &s,
	})
	if err != nil {
		return model.Session{}, fmt.Errorf("create session: %w", err)
	}
	if s.Name == "" {
		s.Name = name
	}
	return s, nil
}

// RenameSession changes a session's name.
func (c *Client) RenameSession(ctx context.Context, id, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	err := c.do(ctx, call{
		method: http.MethodPut,
		path:   sessionPath(id),
		query:  url.Values{"name": {name}},
	})
	if err != nil {
		return fmt.Errorf("rename session %s: %w", id, err)
	}
	return nil
}

// DeleteSession removes one session and its history.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	if err := c.do(ctx, call{method: http.MethodDelete, path: sessionPath(id)}); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// DeleteAllSessions deletes every session. Sessions already gone are not
// an error. It returns the number deleted.
func (c *Client) DeleteAllSessions(ctx context.Context) (int, error) {
	sessions, err := c.ListSessions(ctx)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteConcurrency)
	deleted := make([]bool, len(sessions))
	for i, s := range sessions {
		g.Go(func() error {
			err := c.DeleteSession(gctx, s.ID)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			deleted[i] = true
			return nil
		})
	}
	err = g.Wait()

	n := 0
	for _, ok := range deleted {
		if ok {
			n++
		}
	}
	c.logger.Info("sessions cleared", "deleted", n, "total", len(sessions))
	return n, err
}

// GetHistory returns the server's messages for a session, oldest first.
func (c *Client) GetHistory(ctx context.Context, sessionID string) ([]model.Message, error) {
	var raw json.RawMessage
	if err := c.do(ctx, call{method: http.MethodGet, path: "/api/history/" + url.PathEscape(sessionID), out: &raw}); err != nil {
		return nil, fmt.Errorf("get history %s: %w", sessionID, err)
	}
	msgs, err := decodeHistory(raw)
	if err != nil {
		return nil, fmt.Errorf("get history %s: %w", sessionID, err)
	}
	return msgs, nil
}

// decodeHistory accepts a bare array or an object wrapping it in
// "messages" or "history".
func decodeHistory(raw json.RawMessage) ([]model.Message, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '[' {
		var msgs []model.Message
		if err := json.Unmarshal(raw, &msgs); err != nil {
			return nil, fmt.Errorf("failed to parse history: %w", err)
		}
		return msgs, nil
	}
	var wrapped struct {
		Messages []model.Message `json:"messages"`
		History  []model.Message `json:"history"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	if wrapped.Messages != nil {
		return wrapped.Messages, nil
	}
	return wrapped.History, nil
}
