// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/helia-tui/internal/engine"
	"github.com/jeranaias/helia-tui/internal/model"
)

// =============================================================================
// SUBMIT
// =============================================================================

// submit sends the composer text, or creates a session for it when none is
// selected. One credit is spent per message before the engine sees it.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if strings.HasPrefix(text, "/") {
		m.input.Reset()
		return m.runCommand(text)
	}
	if text == "" && m.attachment == nil {
		return m, nil
	}
	if !m.canSend() {
		return m, nil
	}
	if m.credits != nil {
		if err := m.credits.Use(m.ctx); err != nil {
			m.err = err
			m.syncInput()
			return m, nil
		}
	}

	att := m.attachment
	m.attachment = nil
	m.input.Reset()
	m.err = nil
	m.status = ""
	m.following = true

	var cmd tea.Cmd
	if m.snap.SessionID == "" {
		m.composing = true
		cmd = m.composeCmd(text, att)
	} else {
		m.sending = true
		cmd = m.sendCmd(engine.SendRequest{
			SessionID:  m.snap.SessionID,
			Content:    text,
			Attachment: att,
			ModelID:    m.modelID,
		}, "")
	}
	m.syncInput()
	spin := m.spinCmd()
	return m, tea.Batch(cmd, spin)
}

// runCommand handles slash commands typed into the composer.
func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]
	m.err = nil

	switch name {
	case "/image":
		if len(args) == 0 {
			m.attachment = nil
			m.status = "attachment removed"
			return m, nil
		}
		att, err := model.LoadAttachment(strings.Join(args, " "))
		if err != nil {
			m.err = err
			return m, nil
		}
		m.attachment = att
		m.status = "attached " + att.Name
	case "/model":
		if len(args) == 0 {
			m.status = "model: " + model.GetModelInfo(m.modelID).Name
			return m, nil
		}
		m.modelID = args[0]
		info := model.GetModelInfo(m.modelID)
		if model.IsKnownModel(m.modelID) {
			m.status = "model set to " + info.Name
		} else {
			m.status = "model set to " + info.ID + " (not in catalog)"
		}
	case "/models":
		names := make([]string, 0, len(model.Models))
		for _, info := range model.ListModels() {
			names = append(names, info.ID)
		}
		m.status = "models: " + strings.Join(names, ", ")
	case "/new":
		return m.openSession("")
	case "/sessions":
		return m, m.listSessionsCmd()
	case "/help":
		m.status = "/image PATH  /model ID  /models  /new  /sessions"
	default:
		m.err = fmt.Errorf("unknown command %s (try /help)", name)
	}
	return m, nil
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// sendCmd runs SendMessage, which blocks until the reply ends. Progress
// arrives as snapshots. A delivered pending message is discarded afterwards.
func (m Model) sendCmd(req engine.SendRequest, pendingID string) tea.Cmd {
	eng, store, ctx, logger := m.engine, m.pending, m.ctx, m.logger
	return func() tea.Msg {
		err := eng.SendMessage(ctx, req)
		if pendingID != "" && store != nil {
			store.Clear(pendingID)
		}
		if err != nil {
			logger.Warn("send rejected", "session", req.SessionID, "error", err)
		}
		return SendDoneMsg{SessionID: req.SessionID, PendingID: pendingID, Err: err}
	}
}

func (m Model) loadHistoryCmd(sessionID string) tea.Cmd {
	eng, ctx := m.engine, m.ctx
	return func() tea.Msg {
		return HistoryLoadedMsg{SessionID: sessionID, Err: eng.LoadHistory(ctx, sessionID)}
	}
}

func (m Model) composeCmd(text string, att *model.Attachment) tea.Cmd {
	composer, ctx, modelID := m.composer, m.ctx, m.modelID
	return func() tea.Msg {
		if composer == nil {
			return ComposeDoneMsg{Draft: text, Attachment: att, Err: errors.New("cannot create sessions")}
		}
		session, err := composer.ComposeFirstMessage(ctx, text, att, modelID)
		return ComposeDoneMsg{Session: session, Draft: text, Attachment: att, Err: err}
	}
}

// listSessionsCmd fetches sessions and refreshes the offline cache.
func (m Model) listSessionsCmd() tea.Cmd {
	if m.sessions == nil || !m.loggedIn {
		return nil
	}
	sessions, cache, ctx, logger := m.sessions, m.cache, m.ctx, m.logger
	return func() tea.Msg {
		list, err := sessions.ListSessions(ctx)
		if err != nil {
			return SessionsMsg{Err: fmt.Errorf("list sessions: %w", err)}
		}
		if cache != nil {
			if err := cache.Replace(ctx, list); err != nil {
				logger.Warn("session cache update failed", "error", err)
			}
		}
		return SessionsMsg{Sessions: list}
	}
}

func (m Model) deleteSessionCmd(id string) tea.Cmd {
	if m.sessions == nil {
		return nil
	}
	sessions, ctx := m.sessions, m.ctx
	return func() tea.Msg {
		if err := sessions.DeleteSession(ctx, id); err != nil {
			return SessionDeletedMsg{ID: id, Err: fmt.Errorf("delete session: %w", err)}
		}
		return SessionDeletedMsg{ID: id}
	}
}
