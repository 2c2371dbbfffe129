// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/helia-tui/internal/model"
	"github.com/jeranaias/helia-tui/internal/ui/styles"
	"github.com/jeranaias/helia-tui/internal/util"
)

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	mainWidth := m.mainWidth()
	vpHeight := max(height-chromeHeight-inputHeight, 1)

	if !m.ready {
		m.viewport = viewport.New(mainWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = mainWidth
		m.viewport.Height = vpHeight
	}
	// Border and padding take four columns.
	m.input.SetWidth(max(mainWidth-4, 10))
	if m.md != nil {
		m.md.resize(m.bodyWidth())
	}
	m.refreshViewport()
}

func (m Model) mainWidth() int {
	return max(m.width-sidebarWidth, 20)
}

// bodyWidth is the wrap width for message text.
func (m Model) bodyWidth() int {
	return max(m.mainWidth()-4, 16)
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	if m.following {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat view.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	main := lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), m.renderInput())
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), main)
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderStatus())
}

func (m Model) renderHeader() string {
	t := m.theme
	title := t.HeaderBrand.Render("helia") + "  " + t.HeaderTitle.Render(m.sessionName())
	if m.attachment != nil {
		title += "  " + t.InfoStyle.Render("[image: "+m.attachment.Name+"]")
	}
	return t.Header.Width(m.width).Render(title)
}

// renderTranscript renders every message the same way; only the streaming
// and error flags change the body style.
func (m Model) renderTranscript() string {
	t := m.theme
	if len(m.snap.Messages) == 0 {
		switch {
		case m.snap.SessionID == "":
			return t.MutedStyle.Render("\n  Start a new chat: type a message and press enter.")
		case !m.snap.Loaded:
			return t.MutedStyle.Render("\n  Loading history...")
		default:
			return t.MutedStyle.Render("\n  No messages yet.")
		}
	}

	parts := make([]string, 0, len(m.snap.Messages))
	for _, msg := range m.snap.Messages {
		parts = append(parts, m.renderMessage(msg))
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) renderMessage(msg model.Message) string {
	t := m.theme
	width := m.bodyWidth()

	nameStyle := t.AssistantName
	if msg.Role == model.RoleUser {
		nameStyle = t.UserName
	}
	header := nameStyle.Render(msg.Role.DisplayName())
	if !msg.Timestamp.IsZero() {
		header += " " + t.MutedStyle.Render(msg.Timestamp.Local().Format("15:04"))
	}
	if msg.IsStreaming {
		header += " " + m.spinner.View()
	}

	var body string
	switch {
	case msg.IsError:
		body = t.ErrorBody.Width(width).Render(styles.ErrorMark + " " + msg.Content)
	case msg.IsStreaming && msg.Content == "":
		body = t.Placeholder.Render(msg.DisplayContent())
	case msg.Role == model.RoleAssistant && !msg.IsStreaming && m.md != nil:
		body = m.md.render(msg.ID, msg.Content)
	default:
		body = t.MessageBody.Width(width).Render(msg.Content)
	}

	lines := []string{header}
	if msg.AttachmentURL != "" {
		lines = append(lines, t.AttachmentNote.Render("[image] "+strings.TrimPrefix(msg.AttachmentURL, "file://")))
	}
	if msg.Content != "" || msg.IsStreaming {
		lines = append(lines, body)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderInput() string {
	t := m.theme
	style := t.InputContainer
	if m.focus == focusInput {
		style = t.InputContainerFocus
	}

	var content string
	switch {
	case m.composing:
		content = t.InputDisabled.Render(m.spinner.View() + " creating session...")
	case m.snap.Responding || m.sending:
		content = t.InputDisabled.Render("waiting for the reply...")
	case m.credits != nil && m.credits.Balance() <= 0:
		content = t.InputDisabled.Render("out of credits: run `helia credits add N`")
	default:
		content = m.input.View()
	}

	// Keep the box height stable while the composer is disabled.
	content = lipgloss.NewStyle().Height(inputLines).Render(content)
	return style.Width(max(m.mainWidth()-2, 10)).Render(content)
}

func (m Model) renderSidebar() string {
	t := m.theme
	inner := sidebarWidth - 2
	height := max(m.height-chromeHeight, 1)

	lines := []string{t.MutedStyle.Render("Sessions")}
	if len(m.sessionList) == 0 {
		if m.loggedIn {
			lines = append(lines, t.SessionMeta.Render("no sessions"))
		} else {
			lines = append(lines, t.SessionMeta.Render("not logged in"))
		}
	}
	for i, s := range m.sessionList {
		if len(lines) >= height {
			break
		}
		marker := "  "
		if i == m.cursor && m.focus == focusSidebar {
			marker = "> "
		}
		name := util.TruncateWidth(s.DisplayName(), inner-util.StringWidth(marker))
		line := marker + name

		switch {
		case i == m.cursor && m.focus == focusSidebar:
			line = t.SessionItemSelected.Render(line)
		case s.ID == m.snap.SessionID:
			line = t.SessionItemActive.Render(line)
		default:
			line = t.SessionItem.Render(line)
		}
		lines = append(lines, line)
	}

	style := t.Sidebar
	if m.focus == focusSidebar {
		style = t.SidebarFocus
	}
	return style.Width(inner).Height(height).Render(strings.Join(lines, "\n"))
}

func (m Model) renderStatus() string {
	t := m.theme

	left := t.InfoStyle.Render(model.GetModelInfo(m.modelID).Name)
	if m.credits != nil {
		balance := m.credits.Balance()
		left += "  " + t.CreditStyle(balance).Render(fmt.Sprintf("credits: %d", balance))
	}

	var right string
	switch {
	case m.err != nil:
		right = t.Error(m.err.Error())
	case m.snap.AuthRequired:
		right = t.Warning("login required: run `helia login`")
	case m.composing:
		right = m.spinner.View() + " creating session"
	case m.snap.Responding:
		right = m.spinner.View() + " responding"
	case m.credits != nil && m.credits.Balance() <= 0:
		right = t.Warning("out of credits")
	case m.status != "":
		right = t.Info(m.status)
	default:
		right = m.shortcuts()
	}

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return t.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) shortcuts() string {
	t := m.theme
	pairs := [][2]string{{"enter", "send"}, {"tab", "sessions"}, {"C-n", "new"}, {"C-c", "quit"}}
	if m.focus == focusSidebar {
		pairs = [][2]string{{"enter", "open"}, {"d", "delete"}, {"r", "refresh"}, {"tab", "back"}}
	}
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, t.ShortcutKey.Render(p[0])+" "+t.ShortcutDesc.Render(p[1]))
	}
	return strings.Join(out, "  ")
}
