// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/helia-tui/internal/ui/styles"
)

func init() {
	// Piped output and NO_COLOR get plain text.
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES FOR ALL CLI COMMANDS
// =============================================================================

var (
	// TitleStyle is used for command titles
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Sun)

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().Foreground(styles.TextMuted).Width(16)

	// ValueStyle is used for values
	ValueStyle = lipgloss.NewStyle().Foreground(styles.TextPrimary)

	SuccessStyle = lipgloss.NewStyle().Foreground(styles.Emerald).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(styles.Rose).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(styles.Amber).Bold(true)
	DimStyle     = lipgloss.NewStyle().Foreground(styles.TextMuted)

	// UserStyle and AssistantStyle prefix transcript lines.
	UserStyle      = lipgloss.NewStyle().Bold(true).Foreground(styles.UserAccent)
	AssistantStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.AssistantAccent)
)

// RenderLabel renders a "label: value" row.
func RenderLabel(label, value string) string {
	return LabelStyle.Render(label+":") + " " + ValueStyle.Render(value)
}

// RenderSeparator renders a horizontal rule.
func RenderSeparator(width int) string {
	if width <= 0 {
		width = 40
	}
	return DimStyle.Render(strings.Repeat("-", width))
}
