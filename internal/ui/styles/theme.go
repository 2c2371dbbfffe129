// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Header
	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	HeaderTitle lipgloss.Style

	// Messages
	UserName       lipgloss.Style
	AssistantName  lipgloss.Style
	MessageBody    lipgloss.Style
	ErrorBody      lipgloss.Style
	Placeholder    lipgloss.Style
	AttachmentNote lipgloss.Style

	// Input area
	InputContainer      lipgloss.Style
	InputContainerFocus lipgloss.Style
	InputDisabled       lipgloss.Style

	// Sidebar
	Sidebar             lipgloss.Style
	SidebarFocus        lipgloss.Style
	SessionItem         lipgloss.Style
	SessionItemSelected lipgloss.Style
	SessionItemActive   lipgloss.Style
	SessionMeta         lipgloss.Style

	// Status bar
	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	CreditsOK    lipgloss.Style
	CreditsLow   lipgloss.Style
	CreditsOut   lipgloss.Style

	// Status indicators
	SuccessStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	WarningStyle lipgloss.Style
	InfoStyle    lipgloss.Style
	MutedStyle   lipgloss.Style
}

// NewTheme creates a theme. name is "auto", "dark" or "light"; anything
// else is treated as "auto".
func NewTheme(name string) *Theme {
	profile := termenv.ColorProfile()
	isDark := true
	switch name {
	case "light":
		isDark = false
	case "dark":
	default:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{IsDark: isDark, ColorProfile: profile}
	t.initStyles()
	return t
}

// GlamourStyle returns the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.HeaderBrand = lipgloss.NewStyle().Bold(true).Foreground(Sun)
	t.HeaderTitle = lipgloss.NewStyle().Foreground(TextPrimary)

	t.UserName = lipgloss.NewStyle().Bold(true).Foreground(UserAccent)
	t.AssistantName = lipgloss.NewStyle().Bold(true).Foreground(AssistantAccent)
	t.MessageBody = lipgloss.NewStyle().Foreground(TextPrimary).PaddingLeft(2)
	t.ErrorBody = lipgloss.NewStyle().Foreground(Rose).PaddingLeft(2)
	t.Placeholder = lipgloss.NewStyle().Foreground(TextMuted).Italic(true).PaddingLeft(2)
	t.AttachmentNote = lipgloss.NewStyle().Foreground(Sky).Italic(true).PaddingLeft(2)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputContainerFocus = t.InputContainer.BorderForeground(Dawn)
	t.InputDisabled = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		PaddingRight(1)
	t.SidebarFocus = t.Sidebar.BorderForeground(Dawn)
	t.SessionItem = lipgloss.NewStyle().Foreground(TextSecondary)
	t.SessionItemSelected = lipgloss.NewStyle().Foreground(TextPrimary).Background(Overlay)
	t.SessionItemActive = lipgloss.NewStyle().Foreground(Sun).Bold(true)
	t.SessionMeta = lipgloss.NewStyle().Foreground(TextMuted)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(Sun).Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)
	t.CreditsOK = lipgloss.NewStyle().Foreground(Emerald)
	t.CreditsLow = lipgloss.NewStyle().Foreground(Amber)
	t.CreditsOut = lipgloss.NewStyle().Foreground(Rose).Bold(true)

	// ACCESSIBILITY: every status has a text marker, not just a color.
	t.SuccessStyle = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.ErrorStyle = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.WarningStyle = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	t.InfoStyle = lipgloss.NewStyle().Foreground(Sky)
	t.MutedStyle = lipgloss.NewStyle().Foreground(TextMuted)
}

// Status markers paired with the status styles.
const (
	SuccessMark = "[OK]"
	ErrorMark   = "[ERR]"
	WarningMark = "[WARN]"
	InfoMark    = "[i]"
)

// Success renders a success line with its marker.
func (t *Theme) Success(msg string) string {
	return t.SuccessStyle.Render(SuccessMark) + " " + msg
}

// Error renders an error line with its marker.
func (t *Theme) Error(msg string) string {
	return t.ErrorStyle.Render(ErrorMark) + " " + msg
}

// Warning renders a warning line with its marker.
func (t *Theme) Warning(msg string) string {
	return t.WarningStyle.Render(WarningMark) + " " + msg
}

// Info renders an informational line with its marker.
func (t *Theme) Info(msg string) string {
	return t.InfoStyle.Render(InfoMark) + " " + msg
}

// CreditStyle picks the style for a credit balance.
func (t *Theme) CreditStyle(balance int) lipgloss.Style {
	switch {
	case balance <= 0:
		return t.CreditsOut
	case balance <= 10:
		return t.CreditsLow
	default:
		return t.CreditsOK
	}
}
