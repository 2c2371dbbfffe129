// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// PRIMARY ACCENT COLORS
// =============================================================================

// Sun - Brand color, assistant name, selections
var Sun = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}

// Dawn - Secondary accent, user name, focus rings
var Dawn = lipgloss.AdaptiveColor{Light: "#C2410C", Dark: "#FB923C"}

// Sky - Info, links, session ids
var Sky = lipgloss.AdaptiveColor{Light: "#0369A1", Dark: "#7DD3FC"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Emerald - Success states
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose - Errors, errored replies
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - Warnings, low credits
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FCD34D"}

// =============================================================================
// SURFACE AND TEXT COLORS
// =============================================================================

// SurfaceDim - Header and status bar background
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F4", Dark: "#1C1917"}

// Overlay - Borders and separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E7E5E4", Dark: "#44403C"}

// TextPrimary - Main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1C1917", Dark: "#F5F5F4"}

// TextSecondary - Labels, less prominent text
var TextSecondary = lipgloss.AdaptiveColor{Light: "#57534E", Dark: "#D6D3D1"}

// TextMuted - Hints, timestamps, placeholders
var TextMuted = lipgloss.AdaptiveColor{Light: "#A8A29E", Dark: "#78716C"}

// User and assistant message accents.
var (
	UserAccent      = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#93C5FD"}
	AssistantAccent = Sun
)
