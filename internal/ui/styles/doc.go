// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the helia TUI.
//
// Colors are Lip Gloss AdaptiveColors so the same palette works on light
// and dark terminals. A Theme bundles the styles the chat view and CLI use
// and is created once per program:
//
//	theme := styles.NewTheme(cfg.UI.Theme)
//	fmt.Println(theme.ErrorStyle.Render("failed"))
package styles
