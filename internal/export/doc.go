// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat session transcripts to files.
//
// # Supported Formats
//
//   - Markdown: human-readable, with a YAML front matter header
//   - JSON: the session and its messages, machine-readable
//
// # Usage
//
//	t := export.Transcript{Session: session, Messages: msgs}
//	path, err := export.ExportToFile(t, export.NewMarkdownExporter(nil), nil)
package export
