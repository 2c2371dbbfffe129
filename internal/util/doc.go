// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small string and file helpers shared by the helia
// packages.
//
//   - TruncateRunes / TruncatePrefix: UTF-8 safe truncation with ellipsis
//   - TruncateWidth / StringWidth: terminal column aware truncation
//   - AtomicWriteFile: crash-safe file writes for credentials and config
package util
