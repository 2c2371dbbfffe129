// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth owns the signed-in user's tokens.
//
// Tokens live in a JSON file (by default ~/.helia/credentials.json, mode
// 0600). A Manager serves the current access token to the REST client and
// the streaming transport, renews it with the refresh token on demand, and
// clears the file when renewal fails. Watch reloads the file when another
// helia process logs in or out.
package auth
