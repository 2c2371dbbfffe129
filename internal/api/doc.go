// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the REST client for the Helia server: chat sessions,
// message history and the user profile.
//
// Every request carries the bearer token from a Credentials source. A 401
// triggers one credential refresh and one replay of the request. Idempotent
// requests are retried on 5xx and 429 with exponential backoff. Message
// streaming is not handled here; see package transport.
//
// API: Response bodies are capped at MaxResponseSize.
package api
