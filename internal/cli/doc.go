// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the helia command tree.
//
// Running helia with no arguments starts the full-screen chat. The
// subcommands cover one-shot questions (ask), a line-mode REPL (chat
// --plain), account management (login, logout, register, whoami), session
// housekeeping (sessions, history), local credits and configuration.
//
// Commands never print errors themselves; they return them to Execute,
// which renders them once and maps them to an exit code.
package cli
