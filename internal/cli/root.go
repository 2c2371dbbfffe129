// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the helia command tree. Running helia with no
// subcommand opens the full-screen chat.
func NewRootCommand(app *App) *cobra.Command {
	var sessionID, modelFlag string

	root := &cobra.Command{
		Use:   "helia",
		Short: "Chat with Helia from the terminal",
		Long: `helia is a terminal client for the Helia assistant.

Run it without arguments for the full-screen chat, or use the
subcommands to ask one-off questions and manage sessions.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app, TUIOptions{SessionID: sessionID, ModelID: app.modelID(modelFlag)})
		},
	}
	root.Flags().StringVarP(&sessionID, "session", "s", "", "open an existing session")
	root.Flags().StringVarP(&modelFlag, "model", "m", "", "model id")
	root.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &UsageError{Field: "flags", Reason: err.Error()}
	})

	root.AddGroup(
		&cobra.Group{ID: "chat", Title: "Chat:"},
		&cobra.Group{ID: "account", Title: "Account:"},
		&cobra.Group{ID: "local", Title: "Local:"},
	)
	add := func(group string, cmds ...*cobra.Command) {
		for _, c := range cmds {
			c.GroupID = group
			root.AddCommand(c)
		}
	}
	add("chat",
		newChatCommand(app),
		newAskCommand(app),
		newSessionsCommand(app),
		newHistoryCommand(app),
		newExportCommand(app),
	)
	add("account",
		newLoginCommand(app),
		newRegisterCommand(app),
		newLogoutCommand(app),
		newWhoamiCommand(app),
		newProfileCommand(app),
	)
	add("local",
		newCreditsCommand(app),
		newConfigCommand(app),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, app *App) int {
	root := NewRootCommand(app)
	err := root.ExecuteContext(ctx)
	if err != nil {
		DisplayError(os.Stderr, err)
	}
	return GetExitCode(err)
}
