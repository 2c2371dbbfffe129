// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/helia-tui/internal/model"
	"github.com/jeranaias/helia-tui/internal/util"
)

// sessionNameWidth bounds the name column of the session table.
const sessionNameWidth = 48

func newSessionsCommand(app *App) *cobra.Command {
	cmd := newSessionListCommand(app)
	cmd.Use = "sessions"
	cmd.Short = "List and manage chat sessions"

	cmd.AddCommand(
		newSessionListCommand(app),
		newSessionRenameCommand(app),
		newSessionDeleteCommand(app),
		newSessionClearCommand(app),
	)
	return cmd
}

func newSessionListCommand(app *App) *cobra.Command {
	var offline, asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var sessions []model.Session
			var syncedAt time.Time
			if offline {
				var err error
				sessions, syncedAt, err = app.DB.Sessions().List(ctx)
				if err != nil {
					return err
				}
			} else {
				if err := app.requireLogin(); err != nil {
					return err
				}
				var err error
				sessions, err = app.API.ListSessions(ctx)
				if err != nil {
					return err
				}
				if err := app.DB.Sessions().Replace(ctx, sessions); err != nil {
					app.Logger.Warn("session cache update failed", "error", err)
				}
			}

			if asJSON {
				return writeJSON(cmd, sessions)
			}
			printSessions(out, sessions)
			if offline {
				if syncedAt.IsZero() {
					fmt.Fprintln(out, DimStyle.Render("cache is empty; run `helia sessions` while online"))
				} else {
					fmt.Fprintln(out, DimStyle.Render("cached "+syncedAt.Local().Format("2006-01-02 15:04")))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "list the locally cached sessions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func newSessionRenameCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			id := args[0]
			name := strings.TrimSpace(strings.Join(args[1:], " "))
			if name == "" {
				return &UsageError{Field: "NAME", Reason: "must not be empty"}
			}
			ctx := cmd.Context()
			if err := app.API.RenameSession(ctx, id, name); err != nil {
				return err
			}
			if err := app.DB.Sessions().Rename(ctx, id, name); err != nil {
				app.Logger.Warn("session cache rename failed", "id", id, "error", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Renamed "+id+" to "+name))
			return nil
		},
	}
}

func newSessionDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID...",
		Aliases: []string{"rm"},
		Short:   "Delete sessions",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			ctx := cmd.Context()
			for _, id := range args {
				if err := app.API.DeleteSession(ctx, id); err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
				if err := app.DB.Sessions().Delete(ctx, id); err != nil {
					app.Logger.Warn("session cache delete failed", "id", id, "error", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Deleted "+id))
			}
			return nil
		},
	}
}

func newSessionClearCommand(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			if !yes {
				p := newPrompter(app, cmd.ErrOrStderr())
				answer, err := p.line("Delete all sessions? This cannot be undone. [y/N] ")
				if err != nil {
					return err
				}
				if a := strings.ToLower(answer); a != "y" && a != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), DimStyle.Render("Cancelled."))
					return nil
				}
			}

			ctx := cmd.Context()
			n, err := app.API.DeleteAllSessions(ctx)
			if err != nil {
				return err
			}
			if err := app.DB.Sessions().Clear(ctx); err != nil {
				app.Logger.Warn("session cache clear failed", "error", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render(fmt.Sprintf("Deleted %d session(s)", n)))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func printSessions(w io.Writer, sessions []model.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No sessions."))
		return
	}
	idWidth := 2
	for _, s := range sessions {
		idWidth = max(idWidth, util.StringWidth(s.ID))
	}
	fmt.Fprintf(w, "%s  %s  %s\n",
		LabelStyle.UnsetWidth().Render(padRight("ID", idWidth)),
		LabelStyle.UnsetWidth().Render(padRight("NAME", sessionNameWidth)),
		LabelStyle.UnsetWidth().Render("CREATED"))
	for _, s := range sessions {
		created := ""
		if !s.CreatedAt.IsZero() {
			created = s.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s  %s  %s\n",
			padRight(s.ID, idWidth),
			padRight(util.TruncateWidth(s.DisplayName(), sessionNameWidth), sessionNameWidth),
			DimStyle.Render(created))
	}
}

func padRight(s string, width int) string {
	if pad := width - util.StringWidth(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}

// =============================================================================
// HISTORY
// =============================================================================

func newHistoryCommand(app *App) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history ID",
		Short: "Print the transcript of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return err
			}
			msgs, err := app.API.GetHistory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, msgs)
			}
			if len(msgs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), DimStyle.Render("No messages yet."))
				return nil
			}
			printTranscript(cmd.OutOrStdout(), msgs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}
