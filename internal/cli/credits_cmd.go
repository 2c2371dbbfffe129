// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newCreditsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Show the local message credit balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			balance := app.Credits.Balance()
			style := SuccessStyle
			switch {
			case balance <= 0:
				style = ErrorStyle
			case balance <= 10:
				style = WarningStyle
			}
			fmt.Fprintln(out, RenderLabel("Credits", style.Render(strconv.Itoa(balance))))
			if balance <= 0 {
				fmt.Fprintln(out, DimStyle.Render("run `helia credits add N` to keep chatting"))
			}
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add N",
		Short: "Add credits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return &UsageError{Field: "N", Reason: "must be a positive number"}
			}
			balance, err := app.Credits.Add(cmd.Context(), n)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render(fmt.Sprintf("Added %d credits, balance %d", n, balance)))
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Reset the balance to the configured initial amount",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Credits.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render(fmt.Sprintf("Balance reset to %d", app.Credits.Balance())))
			return nil
		},
	}

	cmd.AddCommand(add, reset)
	return cmd
}
