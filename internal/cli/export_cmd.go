// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/helia-tui/internal/api"
	"github.com/jeranaias/helia-tui/internal/export"
	"github.com/jeranaias/helia-tui/internal/model"
)

func newExportCommand(app *App) *cobra.Command {
	var format, outputDir string
	var open, noMeta bool

	cmd := &cobra.Command{
		Use:   "export ID",
		Short: "Save a session transcript as Markdown or JSON",
		Example: `  helia export 42
  helia export 42 --format json --output ~/notes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return &UsageError{Field: "--format", Reason: err.Error()}
			}
			if err := app.requireLogin(); err != nil {
				return err
			}

			ctx := cmd.Context()
			id := args[0]
			session, err := app.API.GetSession(ctx, id)
			if errors.Is(err, api.ErrNotFound) {
				return err
			}
			if err != nil {
				// The transcript is still worth saving without a name.
				app.Logger.Warn("session lookup failed", "id", id, "error", err)
				session = model.Session{ID: id}
			}
			msgs, err := app.API.GetHistory(ctx, id)
			if err != nil {
				return err
			}

			opts := &export.Options{
				OutputDir:         outputDir,
				OpenAfterExport:   open,
				IncludeMetadata:   !noMeta,
				IncludeTimestamps: !noMeta,
			}
			path, err := export.ExportToFile(
				export.Transcript{Session: session, Messages: msgs},
				export.NewExporter(f, opts),
				opts,
			)
			if errors.Is(err, export.ErrEmptyTranscript) {
				return &UsageError{Field: "ID", Reason: "session " + id + " has no messages to export"}
			}
			if path == "" {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Exported to "+path))
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "md or json")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "output directory")
	cmd.Flags().BoolVar(&open, "open", false, "open the file afterwards")
	cmd.Flags().BoolVar(&noMeta, "no-metadata", false, "omit the header and timestamps")
	return cmd
}
