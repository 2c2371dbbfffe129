// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"
)

// JSONResponse is the envelope for --json output.
type JSONResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
	Command   string `json:"command,omitempty"`
}

// writeJSON prints data wrapped in a successful JSONResponse.
func writeJSON(cmd *cobra.Command, data any) error {
	resp := JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   cmd.CommandPath(),
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// =============================================================================
// VERSION
// =============================================================================

// Build information, set by main from linker flags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// VersionData is the --json form of `helia version`.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

func newVersionCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data := VersionData{
				Version:   Version,
				GitCommit: GitCommit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
			}
			if asJSON {
				return writeJSON(cmd, data)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, TitleStyle.Render("helia "+data.Version))
			fmt.Fprintln(out, RenderLabel("Commit", data.GitCommit))
			fmt.Fprintln(out, RenderLabel("Built", data.BuildDate))
			fmt.Fprintln(out, RenderLabel("Go", data.GoVersion))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}
