// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/helia-tui/internal/api"
	"github.com/jeranaias/helia-tui/internal/auth"
	"github.com/jeranaias/helia-tui/internal/config"
	"github.com/jeranaias/helia-tui/internal/coordinator"
	"github.com/jeranaias/helia-tui/internal/credits"
	"github.com/jeranaias/helia-tui/internal/transport"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitAuthError     = 4
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
	ExitCreditsError  = 9
)

// UsageError reports a bad argument.
type UsageError struct {
	Field  string
	Reason string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// errNotLoggedIn is returned by commands that need an account.
var errNotLoggedIn = fmt.Errorf("%w: run `helia login` first", auth.ErrNotLoggedIn)

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	var cfgErrs config.ValidateErrors
	var tErr *transport.TransportError
	var apiErr *api.APIError
	var sce *coordinator.SessionCreationError

	switch {
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &cfgErrs):
		return ExitConfigError
	case errors.Is(err, auth.ErrNotLoggedIn), errors.Is(err, auth.ErrNoRefreshToken),
		errors.Is(err, api.ErrUnauthorized):
		return ExitAuthError
	case errors.Is(err, credits.ErrExhausted), errors.Is(err, api.ErrInsufficientCredits):
		return ExitCreditsError
	case errors.Is(err, api.ErrNotFound):
		return ExitNotFoundError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.As(err, &tErr):
		if tErr.AuthFailure {
			return ExitAuthError
		}
		if tErr.Timeout {
			return ExitTimeoutError
		}
		return ExitNetworkError
	case errors.As(err, &apiErr), errors.As(err, &sce):
		return ExitNetworkError
	}
	return ExitGeneralError
}

// DisplayError prints err once, in the CLI error style.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, ErrorStyle.Render("Error:"), err.Error())

	var cfgErrs config.ValidateErrors
	if errors.As(err, &cfgErrs) {
		fmt.Fprintln(w, DimStyle.Render("Fix the file shown by `helia config path` or run `helia config init --force`."))
	}
}
