// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoCredentials means no bearer token is available.
	ErrNoCredentials = errors.New("not logged in")

	// ErrMissingSession is returned for a request without a session id.
	ErrMissingSession = errors.New("session id is required")

	// ErrFrameTooLarge is returned when a single line exceeds MaxFrameSize.
	ErrFrameTooLarge = errors.New("stream frame exceeds maximum size")
)

// TransportError terminates a stream. Exactly one of the cause flags
// describes what went wrong; HTTPStatus is set whenever a response status
// was received.
type TransportError struct {
	// HTTPStatus is the non-2xx status of the initial response, or 0.
	HTTPStatus int

	// NetworkFailure is set when the connection failed or dropped mid-stream.
	NetworkFailure bool

	// Timeout is set when the per-request deadline expired.
	Timeout bool

	// AuthFailure is set when credentials are missing or were rejected.
	// Callers must re-authenticate before retrying.
	AuthFailure bool

	// Partial holds the text decoded before the failure.
	Partial string

	// Body is the start of the server's error response, if any.
	Body string

	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	var sb strings.Builder
	sb.WriteString("transport error")
	switch {
	case e.AuthFailure && e.HTTPStatus != 0:
		fmt.Fprintf(&sb, ": authentication rejected (HTTP %d)", e.HTTPStatus)
	case e.AuthFailure:
		sb.WriteString(": authentication required")
	case e.HTTPStatus != 0:
		fmt.Fprintf(&sb, ": HTTP %d", e.HTTPStatus)
	case e.Timeout:
		sb.WriteString(": timed out")
	case e.NetworkFailure:
		sb.WriteString(": network failure")
	}
	if e.Partial != "" {
		fmt.Fprintf(&sb, " (partial content received: %d chars)", len(e.Partial))
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsAuthFailure reports whether err is a TransportError caused by missing or
// rejected credentials.
func IsAuthFailure(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.AuthFailure
}
