// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/helia-tui/internal/logging"
	"github.com/jeranaias/helia-tui/internal/model"
)

const (
	// SendPath is the message-send endpoint.
	SendPath = "/api/chat/send"

	// DefaultTimeout bounds one send, from request to the last fragment.
	DefaultTimeout = 5 * time.Minute

	// DefaultHeaderTimeout bounds the wait for the response status line.
	DefaultHeaderTimeout = 30 * time.Second

	// maxErrorBody is how much of a non-2xx body is kept for diagnostics.
	maxErrorBody = 4 * 1024
)

// Form field names of the send endpoint.
const (
	FieldChatID  = "chat_id"
	FieldModelID = "model_id"
	FieldMessage = "message"
	FieldImage   = "image"
)

// PERFORMANCE: one pooled client for all sends; the deadline is carried by
// the request context, not http.Client.Timeout, so long streams are not cut.
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: DefaultHeaderTimeout,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// TokenSource supplies the current bearer credential.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Request is one outgoing chat message.
type Request struct {
	SessionID  string
	Content    string
	Attachment *model.Attachment
	ModelID    string
}

// Options configures a Transport.
type Options struct {
	BaseURL    string
	Tokens     TokenSource
	Timeout    time.Duration
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Logger     *slog.Logger
}

// Transport opens message streams against the send endpoint.
type Transport struct {
	baseURL string
	tokens  TokenSource
	timeout time.Duration
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Transport.
func New(opts Options) *Transport {
	t := &Transport{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		tokens:  opts.Tokens,
		timeout: opts.Timeout,
		client:  opts.HTTPClient,
		limiter: opts.Limiter,
		logger:  opts.Logger,
	}
	if t.timeout <= 0 {
		t.timeout = DefaultTimeout
	}
	if t.client == nil {
		t.client = sharedStreamingClient
	}
	t.logger = logging.OrDiscard(t.logger).With("component", "transport")
	return t
}

// Open issues the send request and returns the reply stream. The stream
// owns the request deadline; callers must Close it.
func (t *Transport) Open(ctx context.Context, req Request) (*Stream, error) {
	if req.SessionID == "" {
		return nil, ErrMissingSession
	}

	token, err := t.token(ctx)
	if err != nil {
		return nil, &TransportError{AuthFailure: true, Err: err}
	}

	body, contentType, err := encodeForm(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			cancel()
			return nil, classify(ctx, err, "")
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+SendPath, body)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "text/event-stream, text/plain")
	httpReq.Header.Set("Cache-Control", "no-cache")

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		cancel()
		return nil, classify(ctx, err, "")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer cancel()
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		t.logger.Warn("send rejected",
			"session", req.SessionID,
			"status", resp.StatusCode)
		return nil, &TransportError{
			HTTPStatus:  resp.StatusCode,
			AuthFailure: resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden,
			Body:        strings.TrimSpace(string(snippet)),
			Err:         fmt.Errorf("HTTP error! status: %d", resp.StatusCode),
		}
	}

	t.logger.Debug("stream opened",
		"session", req.SessionID,
		"model", req.ModelID,
		"has_image", req.Attachment != nil,
		"header_latency", time.Since(start))

	return newStream(ctx, cancel, resp.Body, t.logger.With("session", req.SessionID)), nil
}

// Send is Open behind the Fragments interface.
func (t *Transport) Send(ctx context.Context, req Request) (Fragments, error) {
	s, err := t.Open(ctx, req)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (t *Transport) token(ctx context.Context) (string, error) {
	if t.tokens == nil {
		return "", ErrNoCredentials
	}
	token, err := t.tokens.Token(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrNoCredentials
	}
	return token, nil
}

// encodeForm builds the multipart body in field order chat_id, model_id,
// message, image.
func encodeForm(req Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField(FieldChatID, req.SessionID); err != nil {
		return nil, "", err
	}
	if req.ModelID != "" {
		if err := w.WriteField(FieldModelID, req.ModelID); err != nil {
			return nil, "", err
		}
	}
	if err := w.WriteField(FieldMessage, req.Content); err != nil {
		return nil, "", err
	}

	if a := req.Attachment; a != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			FieldImage, escapeQuotes(a.Name)))
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(a.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// classify converts a request or read failure into a TransportError.
func classify(ctx context.Context, err error, partial string) *TransportError {
	te := &TransportError{NetworkFailure: true, Partial: partial, Err: err}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		te.Timeout = true
		te.NetworkFailure = false
		if !errors.Is(err, context.DeadlineExceeded) {
			te.Err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
	}
	return te
}
