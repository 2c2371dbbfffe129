// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/helia-tui/internal/logging"
)

const (
	// DefaultTimeout bounds one request attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the number of extra attempts for transient errors.
	DefaultMaxRetries = 2

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024

	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 10 * time.Second

	userAgent = "helia-tui"
)

// PERFORMANCE: connection pooling across all API calls.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// Credentials supplies bearer tokens and renews them after a 401.
type Credentials interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) error
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	Credentials Credentials
	Timeout     time.Duration

	// MaxRetries is the number of extra attempts for idempotent requests
	// that fail with 5xx, 429 or a network error. Negative disables retries.
	MaxRetries int

	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Logger     *slog.Logger
}

// Client talks to the Helia REST API.
type Client struct {
	baseURL    string
	creds      Credentials
	timeout    time.Duration
	maxRetries int
	client     *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client.
func New(opts Options) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		creds:      opts.Credentials,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		client:     opts.HTTPClient,
		limiter:    opts.Limiter,
		logger:     logging.OrDiscard(opts.Logger).With("component", "api"),
		sleep:      sleepCtx,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.client == nil {
		c.client = sharedHTTPClient
	}
	return c
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// call describes one logical request.
type call struct {
	method string
	path   string
	query  url.Values
	body   any
	form   url.Values
	out    any

	// anonymous requests carry no bearer token and never refresh.
	anonymous bool

	// bearer overrides the credentials source and disables refresh.
	bearer string
}

func (c call) idempotent() bool {
	return c.method != http.MethodPost
}

func (c call) refreshable() bool {
	return !c.anonymous && c.bearer == ""
}

// do runs a request with auth refresh and retries, decoding the JSON
// response into c.out when set.
func (c *Client) do(ctx context.Context, rc call) error {
	var payload []byte
	contentType := ""
	switch {
	case rc.form != nil:
		payload = []byte(rc.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case rc.body != nil:
		var err error
		payload, err = json.Marshal(rc.body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		contentType = "application/json"
	}

	refreshed := false
	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, backoff(attempt)); err != nil {
				return err
			}
		}

		status, body, err := c.attempt(ctx, rc, payload, contentType)
		if err == nil {
			if rc.out == nil || len(bytes.TrimSpace(body)) == 0 {
				return nil
			}
			if err := json.Unmarshal(body, rc.out); err != nil {
				return fmt.Errorf("failed to parse %s response: %w", rc.path, err)
			}
			return nil
		}
		lastErr = err

		if status == http.StatusUnauthorized && rc.refreshable() && !refreshed && c.creds != nil {
			refreshed = true
			if rerr := c.creds.Refresh(ctx); rerr != nil {
				c.logger.Debug("token refresh failed", "path", rc.path, "error", rerr)
				return err
			}
			c.logger.Debug("token refreshed, replaying request", "path", rc.path)
			attempt--
			continue
		}

		if !rc.idempotent() || attempt >= c.maxRetries || !retryable(err) {
			return lastErr
		}
		c.logger.Debug("retrying request", "method", rc.method, "path", rc.path, "attempt", attempt+1, "error", err)
	}
}

// attempt performs one HTTP exchange. status is 0 when no response arrived.
func (c *Client) attempt(ctx context.Context, rc call, payload []byte, contentType string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	u := c.baseURL + rc.path
	if len(rc.query) > 0 {
		u += "?" + rc.query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, rc.method, u, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	switch {
	case rc.anonymous:
	case rc.bearer != "":
		req.Header.Set("Authorization", "Bearer "+rc.bearer)
	case c.creds != nil:
		token, err := c.creds.Token(ctx)
		if err != nil || token == "" {
			return http.StatusUnauthorized, nil, &APIError{Method: rc.method, Path: rc.path, Status: http.StatusUnauthorized, Detail: "not logged in"}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", rc.method, rc.path, err)
	}
	defer resp.Body.Close()

	data, err := readResponse(resp)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	c.logger.Debug("api response",
		"method", rc.method,
		"path", rc.path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, data, &APIError{
			Method: rc.method,
			Path:   rc.path,
			Status: resp.StatusCode,
			Detail: errorDetail(data),
		}
	}
	return resp.StatusCode, data, nil
}

// readResponse reads the response body with size limits to prevent memory
// exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("%w of %d bytes", ErrResponseTooLarge, MaxResponseSize)
	}
	return body, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrResponseTooLarge) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	// Network errors.
	return true
}

// backoff returns the delay before retry attempt n: 500ms, 1s, 2s, ...
func backoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
