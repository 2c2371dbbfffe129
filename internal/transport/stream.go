// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/helia-tui/internal/logging"
)

// Fragments is a lazy, finite sequence of decoded reply text.
type Fragments interface {
	// Next returns the next fragment, io.EOF at normal end, or a
	// *TransportError. After io.EOF or an error every call returns the
	// same result.
	Next() (string, error)

	// Close releases the underlying request. It is safe to call more than
	// once and from another goroutine.
	Close() error
}

// Stream is the reply to one send.
type Stream struct {
	ctx    context.Context
	cancel context.CancelFunc
	body   io.ReadCloser
	frames *FrameReader
	logger *slog.Logger

	partial   strings.Builder
	fragments int
	started   time.Time
	err       error

	closeOnce sync.Once
}

func newStream(ctx context.Context, cancel context.CancelFunc, body io.ReadCloser, logger *slog.Logger) *Stream {
	return &Stream{
		ctx:     ctx,
		cancel:  cancel,
		body:    body,
		frames:  NewFrameReader(body),
		logger:  logger,
		started: time.Now(),
	}
}

// NewStream wraps an already-open reply body. Closing the stream closes
// body.
func NewStream(ctx context.Context, body io.ReadCloser) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	return newStream(ctx, cancel, body, logging.Discard())
}

// Next implements Fragments.
func (s *Stream) Next() (string, error) {
	if s.err != nil {
		return "", s.err
	}

	frag, err := s.frames.Next()
	if err == nil {
		s.partial.WriteString(frag)
		s.fragments++
		return frag, nil
	}

	if errors.Is(err, io.EOF) {
		s.err = io.EOF
		s.logger.Debug("stream complete",
			"fragments", s.fragments,
			"bytes", s.partial.Len(),
			"duration", time.Since(s.started))
	} else {
		s.err = classify(s.ctx, err, s.partial.String())
		s.logger.Warn("stream failed",
			"fragments", s.fragments,
			"error", err)
	}
	s.Close()
	return "", s.err
}

// Close implements Fragments.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		err = s.body.Close()
	})
	return err
}

// Text returns everything decoded so far.
func (s *Stream) Text() string {
	return s.partial.String()
}
