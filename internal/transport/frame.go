// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

// STREAMING: line-oriented frame decoding

// MaxFrameSize is the longest line accepted from the stream (64KB).
const MaxFrameSize = 64 * 1024

// EndSentinel is the data frame that marks normal termination.
const EndSentinel = "END"

// FrameReader decodes the reply body into text fragments, one per line.
//
// Each line is a frame. "data: " (or "data:") is stripped; lines without a
// field prefix are content as-is. Consecutive data lines belong to one
// event, so every line after the first in an event is delivered with a
// leading newline. Blank lines end an event. id:, retry: and comment
// lines are ignored, as are event: lines other than "event: end".
type FrameReader struct {
	r       *bufio.Reader
	inEvent bool
	done    bool
}

// NewFrameReader creates a FrameReader over r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReaderSize(r, MaxFrameSize)}
}

// Next returns the next non-empty fragment. It returns io.EOF after the
// END sentinel, an "event: end" line, or the end of the body. Any other
// error comes from the underlying reader.
func (f *FrameReader) Next() (string, error) {
	for {
		if f.done {
			return "", io.EOF
		}

		line, err := f.readLine()
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		atEOF := errors.Is(err, io.EOF)
		if atEOF && line == nil {
			f.done = true
			return "", io.EOF
		}
		if atEOF {
			f.done = true
		}

		frag, emit, end := f.decode(line)
		if end {
			f.done = true
			return "", io.EOF
		}
		if emit {
			return frag, nil
		}
	}
}

// readLine returns one line without its terminator. At end of input it
// returns the final unterminated line (if any) together with io.EOF.
func (f *FrameReader) readLine() ([]byte, error) {
	line, err := f.r.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		return nil, ErrFrameTooLarge
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if errors.Is(err, io.EOF) && len(line) == 0 {
		return nil, io.EOF
	}

	out := make([]byte, len(line))
	copy(out, line)
	out = bytes.TrimRight(out, "\r\n")
	return out, err
}

// decode interprets one line. emit reports whether frag carries content;
// end reports a termination marker.
func (f *FrameReader) decode(line []byte) (frag string, emit, end bool) {
	if len(line) == 0 {
		f.inEvent = false
		return "", false, false
	}

	switch {
	case line[0] == ':':
		return "", false, false
	case bytes.HasPrefix(line, []byte("event:")):
		name := strings.TrimSpace(string(line[len("event:"):]))
		return "", false, name == "end"
	case bytes.HasPrefix(line, []byte("id:")), bytes.HasPrefix(line, []byte("retry:")):
		return "", false, false
	}

	payload := line
	if bytes.HasPrefix(payload, []byte("data:")) {
		payload = payload[len("data:"):]
		if len(payload) > 0 && payload[0] == ' ' {
			payload = payload[1:]
		}
	}

	text := strings.ToValidUTF8(string(payload), "\uFFFD")
	if text == EndSentinel {
		return "", false, true
	}

	continuation := f.inEvent
	f.inEvent = true
	if continuation {
		return "\n" + text, true, false
	}
	return text, text != "", false
}
