// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, body string) ([]string, error) {
	t.Helper()
	fr := NewFrameReader(strings.NewReader(body))
	var out []string
	for {
		frag, err := fr.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, frag)
	}
}

func TestFrameReader_Decoding(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "sse events",
			body: "data: Hi\n\ndata:  there\n\ndata: !\n\n",
			want: []string{"Hi", " there", "!"},
		},
		{
			name: "end sentinel stops stream",
			body: "data: Hi\n\ndata: END\n\ndata: ignored\n\n",
			want: []string{"Hi"},
		},
		{
			name: "end event stops stream",
			body: "data: Hi\n\nevent: end\ndata: \n\ndata: ignored\n",
			want: []string{"Hi"},
		},
		{
			name: "bare lines are content",
			body: "Hello\n",
			want: []string{"Hello"},
		},
		{
			name: "multi-line event keeps newlines",
			body: "data: line one\ndata: line two\n\n",
			want: []string{"line one", "\nline two"},
		},
		{
			name: "no space after colon",
			body: "data:x\n\n",
			want: []string{"x"},
		},
		{
			name: "crlf and comments",
			body: ": keepalive\r\nid: 1\r\ndata: ok\r\n\r\n",
			want: []string{"ok"},
		},
		{
			name: "unterminated last line",
			body: "data: Hi\n\ndata: tail",
			want: []string{"Hi", "tail"},
		},
		{
			name: "END only as whole frame",
			body: "data: THE END\n\n",
			want: []string{"THE END"},
		},
		{
			name: "other events ignored",
			body: "event: message\ndata: a\n\n",
			want: []string{"a"},
		},
		{
			name: "empty body",
			body: "",
			want: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := collect(t, tc.body)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFrameReader_EOFIsSticky(t *testing.T) {
	fr := NewFrameReader(strings.NewReader("data: END\n\ndata: after\n\n"))
	for i := 0; i < 3; i++ {
		_, err := fr.Next()
		assert.ErrorIs(t, err, io.EOF)
	}
}

func TestFrameReader_FrameTooLarge(t *testing.T) {
	body := "data: " + strings.Repeat("x", MaxFrameSize+10) + "\n"
	_, err := collect(t, body)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestFrameReader_InvalidUTF8Replaced(t *testing.T) {
	got, err := collect(t, "data: a\xffb\n\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"a\uFFFDb"}, got)
}
