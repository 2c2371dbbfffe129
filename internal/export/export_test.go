// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/helia-tui/internal/model"
)

func sampleTranscript() Transcript {
	at := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	failed := model.NewAssistantPlaceholder()
	failed.Fail("Sorry, there was an error processing your request.")
	return Transcript{
		Session: model.Session{ID: "42", Name: "Bedtime routines", CreatedAt: at},
		Messages: []model.Message{
			{ID: "1", Role: model.RoleUser, Content: "How do I get a 4 year old to sleep?", Timestamp: at},
			{ID: "2", Role: model.RoleAssistant, Content: "Keep a **consistent** routine.", Timestamp: at.Add(time.Second)},
			{ID: "3", Role: model.RoleUser, AttachmentURL: "https://cdn.example/img.png", Timestamp: at.Add(time.Minute)},
			failed,
		},
		ExportedAt: at.Add(time.Hour),
	}
}

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleTranscript())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: Bedtime routines\n"))
	assert.Contains(t, md, "session: 42\n")
	assert.Contains(t, md, "messages: 3\n")
	assert.Contains(t, md, "# Bedtime routines\n")
	assert.Contains(t, md, "### You")
	assert.Contains(t, md, "### Helia")
	assert.Contains(t, md, "Keep a **consistent** routine.")
	assert.Contains(t, md, "![image](https://cdn.example/img.png)")
	assert.NotContains(t, md, "error processing", "failed replies are not exported")
}

func TestMarkdownExporter_NoMetadata(t *testing.T) {
	opts := &Options{}
	out, err := NewMarkdownExporter(opts).Export(sampleTranscript())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "# Bedtime routines"))
	assert.NotContains(t, md, "<sub>")
}

func TestMarkdownExporter_EscapesTitle(t *testing.T) {
	tr := sampleTranscript()
	tr.Session.Name = "Test\nInjection: #1"

	out, err := NewMarkdownExporter(nil).Export(tr)
	require.NoError(t, err)

	for _, line := range strings.Split(string(out), "\n") {
		assert.False(t, strings.HasPrefix(line, "Injection:"), "newline must not break the front matter")
	}
	assert.Contains(t, string(out), `title: "Test\nInjection: #1"`)
}

func TestExport_EmptyTranscript(t *testing.T) {
	tr := Transcript{Session: model.Session{ID: "1"}}

	_, err := NewMarkdownExporter(nil).Export(tr)
	assert.ErrorIs(t, err, ErrEmptyTranscript)
	_, err = NewJSONExporter().Export(tr)
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestJSONExporter(t *testing.T) {
	out, err := NewJSONExporter().Export(sampleTranscript())
	require.NoError(t, err)

	var decoded struct {
		Session  model.Session   `json:"session"`
		Messages []model.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "42", decoded.Session.ID)
	require.Len(t, decoded.Messages, 3)
	assert.Equal(t, "Keep a **consistent** routine.", decoded.Messages[1].Content)
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	tr := sampleTranscript()

	path, err := ExportToFile(tr, NewMarkdownExporter(nil), &Options{OutputDir: dir, IncludeMetadata: true})
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, "helia_Bedtime_routines_20250304_110000.md", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Bedtime routines")
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"md": FormatMarkdown, "Markdown": FormatMarkdown, " json ": FormatJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("html")
	assert.Error(t, err)

	assert.IsType(t, &JSONExporter{}, NewExporter(FormatJSON, nil))
	assert.IsType(t, &MarkdownExporter{}, NewExporter(FormatMarkdown, nil))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", "session"},
		{"a/b:c", "a-b-c"},
		{"what is\tthe sun?", "what_is_the_sun-"},
		{"bell\x07", "bell-"},
		{strings.Repeat("x", 80), strings.Repeat("x", 47) + "..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), "%q", tt.in)
	}
}
