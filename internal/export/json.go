// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"
)

// JSONExporter exports the transcript as JSON.
type JSONExporter struct{}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Export encodes t as indented JSON. Replies that never completed are
// left out, as in Markdown.
func (e *JSONExporter) Export(t Transcript) ([]byte, error) {
	t.Messages = exportable(t.Messages)
	if len(t.Messages) == 0 {
		return nil, ErrEmptyTranscript
	}
	if t.ExportedAt.IsZero() {
		t.ExportedAt = time.Now()
	}
	return json.MarshalIndent(t, "", "  ")
}

// FileExtension returns ".json".
func (e *JSONExporter) FileExtension() string {
	return ".json"
}
