// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"
)

// =============================================================================
// MESSAGE LIFECYCLE TESTS
// =============================================================================

func TestAssistantPlaceholder_AppendOnly(t *testing.T) {
	m := NewAssistantPlaceholder()
	if m.Status != StatusPending || !m.IsStreaming {
		t.Fatalf("placeholder status = %v streaming=%v", m.Status, m.IsStreaming)
	}

	fragments := []string{"Hi", " there", "!"}
	var want string
	for _, f := range fragments {
		before := m.Content
		if !m.AppendFragment(f) {
			t.Fatalf("AppendFragment(%q) rejected", f)
		}
		want += f
		if m.Content != want {
			t.Errorf("Content = %q, want %q", m.Content, want)
		}
		if !strings.HasPrefix(m.Content, before) {
			t.Errorf("content %q lost prefix %q", m.Content, before)
		}
	}
	if m.Status != StatusStreaming {
		t.Errorf("Status = %v, want streaming", m.Status)
	}

	if !m.Finalize() {
		t.Fatal("Finalize() returned false")
	}
	if m.IsStreaming || m.Status != StatusFinalized {
		t.Errorf("after Finalize: streaming=%v status=%v", m.IsStreaming, m.Status)
	}
}

func TestMessage_TerminalStatesAreStable(t *testing.T) {
	finalized := NewAssistantPlaceholder()
	finalized.AppendFragment("done")
	finalized.Finalize()

	errored := NewAssistantPlaceholder()
	errored.AppendFragment("Hi")
	errored.Fail("boom")

	for _, m := range []*Message{&finalized, &errored} {
		content := m.Content
		if m.AppendFragment("more") {
			t.Errorf("%s: AppendFragment accepted after terminal state", m.Status)
		}
		if m.Finalize() || m.Fail("again") {
			t.Errorf("%s: transition accepted after terminal state", m.Status)
		}
		if m.Content != content || m.IsStreaming {
			t.Errorf("%s: mutated to %q streaming=%v", m.Status, m.Content, m.IsStreaming)
		}
	}
}

func TestMessage_FailReplacesPartialContent(t *testing.T) {
	m := NewAssistantPlaceholder()
	m.AppendFragment("Hi")
	m.Fail("Sorry, there was an error processing your request.")

	if m.Content != "Sorry, there was an error processing your request." {
		t.Errorf("Content = %q", m.Content)
	}
	if !m.IsError || m.IsStreaming || m.Status != StatusErrored {
		t.Errorf("flags: error=%v streaming=%v status=%v", m.IsError, m.IsStreaming, m.Status)
	}
}

func TestMessage_DisplayContentPlaceholder(t *testing.T) {
	m := NewAssistantPlaceholder()
	if got := m.DisplayContent(); got != PlaceholderText {
		t.Errorf("DisplayContent() = %q, want %q", got, PlaceholderText)
	}
	m.AppendFragment("x")
	if got := m.DisplayContent(); got != "x" {
		t.Errorf("DisplayContent() = %q, want x", got)
	}
}

func TestClientIDs_AreNamespacedAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewClientID(RoleUser)
		if !IsClientID(id) {
			t.Fatalf("IsClientID(%q) = false", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
	if IsClientID("42") {
		t.Error("server id treated as client id")
	}
}

// =============================================================================
// HISTORY TESTS
// =============================================================================

func TestHistory_SingleStreamingMessage(t *testing.T) {
	h := NewHistory()
	if err := h.Add(NewAssistantPlaceholder()); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if err := h.Add(NewAssistantPlaceholder()); err != ErrAlreadyStreaming {
		t.Errorf("second Add err = %v, want ErrAlreadyStreaming", err)
	}
	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1", h.Len())
	}
}

func TestHistory_ApplyAndMessagesCopy(t *testing.T) {
	h := NewHistory()
	p := NewAssistantPlaceholder()
	_ = h.Add(p)

	if !h.Apply(p.ID, func(m *Message) bool { return m.AppendFragment("a") }) {
		t.Fatal("Apply returned false")
	}
	if h.Apply("missing", func(m *Message) bool { return true }) {
		t.Error("Apply on unknown id returned true")
	}

	msgs := h.Messages()
	msgs[0].Content = "mutated"
	if got, _ := h.Get(p.ID); got.Content != "a" {
		t.Errorf("history mutated through copy: %q", got.Content)
	}
	if h.StreamingID() != p.ID {
		t.Errorf("StreamingID() = %q, want %q", h.StreamingID(), p.ID)
	}
}

func TestHistory_ReplaceClearsStreaming(t *testing.T) {
	h := NewHistory()
	_ = h.Add(NewAssistantPlaceholder())
	h.Replace([]Message{{ID: "1", Role: RoleUser, Content: "x", IsStreaming: true}})
	if h.StreamingID() != "" {
		t.Error("snapshot message left streaming")
	}
}

// =============================================================================
// JSON TESTS
// =============================================================================

func TestMessage_UnmarshalServerHistory(t *testing.T) {
	data := `[
		{"id": 12, "role": "user", "content": "hi", "timestamp": "2024-05-01T10:00:00.123456"},
		{"id": "a-1", "role": "assistant", "content": "hello", "image_url": "", "timestamp": "2024-05-01T10:00:01Z"}
	]`
	var msgs []Message
	if err := json.Unmarshal([]byte(data), &msgs); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if msgs[0].ID != "12" || msgs[1].ID != "a-1" {
		t.Errorf("ids = %q, %q", msgs[0].ID, msgs[1].ID)
	}
	if msgs[0].Timestamp.IsZero() || msgs[0].Timestamp.Year() != 2024 {
		t.Errorf("timestamp = %v", msgs[0].Timestamp)
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Status != StatusFinalized {
		t.Errorf("role=%v status=%v", msgs[1].Role, msgs[1].Status)
	}
}

func TestSession_Unmarshal(t *testing.T) {
	var s Session
	err := json.Unmarshal([]byte(`{"id": 7, "name": "Tell me a joke", "created_at": "2024-05-01 10:00:00"}`), &s)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.ID != "7" || s.Name != "Tell me a joke" || s.CreatedAt.IsZero() {
		t.Errorf("session = %+v", s)
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Error("expected error for invalid timestamp")
	}
}

// =============================================================================
// MODEL REGISTRY TESTS
// =============================================================================

func TestModels_Registry(t *testing.T) {
	if !IsKnownModel(DefaultModelID) {
		t.Fatalf("default model %q missing from catalog", DefaultModelID)
	}
	if got := GetModelInfo("custom-x"); got.Name != "custom-x" {
		t.Errorf("GetModelInfo(custom) = %+v", got)
	}
	list := ListModels()
	if len(list) != len(Models) {
		t.Errorf("ListModels() len = %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].ID > list[i].ID {
			t.Error("ListModels() not sorted")
		}
	}
}
