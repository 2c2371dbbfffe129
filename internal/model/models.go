// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// MODEL INFO TYPE
// =============================================================================

// ModelInfo describes an assistant persona the server can answer as.
type ModelInfo struct {
	// ID is the value sent as model_id
	ID string `json:"id"`

	// Name is the human-readable display name
	Name string `json:"name"`

	// Description is a one-line summary shown in the model picker
	Description string `json:"description"`
}

// =============================================================================
// MODEL REGISTRY
// =============================================================================

// DefaultModelID is used when no model is configured.
const DefaultModelID = "sun-shield"

// Models is the catalog of known assistant models.
var Models = map[string]ModelInfo{
	"sun-shield": {
		ID:          "sun-shield",
		Name:        "Helia Sun Shield",
		Description: "Digital safety & online awareness for your family",
	},
	"growth-ray": {
		ID:          "growth-ray",
		Name:        "Helia Growth Ray",
		Description: "Emotional intelligence & behavior guidance for kids",
	},
	"sunbeam": {
		ID:          "sunbeam",
		Name:        "Helia Sunbeam",
		Description: "Confidence building & family bonding support",
	},
	"inner-dawn": {
		ID:          "inner-dawn",
		Name:        "Helia Inner Dawn",
		Description: "Mindfulness, calm parenting & relationship wellness",
	},
}

// GetModelInfo returns catalog info for id. Unknown ids get a synthesized
// entry so custom server models still display.
func GetModelInfo(id string) ModelInfo {
	if info, ok := Models[id]; ok {
		return info
	}
	return ModelInfo{ID: id, Name: id}
}

// IsKnownModel reports whether id is in the catalog.
func IsKnownModel(id string) bool {
	_, ok := Models[id]
	return ok
}

// ListModels returns the catalog sorted by id.
func ListModels() []ModelInfo {
	out := make([]ModelInfo, 0, len(Models))
	for _, m := range Models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FormatModelList renders the catalog for CLI help output.
func FormatModelList() string {
	var sb strings.Builder
	for _, m := range ListModels() {
		fmt.Fprintf(&sb, "  %-12s %s\n", m.ID, m.Name)
	}
	return sb.String()
}
