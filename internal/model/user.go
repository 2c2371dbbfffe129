// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
)

// User is the signed-in account and its personalization settings.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`

	Age             int    `json:"age,omitempty"`
	Occupation      string `json:"occupation,omitempty"`
	TonePreference  string `json:"tone_preference,omitempty"`
	TechFamiliarity string `json:"tech_familiarity,omitempty"`
	ParentType      string `json:"parent_type,omitempty"`
	TimeWithKids    string `json:"time_with_kids,omitempty"`
}

// UnmarshalJSON accepts numeric or string ids.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var raw struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := decodeID(raw.ID)
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	*u = User(raw.plain)
	u.ID = id
	return nil
}

// ProfileUpdate carries the editable profile fields. Nil fields are left
// unchanged by the server.
type ProfileUpdate struct {
	Name            *string `json:"name,omitempty"`
	Age             *int    `json:"age,omitempty"`
	Occupation      *string `json:"occupation,omitempty"`
	TonePreference  *string `json:"tone_preference,omitempty"`
	TechFamiliarity *string `json:"tech_familiarity,omitempty"`
	ParentType      *string `json:"parent_type,omitempty"`
	TimeWithKids    *string `json:"time_with_kids,omitempty"`
}
