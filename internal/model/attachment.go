// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxAttachmentSize is the largest image accepted for upload (10MB).
const MaxAttachmentSize = 10 * 1024 * 1024

var (
	// ErrAttachmentTooLarge is returned for images over MaxAttachmentSize.
	ErrAttachmentTooLarge = errors.New("attachment exceeds maximum size")

	// ErrNotAnImage is returned when the file content is not an image.
	ErrNotAnImage = errors.New("attachment is not an image")
)

// Attachment is an image sent with a message.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// LocalURL returns the client-local reference stored on the optimistic
// user message.
func (a *Attachment) LocalURL() string {
	if a == nil {
		return ""
	}
	return "file://" + a.Name
}

// LoadAttachment reads an image file from disk.
func LoadAttachment(path string) (*Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat attachment: %w", err)
	}
	if info.Size() > MaxAttachmentSize {
		return nil, fmt.Errorf("%s: %w", path, ErrAttachmentTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%s (%s): %w", path, contentType, ErrNotAnImage)
	}

	return &Attachment{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Data:        data,
	}, nil
}
