// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the write, chmod and rename events of one save.
const watchDebounce = 50 * time.Millisecond

// Watch reloads credentials whenever the credentials file changes and
// calls onChange with the new login state when it differs. It blocks until
// ctx is done.
//
// The parent directory is watched, not the file, because saves replace the
// file by rename.
func (m *Manager) Watch(ctx context.Context, onChange func(loggedIn bool)) error {
	if m.store == nil {
		return fmt.Errorf("no credentials store")
	}
	dir := filepath.Dir(m.store.Path())
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(m.store.Path())
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			changed, err := m.reload()
			if err != nil {
				m.logger.Warn("failed to reload credentials", "error", err)
				continue
			}
			if changed {
				loggedIn := m.LoggedIn()
				m.logger.Debug("credentials changed on disk", "logged_in", loggedIn)
				if onChange != nil {
					onChange(loggedIn)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("credentials watcher error", "error", err)
		}
	}
}
