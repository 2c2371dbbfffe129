// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer renders finalized assistant replies. Finalized content
// never changes, so output is cached per message.
type markdownRenderer struct {
	style string
	width int
	r     *glamour.TermRenderer
	cache map[string]string
}

func newMarkdownRenderer(style string, width int) *markdownRenderer {
	return &markdownRenderer{style: style, width: width, cache: make(map[string]string)}
}

// resize drops the renderer and cache when the wrap width changes.
func (mr *markdownRenderer) resize(width int) {
	if width == mr.width {
		return
	}
	mr.width = width
	mr.r = nil
	mr.cache = make(map[string]string)
}

// render returns content as styled markdown, or content unchanged if the
// renderer cannot be built.
func (mr *markdownRenderer) render(id, content string) string {
	key := id + ":" + strconv.Itoa(len(content))
	if out, ok := mr.cache[key]; ok {
		return out
	}

	if mr.r == nil {
		width := mr.width
		if width < 20 {
			width = 20
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(mr.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		mr.r = r
	}

	out, err := mr.r.Render(content)
	if err != nil {
		return content
	}
	out = strings.Trim(out, "\n")
	mr.cache[key] = out
	return out
}
