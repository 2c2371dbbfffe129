// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
)

// highlightCodeBlocks syntax-highlights fenced code blocks in a reply. The
// fences stay in place so the text still reads as Markdown. Without color
// the text is returned unchanged.
func highlightCodeBlocks(text string) string {
	if !ColorsEnabled() || !strings.Contains(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	result := make([]string, 0, len(lines))
	var code []string
	var language string
	inBlock := false

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "```") && inBlock:
			result = append(result, highlightCode(strings.Join(code, "\n"), language), line)
			code, language, inBlock = nil, "", false
		case strings.HasPrefix(line, "```"):
			language = strings.TrimSpace(strings.TrimPrefix(line, "```"))
			inBlock = true
			result = append(result, line)
		case inBlock:
			code = append(code, line)
		default:
			result = append(result, line)
		}
	}
	// Unclosed block: still a reply in progress or truncated.
	if inBlock {
		result = append(result, code...)
	}
	return strings.Join(result, "\n")
}

// highlightCode formats code for a 256-color terminal.
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
