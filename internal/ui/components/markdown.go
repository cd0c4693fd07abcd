// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/chatium-tui/internal/ui/styles"
)

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// MarkdownRenderer renders assistant replies. With markdown disabled it
// only highlights fenced code blocks.
type MarkdownRenderer struct {
	enabled bool
	width   int
	theme   *styles.Theme

	term *glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer for the given wrap width.
func NewMarkdownRenderer(theme *styles.Theme, width int, enabled bool) *MarkdownRenderer {
	r := &MarkdownRenderer{enabled: enabled, theme: theme}
	r.SetWidth(width)
	return r
}

// SetEnabled switches between glamour and plain rendering.
func (r *MarkdownRenderer) SetEnabled(enabled bool) {
	if r.enabled == enabled {
		return
	}
	r.enabled = enabled
	r.term = nil
	r.SetWidth(r.width)
}

// Enabled reports whether glamour rendering is on.
func (r *MarkdownRenderer) Enabled() bool {
	return r.enabled
}

// SetWidth rebuilds the glamour renderer when the wrap width changes.
func (r *MarkdownRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == r.width && r.term != nil {
		return
	}
	r.width = width
	if !r.enabled {
		return
	}

	style := "light"
	if r.theme.IsDark {
		style = "dark"
	}
	term, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		r.term = nil
		return
	}
	r.term = term
}

// Render renders content. Glamour failures fall back to code-block
// highlighting.
func (r *MarkdownRenderer) Render(content string) string {
	if r.enabled && r.term != nil {
		out, err := r.term.Render(content)
		if err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return RenderCodeBlocks(content, r.width, r.theme)
}
