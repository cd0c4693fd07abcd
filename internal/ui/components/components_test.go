// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatium-tui/internal/ui/styles"
)

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func answerOf(t *testing.T, cmd tea.Cmd) bool {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(ConfirmResponseMsg)
	require.True(t, ok)
	return msg.Confirmed
}

// =============================================================================
// CONFIRM DIALOG TESTS
// =============================================================================

func TestConfirmDialog_HiddenIgnoresKeys(t *testing.T) {
	d := NewConfirmDialog(styles.NewTheme())
	cmd, handled := d.Update(keyPress("y"))
	assert.Nil(t, cmd)
	assert.False(t, handled)
	assert.Empty(t, d.View())
}

func TestConfirmDialog_DefaultsToCancel(t *testing.T) {
	d := NewConfirmDialog(styles.NewTheme())
	d.Show("Clear conversation", "Are you sure you want to clear all messages?")
	require.True(t, d.IsVisible())
	assert.Equal(t, ButtonCancel, d.Selected())

	cmd, handled := d.Update(keyPress("enter"))
	assert.True(t, handled)
	assert.False(t, answerOf(t, cmd))
	assert.False(t, d.IsVisible())
}

func TestConfirmDialog_Answers(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want bool
	}{
		{"y confirms", []string{"y"}, true},
		{"n declines", []string{"n"}, false},
		{"esc declines", []string{"esc"}, false},
		{"tab then enter confirms", []string{"tab", "enter"}, true},
		{"tab twice then enter declines", []string{"tab", "tab", "enter"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := NewConfirmDialog(styles.NewTheme())
			d.Show("Clear", "Sure?")

			var cmd tea.Cmd
			for _, k := range tc.keys {
				var handled bool
				cmd, handled = d.Update(keyPress(k))
				require.True(t, handled)
			}
			assert.Equal(t, tc.want, answerOf(t, cmd))
		})
	}
}

func TestConfirmDialog_SwallowsOtherKeys(t *testing.T) {
	d := NewConfirmDialog(styles.NewTheme())
	d.Show("Clear", "Sure?")

	cmd, handled := d.Update(keyPress("x"))
	assert.Nil(t, cmd)
	assert.True(t, handled)
	assert.True(t, d.IsVisible())
}

func TestConfirmDialog_LetsQuitThrough(t *testing.T) {
	d := NewConfirmDialog(styles.NewTheme())
	d.LetThrough(key.NewBinding(key.WithKeys("ctrl+c", "ctrl+q")))
	d.Show("Clear", "Sure?")

	cmd, handled := d.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Nil(t, cmd)
	assert.False(t, handled)
	assert.True(t, d.IsVisible(), "the parent decides what quitting does to the modal")

	_, handled = d.Update(keyPress("x"))
	assert.True(t, handled)
}

func TestConfirmDialog_View(t *testing.T) {
	d := NewConfirmDialog(styles.NewTheme())
	d.SetSize(100, 30)
	d.Show("Clear conversation", "Are you sure you want to clear all messages?")

	view := d.View()
	assert.Contains(t, view, "Clear conversation")
	assert.Contains(t, view, "Cancel")
	assert.Contains(t, view, "clear all messages?")
	assert.Len(t, strings.Split(view, "\n"), 30)
}

// =============================================================================
// CODE BLOCK TESTS
// =============================================================================

func TestRenderCodeBlocks(t *testing.T) {
	theme := styles.NewTheme()
	text := "Here you go:\n```go\nfmt.Println(\"hi\")\n```\nDone."

	out := RenderCodeBlocks(text, 80, theme)
	assert.Contains(t, out, "Here you go:")
	assert.Contains(t, out, "Done.")
	assert.Contains(t, out, "go")
	assert.Contains(t, out, "Println")
	assert.NotContains(t, out, "```")
}

func TestRenderCodeBlocks_Unclosed(t *testing.T) {
	out := RenderCodeBlocks("```\nline one", 40, styles.NewTheme())
	assert.Contains(t, out, "line one")
	assert.NotContains(t, out, "```")
}

func TestRenderCodeBlocks_PlainText(t *testing.T) {
	assert.Equal(t, "just text\nmore", RenderCodeBlocks("just text\nmore", 40, styles.NewTheme()))
}

// =============================================================================
// MARKDOWN TESTS
// =============================================================================

func TestMarkdownRenderer(t *testing.T) {
	theme := styles.NewTheme()

	r := NewMarkdownRenderer(theme, 60, true)
	require.True(t, r.Enabled())
	out := r.Render("# Title\n\nSome **bold** text")
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "bold")
	assert.NotContains(t, out, "**")

	r.SetEnabled(false)
	assert.Equal(t, "Some **bold** text", r.Render("Some **bold** text"))
}
