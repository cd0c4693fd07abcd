// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatium-tui/internal/ui/styles"
)

// =============================================================================
// CONFIRM DIALOG
// =============================================================================

// ConfirmResponseMsg is sent when the user answers a ConfirmDialog.
type ConfirmResponseMsg struct {
	Confirmed bool
}

// ConfirmDialog displays a modal yes/no question.
type ConfirmDialog struct {
	title   string
	message string

	// UI state
	visible  bool
	selected int
	width    int
	height   int

	// keys the modal never consumes
	passThrough []key.Binding

	theme *styles.Theme
}

// Button options. Cancel comes first and is the default.
const (
	ButtonCancel  = 0
	ButtonConfirm = 1
	buttonCount   = 2
)

// NewConfirmDialog creates a hidden confirm dialog.
func NewConfirmDialog(theme *styles.Theme) *ConfirmDialog {
	return &ConfirmDialog{theme: theme}
}

// Show displays the dialog with Cancel selected.
func (d *ConfirmDialog) Show(title, message string) {
	d.title = title
	d.message = message
	d.visible = true
	d.selected = ButtonCancel
}

// Hide hides the dialog.
func (d *ConfirmDialog) Hide() {
	d.visible = false
}

// IsVisible returns whether the dialog is visible.
func (d *ConfirmDialog) IsVisible() bool {
	return d.visible
}

// Selected returns the highlighted button.
func (d *ConfirmDialog) Selected() int {
	return d.selected
}

// LetThrough makes the dialog ignore keys matching any of bindings, so
// they reach the parent even while the modal is open.
func (d *ConfirmDialog) LetThrough(bindings ...key.Binding) {
	d.passThrough = append(d.passThrough, bindings...)
}

// SetSize updates the area the dialog is centered in.
func (d *ConfirmDialog) SetSize(width, height int) {
	d.width = width
	d.height = height
}

// Update handles key events. The bool result reports whether the dialog
// consumed the message.
func (d *ConfirmDialog) Update(msg tea.Msg) (tea.Cmd, bool) {
	if !d.visible {
		return nil, false
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil, false
	}
	if key.Matches(keyMsg, d.passThrough...) {
		return nil, false
	}

	switch keyMsg.String() {
	case "left", "h", "right", "l", "tab", "shift+tab":
		d.selected = (d.selected + 1) % buttonCount
		return nil, true

	case "enter", " ":
		return d.answer(d.selected == ButtonConfirm), true

	case "y", "Y":
		return d.answer(true), true

	case "n", "N", "esc":
		return d.answer(false), true
	}

	// Swallow everything else while the modal is open.
	return nil, true
}

func (d *ConfirmDialog) answer(confirmed bool) tea.Cmd {
	d.Hide()
	return func() tea.Msg {
		return ConfirmResponseMsg{Confirmed: confirmed}
	}
}

// =============================================================================
// VIEW RENDERING
// =============================================================================

// View renders the dialog, centered when a size is set.
func (d *ConfirmDialog) View() string {
	if !d.visible {
		return ""
	}

	boxWidth := 50
	if d.width > 0 && d.width < 60 {
		boxWidth = d.width - 4
	}
	if boxWidth < 30 {
		boxWidth = 30
	}

	var content strings.Builder
	content.WriteString(d.theme.ConfirmTitle.Render(d.title))
	content.WriteString("\n\n")
	content.WriteString(lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Width(boxWidth - 6).
		Render(d.message))
	content.WriteString("\n\n")
	content.WriteString(d.renderButtons())
	content.WriteString("\n\n")
	content.WriteString(lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true).
		Render("y=Yes  n=No  Tab=Switch"))

	box := d.theme.ConfirmBox.Width(boxWidth).Render(content.String())

	if d.width > 0 && d.height > 0 {
		return lipgloss.Place(
			d.width, d.height,
			lipgloss.Center, lipgloss.Center,
			box,
		)
	}
	return box
}

func (d *ConfirmDialog) renderButtons() string {
	render := func(label string, idx int) string {
		if d.selected == idx {
			return d.theme.ConfirmButtonActive.Render(label)
		}
		return d.theme.ConfirmButton.Render(label)
	}
	return lipgloss.JoinHorizontal(lipgloss.Center,
		render("Cancel", ButtonCancel),
		render("Clear", ButtonConfirm),
	)
}
