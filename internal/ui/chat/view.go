// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatium-tui/internal/conversation"
	"github.com/jeranaias/chatium-tui/internal/model"
	"github.com/jeranaias/chatium-tui/internal/ui/styles"
	"github.com/jeranaias/chatium-tui/internal/util"
)

// =============================================================================
// MAIN VIEW
// =============================================================================

// View renders the chat screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready || m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if m.confirm.IsVisible() {
		return m.confirm.View()
	}

	header := m.renderHeader()
	input := m.renderInput()
	status := m.renderStatusBar()

	// Whatever the fixed parts do not use belongs to the messages.
	available := m.height - lipgloss.Height(header) - lipgloss.Height(input) - lipgloss.Height(status)
	if available < 1 {
		available = 1
	}
	messages := m.viewport.View()
	if lipgloss.Height(messages) != available {
		messages = lipgloss.NewStyle().
			Height(available).
			MaxHeight(available).
			Width(m.width).
			Render(messages)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, messages, input, status)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	title := m.theme.HeaderTitle.Render("Chatium")
	subtitle := m.theme.HeaderSubtitle.Render(" | Chat with " + m.view.Provider().DisplayName())

	var indicator string
	if m.view.ConnectionLost() {
		indicator = m.theme.ConnectionLost.Render("CONNECTION LOST")
	} else {
		indicator = m.theme.ConnectionOK.Render(styles.StatusIndicators.Success)
	}

	left := title + subtitle
	gap := width - 2 - lipgloss.Width(left) - lipgloss.Width(indicator)
	if gap < 1 {
		gap = 1
	}

	return m.theme.Header.
		Width(width).
		Render(left + strings.Repeat(" ", gap) + indicator)
}

// =============================================================================
// MESSAGES
// =============================================================================

// renderMessages renders the conversation, or the empty state, plus the
// activity indicator while an operation is in flight.
func (m Model) renderMessages() string {
	var parts []string

	messages := m.view.Messages()
	if len(messages) == 0 {
		parts = append(parts, m.renderEmptyState())
	}
	for _, msg := range messages {
		parts = append(parts, m.renderMessage(msg))
	}

	switch m.view.Phase() {
	case conversation.PhaseSubmitting:
		parts = append(parts, m.renderTyping())
	case conversation.PhaseClearing:
		parts = append(parts, m.theme.ThinkingText.Render("Clearing..."))
	}

	return strings.Join(parts, "\n")
}

func (m Model) renderMessage(msg model.Message) string {
	if msg.IsUser() {
		return m.renderUserMessage(msg)
	}
	return m.renderAssistantMessage(msg)
}

// renderUserMessage right-aligns the bubble and its timestamp.
func (m Model) renderUserMessage(msg model.Message) string {
	width := m.layoutWidth()
	bubble := m.theme.UserBubble.Render(m.wrapBody(msg.Content))
	stamp := m.theme.UserTimestamp.Render(conversation.FormatTimestamp(msg.Timestamp, m.timeFormat))

	block := lipgloss.JoinVertical(lipgloss.Right, bubble, stamp)
	return lipgloss.NewStyle().
		Width(width - 2).
		Align(lipgloss.Right).
		MarginTop(1).
		Render(block)
}

// renderAssistantMessage renders the reply through the markdown renderer.
func (m Model) renderAssistantMessage(msg model.Message) string {
	content := m.wrapBody(m.markdown.Render(msg.Content))
	stamp := m.theme.BotTimestamp.Render(conversation.FormatTimestamp(msg.Timestamp, m.timeFormat))

	return lipgloss.NewStyle().
		MarginTop(1).
		MarginLeft(1).
		Render(m.theme.AssistantBubble.Render(content) + "\n" + stamp)
}

// wrapBody wraps bubble content to the layout's bubble width. Short
// messages keep a snug bubble.
func (m Model) wrapBody(content string) string {
	maxWidth := m.theme.BubbleWidth()
	if limit := m.layoutWidth() - 2; maxWidth <= 0 || maxWidth > limit {
		maxWidth = limit
	}
	// Border and padding take six columns.
	bodyWidth := min(maxWidth-6, lipgloss.Width(content))
	if bodyWidth < 1 {
		bodyWidth = 1
	}
	return lipgloss.NewStyle().Width(bodyWidth).Render(content)
}

// renderTyping renders the animated typing indicator.
func (m Model) renderTyping() string {
	who := m.view.Provider().DisplayName()
	return lipgloss.NewStyle().
		MarginTop(1).
		MarginLeft(1).
		Render(m.spinner.View() + " " + m.theme.ThinkingText.Render(who+" is typing"))
}

func (m Model) renderEmptyState() string {
	text := m.theme.EmptyState.Render("Start a conversation with " + m.view.Provider().DisplayName())
	height := m.viewport.Height
	if height < 1 {
		height = 1
	}
	return lipgloss.Place(m.layoutWidth(), height, lipgloss.Center, lipgloss.Center, text)
}

// =============================================================================
// INPUT AREA
// =============================================================================

func (m Model) renderInput() string {
	return m.theme.InputContainer.
		Width(m.layoutWidth()).
		Render(m.input.View())
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar() string {
	width := m.layoutWidth()

	avail := width - 2

	// Text is truncated before styling so escape codes are never cut.
	var left string
	switch {
	case m.view.LastError() != nil:
		text := util.TruncateWidth(styles.StatusIndicators.Error+" "+m.view.LastError().Error(), avail)
		left = m.theme.StatusError.Render(text)
	case m.notice != "":
		left = util.TruncateWidth(m.notice, avail)
	default:
		left = m.theme.ShortcutDesc.Render(util.Pluralize(m.view.MessageCount(), "message", "messages"))
	}

	var shortcuts []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		shortcuts = append(shortcuts, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	right := strings.Join(shortcuts, "  ")

	// Shortcuts go first when space runs out.
	if lipgloss.Width(left)+lipgloss.Width(right)+2 > avail {
		right = ""
	}

	gap := avail - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return m.theme.StatusBar.
		Width(width).
		Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) layoutWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}
