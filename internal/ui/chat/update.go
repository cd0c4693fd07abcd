// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/chatium-tui/internal/conversation"
	"github.com/jeranaias/chatium-tui/internal/model"
	"github.com/jeranaias/chatium-tui/internal/ui/components"
)

// =============================================================================
// INIT
// =============================================================================

// Init starts the cursor blink and subscribes to the live message list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.subscribe)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The modal owns the keyboard while it is open.
	if cmd, handled := m.confirm.Update(msg); handled {
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case subscribedMsg:
		if msg.err != nil {
			m.notice = "subscribe failed: " + msg.err.Error()
			return m, nil
		}
		m.snapshots = msg.ch
		return m, waitForSnapshot(msg.ch)

	case snapshotMsg:
		if !msg.ok {
			m.snapshots = nil
			return m, nil
		}
		m.view.ApplySnapshot(msg.snap)
		m.refresh()
		return m, waitForSnapshot(m.snapshots)

	case opResultMsg:
		return m.handleResult(msg.result)

	case components.ConfirmResponseMsg:
		return m, m.answerClear(msg.Confirmed)

	case spinner.TickMsg:
		if !m.view.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case ConfigReloadedMsg:
		m.applyConfig(msg)
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.confirm.IsVisible() {
			m.confirm.Hide()
			m.view.DeclineClear()
		}
		m.quitting = true
		m.view.Teardown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Clear):
		return m, m.requestClear()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Home):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	if m.view.Busy() {
		// USABILITY: the input stays read-only until the operation resolves
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.view.SetDraft(m.input.Value())
	m.notice = ""
	return m, cmd
}

// submit sends the input line, or runs it as a slash command.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if handled, cmd := m.handleCommand(text); handled {
		return m, cmd
	}

	m.view.SetDraft(text)
	op, ok := m.view.Submit()
	if !ok {
		return m, nil
	}

	// Draft is already cleared in the view; mirror it in the input line.
	m.input.Reset()
	m.input.Blur()
	m.notice = ""
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, m.runOperation(op))
}

// handleCommand runs /clear and /provider. Other text, including unknown
// slash text, is sent as a message.
func (m *Model) handleCommand(text string) (bool, tea.Cmd) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "/clear":
		m.input.Reset()
		m.view.SetDraft("")
		return true, m.requestClear()

	case "/provider":
		m.input.Reset()
		m.view.SetDraft("")
		if len(fields) < 2 {
			m.notice = "provider: " + string(m.view.Provider())
			return true, nil
		}
		p, err := model.ParseProvider(fields[1])
		if err == nil {
			err = m.view.SetProvider(p)
		}
		if err != nil {
			m.notice = err.Error()
			return true, nil
		}
		m.notice = fmt.Sprintf("now chatting with %s", p.DisplayName())
		m.refresh()
		return true, nil
	}
	return false, nil
}

// =============================================================================
// CLEAR CONFIRMATION
// =============================================================================

// requestClear starts the two-step clear. Without confirm_clear the
// request is confirmed at once.
func (m *Model) requestClear() tea.Cmd {
	if !m.view.RequestClear() {
		return nil
	}
	if !m.confirmClear {
		return m.answerClear(true)
	}
	m.confirm.Show("Clear conversation", "Are you sure you want to clear all messages?")
	return nil
}

func (m *Model) answerClear(confirmed bool) tea.Cmd {
	if !confirmed {
		m.view.DeclineClear()
		return nil
	}
	op, ok := m.view.ConfirmClear()
	if !ok {
		return nil
	}
	m.input.Blur()
	m.notice = ""
	m.refresh()
	return tea.Batch(m.spinner.Tick, m.runOperation(op))
}

// =============================================================================
// RESULTS
// =============================================================================

func (m Model) handleResult(res conversation.Result) (tea.Model, tea.Cmd) {
	m.view.Resolve(res)

	// A failed send puts the text back into the draft.
	m.input.SetValue(m.view.Draft())
	m.input.CursorEnd()
	cmd := m.input.Focus()

	if res.Err != nil {
		m.logger.Debug("operation failed", zap.Stringer("op", res.Kind), zap.Error(res.Err))
	}
	m.refresh()
	return m, cmd
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

func (m *Model) applyConfig(msg ConfigReloadedMsg) {
	cfg := msg.Config
	if cfg == nil {
		return
	}
	if err := m.view.SetProvider(cfg.Chat.ProviderTag()); err != nil {
		m.logger.Warn("ignoring provider from config", zap.Error(err))
	}
	if f, err := conversation.ParseTimeFormat(cfg.UI.TimeFormat); err == nil {
		m.timeFormat = f
	}
	m.confirmClear = cfg.Chat.ConfirmClear
	m.markdown.SetEnabled(cfg.UI.Markdown)
	m.notice = "configuration reloaded"
	m.refresh()
}

// =============================================================================
// LAYOUT
// =============================================================================

const (
	headerHeight    = 2
	inputAreaHeight = 3
	statusBarHeight = 1
)

// handleResize lays the screen out for a new terminal size.
func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)
	m.confirm.SetSize(msg.Width, msg.Height)

	viewportHeight := m.height - headerHeight - inputAreaHeight - statusBarHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = viewportHeight

	inputWidth := m.width - 6
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth

	m.markdown.SetWidth(m.theme.BubbleWidth() - 4)
	m.ready = true
	m.refresh()
	return m, nil
}

// refresh re-renders the message list into the viewport and follows the
// newest message when the view asks for it.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderMessages())
	if m.view.TakeScroll() {
		m.viewport.GotoBottom()
	}
}
