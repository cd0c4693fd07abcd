// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/chatium-tui/internal/conversation"
	"github.com/jeranaias/chatium-tui/internal/model"
	"github.com/jeranaias/chatium-tui/internal/ui/components"
	"github.com/jeranaias/chatium-tui/internal/ui/styles"
)

// =============================================================================
// MODEL
// =============================================================================

// Options configures the chat model.
type Options struct {
	// TimeFormat controls message timestamps
	TimeFormat conversation.TimeFormat
	// Markdown renders assistant replies with glamour
	Markdown bool
	// ConfirmClear asks before clearing the conversation
	ConfirmClear bool
	Logger       *zap.Logger
}

// Model is the Bubble Tea model for the chat screen. Conversation state
// lives in the conversation.View; the model only renders it and turns key
// presses into view events.
type Model struct {
	// Context for store calls, cancelled when the program exits
	ctx context.Context

	view   *conversation.View
	logger *zap.Logger

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	confirm  *components.ConfirmDialog
	markdown *components.MarkdownRenderer
	theme    *styles.Theme
	keys     KeyMap

	// Settings
	timeFormat   conversation.TimeFormat
	confirmClear bool

	// Layout
	width  int
	height int
	ready  bool

	// notice is a transient status line message (command feedback)
	notice string

	snapshots <-chan model.Snapshot
	quitting  bool
}

// New creates a chat model over view. Call Init (via tea.NewProgram) to
// subscribe to the store.
func New(ctx context.Context, theme *styles.Theme, view *conversation.View, opts Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = conversation.Clock12
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type your message..."
	ti.CharLimit = 4096
	ti.PromptStyle = theme.InputPrompt
	ti.PlaceholderStyle = theme.InputPlaceholder
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: styles.TypingSpinner.Frames,
		FPS:    styles.TypingSpinner.Duration(),
	}
	sp.Style = theme.Spinner

	keys := DefaultKeyMap()
	confirm := components.NewConfirmDialog(theme)
	confirm.LetThrough(keys.Quit)

	return Model{
		ctx:          ctx,
		view:         view,
		logger:       logger.Named("tui"),
		viewport:     vp,
		input:        ti,
		spinner:      sp,
		confirm:      confirm,
		markdown:     components.NewMarkdownRenderer(theme, 80, opts.Markdown),
		theme:        theme,
		keys:         keys,
		timeFormat:   opts.TimeFormat,
		confirmClear: opts.ConfirmClear,
	}
}

// Conversation returns the view backing the model.
func (m Model) Conversation() *conversation.View {
	return m.view
}

// Input returns the current input line text.
func (m Model) Input() string {
	return m.input.Value()
}

// Notice returns the transient status message.
func (m Model) Notice() string {
	return m.notice
}

// ConfirmVisible reports whether the clear confirmation modal is open.
func (m Model) ConfirmVisible() bool {
	return m.confirm.IsVisible()
}

// =============================================================================
// COMMANDS
// =============================================================================

// subscribe initializes the view and hands back its live stream.
func (m Model) subscribe() tea.Msg {
	ch, err := m.view.Initialize(m.ctx)
	return subscribedMsg{ch: ch, err: err}
}

// runOperation executes op off the UI loop.
func (m Model) runOperation(op *conversation.Operation) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		start := time.Now()
		res := op.Run(ctx)
		m.logger.Debug("operation finished",
			zap.Stringer("op", res.Kind),
			zap.Duration("duration", time.Since(start)),
			zap.Bool("ok", res.Err == nil))
		return opResultMsg{result: res}
	}
}
