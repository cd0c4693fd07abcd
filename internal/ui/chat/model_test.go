// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jeranaias/chatium-tui/internal/config"
	"github.com/jeranaias/chatium-tui/internal/conversation"
	"github.com/jeranaias/chatium-tui/internal/model"
	"github.com/jeranaias/chatium-tui/internal/ui/styles"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// stubStore is an in-memory store that emits a snapshot after every change.
type stubStore struct {
	mu        sync.Mutex
	messages  []model.Message
	stream    chan model.Snapshot
	streamCtx context.Context
	sends     []string
	providers []model.Provider
	sendErr   error
	clearErr  error
}

func newStubStore(seed ...string) *stubStore {
	s := &stubStore{stream: make(chan model.Snapshot, 16)}
	for _, content := range seed {
		s.add(model.RoleUser, content)
	}
	return s
}

func (s *stubStore) add(role model.Role, content string) {
	s.messages = append(s.messages, model.Message{
		ID:        fmt.Sprintf("m%d", len(s.messages)+1),
		Content:   content,
		Role:      role,
		Timestamp: time.Date(2025, 3, 14, 13, 5, 0, 0, time.Local),
	})
}

func (s *stubStore) emit() {
	msgs := append([]model.Message(nil), s.messages...)
	s.stream <- model.Snapshot{Messages: msgs, StartedAt: time.Now()}
}

func (s *stubStore) FetchMessages(ctx context.Context) (<-chan model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamCtx = ctx
	s.emit()
	return s.stream, nil
}

func (s *stubStore) SendMessage(_ context.Context, content string, provider model.Provider) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, content)
	s.providers = append(s.providers, provider)
	if s.sendErr != nil {
		return model.Message{}, s.sendErr
	}
	s.add(model.RoleUser, content)
	s.add(model.RoleAssistant, "Hi there from the stub")
	s.emit()
	return s.messages[len(s.messages)-1], nil
}

func (s *stubStore) ClearMessages(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return false, s.clearErr
	}
	s.messages = nil
	s.emit()
	return true, nil
}

func (s *stubStore) sendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sends)
}

// collect runs cmd and flattens batches. Only use it on commands that
// return at once.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

// pump applies every pending snapshot.
func pump(t *testing.T, m Model, s *stubStore) Model {
	t.Helper()
	for {
		select {
		case snap := <-s.stream:
			m, _ = step(t, m, snapshotMsg{snap: snap, ok: true})
		default:
			return m
		}
	}
}

// finish runs the operation started by cmd and feeds its result back.
func finish(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	var resolved bool
	for _, msg := range collect(cmd) {
		if res, ok := msg.(opResultMsg); ok {
			m, _ = step(t, m, res)
			resolved = true
		}
	}
	require.True(t, resolved, "command did not run an operation")
	return m
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func newTestModel(t *testing.T, s *stubStore, opts Options) Model {
	t.Helper()
	view := conversation.New(s, conversation.Options{Logger: zaptest.NewLogger(t)})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m := New(ctx, styles.NewTheme(), view, opts)
	m, _ = step(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	for _, msg := range collect(m.Init()) {
		if sub, ok := msg.(subscribedMsg); ok {
			m, _ = step(t, m, sub)
		}
	}
	require.NotNil(t, m.snapshots)
	return pump(t, m, s)
}

var (
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	clearKey = tea.KeyMsg{Type: tea.KeyCtrlL}
)

// =============================================================================
// RENDERING TESTS
// =============================================================================

func TestView_LoadingBeforeResize(t *testing.T) {
	view := conversation.New(newStubStore(), conversation.Options{})
	m := New(context.Background(), styles.NewTheme(), view, Options{})
	assert.Equal(t, "Loading...", m.View())
}

func TestView_EmptyState(t *testing.T) {
	m := newTestModel(t, newStubStore(), Options{})
	out := m.View()
	assert.Contains(t, out, "Chatium")
	assert.Contains(t, out, "Chat with Claude")
	assert.Contains(t, out, "Start a conversation with Claude")
	assert.NotContains(t, out, "CONNECTION LOST")
}

func TestView_MessagesWithTimestamps(t *testing.T) {
	m := newTestModel(t, newStubStore("first question"), Options{})
	out := m.View()
	assert.Contains(t, out, "first question")
	assert.Contains(t, out, "01:05 PM")
	assert.NotContains(t, out, "Start a conversation")
}

func TestView_TwentyFourHourClock(t *testing.T) {
	m := newTestModel(t, newStubStore("first question"), Options{TimeFormat: conversation.Clock24})
	assert.Contains(t, m.View(), "13:05")
}

// =============================================================================
// SEND TESTS
// =============================================================================

func TestSend_HelloScenario(t *testing.T) {
	s := newStubStore()
	m := newTestModel(t, s, Options{})

	m = typeText(t, m, "Hello")
	assert.Equal(t, "Hello", m.Conversation().Draft())

	m, cmd := step(t, m, enterKey)
	require.NotNil(t, cmd)
	assert.Empty(t, m.Input(), "input clears as soon as the send is accepted")
	assert.True(t, m.Conversation().Busy())
	assert.Contains(t, m.View(), "Claude is typing")

	m = finish(t, m, cmd)
	assert.False(t, m.Conversation().Busy())
	assert.Empty(t, m.Input())
	assert.Equal(t, []string{"Hello"}, s.sends)
	assert.Equal(t, []model.Provider{model.ProviderClaude}, s.providers)

	m = pump(t, m, s)
	assert.Equal(t, 2, m.Conversation().MessageCount())
	out := m.View()
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "Hi there from the stub")
	assert.Contains(t, out, "2 messages")
}

func TestSend_FailureRestoresInput(t *testing.T) {
	s := newStubStore()
	s.sendErr = errors.New("network unreachable")
	m := newTestModel(t, s, Options{})

	m = typeText(t, m, "Hello")
	m, cmd := step(t, m, enterKey)
	assert.Empty(t, m.Input())

	m = finish(t, m, cmd)
	assert.Equal(t, "Hello", m.Input())
	assert.Equal(t, 0, m.Conversation().MessageCount())
	assert.Contains(t, m.View(), "network unreachable")
}

func TestSend_RejectedWhileBusy(t *testing.T) {
	s := newStubStore()
	m := newTestModel(t, s, Options{})

	m = typeText(t, m, "Hello")
	m, first := step(t, m, enterKey)
	require.True(t, m.Conversation().Busy())

	// Typing is ignored while busy.
	m = typeText(t, m, "Hi")
	assert.Empty(t, m.Input())

	m.input.SetValue("Hi")
	m, second := step(t, m, enterKey)
	assert.Nil(t, second)
	assert.Equal(t, 0, s.sendCount())

	m = finish(t, m, first)
	assert.Equal(t, []string{"Hello"}, s.sends)
}

func TestSend_BlankInputIgnored(t *testing.T) {
	s := newStubStore()
	m := newTestModel(t, s, Options{})

	m = typeText(t, m, "   ")
	m, cmd := step(t, m, enterKey)
	assert.Nil(t, cmd)
	assert.False(t, m.Conversation().Busy())
	assert.Equal(t, 0, s.sendCount())
}

// =============================================================================
// CLEAR TESTS
// =============================================================================

func TestClear_DeclinedKeepsMessages(t *testing.T) {
	s := newStubStore("a", "b")
	m := newTestModel(t, s, Options{ConfirmClear: true})

	m, cmd := step(t, m, clearKey)
	assert.Nil(t, cmd)
	require.True(t, m.ConfirmVisible())
	assert.Contains(t, m.View(), "Are you sure you want to clear all messages?")

	m, cmd = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	for _, msg := range collect(cmd) {
		m, _ = step(t, m, msg)
	}

	assert.False(t, m.ConfirmVisible())
	assert.False(t, m.Conversation().ConfirmPending())
	assert.Equal(t, 2, m.Conversation().MessageCount())
}

func TestClear_ConfirmedEmptiesList(t *testing.T) {
	s := newStubStore("a", "b")
	m := newTestModel(t, s, Options{ConfirmClear: true})

	m, _ = step(t, m, clearKey)
	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})

	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	m, cmd = step(t, m, msgs[0])
	require.NotNil(t, cmd)
	assert.Equal(t, conversation.PhaseClearing, m.Conversation().Phase())

	m = finish(t, m, cmd)
	assert.Equal(t, 0, m.Conversation().MessageCount(), "list empties without waiting for a refetch")
	assert.Contains(t, m.View(), "Start a conversation with Claude")
}

func TestClear_WithoutConfirmation(t *testing.T) {
	s := newStubStore("a")
	m := newTestModel(t, s, Options{ConfirmClear: false})

	m, cmd := step(t, m, clearKey)
	assert.False(t, m.ConfirmVisible())
	m = finish(t, m, cmd)
	assert.Equal(t, 0, m.Conversation().MessageCount())
}

func TestClear_FailureKeepsMessages(t *testing.T) {
	s := newStubStore("a")
	s.clearErr = errors.New("store offline")
	m := newTestModel(t, s, Options{ConfirmClear: false})

	m, cmd := step(t, m, clearKey)
	m = finish(t, m, cmd)
	assert.Equal(t, 1, m.Conversation().MessageCount())
	assert.Contains(t, m.View(), "store offline")
}

func TestClear_SlashCommand(t *testing.T) {
	s := newStubStore("a")
	m := newTestModel(t, s, Options{ConfirmClear: true})

	m = typeText(t, m, "/clear")
	m, _ = step(t, m, enterKey)
	assert.True(t, m.ConfirmVisible())
	assert.Empty(t, m.Input())
	assert.Equal(t, 0, s.sendCount())
}

// =============================================================================
// CONNECTION AND SETTINGS TESTS
// =============================================================================

func TestConnectionLostIndicator(t *testing.T) {
	s := newStubStore("a")
	m := newTestModel(t, s, Options{})

	m, cmd := step(t, m, snapshotMsg{snap: model.Snapshot{Err: errors.New("dial tcp: refused")}, ok: true})
	assert.NotNil(t, cmd, "model keeps listening after a failed fetch")
	assert.Contains(t, m.View(), "CONNECTION LOST")
	assert.Equal(t, 1, m.Conversation().MessageCount(), "last list stays on screen")

	s.mu.Lock()
	s.emit()
	s.mu.Unlock()
	m = pump(t, m, s)
	assert.NotContains(t, m.View(), "CONNECTION LOST")
}

func TestStreamClosedStopsListening(t *testing.T) {
	m := newTestModel(t, newStubStore(), Options{})
	m, cmd := step(t, m, snapshotMsg{ok: false})
	assert.Nil(t, cmd)
	assert.Nil(t, m.snapshots)
}

func TestProviderCommand(t *testing.T) {
	s := newStubStore()
	m := newTestModel(t, s, Options{})

	m = typeText(t, m, "/provider openai")
	m, _ = step(t, m, enterKey)
	assert.Equal(t, model.ProviderOpenAI, m.Conversation().Provider())
	assert.Contains(t, m.View(), "Chat with ChatGPT")
	assert.Contains(t, m.Notice(), "ChatGPT")

	m = typeText(t, m, "/provider gemini")
	m, _ = step(t, m, enterKey)
	assert.Equal(t, model.ProviderOpenAI, m.Conversation().Provider())
	assert.Contains(t, m.Notice(), "unknown provider")
	assert.Equal(t, 0, s.sendCount())

	m = typeText(t, m, "Hello")
	m, cmd := step(t, m, enterKey)
	finish(t, m, cmd)
	assert.Equal(t, []model.Provider{model.ProviderOpenAI}, s.providers)
}

func TestConfigReload(t *testing.T) {
	m := newTestModel(t, newStubStore("a"), Options{})

	cfg := config.Default()
	cfg.Chat.Provider = "openai"
	cfg.UI.TimeFormat = "24h"
	cfg.UI.Markdown = false
	m, _ = step(t, m, ConfigReloadedMsg{Config: cfg})

	assert.Equal(t, model.ProviderOpenAI, m.Conversation().Provider())
	assert.Equal(t, conversation.Clock24, m.timeFormat)
	assert.False(t, m.markdown.Enabled())
	assert.Contains(t, m.View(), "13:05")
}

func TestQuitTearsDownStream(t *testing.T) {
	s := newStubStore()
	m := newTestModel(t, s, Options{})

	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())

	s.mu.Lock()
	ctx := s.streamCtx
	s.mu.Unlock()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestQuitWhileConfirmOpen(t *testing.T) {
	s := newStubStore("a")
	m := newTestModel(t, s, Options{ConfirmClear: true})

	m, _ = step(t, m, clearKey)
	require.True(t, m.ConfirmVisible())

	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.False(t, m.ConfirmVisible())
	assert.False(t, m.Conversation().ConfirmPending())
	assert.Equal(t, 1, m.Conversation().MessageCount())
}
