// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chatium-tui/internal/config"
	"github.com/jeranaias/chatium-tui/internal/conversation"
	"github.com/jeranaias/chatium-tui/internal/model"
)

// =============================================================================
// STORE MESSAGES
// =============================================================================

// subscribedMsg carries the result of View.Initialize.
type subscribedMsg struct {
	ch  <-chan model.Snapshot
	err error
}

// snapshotMsg delivers one emission of the live message list. ok is false
// once the stream has closed.
type snapshotMsg struct {
	snap model.Snapshot
	ok   bool
}

// opResultMsg carries the outcome of a send or clear.
type opResultMsg struct {
	result conversation.Result
}

// =============================================================================
// EXTERNAL MESSAGES
// =============================================================================

// ConfigReloadedMsg is sent by the program when the config file changes.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// =============================================================================
// COMMANDS
// =============================================================================

// waitForSnapshot blocks on the live stream and turns the next emission
// into a message. The model re-issues it after every snapshot.
func waitForSnapshot(ch <-chan model.Snapshot) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-ch
		return snapshotMsg{snap: snap, ok: ok}
	}
}
