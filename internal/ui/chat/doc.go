// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat screen.
//
// The Model renders a conversation.View: a header with the provider and the
// connection state, the message list in a scrollable viewport, the input
// line and a status bar. Store work never runs on the UI loop. Live list
// emissions arrive as snapshotMsg, one per Cmd, and sends and clears run as
// Cmds whose results come back as opResultMsg.
//
// # Keys
//
//	Enter        send the input line
//	Ctrl+L       clear the conversation (asks first when confirm_clear is on)
//	PgUp/PgDn    scroll
//	Ctrl+C       quit
//
// The input line also accepts /clear and /provider NAME.
package chat
