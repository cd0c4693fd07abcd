// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation implements the conversation view state machine
// shared by the TUI and line-mode frontends.
//
// The view moves between three phases:
//
//	idle --Submit--> submitting --Resolve--> idle
//	idle --RequestClear/ConfirmClear--> clearing --Resolve--> idle
//
// Submit clears the draft optimistically; a failed send restores it. The
// message list is only ever replaced by store snapshots, except that a
// successful clear empties it at once.
package conversation
