// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the frontends and the
// config layer.
//
// String Utilities (display-width aware, via go-runewidth):
//   - TruncateWidth: shorten text for a status line or preview
//   - StringWidth: measure text in terminal columns
//   - Pluralize: "1 message", "3 messages"
//
// File Operations:
//   - WriteFileAtomic: temp file, fsync, rename
package util
