// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides reusable UI components for the chatium TUI.

ConfirmDialog (confirm.go) - Modal yes/no prompt, used before clearing the
conversation. Answers arrive as ConfirmResponseMsg.

CodeBlock (codeblock.go) - Chroma-highlighted fenced code with line numbers.

MarkdownRenderer (markdown.go) - Glamour rendering for assistant replies,
falling back to CodeBlock highlighting when markdown is disabled.
*/
package components
