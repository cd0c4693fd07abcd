// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-TUI commands for
// chatium.
//
// # Key Types
//
//   - Command: the command selected on the command line
//   - Args: parsed global and command-specific flags
//   - ChatSession: line-mode chat over a conversation.View
//   - CommandError, UsageError: errors that map to exit codes
//
// # Usage
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdChat:
//	    err = cli.HandleChatCommand(ctx, view, opts)
//	case cli.CmdDevServer:
//	    err = cli.HandleDevServer(ctx, os.Stdout, args, logger)
//	}
//	os.Exit(cli.ExitCode(err))
//
// # Commands Overview
//
//   - tui: full-screen chat (default)
//   - chat: line-mode chat, also used when stdin is not a terminal
//   - dev-server: in-memory GraphQL message store for local use
//   - config: show, locate or create the config file
//   - version, help
package cli
