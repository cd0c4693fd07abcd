// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for chatium.
//
// Configuration is stored as TOML at ~/.chatium/config.toml. Values are
// resolved in this order: built-in defaults, the config file, then
// CHATIUM_* environment variables (which may come from a .env file loaded
// at startup).
//
// # Example
//
//	[server]
//	endpoint = "http://localhost:8080/graphql"
//	subscriptions = true
//	poll_interval_secs = 15
//
//	[chat]
//	provider = "claude"
//	confirm_clear = true
//
//	[ui]
//	markdown = true
//	time_format = "12h"
//
// A Watcher hot-reloads the file; the TUI applies provider, time format
// and markdown changes without a restart.
package config
