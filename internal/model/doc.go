// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types shared by the message store
// client, the conversation view and the terminal frontends.
//
// # Key Types
//
//   - Message: Server-confirmed message with id, role, content and timestamp
//   - Snapshot: One emission of the live message list (or a fetch error)
//   - Conversation: Client-visible copy of the list, replaced wholesale
//   - Provider: Backend model tag sent with each message (claude, openai)
//   - Role: Message role enumeration (user, assistant)
//
// # Usage
//
//	conv := model.NewConversation()
//	conv.Replace(snapshot.Messages)
//
//	provider, err := model.ParseProvider("openai")
package model
