// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the client-visible copy of the server's message list.
// It is only ever replaced wholesale from a Snapshot or emptied after a
// confirmed clear; it is never patched message by message.
type Conversation struct {
	messages []Message
	version  uint64 // bumped on every Replace/Clear
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{
		messages: make([]Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Replace swaps in a complete server-ordered list.
func (c *Conversation) Replace(messages []Message) {
	c.messages = append(make([]Message, 0, len(messages)), messages...)
	c.version++
}

// Clear empties the list.
func (c *Conversation) Clear() {
	c.messages = make([]Message, 0)
	c.version++
}

// Messages returns a copy of the list in server order.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.messages)
}

// Version increases by one on every Replace or Clear.
func (c *Conversation) Version() uint64 {
	return c.version
}
