// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// PROVIDER TYPE
// =============================================================================

// Provider tags which backend model answers a sendMessage call.
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderOpenAI Provider = "openai"

	// DefaultProvider is used when no provider is given.
	DefaultProvider = ProviderClaude
)

// ErrUnknownProvider is returned by ParseProvider for unsupported tags.
var ErrUnknownProvider = errors.New("unknown provider")

// ParseProvider normalizes a provider tag. The empty string maps to
// DefaultProvider.
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultProvider, nil
	case ProviderClaude:
		return ProviderClaude, nil
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	default:
		return "", fmt.Errorf("%w: %q (want claude or openai)", ErrUnknownProvider, s)
	}
}

// Valid reports whether p is a supported provider tag.
func (p Provider) Valid() bool {
	return p == ProviderClaude || p == ProviderOpenAI
}

// DisplayName returns the name shown to users ("Claude", "ChatGPT").
func (p Provider) DisplayName() string {
	switch p {
	case ProviderClaude:
		return "Claude"
	case ProviderOpenAI:
		return "ChatGPT"
	default:
		return string(p)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single server-confirmed chat message. Messages are never
// modified after creation.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

// IsUser reports whether the message was written by the user.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsAssistant reports whether the message is a model reply.
func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// Preview returns the first line of the content, truncated to maxRunes.
func (m Message) Preview(maxRunes int) string {
	line := m.Content
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx] + "..."
	}
	runes := []rune(line)
	if maxRunes > 3 && len(runes) > maxRunes {
		return string(runes[:maxRunes-3]) + "..."
	}
	return line
}

// =============================================================================
// SNAPSHOT TYPE
// =============================================================================

// Snapshot is one emission of the live message list. Each snapshot replaces
// the previous one in full. When Err is set, Messages is nil and the
// previous list remains authoritative. StartedAt is when the fetch that
// produced it was issued; the zero value means unknown.
type Snapshot struct {
	Messages  []Message
	Err       error
	StartedAt time.Time
}

// Len returns the number of messages in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Messages)
}
