// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/chatium-tui/internal/model"
)

// Demo replies used when no real provider is wired in.
const (
	ClaudeDemoReply = "Hello! I'm a demo response. Please configure your Claude API key in application.properties to enable real Claude responses."
	OpenAIDemoReply = "Hello! I'm a demo ChatGPT response. Please configure your OpenAI API key in application.properties to enable real ChatGPT responses."
)

// Responder produces the assistant reply for a user message.
type Responder func(content string, provider model.Provider) (string, error)

// DemoResponder answers every message with the provider's demo text.
func DemoResponder(_ string, provider model.Provider) (string, error) {
	if provider == model.ProviderOpenAI {
		return OpenAIDemoReply, nil
	}
	return ClaudeDemoReply, nil
}

// MessageStore is the in-memory message list. Safe for concurrent use.
type MessageStore struct {
	mu       sync.RWMutex
	messages []model.Message
	now      func() time.Time
}

// NewMessageStore creates an empty store.
func NewMessageStore() *MessageStore {
	return &MessageStore{now: time.Now}
}

// List returns a copy of all messages in insertion order.
func (s *MessageStore) List() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Append adds a new message and returns it.
func (s *MessageStore) Append(role model.Role, content string) model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(role, content, s.now())
}

// AppendExchange adds a user message stamped sentAt and its reply in one
// step, so readers never see the prompt without the reply.
func (s *MessageStore) AppendExchange(prompt, reply string, sentAt time.Time) (user, assistant model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user = s.appendLocked(model.RoleUser, prompt, sentAt)
	assistant = s.appendLocked(model.RoleAssistant, reply, s.now())
	return user, assistant
}

func (s *MessageStore) appendLocked(role model.Role, content string, at time.Time) model.Message {
	msg := model.Message{
		ID:        uuid.NewString(),
		Content:   content,
		Role:      role,
		Timestamp: at.UTC(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

// Clear removes every message.
func (s *MessageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// Len returns the number of stored messages.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
