// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/chatium-tui/internal/model"
)

// =============================================================================
// GRAPHQL DOCUMENTS
// =============================================================================

const (
	getMessagesQuery = `query GetMessages {
  messages {
    id
    content
    role
    timestamp
  }
}`

	sendMessageMutation = `mutation SendMessage($input: SendMessageInput!) {
  sendMessage(input: $input) {
    id
    content
    role
    timestamp
  }
}`

	clearMessagesMutation = `mutation ClearMessages {
  clearMessages
}`

	messageAddedSubscription = `subscription MessageAdded {
  messageAdded {
    id
  }
}`
)

// Operation names used in logs and OperationError.Op.
const (
	OpMessages      = "messages"
	OpSendMessage   = "sendMessage"
	OpClearMessages = "clearMessages"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

type wireMessage struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Role      string `json:"role"`
	Timestamp string `json:"timestamp"`
}

type messagesResponse struct {
	Messages []wireMessage `json:"messages"`
}

type sendMessageResponse struct {
	SendMessage *wireMessage `json:"sendMessage"`
}

type clearMessagesResponse struct {
	ClearMessages bool `json:"clearMessages"`
}

// sendMessageInput mirrors the SendMessageInput GraphQL input type.
type sendMessageInput struct {
	Content  string `json:"content"`
	Provider string `json:"provider"`
}

func (w wireMessage) toMessage() (model.Message, error) {
	if w.ID == "" {
		return model.Message{}, fmt.Errorf("message without id")
	}
	ts, err := parseTimestamp(w.Timestamp)
	if err != nil {
		return model.Message{}, fmt.Errorf("message %s: %w", w.ID, err)
	}
	return model.Message{
		ID:        w.ID,
		Content:   w.Content,
		Role:      model.Role(strings.ToLower(w.Role)),
		Timestamp: ts,
	}, nil
}

func toMessages(in []wireMessage) ([]model.Message, error) {
	out := make([]model.Message, 0, len(in))
	for _, w := range in {
		msg, err := w.toMessage()
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

// parseTimestamp accepts ISO-8601 instants and epoch milliseconds.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
