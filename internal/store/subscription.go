// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// =============================================================================
// GRAPHQL-TRANSPORT-WS
// =============================================================================

// Subprotocol is the websocket subprotocol for GraphQL subscriptions.
const Subprotocol = "graphql-transport-ws"

// Message types of the graphql-transport-ws protocol.
const (
	MsgConnectionInit = "connection_init"
	MsgConnectionAck  = "connection_ack"
	MsgPing           = "ping"
	MsgPong           = "pong"
	MsgSubscribe      = "subscribe"
	MsgNext           = "next"
	MsgError          = "error"
	MsgComplete       = "complete"
)

const ackTimeout = 10 * time.Second

var errSubscriptionComplete = errors.New("subscription completed by server")

// WSMessage is one graphql-transport-ws frame.
type WSMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// subscriber keeps a messageAdded subscription open and calls onEvent for
// every event. It reconnects after failures until ctx is done.
type subscriber struct {
	url     string
	retry   time.Duration
	logger  *zap.Logger
	onEvent func()
	dialer  *websocket.Dialer
}

func newSubscriber(url string, retry time.Duration, logger *zap.Logger, onEvent func()) *subscriber {
	return &subscriber{
		url:     url,
		retry:   retry,
		logger:  logger,
		onEvent: onEvent,
		dialer: &websocket.Dialer{
			HandshakeTimeout: ackTimeout,
			Subprotocols:     []string{Subprotocol},
		},
	}
}

func (s *subscriber) run(ctx context.Context) {
	for {
		err := s.session(ctx)
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("subscription dropped", zap.String("url", s.url), zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retry):
		}
	}
}

func (s *subscriber) session(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	if err := conn.WriteJSON(WSMessage{Type: MsgConnectionInit}); err != nil {
		return fmt.Errorf("connection_init: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(ackTimeout))
	var ack WSMessage
	if err := conn.ReadJSON(&ack); err != nil {
		return fmt.Errorf("awaiting ack: %w", err)
	}
	if ack.Type != MsgConnectionAck {
		return fmt.Errorf("expected %s, got %q", MsgConnectionAck, ack.Type)
	}
	conn.SetReadDeadline(time.Time{})

	payload, _ := json.Marshal(map[string]string{"query": messageAddedSubscription})
	if err := conn.WriteJSON(WSMessage{ID: "1", Type: MsgSubscribe, Payload: payload}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	s.logger.Debug("subscribed to messageAdded", zap.String("url", s.url))

	// The connection may have been down; catch up on anything missed.
	s.onEvent()

	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		switch msg.Type {
		case MsgNext:
			s.onEvent()
		case MsgPing:
			if err := conn.WriteJSON(WSMessage{Type: MsgPong}); err != nil {
				return fmt.Errorf("pong: %w", err)
			}
		case MsgError:
			return fmt.Errorf("subscription error: %s", string(msg.Payload))
		case MsgComplete:
			return errSubscriptionComplete
		}
	}
}
