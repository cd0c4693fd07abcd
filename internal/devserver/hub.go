// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jeranaias/chatium-tui/internal/model"
)

// =============================================================================
// SUBSCRIPTION HUB
// =============================================================================

// frame is one graphql-transport-ws protocol message.
type frame struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type wsClient struct {
	ID     string
	conn   *websocket.Conn
	events chan model.Message
	out    chan frame
	done   chan struct{}

	mu    sync.Mutex
	subID string
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		ID:     uuid.NewString()[:8],
		conn:   conn,
		events: make(chan model.Message, 16),
		out:    make(chan frame, 16),
		done:   make(chan struct{}),
	}
}

func (c *wsClient) subscription() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subID
}

func (c *wsClient) setSubscription(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subID = id
}

// writePump is the only writer on conn.
func (c *wsClient) writePump(logger *zap.SugaredLogger) {
	for {
		select {
		case <-c.done:
			return
		case f := <-c.out:
			if err := c.conn.WriteJSON(f); err != nil {
				logger.Debugw("websocket write failed", "client_id", c.ID, "error", err)
				return
			}
		case msg := <-c.events:
			sub := c.subscription()
			if sub == "" {
				continue
			}
			payload, _ := json.Marshal(map[string]interface{}{
				"data": map[string]interface{}{
					"messageAdded": msg,
				},
			})
			if err := c.conn.WriteJSON(frame{ID: sub, Type: "next", Payload: payload}); err != nil {
				logger.Debugw("websocket write failed", "client_id", c.ID, "error", err)
				return
			}
		}
	}
}

func (c *wsClient) send(f frame) {
	select {
	case c.out <- f:
	case <-c.done:
	}
}

// Hub fans messageAdded events out to subscribed websocket clients.
type Hub struct {
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan model.Message
	logger     *zap.SugaredLogger

	ctx context.Context
}

// NewHub creates a hub. Call Run to start it.
func NewHub(ctx context.Context, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan model.Message, 64),
		logger:     logger.Sugar(),
		ctx:        ctx,
	}
}

// Run processes hub events until the hub's context is done.
func (h *Hub) Run() {
	h.logger.Info("WebSocket Hub started")

	for {
		select {
		case <-h.ctx.Done():
			for client := range h.clients {
				client.conn.Close()
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Infow("Client connected",
				"client_id", client.ID,
				"clients_count", len(h.clients),
			)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				h.logger.Infow("Client disconnected",
					"client_id", client.ID,
					"clients_count", len(h.clients),
				)
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.events <- msg:
				default:
					h.logger.Warnw("Dropping event for slow client", "client_id", client.ID)
				}
			}
		}
	}
}

// Publish queues a messageAdded event.
func (h *Hub) Publish(msg model.Message) {
	select {
	case h.broadcast <- msg:
	case <-h.ctx.Done():
	default:
		h.logger.Warnw("Broadcast queue full, dropping event", "message_id", msg.ID)
	}
}

func (h *Hub) add(c *wsClient) bool {
	select {
	case h.register <- c:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) remove(c *wsClient) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}
