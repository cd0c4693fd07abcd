// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jeranaias/chatium-tui/internal/model"
)

// Subprotocol is the websocket subprotocol served on GET /graphql.
const Subprotocol = "graphql-transport-ws"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	Subprotocols:    []string{Subprotocol},
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Options configures a dev server.
type Options struct {
	// Responder produces assistant replies. Nil means DemoResponder.
	Responder Responder
	Logger    *zap.Logger
}

// Server is an in-memory stand-in for the chat GraphQL backend.
type Server struct {
	engine *gin.Engine
	store  *MessageStore
	hub    *Hub
	logger *zap.Logger

	mu          sync.RWMutex
	responder   Responder
	unavailable atomic.Bool

	cancel context.CancelFunc
}

// New creates a dev server and starts its subscription hub. Call Close to
// stop the hub.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("devserver")
	responder := opts.Responder
	if responder == nil {
		responder = DemoResponder
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		store:     NewMessageStore(),
		hub:       NewHub(ctx, logger),
		logger:    logger,
		responder: responder,
		cancel:    cancel,
	}
	go s.hub.Run()

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))
	engine.POST("/graphql", s.handleGraphQL)
	engine.GET("/graphql", s.handleWS)
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "messages": s.store.Len()})
	})
	s.engine = engine

	return s
}

// Handler returns the HTTP handler serving /graphql and /health.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Messages exposes the in-memory message list.
func (s *Server) Messages() *MessageStore {
	return s.store
}

// SetResponder replaces the reply generator.
func (s *Server) SetResponder(r Responder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responder = r
}

// SetUnavailable makes every GraphQL request fail with 503 while true.
func (s *Server) SetUnavailable(down bool) {
	s.unavailable.Store(down)
}

// Close stops the subscription hub and disconnects subscribers.
func (s *Server) Close() {
	s.cancel()
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("dev server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// =============================================================================
// GRAPHQL HANDLER
// =============================================================================

type graphQLRequest struct {
	Query         string                     `json:"query"`
	Variables     map[string]json.RawMessage `json:"variables"`
	OperationName string                     `json:"operationName"`
}

type sendMessageInput struct {
	Content  string  `json:"content"`
	Provider *string `json:"provider"`
}

func graphQLError(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, gin.H{"errors": []gin.H{{"message": msg}}})
}

// handleGraphQL dispatches on the root field named in the document. The
// dev server knows exactly three operations, so no schema is parsed.
func (s *Server) handleGraphQL(c *gin.Context) {
	if s.unavailable.Load() {
		c.String(http.StatusServiceUnavailable, "service unavailable")
		return
	}

	var req graphQLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"message": "invalid request body"}}})
		return
	}

	switch {
	case strings.Contains(req.Query, "clearMessages"):
		s.store.Clear()
		s.logger.Info("messages cleared")
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"clearMessages": true}})

	case strings.Contains(req.Query, "sendMessage"):
		s.handleSendMessage(c, req)

	case strings.Contains(req.Query, "messages"):
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"messages": s.store.List()}})

	default:
		graphQLError(c, "unsupported operation")
	}
}

func (s *Server) handleSendMessage(c *gin.Context, req graphQLRequest) {
	raw, ok := req.Variables["input"]
	if !ok {
		graphQLError(c, "missing variable: input")
		return
	}
	var input sendMessageInput
	if err := json.Unmarshal(raw, &input); err != nil {
		graphQLError(c, "invalid input: "+err.Error())
		return
	}
	if strings.TrimSpace(input.Content) == "" {
		graphQLError(c, "content must not be empty")
		return
	}

	providerTag := ""
	if input.Provider != nil {
		providerTag = *input.Provider
	}
	provider, err := model.ParseProvider(providerTag)
	if err != nil {
		graphQLError(c, err.Error())
		return
	}

	s.mu.RLock()
	respond := s.responder
	s.mu.RUnlock()

	// A failed reply stores nothing; the client keeps the draft.
	sentAt := s.store.now()
	reply, err := respond(input.Content, provider)
	if err != nil {
		s.logger.Error("responder failed", zap.String("provider", string(provider)), zap.Error(err))
		graphQLError(c, fmt.Sprintf("%s: %v", provider.DisplayName(), err))
		return
	}

	user, assistant := s.store.AppendExchange(input.Content, reply, sentAt)
	s.hub.Publish(user)
	s.hub.Publish(assistant)

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"sendMessage": assistant}})
}

// =============================================================================
// WEBSOCKET HANDLER
// =============================================================================

func (s *Server) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.hub.logger.Errorw("Failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	client := newWSClient(conn)
	if !s.hub.add(client) {
		return
	}
	defer s.hub.remove(client)
	defer close(client.done)

	go client.writePump(s.hub.logger)

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}

		switch f.Type {
		case "connection_init":
			client.send(frame{Type: "connection_ack"})
		case "ping":
			client.send(frame{Type: "pong"})
		case "subscribe":
			var payload struct {
				Query string `json:"query"`
			}
			json.Unmarshal(f.Payload, &payload)
			if !strings.Contains(payload.Query, "messageAdded") {
				errPayload, _ := json.Marshal([]gin.H{{"message": "unsupported subscription"}})
				client.send(frame{ID: f.ID, Type: "error", Payload: errPayload})
				continue
			}
			client.setSubscription(f.ID)
		case "complete":
			client.setSubscription("")
		}
	}
}
