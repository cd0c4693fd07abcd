// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/machinebox/graphql"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/chatium-tui/internal/model"
)

// Configuration constants for the store client.
const (
	// DefaultTimeout bounds every query and mutation.
	DefaultTimeout = 60 * time.Second

	// DefaultRefetchPerSec caps live-stream refetches per second.
	DefaultRefetchPerSec = 5.0

	// MaxResponseSize is the maximum accepted response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	// RequestIDHeader carries a per-operation correlation ID.
	RequestIDHeader = "X-Request-ID"
)

// Options configures a Client.
type Options struct {
	// Endpoint is the GraphQL HTTP endpoint.
	Endpoint string

	// WSEndpoint is the graphql-transport-ws endpoint. Only used when
	// Subscriptions is true.
	WSEndpoint    string
	Subscriptions bool

	// Timeout bounds each HTTP round trip. Zero means DefaultTimeout.
	Timeout time.Duration

	// PollInterval triggers periodic refetches on live streams. Zero
	// disables polling.
	PollInterval time.Duration

	// RefetchPerSec throttles live-stream refetches. Zero means
	// DefaultRefetchPerSec.
	RefetchPerSec float64

	Logger     *zap.Logger
	HTTPClient *http.Client
}

// Client talks to the remote message store. It is safe for concurrent use;
// one Client is shared by every frontend in the process.
type Client struct {
	gql    *graphql.Client
	opts   Options
	logger *zap.Logger

	mu        sync.Mutex
	streams   map[uint64]chan struct{}
	nextWatch uint64
}

// New creates a store client.
func New(opts Options) (*Client, error) {
	u, err := url.Parse(opts.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid GraphQL endpoint %q", opts.Endpoint)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RefetchPerSec <= 0 {
		opts.RefetchPerSec = DefaultRefetchPerSec
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Transport: &limitedTransport{base: http.DefaultTransport},
			Timeout:   opts.Timeout,
		}
	}

	logger := opts.Logger.Named("store")
	gql := graphql.NewClient(opts.Endpoint, graphql.WithHTTPClient(opts.HTTPClient))
	gql.Log = func(s string) { logger.Debug(s) }

	return &Client{
		gql:     gql,
		opts:    opts,
		logger:  logger,
		streams: make(map[uint64]chan struct{}),
	}, nil
}

// Endpoint returns the GraphQL endpoint the client targets.
func (c *Client) Endpoint() string {
	return c.opts.Endpoint
}

// =============================================================================
// OPERATIONS
// =============================================================================

// ListMessages fetches the complete message list once.
func (c *Client) ListMessages(ctx context.Context) ([]model.Message, error) {
	var resp messagesResponse
	if err := c.run(ctx, OpMessages, graphql.NewRequest(getMessagesQuery), &resp); err != nil {
		return nil, err
	}
	msgs, err := toMessages(resp.Messages)
	if err != nil {
		return nil, opError(OpMessages, err)
	}
	return msgs, nil
}

// SendMessage appends a user message. An empty provider means
// model.DefaultProvider. On success every live stream refetches.
func (c *Client) SendMessage(ctx context.Context, content string, provider model.Provider) (model.Message, error) {
	content = norm.NFC.String(content)
	if strings.TrimSpace(content) == "" {
		return model.Message{}, ErrEmptyContent
	}
	if provider == "" {
		provider = model.DefaultProvider
	}
	if !provider.Valid() {
		return model.Message{}, fmt.Errorf("%w: %q", model.ErrUnknownProvider, provider)
	}

	req := graphql.NewRequest(sendMessageMutation)
	req.Var("input", sendMessageInput{Content: content, Provider: string(provider)})

	var resp sendMessageResponse
	if err := c.run(ctx, OpSendMessage, req, &resp); err != nil {
		return model.Message{}, err
	}
	if resp.SendMessage == nil {
		return model.Message{}, opError(OpSendMessage, errors.New("empty response"))
	}
	msg, err := resp.SendMessage.toMessage()
	if err != nil {
		return model.Message{}, opError(OpSendMessage, err)
	}

	c.Refetch()
	return msg, nil
}

// ClearMessages deletes every message. A false answer from the server is
// reported as ErrNotCleared. On success every live stream refetches.
func (c *Client) ClearMessages(ctx context.Context) (bool, error) {
	var resp clearMessagesResponse
	if err := c.run(ctx, OpClearMessages, graphql.NewRequest(clearMessagesMutation), &resp); err != nil {
		return false, err
	}
	if !resp.ClearMessages {
		return false, opError(OpClearMessages, ErrNotCleared)
	}

	c.Refetch()
	return true, nil
}

func (c *Client) run(ctx context.Context, op string, req *graphql.Request, resp interface{}) error {
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)

	start := time.Now()
	err := c.gql.Run(ctx, req, resp)
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("request_id", reqID),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		c.logger.Debug("graphql operation failed", append(fields, zap.Error(err))...)
		return opError(op, err)
	}
	c.logger.Debug("graphql operation", fields...)
	return nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// limitedTransport caps response bodies at MaxResponseSize.
type limitedTransport struct {
	base http.RoundTripper
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.LimitReader(resp.Body, MaxResponseSize), resp.Body}
	return resp, nil
}
