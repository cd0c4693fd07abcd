// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/chatium-tui/internal/model"
)

// =============================================================================
// LIVE MESSAGE STREAM
// =============================================================================

// FetchMessages starts a live view of the message list. The first fetch
// happens immediately; later fetches follow this client's successful
// mutations, messageAdded subscription events and the poll interval.
//
// Delivery is latest-wins: the channel holds at most one snapshot and an
// unread snapshot is replaced by a newer one. Fetch failures are delivered
// as snapshots with Err set. The channel is closed when ctx is done.
func (c *Client) FetchMessages(ctx context.Context) (<-chan model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kick := make(chan struct{}, 1)
	kick <- struct{}{}
	id := c.register(kick)

	out := make(chan model.Snapshot, 1)
	limiter := rate.NewLimiter(rate.Limit(c.opts.RefetchPerSec), 2)

	go c.runStream(ctx, id, kick, out, limiter)

	if c.opts.Subscriptions && c.opts.WSEndpoint != "" {
		sub := newSubscriber(c.opts.WSEndpoint, c.retryInterval(), c.logger, func() {
			notify(kick)
		})
		go sub.run(ctx)
	}

	c.logger.Debug("live stream started",
		zap.Uint64("stream", id),
		zap.Bool("subscriptions", c.opts.Subscriptions),
		zap.Duration("poll_interval", c.opts.PollInterval))
	return out, nil
}

// Refetch asks every live stream to fetch the list again.
func (c *Client) Refetch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, kick := range c.streams {
		notify(kick)
	}
}

// StreamCount returns the number of active live streams.
func (c *Client) StreamCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.streams)
}

func (c *Client) register(kick chan struct{}) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextWatch++
	c.streams[c.nextWatch] = kick
	return c.nextWatch
}

func (c *Client) unregister(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.streams, id)
}

func (c *Client) runStream(ctx context.Context, id uint64, kick <-chan struct{}, out chan model.Snapshot, limiter *rate.Limiter) {
	defer close(out)
	defer c.unregister(id)

	var tick <-chan time.Time
	if c.opts.PollInterval > 0 {
		ticker := time.NewTicker(c.opts.PollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-kick:
		case <-tick:
		}

		if err := limiter.Wait(ctx); err != nil {
			return
		}

		started := time.Now()
		msgs, err := c.ListMessages(ctx)
		if ctx.Err() != nil {
			return
		}
		snap := model.Snapshot{Messages: msgs, Err: err, StartedAt: started}
		if err != nil {
			c.logger.Warn("message fetch failed", zap.Uint64("stream", id), zap.Error(err))
		}
		deliver(out, snap)
	}
}

// retryInterval is how long the subscriber waits before reconnecting.
func (c *Client) retryInterval() time.Duration {
	if c.opts.PollInterval > 0 {
		return c.opts.PollInterval
	}
	return 5 * time.Second
}

// deliver replaces any unread snapshot with snap. out must have exactly
// one producer.
func deliver(out chan model.Snapshot, snap model.Snapshot) {
	select {
	case <-out:
	default:
	}
	out <- snap
}

func notify(kick chan<- struct{}) {
	select {
	case kick <- struct{}{}:
	default:
	}
}
