// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jeranaias/chatium-tui/internal/devserver"
	"github.com/jeranaias/chatium-tui/internal/model"
)

// =============================================================================
// HELPERS
// =============================================================================

func newBackend(t *testing.T) (*devserver.Server, *httptest.Server) {
	t.Helper()
	srv := devserver.New(devserver.Options{Logger: zaptest.NewLogger(t)})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return srv, ts
}

func newClient(t *testing.T, ts *httptest.Server, mutate ...func(*Options)) *Client {
	t.Helper()
	opts := Options{
		Endpoint:      ts.URL + "/graphql",
		Timeout:       5 * time.Second,
		RefetchPerSec: 100,
		Logger:        zaptest.NewLogger(t),
	}
	for _, m := range mutate {
		m(&opts)
	}
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

// waitForSnapshot reads from ch until match returns true.
func waitForSnapshot(t *testing.T, ch <-chan model.Snapshot, match func(model.Snapshot) bool) model.Snapshot {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap, ok := <-ch:
			require.True(t, ok, "stream closed early")
			if match(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
			return model.Snapshot{}
		}
	}
}

func hasLen(n int) func(model.Snapshot) bool {
	return func(s model.Snapshot) bool { return s.Err == nil && s.Len() == n }
}

// =============================================================================
// CONSTRUCTOR TESTS
// =============================================================================

func TestNew_RejectsBadEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "localhost:8080", "ftp://host/graphql", "http://"} {
		_, err := New(Options{Endpoint: endpoint})
		assert.Error(t, err, "endpoint %q", endpoint)
	}
}

// =============================================================================
// OPERATION TESTS
// =============================================================================

func TestListMessages_Empty(t *testing.T) {
	_, ts := newBackend(t)
	c := newClient(t, ts)

	msgs, err := c.ListMessages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSendMessage_ListGrowsByTwo(t *testing.T) {
	srv, ts := newBackend(t)
	for i := 0; i < 3; i++ {
		srv.Messages().Append(model.RoleUser, "seed")
	}
	c := newClient(t, ts)

	reply, err := c.SendMessage(context.Background(), "Hello", "")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.Equal(t, devserver.ClaudeDemoReply, reply.Content)

	msgs, err := c.ListMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	assert.Equal(t, "Hello", msgs[3].Content)
	assert.Equal(t, model.RoleUser, msgs[3].Role)
	assert.Equal(t, reply.ID, msgs[4].ID)
}

func TestSendMessage_ValidationFailsBeforeNetwork(t *testing.T) {
	srv, ts := newBackend(t)
	c := newClient(t, ts)

	_, err := c.SendMessage(context.Background(), "  \n\t ", model.ProviderClaude)
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = c.SendMessage(context.Background(), "Hi", model.Provider("gemini"))
	assert.ErrorIs(t, err, model.ErrUnknownProvider)

	assert.Equal(t, 0, srv.Messages().Len())
}

func TestSendMessage_NormalizesToNFC(t *testing.T) {
	srv, ts := newBackend(t)
	c := newClient(t, ts)

	_, err := c.SendMessage(context.Background(), "cafe\u0301", model.ProviderOpenAI)
	require.NoError(t, err)

	msgs := srv.Messages().List()
	require.Len(t, msgs, 2)
	assert.Equal(t, "caf\u00e9", msgs[0].Content)
	assert.Equal(t, devserver.OpenAIDemoReply, msgs[1].Content)
}

func TestSendMessage_RemoteFailures(t *testing.T) {
	t.Run("server unavailable", func(t *testing.T) {
		srv, ts := newBackend(t)
		srv.SetUnavailable(true)
		c := newClient(t, ts)

		_, err := c.SendMessage(context.Background(), "Hello", "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRemoteOperation)

		var opErr *OperationError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, OpSendMessage, opErr.Op)
	})

	t.Run("graphql error", func(t *testing.T) {
		srv, ts := newBackend(t)
		srv.SetResponder(func(string, model.Provider) (string, error) {
			return "", errors.New("provider down")
		})
		c := newClient(t, ts)

		_, err := c.SendMessage(context.Background(), "Hello", "")
		assert.ErrorIs(t, err, ErrRemoteOperation)
		assert.Contains(t, err.Error(), "provider down")
	})

	t.Run("connection refused", func(t *testing.T) {
		_, ts := newBackend(t)
		c := newClient(t, ts)
		ts.Close()

		_, err := c.SendMessage(context.Background(), "Hello", "")
		assert.ErrorIs(t, err, ErrRemoteOperation)
	})
}

func TestRequestIDHeader(t *testing.T) {
	srv := devserver.New(devserver.Options{})
	defer srv.Close()

	var mu sync.Mutex
	var ids []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ids = append(ids, r.Header.Get(RequestIDHeader))
		mu.Unlock()
		srv.Handler().ServeHTTP(w, r)
	}))
	defer ts.Close()

	c := newClient(t, ts)
	_, err := c.ListMessages(context.Background())
	require.NoError(t, err)
	_, err = c.ListMessages(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, ids, 2)
	assert.NotEmpty(t, ids[0])
	assert.NotEqual(t, ids[0], ids[1])
}

func TestClearMessages(t *testing.T) {
	srv, ts := newBackend(t)
	srv.Messages().Append(model.RoleUser, "one")
	c := newClient(t, ts)

	ok, err := c.ClearMessages(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, srv.Messages().Len())
}

func TestClearMessages_FalseIsFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"clearMessages":false}}`))
	}))
	defer ts.Close()
	c := newClient(t, ts)

	ok, err := c.ClearMessages(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNotCleared)
	assert.ErrorIs(t, err, ErrRemoteOperation)
}

func TestListMessages_BadTimestamp(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"messages":[{"id":"1","content":"x","role":"user","timestamp":"yesterday"}]}}`))
	}))
	defer ts.Close()
	c := newClient(t, ts)

	_, err := c.ListMessages(context.Background())
	assert.ErrorIs(t, err, ErrRemoteOperation)
}

func TestParseTimestamp(t *testing.T) {
	ts, err := parseTimestamp("2025-03-01T13:05:00.123Z")
	require.NoError(t, err)
	assert.Equal(t, 13, ts.UTC().Hour())

	ts, err = parseTimestamp("1740834300000")
	require.NoError(t, err)
	assert.Equal(t, int64(1740834300000), ts.UnixMilli())

	_, err = parseTimestamp("")
	assert.Error(t, err)
}

func TestMessageRoleNormalized(t *testing.T) {
	msg, err := wireMessage{ID: "a", Content: "x", Role: "ASSISTANT", Timestamp: "2025-01-01T00:00:00Z"}.toMessage()
	require.NoError(t, err)
	assert.True(t, msg.IsAssistant())
}

// =============================================================================
// LIVE STREAM TESTS
// =============================================================================

func TestFetchMessages_InitialAndRefetchOnWrite(t *testing.T) {
	srv, ts := newBackend(t)
	srv.Messages().Append(model.RoleUser, "seed")
	c := newClient(t, ts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := c.FetchMessages(ctx)
	require.NoError(t, err)

	waitForSnapshot(t, ch, hasLen(1))

	_, err = c.SendMessage(context.Background(), "Hello", "")
	require.NoError(t, err)

	snap := waitForSnapshot(t, ch, hasLen(3))
	assert.True(t, snap.Messages[2].IsAssistant())

	_, err = c.ClearMessages(context.Background())
	require.NoError(t, err)
	waitForSnapshot(t, ch, hasLen(0))
}

func TestFetchMessages_StampsFetchStart(t *testing.T) {
	srv, ts := newBackend(t)
	srv.Messages().Append(model.RoleUser, "seed")
	c := newClient(t, ts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	before := time.Now()
	ch, err := c.FetchMessages(ctx)
	require.NoError(t, err)
	first := waitForSnapshot(t, ch, hasLen(1))
	assert.False(t, first.StartedAt.Before(before))

	cleared := time.Now()
	_, err = c.ClearMessages(context.Background())
	require.NoError(t, err)
	refetched := waitForSnapshot(t, ch, hasLen(0))
	assert.True(t, refetched.StartedAt.After(cleared), "refetch after a clear starts after the clear was issued")
}

func TestFetchMessages_ClosesOnCancel(t *testing.T) {
	_, ts := newBackend(t)
	c := newClient(t, ts)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := c.FetchMessages(ctx)
	require.NoError(t, err)
	waitForSnapshot(t, ch, hasLen(0))
	assert.Equal(t, 1, c.StreamCount())

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return c.StreamCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestFetchMessages_CancelledContext(t *testing.T) {
	_, ts := newBackend(t)
	c := newClient(t, ts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchMessages(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchMessages_ErrorSnapshotThenRecovery(t *testing.T) {
	srv, ts := newBackend(t)
	srv.SetUnavailable(true)
	c := newClient(t, ts, func(o *Options) { o.PollInterval = 20 * time.Millisecond })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := c.FetchMessages(ctx)
	require.NoError(t, err)

	snap := waitForSnapshot(t, ch, func(s model.Snapshot) bool { return s.Err != nil })
	assert.ErrorIs(t, snap.Err, ErrRemoteOperation)
	assert.Nil(t, snap.Messages)

	srv.SetUnavailable(false)
	waitForSnapshot(t, ch, hasLen(0))
}

func TestFetchMessages_SubscriptionDrivesRefetch(t *testing.T) {
	_, ts := newBackend(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/graphql"

	watcher := newClient(t, ts, func(o *Options) {
		o.Subscriptions = true
		o.WSEndpoint = wsURL
	})
	other := newClient(t, ts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := watcher.FetchMessages(ctx)
	require.NoError(t, err)
	waitForSnapshot(t, ch, hasLen(0))

	// Written by another client: only the messageAdded subscription can
	// tell the watcher about it.
	_, err = other.SendMessage(context.Background(), "from elsewhere", "")
	require.NoError(t, err)

	waitForSnapshot(t, ch, hasLen(2))
}

func TestDeliver_LatestWins(t *testing.T) {
	out := make(chan model.Snapshot, 1)
	deliver(out, model.Snapshot{Messages: []model.Message{{ID: "old"}}})
	deliver(out, model.Snapshot{Messages: []model.Message{{ID: "a"}, {ID: "new"}}})

	snap := <-out
	require.Equal(t, 2, snap.Len())
	assert.Equal(t, "new", snap.Messages[1].ID)

	select {
	case <-out:
		t.Fatal("stale snapshot was queued")
	default:
	}
}

func TestOperationError(t *testing.T) {
	cause := errors.New("boom")
	err := opError(OpClearMessages, cause)

	assert.ErrorIs(t, err, ErrRemoteOperation)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "clearMessages failed: boom", err.Error())
	assert.Same(t, err, opError(OpMessages, err))
	assert.Nil(t, opError(OpMessages, nil))
}
