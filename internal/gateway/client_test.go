package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reply struct {
	status int
	body   sendResponse
}

// newBridge serves the scripted replies in order, repeating the last one.
func newBridge(t *testing.T, replies ...reply) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
			return
		case "/send":
		default:
			http.NotFound(w, r)
			return
		}

		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		n := int(calls.Add(1)) - 1
		if n >= len(replies) {
			n = len(replies) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(replies[n].status)
		_ = json.NewEncoder(w).Encode(replies[n].body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(url string, delays *[]time.Duration) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(Config{BaseURL: url, Timeout: time.Second}, logger,
		WithSleep(func(_ context.Context, d time.Duration) error {
			*delays = append(*delays, d)
			return nil
		}),
	)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, Backoff(1))
	assert.Equal(t, 2*time.Second, Backoff(2))
	assert.Equal(t, 4*time.Second, Backoff(3))
	assert.Equal(t, time.Second, Backoff(0))
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent("Number not registered on WhatsApp"))
	assert.True(t, IsPermanent("INVALID NUMBER"))
	assert.True(t, IsPermanent("contact blocked"))
	assert.True(t, IsPermanent("recipient not on WhatsApp"))
	assert.False(t, IsPermanent("connection reset by peer"))
	assert.False(t, IsPermanent(""))
}

func TestSendSucceedsFirstTry(t *testing.T) {
	srv, calls := newBridge(t, reply{http.StatusOK, sendResponse{Success: true}})
	var delays []time.Duration

	res := newTestClient(srv.URL, &delays).Send(context.Background(), "+15550001111", "hi")

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, delays)
}

func TestSendRetriesTransientThenSucceeds(t *testing.T) {
	srv, calls := newBridge(t,
		reply{http.StatusBadGateway, sendResponse{Error: "browser session lost"}},
		reply{http.StatusOK, sendResponse{Success: false, Error: "timeout waiting for ack"}},
		reply{http.StatusOK, sendResponse{Success: true}},
	)
	var delays []time.Duration

	res := newTestClient(srv.URL, &delays).Send(context.Background(), "+15550001111", "hi")

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestSendPermanentFailureNotRetried(t *testing.T) {
	srv, calls := newBridge(t, reply{http.StatusOK, sendResponse{Error: "number not registered"}})
	var delays []time.Duration

	res := newTestClient(srv.URL, &delays).Send(context.Background(), "+15550001111", "hi")

	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "number not registered", res.Error)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, delays)
}

func TestSendExhaustsAttempts(t *testing.T) {
	srv, calls := newBridge(t, reply{http.StatusServiceUnavailable, sendResponse{Error: "not ready"}})
	var delays []time.Duration

	res := newTestClient(srv.URL, &delays).Send(context.Background(), "+15550001111", "hi")

	assert.False(t, res.Success)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, "failed after 3 attempts: gateway status 503: not ready", res.Error)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestSendStopsWhenSleepCancelled(t *testing.T) {
	srv, calls := newBridge(t, reply{http.StatusInternalServerError, sendResponse{Error: "boom"}})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(Config{BaseURL: srv.URL}, logger, WithSleep(func(context.Context, time.Duration) error {
		return context.Canceled
	}))

	res := c.Send(context.Background(), "+1555", "hi")

	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHealth(t *testing.T) {
	srv, _ := newBridge(t, reply{http.StatusOK, sendResponse{Success: true}})
	var delays []time.Duration
	c := newTestClient(srv.URL, &delays)

	require.NoError(t, c.Health(context.Background()))

	srv.Close()
	assert.Error(t, c.Health(context.Background()))
}
