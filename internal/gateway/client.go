// Package gateway talks to the WhatsApp bridge service that owns the actual
// messaging session. The bridge is flaky, so Send retries transient
// failures internally and reports a single outcome.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ErlanBelekov/wa-scheduler/internal/metrics"
	"golang.org/x/time/rate"
)

type SendResult struct {
	Success  bool
	Error    string
	Attempts int
}

type Config struct {
	BaseURL     string
	Timeout     time.Duration // per attempt
	MaxAttempts int
	RatePerSec  float64
}

type Option func(*Client)

// WithSleep replaces the backoff wait. Tests use it to record delays.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

type Client struct {
	baseURL     string
	http        *http.Client
	timeout     time.Duration
	maxAttempts int
	limiter     *rate.Limiter
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *slog.Logger
}

func New(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		http:        &http.Client{}, // per-attempt deadline comes from the context
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
		limiter:     rate.NewLimiter(limit, 1),
		sleep:       sleepContext,
		logger:      logger.With("component", "gateway"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type sendResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Send delivers message to phone, retrying transient failures with
// exponential backoff. It never returns a Go error: the outcome is in the
// result so callers can log it verbatim.
func (c *Client) Send(ctx context.Context, phone, message string) SendResult {
	start := time.Now()
	var last string

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, Backoff(attempt-1)); err != nil {
				return c.done(start, SendResult{Error: fmt.Sprintf("aborted after %d attempts: %s", attempt-1, last), Attempts: attempt - 1})
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return c.done(start, SendResult{Error: fmt.Sprintf("rate limit wait: %v", err), Attempts: attempt - 1})
		}

		err := c.sendOnce(ctx, phone, message)
		if err == nil {
			metrics.GatewayAttemptsTotal.WithLabelValues("ok").Inc()
			return c.done(start, SendResult{Success: true, Attempts: attempt})
		}

		last = err.Error()
		if IsPermanent(last) {
			metrics.GatewayAttemptsTotal.WithLabelValues("permanent").Inc()
			c.logger.WarnContext(ctx, "permanent send failure", "attempt", attempt, "error", last)
			return c.done(start, SendResult{Error: last, Attempts: attempt})
		}

		metrics.GatewayAttemptsTotal.WithLabelValues("transient").Inc()
		c.logger.WarnContext(ctx, "send attempt failed", "attempt", attempt, "max_attempts", c.maxAttempts, "error", last)
	}

	return c.done(start, SendResult{
		Error:    fmt.Sprintf("failed after %d attempts: %s", c.maxAttempts, last),
		Attempts: c.maxAttempts,
	})
}

func (c *Client) done(start time.Time, res SendResult) SendResult {
	status := "failed"
	if res.Success {
		status = "sent"
	}
	metrics.SendDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	return res
}

func (c *Client) sendOnce(ctx context.Context, phone, message string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(sendRequest{Phone: phone, Message: message})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var out sendResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && out.Error != "" {
			return fmt.Errorf("gateway status %d: %s", resp.StatusCode, out.Error)
		}
		return fmt.Errorf("gateway status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if !out.Success {
		if out.Error == "" {
			return errors.New("gateway reported failure")
		}
		return errors.New(out.Error)
	}
	return nil
}

// Health checks that the bridge is up. Used by the readiness probe.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway health: status %d", resp.StatusCode)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
