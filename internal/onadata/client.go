// Symbology - Facility Visit Reconciliation and Marker Symbology
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/symbology

package onadata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/symbology/internal/logging"
	"github.com/tomtom215/symbology/internal/metrics"
)

// API paths relative to the base URL.
const (
	FormEndpoint           = "api/v1/forms"
	DataEndpoint           = "api/v1/data"
	EditSubmissionEndpoint = "api/v1/submissions"
)

// Retry defaults.
const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 20 * time.Second
	DefaultTimeout     = 60 * time.Second
)

// Client talks to one Ona deployment with one API token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	maxAttempts int
	retryDelay  time.Duration
	wait        func(ctx context.Context, d time.Duration) error

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  logging.LogFn
	newID   func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRetryPolicy sets the total attempt budget and the linear base delay.
func WithRetryPolicy(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if baseDelay >= 0 {
			c.retryDelay = baseDelay
		}
	}
}

// WithRateLimit waits on a token bucket before every attempt. A zero limit
// disables limiting.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		if limit <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithLimiter shares an existing limiter between clients.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithBreakers routes calls through the breaker for this client's host.
func WithBreakers(set *BreakerSet) Option {
	return func(c *Client) {
		if set == nil {
			c.breaker = nil
			return
		}
		c.breaker = set.For(breakerName(c.baseURL))
	}
}

// WithLogger sets the engine log callback.
func WithLogger(fn logging.LogFn) Option {
	return func(c *Client) {
		c.logger = fn
	}
}

// WithInstanceIDFunc replaces the instance id generator, for tests.
func WithInstanceIDFunc(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// withWait replaces the retry sleep, for tests.
func withWait(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.wait = fn
	}
}

// New creates a client for baseURL authenticating with token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		wait:        sleepContext,
		newID:       func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger.Emit(logging.DebugEntry("Created client for %s with token %s", c.baseURL, logging.SanitizeToken(token)))
	return c
}

func breakerName(baseURL string) string {
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		return "onadata:" + u.Host
	}
	return "onadata:" + baseURL
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call is one logical API operation.
type call struct {
	method    string
	operation string
	url       string
	body      []byte
}

// do runs c through the breaker and the retry policy and returns the body
// of the final 2xx response.
func (c *Client) do(ctx context.Context, req call) ([]byte, error) {
	return execute(c.breaker, func() ([]byte, error) {
		return c.doWithRetry(ctx, req)
	})
}

//nolint:gocyclo // the retry rules are easiest to audit in one loop
func (c *Client) doWithRetry(ctx context.Context, req call) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}

		body, status, err := c.attempt(ctx, req)
		if err == nil {
			return body, nil
		}

		var retry bool
		if status == 0 {
			// No response: only reads are retried, and never after cancellation.
			retry = req.method == http.MethodGet && ctx.Err() == nil
		} else {
			retry = retryableStatus(status)
		}
		if !retry || attempt >= c.maxAttempts {
			return nil, err
		}

		if status == 0 {
			c.logger.Emit(logging.VerboseEntry("Retrying request %s; Attempt %d; Request does not have a response", req.url, attempt))
		} else {
			c.logger.Emit(logging.VerboseEntry("Retrying request %s; Attempt %d; last attempt yielded %d", req.url, attempt, status))
		}
		metrics.RecordUpstreamRetry(req.method, req.operation)

		if err := c.wait(ctx, time.Duration(attempt)*c.retryDelay); err != nil {
			return nil, err
		}
	}
}

// attempt performs a single HTTP exchange. A zero status means no response
// was received.
func (c *Client) attempt(ctx context.Context, req call) ([]byte, int, error) {
	var body io.Reader = http.NoBody
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "token "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.RecordUpstreamRequest(req.method, req.operation, 0, time.Since(start))
		return nil, 0, fmt.Errorf("%s %s: %w", req.method, req.url, err)
	}
	defer resp.Body.Close()
	metrics.RecordUpstreamRequest(req.method, req.operation, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, Body: readBodyForError(resp.Body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response body: %w", err)
	}
	return data, resp.StatusCode, nil
}

func (c *Client) endpoint(parts ...string) string {
	return c.baseURL + "/" + strings.Join(parts, "/")
}
