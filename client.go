// Package shopql is a client for the ShopifyQL analytics query endpoint. It
// layers a fixed-window rate limiter, retry with exponential backoff, and
// scoped connection reuse over a single authenticated GraphQL call pattern,
// and converts the tabular results through pluggable projectors.
package shopql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shopql/shopql-go/oauth"
	"github.com/shopql/shopql-go/ratelimit"
	"github.com/shopql/shopql-go/retry"
)

const (
	// DefaultVersion is the API version used when none is configured.
	DefaultVersion = "2025-10"

	// DefaultTimeout bounds connect and read for one attempt.
	DefaultTimeout = 10 * time.Second

	// DefaultPoolSize caps the reusable handles a Session may create.
	DefaultPoolSize = 10
)

const scopesHint = "make sure you have requested the correct scopes, see " +
	"https://shopify.dev/docs/api/admin-graphql/latest/queries/shopifyqlQuery"

// Client executes ShopifyQL queries against one shop. It is safe for use by
// multiple goroutines; the rate limiter and the active session are the only
// shared mutable state and both are guarded internally.
type Client struct {
	shop        string
	accessToken string
	version     string
	timeout     time.Duration
	poolSize    int
	baseURL     string

	limiter *ratelimit.FixedWindow
	policy  retry.Policy
	logger  *zap.Logger

	mu      sync.Mutex
	session *Session
}

// Option configures a Client.
type Option func(*Client)

// WithVersion sets the API version.
func WithVersion(version string) Option {
	return func(c *Client) {
		if version != "" {
			c.version = version
		}
	}
}

// WithTimeout bounds connect and read for a single attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithMaxRetries caps retries after the initial attempt. Negative disables
// retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.policy.MaxRetries = n }
}

// WithRetryPolicy replaces the whole retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithRateLimit configures the fixed-window limiter.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(c *Client) { c.limiter = ratelimit.New(cfg) }
}

// WithPoolSize caps the handles a Session may hold (default 10).
func WithPoolSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.poolSize = n
		}
	}
}

// WithLogger attaches a logger. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBaseURL overrides the endpoint URL. Intended for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// New returns a client for the given shop and access token.
func New(shop, accessToken string, opts ...Option) (*Client, error) {
	if shop == "" {
		return nil, fmt.Errorf("shop is required")
	}
	if accessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}

	c := &Client{
		shop:        shop,
		accessToken: accessToken,
		version:     DefaultVersion,
		timeout:     DefaultTimeout,
		poolSize:    DefaultPoolSize,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = ratelimit.New(ratelimit.Config{
			Window:      ratelimit.DefaultWindow,
			MaxRequests: ratelimit.DefaultMaxRequests,
		})
	}
	return c, nil
}

// NewFromOAuth drives the interactive OAuth flow described by cfg and returns
// a client holding the exchanged access token.
func NewFromOAuth(ctx context.Context, cfg oauth.Config, opts ...Option) (*Client, error) {
	auth := oauth.Authenticator{Config: cfg}
	token, err := auth.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return New(cfg.Shop, token.AccessToken, opts...)
}

// URL returns the GraphQL endpoint URL.
func (c *Client) URL() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return fmt.Sprintf("https://%s.myshopify.com/admin/api/%s/graphql.json", c.shop, c.version)
}

// Session enters a connection scope. While the scope is active, calls reuse
// keep-alive handles instead of building a transport per attempt. The caller
// must Close the session on every exit path. If a scope is already active,
// the same session is returned.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		c.session = newSession(c)
	}
	return c.session
}

func (c *Client) currentSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) endSession(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == s {
		c.session = nil
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// GraphQL executes one GraphQL call and returns the raw data payload. Each
// attempt takes a rate-limiter slot before sending; retryable failures are
// retried with exponential backoff until the policy stops, and the caller's
// context deadline caps the whole call including limiter waits and backoff
// sleeps.
func (c *Client) GraphQL(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	schedule := c.policy.Schedule()
	for {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}

		data, attemptErr := c.attempt(ctx, body)
		if attemptErr == nil {
			return data, nil
		}

		delay, ok := schedule.Next(attemptErr)
		if !ok {
			if retry.Retryable(attemptErr) && schedule.Attempts() > 1 {
				return nil, &AttemptsError{Attempts: schedule.Attempts(), Err: attemptErr}
			}
			return nil, attemptErr
		}

		c.logger.Warn("query attempt failed, retrying",
			zap.Int("attempt", schedule.Attempts()),
			zap.Duration("backoff", delay),
			zap.Error(attemptErr))

		if err := sleepContext(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// attempt performs one send through the active session's handle, or through
// an ephemeral handle torn down before returning when no scope is active.
func (c *Client) attempt(ctx context.Context, body []byte) (json.RawMessage, error) {
	var h *handle
	if s := c.currentSession(); s != nil {
		sh, err := s.acquire(ctx)
		if err != nil {
			return nil, err
		}
		if sh != nil {
			h = sh
			defer s.release(sh)
		}
	}
	if h == nil {
		h = newHandle(c.timeout, 1)
		defer h.close()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: string(respBody)}
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return nil, &StatusError{StatusCode: resp.StatusCode, RawResponse: respBody}
	}

	var parsed graphQLResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		// A 2xx with an undecodable body is treated like a garbled transfer.
		return nil, &TransportError{Err: fmt.Errorf("decode response: %w", err)}
	}

	if len(parsed.Errors) > 0 {
		messages := make([]string, len(parsed.Errors))
		for i, e := range parsed.Errors {
			messages[i] = e.Message
		}
		return nil, &QueryError{Messages: messages}
	}

	return parsed.Data, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
