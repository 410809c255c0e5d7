package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	AccessToken() string
}

// UnauthorizedHandler decides what happens after an authenticated call
// returns 401. Returning retry=true re-issues the request once.
type UnauthorizedHandler interface {
	HandleUnauthorized(ctx context.Context) (retry bool)
}

// UnauthorizedFunc adapts a function to UnauthorizedHandler.
type UnauthorizedFunc func(ctx context.Context) bool

func (f UnauthorizedFunc) HandleUnauthorized(ctx context.Context) bool { return f(ctx) }

// Client talks to the QuizWhiz HTTP API.
type Client struct {
	baseURL        *url.URL
	http           *http.Client
	userAgent      string
	timeout        time.Duration
	tokens         TokenSource
	onUnauthorized UnauthorizedHandler
	log            zerolog.Logger
}

const (
	DefaultBaseURL   = "https://quizwhiz-backend-679124120937.us-central1.run.app"
	defaultUserAgent = "quizwhiz/0.1"
	requestTimeout   = 10 * time.Second
	maxErrorBody     = 64 << 10
)

// Option customises a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithUnauthorizedHandler installs the 401 policy.
func WithUnauthorizedHandler(h UnauthorizedHandler) Option {
	return func(c *Client) { c.onUnauthorized = h }
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient builds a Client for the backend origin in baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{},
		userAgent: defaultUserAgent,
		timeout:   requestTimeout,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetUnauthorizedHandler swaps the 401 policy after construction. The session
// layer needs the client to build its refresh policy, so the two are wired in
// two steps.
func (c *Client) SetUnauthorizedHandler(h UnauthorizedHandler) {
	if c != nil {
		c.onUnauthorized = h
	}
}

// BaseURL returns the normalised backend origin.
func (c *Client) BaseURL() string {
	if c == nil || c.baseURL == nil {
		return ""
	}
	return c.baseURL.String()
}

type requestConfig struct {
	authenticated bool
	noRetry       bool
	timeout       time.Duration
	headers       http.Header
}

// RequestOption customises a single call.
type RequestOption func(*requestConfig)

// Authenticated attaches the session bearer token.
func Authenticated() RequestOption {
	return func(rc *requestConfig) { rc.authenticated = true }
}

// Header adds a request header.
func Header(key, value string) RequestOption {
	return func(rc *requestConfig) {
		if rc.headers == nil {
			rc.headers = http.Header{}
		}
		rc.headers.Set(key, value)
	}
}

// Timeout overrides the client timeout for one call.
func Timeout(d time.Duration) RequestOption {
	return func(rc *requestConfig) { rc.timeout = d }
}

// withoutUnauthorizedRetry keeps the 401 handler out of the loop, used by
// the refresh call itself.
func withoutUnauthorizedRetry() RequestOption {
	return func(rc *requestConfig) { rc.noRetry = true }
}

// Do performs method on path, encoding body as JSON when non-nil and decoding
// the response into dest when non-nil. Failures are returned as *Failure or
// ErrNoSession.
func (c *Client) Do(ctx context.Context, method, path string, body, dest any, opts ...RequestOption) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	var rc requestConfig
	for _, opt := range opts {
		opt(&rc)
	}
	rel, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("parse path %q: %w", path, err)
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	err = c.doOnce(ctx, method, rel, payload, dest, rc)
	if !rc.authenticated || rc.noRetry || !IsKind(err, KindUnauthorized) || c.onUnauthorized == nil {
		return err
	}
	if !c.onUnauthorized.HandleUnauthorized(ctx) {
		return err
	}
	c.log.Debug().Str("method", method).Str("path", rel.Path).Msg("retrying after unauthorized")
	return c.doOnce(ctx, method, rel, payload, dest, rc)
}

func (c *Client) doOnce(ctx context.Context, method string, rel *url.URL, payload []byte, dest any, rc requestConfig) error {
	fail := func(kind FailureKind, status int, msg string, err error) *Failure {
		return &Failure{Kind: kind, Status: status, Method: method, Path: rel.Path, Message: msg, Err: err}
	}

	var token string
	if rc.authenticated {
		if c.tokens != nil {
			token = strings.TrimSpace(c.tokens.AccessToken())
		}
		if token == "" {
			return ErrNoSession
		}
	}

	timeout := c.timeout
	if rc.timeout > 0 {
		timeout = rc.timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqURL := c.baseURL.ResolveReference(rel)
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, vals := range rc.headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		kind := kindForTransport(err)
		if ctx.Err() == nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			kind = KindTimeout
		}
		c.log.Debug().Err(err).Str("method", method).Str("path", rel.Path).Msg("request failed")
		return fail(kind, 0, "", fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		msg := errorMessage(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Debug().Int("status", resp.StatusCode).Str("method", method).Str("path", rel.Path).Msg("request rejected")
		return fail(kindForStatus(resp.StatusCode), resp.StatusCode, msg, nil)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return fail(KindTimeout, resp.StatusCode, "", fmt.Errorf("read response: %w", err))
		}
		return fail(KindMalformed, resp.StatusCode, "", fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// errorMessage pulls the machine-readable detail out of an error body.
func errorMessage(r io.Reader) string {
	data, err := io.ReadAll(r)
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return ""
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error", "detail"} {
		if v, ok := body[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse backend url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse backend url %q: missing host", raw)
	}
	u.Path = ""
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
