package client

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
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/blackwatch/internal/telemetry"
)

// ErrMissingBaseURL is returned by New when no API base URL is configured.
var ErrMissingBaseURL = errors.New("api base url is not configured")

const maxErrorBody = 64 << 10

// Config holds common client configuration
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Debug    bool
	Cache    bool
	CacheDir string
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080/api",
		Timeout: 30 * time.Second,
	}
}

// TokenSource supplies the bearer token for outgoing requests.
type TokenSource interface {
	Token() string
}

// Session is the part of the session accessor the pipeline needs. Clear is
// only called after the server rejects the token.
type Session interface {
	TokenSource
	Clear()
}

// Client sends every API call through the same pipeline: the outbound
// transport stack, then response classification.
type Client struct {
	baseURL  string
	http     *http.Client
	session  Session
	notifier Notifier
	metrics  *telemetry.Metrics

	mu        sync.Mutex
	listeners []func()
}

type Option func(*clientOptions)

type clientOptions struct {
	notifier Notifier
	metrics  *telemetry.Metrics
	base     http.RoundTripper
}

// WithNotifier replaces the default zerolog notifier.
func WithNotifier(n Notifier) Option {
	return func(o *clientOptions) {
		o.notifier = n
	}
}

// WithMetrics records one sample per request.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *clientOptions) {
		o.metrics = m
	}
}

// WithBaseTransport sets the innermost round tripper, http.DefaultTransport by default.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) {
		o.base = rt
	}
}

// New creates a client for cfg.BaseURL that reads tokens from sess.
func New(cfg Config, sess Session, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}

	o := &clientOptions{notifier: defaultNotifier()}
	for _, opt := range opts {
		opt(o)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newTransport(cfg, sess, o.base),
		},
		session:  sess,
		notifier: o.notifier,
		metrics:  o.metrics,
	}, nil
}

// BaseURL returns the API root every path is resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// OnSessionInvalid registers fn to run after a 401 has cleared the session.
func (c *Client) OnSessionInvalid(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Do sends a JSON request and decodes a JSON response into out. A nil body
// sends no payload and a nil out discards the response.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var (
		reader      io.Reader
		contentType string
	)
	if body != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = buf
		contentType = "application/json"
	}

	return c.send(ctx, method, path, contentType, reader, out)
}

func (c *Client) send(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(ctx, classifyTransport(method, path, err), started)
	}
	defer resp.Body.Close()

	if FromCache(resp) {
		log.Debug().Str("method", method).Str("path", path).Msg("served from cache")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return c.fail(ctx, classifyResponse(method, path, resp.StatusCode, data), started)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(ctx, classifyTransport(method, path, err), started)
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return c.fail(ctx, &APIError{
				Kind:    KindDecode,
				Method:  method,
				Path:    path,
				Status:  resp.StatusCode,
				Message: "malformed response body",
				Err:     err,
			}, started)
		}
	}

	c.record(ctx, method, "success", started)

	return nil
}

// fail applies the side effects for a classified failure and returns it.
func (c *Client) fail(ctx context.Context, apiErr *APIError, started time.Time) error {
	c.record(ctx, apiErr.Method, apiErr.Kind.String(), started)

	if apiErr.Kind == KindUnauthorized {
		c.session.Clear()
		if c.metrics != nil {
			c.metrics.SessionCleared.Add(ctx, 1)
		}
		c.sessionInvalid()
	}

	if n, ok := notification(apiErr); ok {
		c.notifier.Notify(n)
	}

	log.Debug().
		Str("kind", apiErr.Kind.String()).
		Int("status", apiErr.Status).
		Str("path", apiErr.Path).
		Msg("api call classified as failure")

	return apiErr
}

func (c *Client) sessionInvalid() {
	c.mu.Lock()
	listeners := make([]func(), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

func (c *Client) record(ctx context.Context, method, outcome string, started time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordRequest(ctx, method, outcome, time.Since(started))
}

// Get decodes the response of GET path?query into T.
func Get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var out T
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	err := c.Do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func Post[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodPost, path, body, &out)
	return out, err
}

func Put[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodPut, path, body, &out)
	return out, err
}

func Patch[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodPatch, path, body, &out)
	return out, err
}

func Delete[T any](ctx context.Context, c *Client, path string) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodDelete, path, nil, &out)
	return out, err
}
