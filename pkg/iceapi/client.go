package iceapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iceops/iceops_sdk_go/internal/apiresp"
	"github.com/iceops/iceops_sdk_go/internal/httpx"
)

// Client is the single authenticated gateway to the ice-plant operations API.
// It owns the stored credential, the retry policy and the session event
// broadcaster. Construct one explicitly and hand it to the controllers that
// need it.
type Client struct {
	http             *httpx.Client
	creds            CredentialStore
	events           *Events
	logger           zerolog.Logger
	onSessionExpired func()
}

type config struct {
	httpClient       *http.Client
	policy           *httpx.RetryPolicy
	sleep            httpx.SleepFunc
	creds            CredentialStore
	events           *Events
	logger           zerolog.Logger
	onSessionExpired func()
}

// Option configures a Client.
type Option func(*config)

// WithCredentials supplies the credential store. Defaults to an in-memory
// store when omitted.
func WithCredentials(store CredentialStore) Option {
	return func(c *config) {
		if store != nil {
			c.creds = store
		}
	}
}

// WithLogger attaches a structured logger. Defaults to a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *config) {
		c.httpClient = h
	}
}

// WithRetryPolicy sets the initial retry policy.
func WithRetryPolicy(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *config) {
		policy := httpx.DefaultRetryPolicy
		policy.MaxAttempts = maxAttempts
		policy.BaseDelay = baseDelay
		c.policy = &policy
	}
}

// WithSleep overrides the backoff delay function (deterministic tests).
func WithSleep(fn httpx.SleepFunc) Option {
	return func(c *config) {
		c.sleep = fn
	}
}

// WithEvents supplies a shared event broadcaster.
func WithEvents(events *Events) Option {
	return func(c *config) {
		if events != nil {
			c.events = events
		}
	}
}

// WithSessionExpiredHandler registers a hook invoked after a 401 clears the
// session. The embedding UI typically navigates to its login view here.
func WithSessionExpiredHandler(fn func()) Option {
	return func(c *config) {
		c.onSessionExpired = fn
	}
}

// New constructs a Client for the API rooted at baseURL (including the /api
// prefix, e.g. "https://plant.example.com/api/").
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &config{
		creds:  NewMemoryCredentials(),
		events: NewEvents(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	httpOpts := []httpx.Option{}
	if cfg.httpClient != nil {
		httpOpts = append(httpOpts, httpx.WithHTTPClient(cfg.httpClient))
	}
	if cfg.policy != nil {
		httpOpts = append(httpOpts, httpx.WithRetryPolicy(*cfg.policy))
	}
	if cfg.sleep != nil {
		httpOpts = append(httpOpts, httpx.WithSleep(cfg.sleep))
	}

	hc, err := httpx.NewClient(baseURL, httpOpts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:             hc,
		creds:            cfg.creds,
		events:           cfg.events,
		logger:           cfg.logger,
		onSessionExpired: cfg.onSessionExpired,
	}, nil
}

// ConfigureRetry replaces the retry policy shared by all requests issued
// through this client. Takes effect on the next request.
func (c *Client) ConfigureRetry(maxAttempts int, baseDelay time.Duration) {
	policy := c.http.Policy()
	policy.MaxAttempts = maxAttempts
	policy.BaseDelay = baseDelay
	c.http.SetRetryPolicy(policy)
}

// Events returns the broadcaster for session lifecycle events.
func (c *Client) Events() *Events {
	return c.events
}

// Credentials returns the credential store backing this client.
func (c *Client) Credentials() CredentialStore {
	return c.creds
}

// Logger returns the client's structured logger.
func (c *Client) Logger() zerolog.Logger {
	return c.logger
}

// Get issues a GET for path with optional query parameters and decodes the
// response into T.
func Get[T any](ctx context.Context, c *Client, path string, query map[string]string) (T, error) {
	return do[T](ctx, c, http.MethodGet, path, query, nil, requestOptions{})
}

// Post issues a POST with a JSON body.
func Post[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return do[T](ctx, c, http.MethodPost, path, nil, body, requestOptions{})
}

// Patch issues a PATCH with a JSON body carrying partial-update semantics.
func Patch[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return do[T](ctx, c, http.MethodPatch, path, nil, body, requestOptions{})
}

// Put issues a PUT with a JSON body replacing the full resource.
func Put[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	return do[T](ctx, c, http.MethodPut, path, nil, body, requestOptions{})
}

// Delete issues a DELETE. The API answers 204, so T decodes to its zero value.
func Delete[T any](ctx context.Context, c *Client, path string) (T, error) {
	return do[T](ctx, c, http.MethodDelete, path, nil, nil, requestOptions{})
}

type requestOptions struct {
	disableRetry    bool
	unauthenticated bool
	// loginRequest suppresses session-expiry handling: a 401 from the login
	// endpoint means bad credentials, not an expired session.
	loginRequest bool
}

func do[T any](ctx context.Context, c *Client, method, path string, query map[string]string, body any, opt requestOptions) (T, error) {
	var out T
	if c == nil {
		return out, errors.New("iceapi: client is nil")
	}

	req := &httpx.Request{
		Method:       method,
		Path:         path,
		Header:       make(http.Header),
		DisableRetry: opt.disableRetry,
	}
	if len(query) > 0 {
		values := url.Values{}
		for k, v := range query {
			values.Set(k, v)
		}
		req.Query = values
	}
	if body != nil {
		reader, contentType, err := httpx.WithJSONBody(body)
		if err != nil {
			return out, fmt.Errorf("iceapi: encode request body: %w", err)
		}
		req.Body = reader
		req.Header.Set("Content-Type", contentType)
	}
	if !opt.unauthenticated {
		if token := c.creds.Token(); token != "" {
			req.Header.Set("Authorization", "Token "+token)
		}
	}

	requestID := uuid.NewString()
	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Interface("query", query).
		Msg("dispatching API request")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		apiErr := c.classify(err, opt)
		c.logger.Warn().
			Str("request_id", requestID).
			Str("method", method).
			Str("path", path).
			Int("status", apiErr.StatusCode).
			Str("kind", string(apiErr.Kind)).
			Msg(apiErr.Message)
		return out, apiErr
	}

	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return out, &APIError{Kind: KindTransient, Message: fmt.Sprintf("read response body: %v", err), Cause: err}
	}
	if err := apiresp.Decode(method, path, resp.StatusCode, data, &out); err != nil {
		return out, &APIError{Kind: KindDecode, Message: err.Error(), Cause: err}
	}
	return out, nil
}

// classify converts a transport failure into the tagged APIError, applying
// the session-expiry side effects for authenticated 401s.
func (c *Client) classify(err error, opt requestOptions) *APIError {
	var httpErr *httpx.HTTPError
	if !errors.As(err, &httpErr) {
		return &APIError{Kind: KindTransient, Message: err.Error(), Cause: err}
	}

	status := httpErr.StatusCode
	if status == http.StatusUnauthorized && !opt.loginRequest {
		c.expireSession()
		return &APIError{Kind: KindAuth, Message: SessionExpiredMessage, StatusCode: status, Cause: err}
	}

	kind := KindRequest
	if status >= 500 {
		kind = KindTransient
	}
	return &APIError{
		Kind:       kind,
		Message:    apiresp.ErrorMessage(status, httpErr.Body),
		StatusCode: status,
		Cause:      err,
	}
}

func (c *Client) expireSession() {
	if err := c.creds.Clear(); err != nil {
		c.logger.Error().Err(err).Msg("clear credential after session expiry")
	}
	c.events.emit(EventSessionExpired)
	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
}
