package downstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/library-lending/shell"
)

const (
	// DefaultTimeout bounds every remote call.
	DefaultTimeout = 5 * time.Second

	// InternalTokenHeader carries the shared secret of service-to-service endpoints.
	InternalTokenHeader = "X-Internal-Token"

	successCode     = 200
	maxResponseSize = 1 << 20
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// envelope mirrors the uniform response body {code, message, data, timestamp}.
type envelope struct {
	Code      int                 `json:"code"`
	Message   string              `json:"message"`
	Data      jsoniter.RawMessage `json:"data"`
	Timestamp int64               `json:"timestamp"`
}

// ClientOption configures the clients of this package.
type ClientOption func(*clientConfig)

type clientConfig struct {
	httpClient    *http.Client
	timeout       time.Duration
	breaker       *Breaker
	logger        shell.Logger
	internalToken string
	clock         shell.Clock
	cacheSize     int
	cacheTTL      time.Duration
}

// WithHTTPClient replaces the pooled default http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *clientConfig) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithBreaker overrides the circuit breaker, e.g. to tune its settings.
func WithBreaker(breaker *Breaker) ClientOption {
	return func(c *clientConfig) {
		c.breaker = breaker
	}
}

// WithLogger sets the logger for breaker transitions and fallbacks.
func WithLogger(logger shell.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithInternalToken sends token in InternalTokenHeader on every request.
func WithInternalToken(token string) ClientOption {
	return func(c *clientConfig) {
		c.internalToken = token
	}
}

// WithClock overrides the time source of the identity cache.
func WithClock(clock shell.Clock) ClientOption {
	return func(c *clientConfig) {
		c.clock = clock
	}
}

// WithCache sizes the identity cache. A size below 1 disables it.
func WithCache(size int, ttl time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.cacheSize = size
		c.cacheTTL = ttl
	}
}

func buildConfig(name string, opts []ClientOption) clientConfig {
	cfg := clientConfig{
		timeout:   DefaultTimeout,
		clock:     shell.SystemClock,
		cacheSize: 1024,
		cacheTTL:  5 * time.Minute,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.httpClient == nil {
		cfg.httpClient = newPooledHTTPClient(cfg.timeout)
	}

	if cfg.breaker == nil {
		cfg.breaker = NewBreaker(DefaultBreakerSettings(name), cfg.logger)
	}

	return cfg
}

func newPooledHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// transport speaks the envelope protocol with one remote service.
type transport struct {
	baseURL       string
	client        *http.Client
	timeout       time.Duration
	internalToken string
}

func newTransport(baseURL string, cfg clientConfig) transport {
	return transport{
		baseURL:       strings.TrimRight(baseURL, "/"),
		client:        cfg.httpClient,
		timeout:       cfg.timeout,
		internalToken: cfg.internalToken,
	}
}

// request describes one call. Body is encoded as JSON when not nil; the envelope's data is
// decoded into Out when not nil.
type request struct {
	Method        string
	Path          string
	Query         url.Values
	Authorization string
	Body          any
	Out           any
}

// do runs one call. When the caller's own context ends first, its error is returned as is,
// so that an abandoned request is not mistaken for an unavailable remote.
func (t transport) do(ctx context.Context, req request) error {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	httpReq, err := t.build(callCtx, req)
	if err != nil {
		return err
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return unavailable(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return unavailable(fmt.Errorf("remote answered %s", resp.Status))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return unavailable(err)
	}

	var env envelope
	if err = json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &RemoteError{Status: resp.StatusCode, Code: resp.StatusCode, Message: resp.Status}
		}

		return unavailable(errors.Join(ErrMalformedResponse, err))
	}

	if env.Code != successCode || resp.StatusCode >= http.StatusBadRequest {
		return &RemoteError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}

	if req.Out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}

	if err = json.Unmarshal(env.Data, req.Out); err != nil {
		return unavailable(errors.Join(ErrMalformedResponse, err))
	}

	return nil
}

func (t transport) build(ctx context.Context, req request) (*http.Request, error) {
	target := t.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, errors.Join(ErrBuildingRequestFailed, err)
		}

		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, errors.Join(ErrBuildingRequestFailed, err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if req.Authorization != "" {
		httpReq.Header.Set("Authorization", req.Authorization)
	}

	if t.internalToken != "" {
		httpReq.Header.Set(InternalTokenHeader, t.internalToken)
	}

	return httpReq, nil
}
