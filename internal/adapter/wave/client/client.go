// Package client is the JSON-over-HTTPS transport to the Wave API.
// It owns headers, encoding, the circuit breaker and metrics; interpreting
// response bodies is left to the callers.
package client

import (
	"bytes"
	stdcontext "context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourorg/wave-connector/internal/adapter"
	"github.com/yourorg/wave-connector/internal/circuitbreaker"
	"github.com/yourorg/wave-connector/internal/context"
)

// DefaultBaseURL is the production Wave API.
const DefaultBaseURL = "https://api.wave.com/"

// Request describes one call to the gateway.
type Request struct {
	Operation string // Metric label, e.g. "authorize"
	Method    string
	Path      string // Relative to the base URL, e.g. "checkout/sessions"
	Query     url.Values
	Body      any // JSON-encoded when non-nil
}

// Response is the raw gateway answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the API base URL (sandbox, httptest).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = base
		}
	}
}

// WithCircuitBreaker guards calls with cb, keyed by the base URL host.
func WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client sends authenticated JSON requests to Wave.
type Client struct {
	httpClient *http.Client
	baseURL    string
	breaker    *circuitbreaker.CircuitBreaker
	breakerKey string
	logger     *zap.Logger
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if !strings.HasSuffix(c.baseURL, "/") {
		c.baseURL += "/"
	}
	c.breakerKey = c.baseURL
	if u, err := url.Parse(c.baseURL); err == nil && u.Host != "" {
		c.breakerKey = u.Host
	}
	return c
}

// BaseURL returns the normalized base URL, always ending in "/".
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send performs req with Bearer authentication.
// A non-2xx answer is not an error here: it is returned for the caller to classify.
// Errors are *adapter.ConnectorError of kind ErrRequestEncodingFailed or ErrProcessingStepFailed.
func (c *Client) Send(ctx stdcontext.Context, apiKey context.Secret, req Request) (*Response, error) {
	start := time.Now()
	op := req.Operation
	if op == "" {
		op = "unknown"
	}

	httpReq, err := c.newHTTPRequest(ctx, apiKey, req)
	if err != nil {
		gatewayRequestsTotal.WithLabelValues(op, "error").Inc()
		return nil, err
	}

	if c.breaker != nil && !c.breaker.AllowRequest(c.breakerKey) {
		gatewayRequestsTotal.WithLabelValues(op, "circuit_open").Inc()
		return nil, adapter.NewConnectorError(adapter.ErrProcessingStepFailed,
			fmt.Sprintf("circuit open for %s", c.breakerKey))
	}

	resp, err := c.httpClient.Do(httpReq)
	gatewayRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		c.recordFailure()
		gatewayRequestsTotal.WithLabelValues(op, "error").Inc()
		c.logger.Warn("wave request failed",
			zap.String("operation", op),
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Error(err),
		)
		return nil, adapter.NewConnectorError(adapter.ErrProcessingStepFailed, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure()
		gatewayRequestsTotal.WithLabelValues(op, "error").Inc()
		return nil, adapter.NewConnectorError(adapter.ErrProcessingStepFailed,
			fmt.Sprintf("failed to read response: %v", err))
	}

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	switch {
	case out.IsSuccess():
		c.recordSuccess()
		gatewayRequestsTotal.WithLabelValues(op, "success").Inc()
	case resp.StatusCode >= http.StatusInternalServerError:
		c.recordFailure()
		gatewayRequestsTotal.WithLabelValues(op, "rejected").Inc()
	default:
		// 4xx means the gateway is up
		c.recordSuccess()
		gatewayRequestsTotal.WithLabelValues(op, "rejected").Inc()
	}

	c.logger.Debug("wave response",
		zap.String("operation", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return out, nil
}

func (c *Client) newHTTPRequest(ctx stdcontext.Context, apiKey context.Secret, req Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, adapter.NewConnectorError(adapter.ErrRequestEncodingFailed, err.Error())
		}
		body = bytes.NewReader(payload)
	}

	target := c.baseURL + strings.TrimPrefix(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, adapter.NewConnectorError(adapter.ErrRequestEncodingFailed,
			fmt.Sprintf("failed to create request: %v", err))
	}

	httpReq.Header.Set("Authorization", "Bearer "+apiKey.Expose())
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if req.Method == http.MethodPost {
		httpReq.Header.Set("Idempotency-Key", uuid.NewString())
	}
	return httpReq, nil
}

func (c *Client) recordSuccess() {
	if c.breaker != nil {
		c.breaker.RecordSuccess(c.breakerKey)
	}
}

func (c *Client) recordFailure() {
	if c.breaker != nil {
		c.breaker.RecordFailure(c.breakerKey)
	}
}
