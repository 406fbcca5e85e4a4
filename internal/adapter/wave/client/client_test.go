package client

import (
	stdcontext "context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/wave-connector/internal/adapter"
	"github.com/yourorg/wave-connector/internal/circuitbreaker"
)

func TestNew_Defaults(t *testing.T) {
	c := New()
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.NotNil(t, c.httpClient)
	assert.Equal(t, "api.wave.com", c.breakerKey)

	c = New(WithBaseURL("http://127.0.0.1:9999"))
	assert.Equal(t, "http://127.0.0.1:9999/", c.BaseURL(), "base URL gets a trailing slash")
}

func TestSend_HeadersAndBody(t *testing.T) {
	var gotReq *http.Request
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"cos-1"}`))
	}))
	defer server.Close()

	c := New(WithBaseURL(server.URL))
	resp, err := c.Send(stdcontext.Background(), "wave_sn_key", Request{
		Operation: "authorize",
		Method:    http.MethodPost,
		Path:      "checkout/sessions",
		Body:      map[string]string{"amount": "1000"},
	})
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.JSONEq(t, `{"id":"cos-1"}`, string(resp.Body))

	require.NotNil(t, gotReq)
	assert.Equal(t, "/checkout/sessions", gotReq.URL.Path)
	assert.Equal(t, "Bearer wave_sn_key", gotReq.Header.Get("Authorization"))
	assert.Equal(t, "application/json", gotReq.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", gotReq.Header.Get("Accept"))
	assert.NotEmpty(t, gotReq.Header.Get("Idempotency-Key"))
	assert.Equal(t, "1000", gotBody["amount"])
}

func TestSend_GetWithQueryHasNoIdempotencyKey(t *testing.T) {
	var gotReq *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(WithBaseURL(server.URL + "/"))
	_, err := c.Send(stdcontext.Background(), "k", Request{
		Method: http.MethodGet,
		Path:   "/v1/aggregated_merchants",
		Query:  map[string][]string{"limit": {"10"}, "cursor": {"abc"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "/v1/aggregated_merchants", gotReq.URL.Path)
	assert.Equal(t, "10", gotReq.URL.Query().Get("limit"))
	assert.Equal(t, "abc", gotReq.URL.Query().Get("cursor"))
	assert.Empty(t, gotReq.Header.Get("Idempotency-Key"))
}

func TestSend_NonSuccessIsReturnedNotFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"nope"}`))
	}))
	defer server.Close()

	c := New(WithBaseURL(server.URL))
	before := testutil.ToFloat64(GetGatewayRequestsTotal().WithLabelValues("refund", "rejected"))

	resp, err := c.Send(stdcontext.Background(), "k", Request{Operation: "refund", Method: http.MethodPost, Path: "v1/transactions/t/refunds"})
	require.NoError(t, err)
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	after := testutil.ToFloat64(GetGatewayRequestsTotal().WithLabelValues("refund", "rejected"))
	assert.Equal(t, before+1, after)
}

func TestSend_EncodingFailure(t *testing.T) {
	c := New(WithBaseURL("http://127.0.0.1:1"))
	_, err := c.Send(stdcontext.Background(), "k", Request{Method: http.MethodPost, Path: "x", Body: map[string]any{"bad": make(chan int)}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, adapter.ErrRequestEncodingFailed))
}

func TestSend_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := New(WithBaseURL(url), WithHTTPClient(&http.Client{Timeout: time.Second}))
	_, err := c.Send(stdcontext.Background(), "k", Request{Method: http.MethodGet, Path: "v1/refunds/r1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, adapter.ErrProcessingStepFailed))
	assert.NotContains(t, err.Error(), "Bearer")
}

func TestSend_CircuitBreakerOpensOnServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{FailureThreshold: 2, ResetTimeout: time.Minute})
	c := New(WithBaseURL(server.URL), WithCircuitBreaker(cb))

	for i := 0; i < 2; i++ {
		resp, err := c.Send(stdcontext.Background(), "k", Request{Method: http.MethodGet, Path: "checkout/sessions/s"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	}

	_, err := c.Send(stdcontext.Background(), "k", Request{Method: http.MethodGet, Path: "checkout/sessions/s"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, adapter.ErrProcessingStepFailed))
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, 2, calls, "open circuit must not reach the server")
}

func TestSend_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := stdcontext.WithCancel(stdcontext.Background())
	cancel()

	c := New(WithBaseURL(server.URL))
	_, err := c.Send(ctx, "k", Request{Method: http.MethodGet, Path: "checkout/sessions/s"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, adapter.ErrProcessingStepFailed))
}
