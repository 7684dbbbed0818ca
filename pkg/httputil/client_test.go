package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/vnquant/pkg/config"
	"github.com/wonny/vnquant/pkg/logger"
)

func testClient(policy RetryPolicy) *Client {
	cfg := &config.Config{Providers: config.ProvidersConfig{Timeout: 5 * time.Second}}
	return New(cfg, logger.Nop()).WithRetry(policy)
}

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{MaxRetries: retries, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestBackoffIsCapped(t *testing.T) {
	p := RetryPolicy{MaxRetries: 5, InitialDelay: time.Second, MaxDelay: 10 * time.Second}

	assert.Equal(t, 1*time.Second, p.Backoff(0))
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
	assert.Equal(t, 8*time.Second, p.Backoff(3))
	assert.Equal(t, 10*time.Second, p.Backoff(4))
	assert.Equal(t, 10*time.Second, p.Backoff(10))
}

func TestRetryOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	resp, err := testClient(fastPolicy(3)).Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRetryOn429ReplaysBody(t *testing.T) {
	var calls int32
	var lastBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		lastBody = string(b)
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := testClient(fastPolicy(2)).PostJSON(context.Background(), server.URL, map[string]string{"symbol": "VNM"})
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.JSONEq(t, `{"symbol":"VNM"}`, lastBody)
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	resp, err := testClient(fastPolicy(3)).Get(context.Background(), server.URL)
	require.NoError(t, err)

	var v map[string]interface{}
	err = DecodeJSON(resp, &v)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	policy := RetryPolicy{MaxRetries: 5, InitialDelay: time.Second, MaxDelay: time.Second}
	_, err := testClient(policy).Get(ctx, server.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(500))
	assert.True(t, IsRetryableError(503))
	assert.True(t, IsRetryableError(429))
	assert.False(t, IsRetryableError(404))
	assert.False(t, IsRetryableError(200))
}
