package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/vnquant/pkg/config"
	"github.com/wonny/vnquant/pkg/logger"
	"github.com/wonny/vnquant/pkg/redis"
)

// Client is an HTTP client wrapper with retry, rate limiting and logging
// ⭐ SSOT: 모든 외부 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient   *http.Client
	logger       *logger.Logger
	retry        RetryPolicy
	limiter      *rate.Limiter
	rateLimiter  *redis.RateLimiter
	rateLimitCfg *redis.RateLimitConfig
	userAgent    string
}

// RetryPolicy is a capped exponential backoff
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryPolicy returns 3 retries starting at 1s, capped at 10s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
	}
}

// NoRetry disables retries
func NoRetry() RetryPolicy {
	return RetryPolicy{}
}

// Backoff returns the wait before retry number attempt (0-based)
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.InitialDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// New creates a new HTTP client from provider config
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(cfg *config.Config, log *logger.Logger) *Client {
	p := cfg.Providers

	c := &Client{
		httpClient: &http.Client{Timeout: p.Timeout},
		logger:     log.Module("httputil"),
		retry: RetryPolicy{
			MaxRetries:   p.MaxRetries,
			InitialDelay: p.InitialDelay,
			MaxDelay:     p.MaxDelay,
		},
		userAgent: "Mozilla/5.0 (compatible; vnquant/1.0)",
	}
	if c.httpClient.Timeout <= 0 {
		c.httpClient.Timeout = 30 * time.Second
	}
	if p.RatePerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(p.RatePerSec), 1)
	}
	return c
}

// WithRetry replaces the retry policy
func (c *Client) WithRetry(policy RetryPolicy) *Client {
	c.retry = policy
	return c
}

// WithLocalLimit sets an in-process token bucket (perSec <= 0 disables it)
func (c *Client) WithLocalLimit(perSec float64) *Client {
	if perSec <= 0 {
		c.limiter = nil
		return c
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
	return c
}

// WithRateLimiter sets the distributed (Redis) rate limiter
func (c *Client) WithRateLimiter(limiter *redis.RateLimiter, cfg redis.RateLimitConfig) *Client {
	c.rateLimiter = limiter
	c.rateLimitCfg = &cfg
	return c
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}

	return c.Do(req)
}

// PostJSON performs a POST request with JSON body
func (c *Client) PostJSON(ctx context.Context, url string, data interface{}) (*http.Response, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create POST request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.Do(req)
}

// Do executes the request with rate limiting, retry and logging
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	start := time.Now()

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}
	if c.rateLimiter != nil && c.rateLimitCfg != nil {
		if err := c.rateLimiter.Wait(ctx, *c.rateLimitCfg); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	resp, err := c.doWithRetry(req)
	duration := time.Since(start)

	fields := map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"duration": duration,
	}
	if err != nil {
		c.logger.WithFields(fields).WithError(err).Warn("HTTP request failed")
		return nil, err
	}

	fields["status_code"] = resp.StatusCode
	c.logger.WithFields(fields).Debug("HTTP request completed")
	return resp, nil
}

// doWithRetry executes the request, retrying transport errors and retryable statuses
func (c *Client) doWithRetry(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
			req.Body = body
		}

		resp, err := c.httpClient.Do(req)
		if err == nil && !IsRetryableError(resp.StatusCode) {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = &StatusError{StatusCode: resp.StatusCode, URL: req.URL.String()}
		}

		if attempt >= c.retry.MaxRetries {
			if err == nil {
				// 마지막 응답은 호출자가 상태 코드를 확인
				return resp, nil
			}
			return nil, lastErr
		}
		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		delay := c.retry.Backoff(attempt)
		c.logger.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"delay":   delay,
			"url":     req.URL.String(),
		}).Warn("Retrying HTTP request")

		if err := sleep(req.Context(), delay); err != nil {
			return nil, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// StatusError reports a non-success HTTP status
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d from %s", e.StatusCode, e.URL)
}

// IsRetryableError checks if a status code should be retried
func IsRetryableError(statusCode int) bool {
	// 5xx 및 429 Too Many Requests
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}

// DecodeJSON checks the status code and decodes the body into v
func DecodeJSON(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, URL: resp.Request.URL.String()}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
