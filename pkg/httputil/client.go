package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/stratfolio/pkg/config"
	"github.com/wonny/stratfolio/pkg/logger"
)

// DefaultUserAgent is sent on every request unless overridden
const DefaultUserAgent = "Mozilla/5.0 (compatible; stratfolio/1.0; +margin-fetch)"

// DefaultMaxBodyBytes caps GetBody; broker margin pages are well below this
const DefaultMaxBodyBytes = 8 << 20

var (
	// ErrUnexpectedStatus is returned by GetBody for non-2xx responses
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	// ErrBodyTooLarge is returned by GetBody when the body exceeds the cap
	ErrBodyTooLarge = errors.New("response body too large")
)

// Client fetches external pages with rate limiting, retry and logging
// ⭐ SSOT: 모든 외부 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient   *http.Client
	logger       *logger.Logger
	retryConfig  RetryConfig
	limiter      *rate.Limiter
	userAgent    string
	maxBodyBytes int64
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration // also caps a server-sent Retry-After
	Enabled      bool
}

// New creates a client using MARGIN_FETCH_TIMEOUT and MARGIN_RATE_LIMIT from cfg
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(cfg *config.Config, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log.WithComponent("http"),
		retryConfig: RetryConfig{
			MaxRetries:   3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     10 * time.Second,
			Enabled:      true,
		},
		userAgent:    DefaultUserAgent,
		maxBodyBytes: DefaultMaxBodyBytes,
	}

	if cfg != nil {
		if cfg.Margin.FetchTimeout > 0 {
			c.httpClient.Timeout = cfg.Margin.FetchTimeout
		}
		if cfg.Margin.RequestsPerSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(cfg.Margin.RequestsPerSec), 1)
		}
	}
	return c
}

// NewWithTimeout creates a client with a custom per-request timeout
func NewWithTimeout(cfg *config.Config, log *logger.Logger, timeout time.Duration) *Client {
	c := New(cfg, log)
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithRetry configures retry behavior
func (c *Client) WithRetry(maxRetries int, initialDelay time.Duration) *Client {
	c.retryConfig.MaxRetries = maxRetries
	c.retryConfig.InitialDelay = initialDelay
	c.retryConfig.Enabled = true
	return c
}

// DisableRetry disables automatic retry
func (c *Client) DisableRetry() *Client {
	c.retryConfig.Enabled = false
	return c
}

// WithRateLimit replaces the limiter; rps <= 0 removes it
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = nil
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithUserAgent overrides the User-Agent header
func (c *Client) WithUserAgent(ua string) *Client {
	c.userAgent = ua
	return c
}

// WithMaxBodyBytes overrides the GetBody cap; n <= 0 restores the default
func (c *Client) WithMaxBodyBytes(n int64) *Client {
	if n <= 0 {
		n = DefaultMaxBodyBytes
	}
	c.maxBodyBytes = n
	return c
}

// Get performs a GET request; the caller closes the body
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	return c.do(req)
}

// GetBody returns the body of a 2xx response, at most maxBodyBytes long
func (c *Client) GetBody(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("%w: over %d bytes from %s", ErrBodyTooLarge, c.maxBodyBytes, url)
	}
	return body, nil
}

// do executes the request with rate limiting, retry and logging
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	log := c.logger.WithFields(map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	start := time.Now()
	var (
		resp *http.Response
		err  error
	)
	if c.retryConfig.Enabled {
		resp, err = c.doWithRetry(req, log)
	} else {
		resp, err = c.httpClient.Do(req)
	}

	log = log.WithField("duration", time.Since(start))
	if err != nil {
		log.WithError(err).Error("HTTP request failed")
		return nil, err
	}
	log.WithField("status_code", resp.StatusCode).Debug("HTTP request completed")
	return resp, nil
}

// doWithRetry retries transport errors and retryable statuses with exponential backoff.
// A Retry-After header on the response replaces the computed delay.
func (c *Client) doWithRetry(req *http.Request, log *logger.Logger) (*http.Response, error) {
	var (
		resp *http.Response
		err  error
	)
	delay := c.retryConfig.InitialDelay

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		resp, err = c.httpClient.Do(req)
		if err == nil && !IsRetryableError(resp.StatusCode) {
			return resp, nil
		}
		if attempt == c.retryConfig.MaxRetries {
			break
		}

		wait := delay
		if resp != nil {
			if ra, ok := retryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
				wait = ra
			}
			// 재시도 전 이전 응답 정리
			resp.Body.Close()
		}
		if wait > c.retryConfig.MaxDelay {
			wait = c.retryConfig.MaxDelay
		}

		log.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"delay":   wait,
		}).Warn("Retrying HTTP request")

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(wait):
		}

		delay *= 2
		if delay > c.retryConfig.MaxDelay {
			delay = c.retryConfig.MaxDelay
		}
	}

	return resp, err
}

// retryAfter parses a Retry-After value in seconds or as an HTTP date
func retryAfter(v string, now time.Time) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}

// IsRetryableError reports whether a status code should be retried (5xx and 429)
func IsRetryableError(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}
