package freshcaller

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/tap-freshcaller/internal/metrics"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxAttempts is the number of attempts made before a throttled
	// request is given up, the first attempt included.
	MaxAttempts = 5

	// BackoffFactor multiplies every backoff delay.
	BackoffFactor = 2

	// RetryDelay is the base unit of the exponential backoff.
	RetryDelay = time.Second

	// HeaderAPIKey carries the account API key.
	HeaderAPIKey = "X-Api-Auth"

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 64 << 10
)

// outcome classifies a single attempt.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeThrottled
	outcomeFatal
)

// result is the classified result of one attempt.
type result struct {
	outcome    outcome
	payload    []byte        // Success
	retryAfter time.Duration // Throttled; zero when the server sent no hint
	err        error         // Fatal
}

// Client issues authenticated GET requests against one Freshcaller account.
type Client struct {
	baseURL     string
	apiKey      string
	userAgent   string
	http        *http.Client
	limiter     *RateLimiter
	backoff     time.Duration
	maxAttempts int
	logger      *zap.Logger
	metrics     *metrics.Collector
	sleep       func(ctx context.Context, d time.Duration) error
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithRateLimiter replaces the rate limiter.
func WithRateLimiter(l *RateLimiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

// WithBackoff sets the base unit of the retry backoff.
func WithBackoff(base time.Duration) ClientOption {
	return func(c *Client) { c.backoff = base }
}

// WithMaxAttempts sets the total attempts per request.
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient creates a client for the account at baseURL.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		userAgent:   DefaultUserAgent,
		http:        &http.Client{Timeout: DefaultTimeout},
		backoff:     RetryDelay,
		maxAttempts: MaxAttempts,
		logger:      zap.NewNop(),
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = NewRateLimiter(DefaultRateLimit, DefaultRateWindow)
	}
	return c
}

// Fetch GETs path with the given query and returns the body of the first
// successful attempt. Throttled attempts are retried with exponential
// backoff; any other failure is returned immediately.
func (c *Client) Fetch(ctx context.Context, path string, params url.Values) ([]byte, error) {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var last result
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		last = c.attempt(ctx, target)

		switch last.outcome {
		case outcomeSuccess:
			return last.payload, nil
		case outcomeFatal:
			return nil, last.err
		}

		c.metrics.ObserveThrottle()
		if attempt == c.maxAttempts {
			break
		}

		delay := c.backoffDelay(attempt, last.retryAfter)
		c.logger.Warn("request throttled, backing off",
			zap.String("url", target),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, &RateLimitError{
		Attempts:   c.maxAttempts,
		RetryAfter: last.retryAfter,
		URL:        target,
		Body:       string(last.payload),
	}
}

// attempt waits for quota, issues one request and classifies the response.
func (c *Client) attempt(ctx context.Context, target string) result {
	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return result{outcome: outcomeFatal, err: fmt.Errorf("wait for rate limit: %w", err)}
	}
	c.metrics.ObserveQuotaWait(time.Since(start))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return result{outcome: outcomeFatal, err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set(HeaderAPIKey, c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(0)
		return result{outcome: outcomeFatal, err: fmt.Errorf("request %s: %w", target, err)}
	}
	defer resp.Body.Close()
	c.metrics.ObserveRequest(resp.StatusCode)

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return result{outcome: outcomeFatal, err: fmt.Errorf("read response: %w", err)}
		}
		c.logger.Debug("request succeeded", zap.String("url", target), zap.Int("bytes", len(body)))
		return result{outcome: outcomeSuccess, payload: body}

	case http.StatusTooManyRequests:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return result{
			outcome:    outcomeThrottled,
			payload:    body,
			retryAfter: parseRetryAfter(resp.Header.Get(HeaderRetryAfter)),
		}

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return result{outcome: outcomeFatal, err: &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			URL:        target,
		}}
	}
}

// backoffDelay returns factor * 2^(attempt-1) * base, or the server's hint
// when that is longer.
func (c *Client) backoffDelay(attempt int, hint time.Duration) time.Duration {
	delay := time.Duration(BackoffFactor) * c.backoff * time.Duration(1<<(attempt-1))
	if hint > delay {
		return hint
	}
	return delay
}

// parseRetryAfter reads a Retry-After value in seconds.
func parseRetryAfter(v string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
