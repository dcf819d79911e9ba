package freshcaller

import (
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
)

// Freshcaller-specific errors.
var (
	// ErrMissingConfig indicates a required configuration key is absent.
	ErrMissingConfig = errors.New("freshcaller: missing required config")

	// ErrUnknownStream indicates a stream id with no registry entry.
	ErrUnknownStream = errors.New("freshcaller: unknown stream")
)

// RateLimitError is returned once every attempt of a request was throttled.
type RateLimitError struct {
	Attempts   int
	RetryAfter time.Duration
	URL        string
	Body       string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("freshcaller: rate limit exceeded after %d attempts (URL: %s): %s", e.Attempts, e.URL, e.Body)
}

// Is matches domain.ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == domain.ErrRateLimited
}

// APIError represents a non-retryable Freshcaller API response.
type APIError struct {
	StatusCode int
	Body       string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("freshcaller: API error %d: %s (URL: %s)", e.StatusCode, e.Body, e.URL)
}

// Is matches domain.ErrUpstream.
func (e *APIError) Is(target error) bool {
	return target == domain.ErrUpstream
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401
	}
	return false
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return errors.Is(err, ErrUnknownStream)
}
