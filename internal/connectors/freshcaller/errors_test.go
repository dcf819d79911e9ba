package freshcaller

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
)

func TestRateLimitError(t *testing.T) {
	err := &RateLimitError{Attempts: 5, URL: "https://acme.freshcaller.com/api/v1/calls", Body: "slow down"}

	assert.Contains(t, err.Error(), "5 attempts")
	assert.Contains(t, err.Error(), "slow down")
	assert.True(t, errors.Is(fmt.Errorf("wrapped: %w", err), domain.ErrRateLimited))
	assert.False(t, errors.Is(err, domain.ErrUpstream))
}

func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 403, Body: "forbidden", URL: "https://acme.freshcaller.com/api/v1/users"}

	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "forbidden")
	assert.True(t, errors.Is(err, domain.ErrUpstream))
	assert.False(t, IsUnauthorized(err))
	assert.False(t, IsNotFound(err))
	assert.True(t, IsUnauthorized(&APIError{StatusCode: 401}))
}

func TestErrorPredicates_Nil(t *testing.T) {
	assert.False(t, IsRateLimited(nil))
	assert.False(t, IsUnauthorized(nil))
	assert.False(t, IsNotFound(nil))
}
