package freshcaller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
	"github.com/custodia-labs/tap-freshcaller/internal/metrics"
)

// statusSequence answers with the given statuses in order, then 200.
func statusSequence(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1))
		if n <= len(statuses) {
			w.WriteHeader(statuses[n-1])
			_, _ = w.Write([]byte(`{"error":"nope"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func repeat(status, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = status
	}
	return out
}

func newTestClient(baseURL string, opts ...ClientOption) *Client {
	opts = append([]ClientOption{WithBackoff(time.Millisecond)}, opts...)
	return NewClient(baseURL, "secret", opts...)
}

func TestClient_Headers(t *testing.T) {
	var got http.Header
	var gotQuery url.Values
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotQuery = r.URL.Query()
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL+"/api/v1/", WithUserAgent("tap-test/1.0"))
	body, err := client.Fetch(context.Background(), "/calls", url.Values{"page": {"2"}})

	require.NoError(t, err)
	assert.Equal(t, "{}", string(body))
	assert.Equal(t, "/api/v1/calls", gotPath)
	assert.Equal(t, "secret", got.Get(HeaderAPIKey))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "tap-test/1.0", got.Get("User-Agent"))
	assert.Equal(t, "2", gotQuery.Get("page"))
}

func TestClient_RetriesThrottledRequests(t *testing.T) {
	srv, calls := statusSequence(t, repeat(http.StatusTooManyRequests, 4)...)
	collector := metrics.NewCollector()

	client := newTestClient(srv.URL, WithMetrics(collector))
	body, err := client.Fetch(context.Background(), "calls", nil)

	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(5), calls.Load())

	want := `
# HELP freshcaller_throttled_total Attempts answered with HTTP 429.
# TYPE freshcaller_throttled_total counter
freshcaller_throttled_total 4
`
	assert.NoError(t, testutil.GatherAndCompare(collector.Registry(), strings.NewReader(want), "freshcaller_throttled_total"))
}

func TestClient_GivesUpAfterMaxAttempts(t *testing.T) {
	srv, calls := statusSequence(t, repeat(http.StatusTooManyRequests, 6)...)

	client := newTestClient(srv.URL)
	body, err := client.Fetch(context.Background(), "calls", nil)

	require.Error(t, err)
	assert.Nil(t, body)
	assert.Equal(t, int32(MaxAttempts), calls.Load())
	assert.True(t, IsRateLimited(err))
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, MaxAttempts, rlErr.Attempts)
	assert.Contains(t, rlErr.Body, "nope")
}

func TestClient_NonThrottleStatusIsFatal(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"server error", http.StatusInternalServerError, func(error) bool { return true }},
		{"unauthorized", http.StatusUnauthorized, IsUnauthorized},
		{"not found", http.StatusNotFound, IsNotFound},
		{"redirect-like", http.StatusNoContent, func(error) bool { return true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := statusSequence(t, tt.status)

			client := newTestClient(srv.URL)
			_, err := client.Fetch(context.Background(), "teams", nil)

			require.Error(t, err)
			assert.Equal(t, int32(1), calls.Load(), "no retry")
			assert.ErrorIs(t, err, domain.ErrUpstream)
			assert.False(t, IsRateLimited(err))
			assert.True(t, tt.check(err))

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			if tt.status != http.StatusNoContent {
				assert.Contains(t, apiErr.Body, "nope")
			}
		})
	}
}

func TestClient_TransportFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client := newTestClient(baseURL)
	_, err := client.Fetch(context.Background(), "teams", nil)

	require.Error(t, err)
	assert.False(t, IsRateLimited(err))
	assert.NotErrorIs(t, err, domain.ErrUpstream)
}

func TestClient_CancelDuringBackoff(t *testing.T) {
	srv, calls := statusSequence(t, repeat(http.StatusTooManyRequests, 6)...)
	ctx, cancel := context.WithCancel(context.Background())

	client := NewClient(srv.URL, "secret", WithBackoff(time.Hour))
	client.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepContext(ctx, d)
	}

	_, err := client.Fetch(ctx, "calls", nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_BackoffDelay(t *testing.T) {
	client := NewClient("http://example.invalid", "secret")

	assert.Equal(t, 2*time.Second, client.backoffDelay(1, 0))
	assert.Equal(t, 4*time.Second, client.backoffDelay(2, 0))
	assert.Equal(t, 8*time.Second, client.backoffDelay(3, 0))
	assert.Equal(t, 16*time.Second, client.backoffDelay(4, 0))
	assert.Equal(t, 30*time.Second, client.backoffDelay(1, 30*time.Second), "longer server hint wins")
	assert.Equal(t, 8*time.Second, client.backoffDelay(3, time.Second), "shorter server hint is ignored")
}

func TestClient_BackoffSequence(t *testing.T) {
	srv, _ := statusSequence(t, repeat(http.StatusTooManyRequests, 6)...)

	var delays []time.Duration
	client := newTestClient(srv.URL)
	client.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	_, err := client.Fetch(context.Background(), "calls", nil)

	require.Error(t, err)
	assert.Equal(t, []time.Duration{
		2 * time.Millisecond,
		4 * time.Millisecond,
		8 * time.Millisecond,
		16 * time.Millisecond,
	}, delays, "no sleep after the last attempt")
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-1"))
	assert.Equal(t, time.Duration(0), parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}

func TestClient_ConsumesQuotaPerAttempt(t *testing.T) {
	srv, _ := statusSequence(t, repeat(http.StatusTooManyRequests, 2)...)
	limiter := NewRateLimiter(100, time.Minute)

	client := newTestClient(srv.URL, WithRateLimiter(limiter))
	_, err := client.Fetch(context.Background(), "calls", nil)

	require.NoError(t, err)
	assert.Equal(t, 3, limiter.InWindow())
}
