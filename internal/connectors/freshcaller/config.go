package freshcaller

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
	"github.com/custodia-labs/tap-freshcaller/internal/core/ports/driven"
)

// Version is the tap version reported in the User-Agent header.
// Overridden at build time via ldflags.
var Version = "dev"

// DefaultUserAgent identifies the tap to the API.
var DefaultUserAgent = "tap-freshcaller/" + Version

// HostTemplate builds an account's API base URL from its domain.
const HostTemplate = "https://%s.freshcaller.com/api/v1"

// Config keys.
const (
	KeyStartDate    = "start_date"
	KeyAPIKey       = "api_key"
	KeyDomain       = "domain"
	KeyBaseURL      = "base_url"
	KeyUserAgent    = "user_agent"
	KeyStateBackend = "state_backend"
	KeyStatePath    = "state_path"
	KeyRateLimit    = "rate_limit"
	KeyRateWindow   = "rate_window"
)

// RequiredKeys must be present in every configuration.
var RequiredKeys = []string{KeyStartDate, KeyAPIKey, KeyDomain}

// StateBackend selects where bookmarks are persisted between runs.
type StateBackend string

const (
	StateBackendNone   StateBackend = "none"
	StateBackendFile   StateBackend = "file"
	StateBackendSQLite StateBackend = "sqlite"
)

// Config holds the parsed tap configuration.
type Config struct {
	// StartDate is where incremental streams begin without a bookmark.
	StartDate time.Time

	// APIKey authenticates every request.
	APIKey string

	// Domain is the account subdomain.
	Domain string

	// BaseURL overrides the URL derived from Domain.
	BaseURL string

	// UserAgent overrides DefaultUserAgent.
	UserAgent string

	// StateBackend selects the durable state store.
	// Default: none (state is only emitted)
	StateBackend StateBackend

	// StatePath is the file or database path of the state store.
	StatePath string

	// RateLimit is the number of calls per RateWindow.
	// Default: 100
	RateLimit int

	// RateWindow is the rolling quota window.
	// Default: 60s
	RateWindow time.Duration
}

// ParseConfig reads and validates the configuration from a store.
func ParseConfig(store driven.ConfigStore) (*Config, error) {
	var missing []string
	for _, key := range RequiredKeys {
		if strings.TrimSpace(store.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %w: %s", ErrMissingConfig, domain.ErrInvalidInput, strings.Join(missing, ", "))
	}

	start, err := domain.ParseTimestamp(store.GetString(KeyStartDate))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", KeyStartDate, err)
	}

	cfg := &Config{
		StartDate:    start,
		APIKey:       store.GetString(KeyAPIKey),
		Domain:       strings.TrimSpace(store.GetString(KeyDomain)),
		BaseURL:      store.GetString(KeyBaseURL),
		UserAgent:    store.GetString(KeyUserAgent),
		StateBackend: StateBackendNone,
		StatePath:    store.GetString(KeyStatePath),
		RateLimit:    DefaultRateLimit,
		RateWindow:   DefaultRateWindow,
	}

	if backend := store.GetString(KeyStateBackend); backend != "" {
		switch b := StateBackend(strings.ToLower(backend)); b {
		case StateBackendNone, StateBackendFile, StateBackendSQLite:
			cfg.StateBackend = b
		default:
			return nil, fmt.Errorf("%w: %s %q", domain.ErrInvalidInput, KeyStateBackend, backend)
		}
	}
	if cfg.StateBackend != StateBackendNone && cfg.StatePath == "" {
		return nil, fmt.Errorf("%w: %s is required for state_backend %s", domain.ErrInvalidInput, KeyStatePath, cfg.StateBackend)
	}

	if _, ok := store.Get(KeyRateLimit); ok {
		limit := store.GetInt(KeyRateLimit)
		if limit <= 0 {
			return nil, fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, KeyRateLimit)
		}
		cfg.RateLimit = limit
	}
	if window := store.GetString(KeyRateWindow); window != "" {
		d, err := time.ParseDuration(window)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%w: %s %q", domain.ErrInvalidInput, KeyRateWindow, window)
		}
		cfg.RateWindow = d
	}

	return cfg, nil
}

// URL returns the API base URL of the account.
func (c *Config) URL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return fmt.Sprintf(HostTemplate, c.Domain)
}
