package domain

import "fmt"

// ReplicationMethod describes how a stream is replicated.
type ReplicationMethod string

const (
	// ReplicationFullTable re-reads the whole stream every run.
	ReplicationFullTable ReplicationMethod = "FULL_TABLE"
	// ReplicationIncremental advances a bookmark window by window.
	ReplicationIncremental ReplicationMethod = "INCREMENTAL"
)

// DefaultKeyProperties is the key used by every Freshcaller stream.
var DefaultKeyProperties = []string{"id"}

// StreamDescriptor describes one upstream stream.
// Descriptors are immutable for the duration of a run.
type StreamDescriptor struct {
	// ID is the tap stream identifier (e.g., "calls").
	// The API nests a page's rows under the same key.
	ID string

	// Endpoint is the path appended to the account's base URL.
	Endpoint string

	// KeyProperties are the fields forming a stable row identity.
	KeyProperties []string

	// Replication selects the sync strategy.
	Replication ReplicationMethod

	// BookmarkField is the replication key for incremental streams.
	// Empty for full-table streams.
	BookmarkField string
}

// IsIncremental reports whether the stream tracks a bookmark.
func (d StreamDescriptor) IsIncremental() bool {
	return d.Replication == ReplicationIncremental
}

// BookmarkProperties returns the replication keys declared with the schema.
func (d StreamDescriptor) BookmarkProperties() []string {
	if d.BookmarkField == "" {
		return nil
	}
	return []string{d.BookmarkField}
}

// Validate checks the descriptor is internally consistent.
func (d StreamDescriptor) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: stream id is required", ErrInvalidInput)
	}
	if d.Endpoint == "" {
		return fmt.Errorf("%w: stream %s has no endpoint", ErrInvalidInput, d.ID)
	}
	switch d.Replication {
	case ReplicationIncremental:
		if d.BookmarkField == "" {
			return fmt.Errorf("%w: incremental stream %s has no bookmark field", ErrInvalidInput, d.ID)
		}
	case ReplicationFullTable:
		if d.BookmarkField != "" {
			return fmt.Errorf("%w: full-table stream %s cannot have a bookmark field", ErrInvalidInput, d.ID)
		}
	default:
		return fmt.Errorf("%w: replication method %q", ErrUnsupportedType, d.Replication)
	}
	return nil
}
