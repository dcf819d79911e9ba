package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
)

// SyncService replicates selected streams to the output boundary.
type SyncService interface {
	// Sync processes every selected stream of the catalog in order,
	// committing bookmarks into state as windows complete.
	Sync(ctx context.Context, catalog domain.Catalog, state *domain.State) error

	// SyncStream processes one stream.
	SyncStream(ctx context.Context, entry domain.CatalogEntry, state *domain.State) error

	// Plan returns the windows an incremental stream would query from its
	// current bookmark, without fetching anything.
	Plan(streamID string, state *domain.State) ([]domain.Window, error)

	// Summary returns the status of every stream finished by the last Sync.
	Summary() []SyncStatus
}

// SyncStatus summarises a finished stream.
type SyncStatus struct {
	// StreamID identifies the stream.
	StreamID string

	// RecordsEmitted is the count of records written.
	RecordsEmitted int

	// WindowsCommitted is the number of bookmark commits.
	WindowsCommitted int

	// Duration is the wall time spent on the stream.
	Duration time.Duration
}
