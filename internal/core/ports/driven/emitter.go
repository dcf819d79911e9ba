package driven

import "github.com/custodia-labs/tap-freshcaller/internal/core/domain"

// Emitter is the output boundary records leave the tap through.
type Emitter interface {
	// WriteSchema declares a stream's schema before any of its records.
	WriteSchema(streamID string, schema *domain.Schema, keyProperties, bookmarkProperties []string) error

	// WriteRecord emits one transformed record.
	WriteRecord(record domain.Record) error

	// WriteState emits a snapshot of the run state after a commit.
	WriteState(state *domain.State) error
}
