package driven

import "github.com/custodia-labs/tap-freshcaller/internal/core/domain"

// StreamRegistry is the compiled-in mapping of stream ids to descriptors
// and schemas. Implementations are immutable and safe for concurrent use.
type StreamRegistry interface {
	// Resolve returns the descriptor of a stream.
	// Returns domain.ErrNotFound for unknown ids.
	Resolve(streamID string) (domain.StreamDescriptor, error)

	// Streams returns every descriptor in registry order.
	Streams() []domain.StreamDescriptor

	// Schema returns a copy of the stream's JSON schema.
	Schema(streamID string) (*domain.Schema, error)
}
