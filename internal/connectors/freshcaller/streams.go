package freshcaller

import (
	"embed"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
	"github.com/custodia-labs/tap-freshcaller/internal/core/ports/driven"
)

// Stream ids.
const (
	StreamTeams       = "teams"
	StreamUsers       = "users"
	StreamCalls       = "calls"
	StreamCallMetrics = "call_metrics"
)

// BookmarkCreatedTime is the replication key of the incremental streams.
const BookmarkCreatedTime = "created_time"

//go:embed schemas/*.json
var schemaFS embed.FS

// Ensure Registry implements the interface.
var _ driven.StreamRegistry = (*Registry)(nil)

// Registry is the compiled-in catalog of Freshcaller streams.
type Registry struct {
	streams []domain.StreamDescriptor
	schemas map[string][]byte
}

// NewRegistry loads the stream table and its embedded schemas.
func NewRegistry() (*Registry, error) {
	streams := []domain.StreamDescriptor{
		fullTable(StreamTeams),
		fullTable(StreamUsers),
		incremental(StreamCalls, BookmarkCreatedTime),
		incremental(StreamCallMetrics, BookmarkCreatedTime),
	}

	r := &Registry{
		streams: streams,
		schemas: make(map[string][]byte, len(streams)),
	}
	for _, s := range streams {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		data, err := schemaFS.ReadFile("schemas/" + s.ID + ".json")
		if err != nil {
			return nil, fmt.Errorf("load schema %s: %w", s.ID, err)
		}
		var probe domain.Schema
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", s.ID, err)
		}
		r.schemas[s.ID] = data
	}
	return r, nil
}

func fullTable(id string) domain.StreamDescriptor {
	return domain.StreamDescriptor{
		ID:            id,
		Endpoint:      id,
		KeyProperties: domain.DefaultKeyProperties,
		Replication:   domain.ReplicationFullTable,
	}
}

func incremental(id, bookmark string) domain.StreamDescriptor {
	d := fullTable(id)
	d.Replication = domain.ReplicationIncremental
	d.BookmarkField = bookmark
	return d
}

// Resolve returns the descriptor of a stream.
func (r *Registry) Resolve(streamID string) (domain.StreamDescriptor, error) {
	for _, s := range r.streams {
		if s.ID == streamID {
			s.KeyProperties = append([]string(nil), s.KeyProperties...)
			return s, nil
		}
	}
	return domain.StreamDescriptor{}, fmt.Errorf("%w: %w: %s", ErrUnknownStream, domain.ErrNotFound, streamID)
}

// Streams returns every descriptor in registry order.
func (r *Registry) Streams() []domain.StreamDescriptor {
	out := make([]domain.StreamDescriptor, len(r.streams))
	copy(out, r.streams)
	return out
}

// Schema returns a freshly decoded copy of the stream's schema.
func (r *Registry) Schema(streamID string) (*domain.Schema, error) {
	data, ok := r.schemas[streamID]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", ErrUnknownStream, domain.ErrNotFound, streamID)
	}
	var schema domain.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", streamID, err)
	}
	return &schema, nil
}
