package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
)

// --- Mock implementations shared by the service tests ---

// mockRegistry is a fixed driven.StreamRegistry.
type mockRegistry struct {
	streams []domain.StreamDescriptor
	schemas map[string]string
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{
		streams: []domain.StreamDescriptor{
			{ID: "teams", Endpoint: "teams", KeyProperties: []string{"id"}, Replication: domain.ReplicationFullTable},
			{ID: "calls", Endpoint: "calls", KeyProperties: []string{"id"}, Replication: domain.ReplicationIncremental, BookmarkField: "created_time"},
		},
		schemas: map[string]string{
			"teams": `{"type": ["null", "object"], "properties": {
				"id": {"type": ["null", "integer"]},
				"name": {"type": ["null", "string"]},
				"owner": {"type": ["null", "object"], "properties": {"id": {"type": "integer"}, "email": {"type": "string"}}}
			}}`,
			"calls": `{"type": ["null", "object"], "properties": {
				"id": {"type": ["null", "integer"]},
				"direction": {"type": ["null", "string"]},
				"created_time": {"type": ["null", "string"], "format": "date-time"}
			}}`,
		},
	}
}

func (r *mockRegistry) Resolve(streamID string) (domain.StreamDescriptor, error) {
	for _, s := range r.streams {
		if s.ID == streamID {
			return s, nil
		}
	}
	return domain.StreamDescriptor{}, domain.ErrNotFound
}

func (r *mockRegistry) Streams() []domain.StreamDescriptor {
	return r.streams
}

func (r *mockRegistry) Schema(streamID string) (*domain.Schema, error) {
	raw, ok := r.schemas[streamID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	var s domain.Schema
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// drainCall records one Drain invocation.
type drainCall struct {
	stream string
	params url.Values
}

// mockSource serves rows per stream and per window start.
type mockSource struct {
	mu sync.Mutex
	// full maps a full-table stream to its rows.
	full map[string][]domain.Row
	// windows maps stream -> by_time[from] -> rows.
	windows map[string]map[string][]domain.Row
	// fail maps stream -> by_time[from] ("" for full table) -> error.
	fail  map[string]map[string]error
	calls []drainCall
}

func newMockSource() *mockSource {
	return &mockSource{
		full:    map[string][]domain.Row{},
		windows: map[string]map[string][]domain.Row{},
		fail:    map[string]map[string]error{},
	}
}

func (s *mockSource) window(stream, from string, rows ...domain.Row) {
	if s.windows[stream] == nil {
		s.windows[stream] = map[string][]domain.Row{}
	}
	s.windows[stream][from] = rows
}

func (s *mockSource) failAt(stream, from string, err error) {
	if s.fail[stream] == nil {
		s.fail[stream] = map[string]error{}
	}
	s.fail[stream][from] = err
}

func (s *mockSource) Drain(_ context.Context, streamID string, params url.Values) ([]domain.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := url.Values{}
	for k, v := range params {
		copied[k] = append([]string(nil), v...)
	}
	s.calls = append(s.calls, drainCall{stream: streamID, params: copied})

	from := params.Get(ParamFrom)
	if err := s.fail[streamID][from]; err != nil {
		return nil, err
	}
	if from == "" {
		return s.full[streamID], nil
	}
	return s.windows[streamID][from], nil
}

func (s *mockSource) froms(stream string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.calls {
		if c.stream == stream {
			out = append(out, c.params.Get(ParamFrom))
		}
	}
	return out
}

// schemaCall records one WriteSchema invocation.
type schemaCall struct {
	stream             string
	keyProperties      []string
	bookmarkProperties []string
}

// recordingEmitter keeps everything written to it.
type recordingEmitter struct {
	mu      sync.Mutex
	schemas []schemaCall
	records []domain.Record
	states  []*domain.State
	failOn  string
}

func (e *recordingEmitter) WriteSchema(streamID string, _ *domain.Schema, keys, bookmarks []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failOn == "schema" {
		return errors.New("stdout closed")
	}
	e.schemas = append(e.schemas, schemaCall{stream: streamID, keyProperties: keys, bookmarkProperties: bookmarks})
	return nil
}

func (e *recordingEmitter) WriteRecord(record domain.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failOn == "record" {
		return errors.New("stdout closed")
	}
	e.records = append(e.records, record)
	return nil
}

func (e *recordingEmitter) WriteState(state *domain.State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.states = append(e.states, state.Clone())
	return nil
}

func (e *recordingEmitter) recordsFor(stream string) []domain.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []domain.Record
	for _, r := range e.records {
		if r.Stream == stream {
			out = append(out, r)
		}
	}
	return out
}

// bookmarks returns the emitted bookmark values of one stream, in order,
// skipping states that carry none.
func (e *recordingEmitter) bookmarks(stream, field string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, st := range e.states {
		if v, ok := st.Bookmark(stream, field); ok {
			if len(out) == 0 || out[len(out)-1] != v {
				out = append(out, v)
			}
		}
	}
	return out
}
