package domain

import "time"

// State is the persisted replication progress of a run.
// Its JSON form is {"bookmarks": {stream: {field: value}}, "currently_syncing": stream}.
type State struct {
	// Bookmarks maps stream id to replication key to bookmark value.
	// A bookmark is the inclusive lower bound of data not yet processed.
	Bookmarks map[string]map[string]string `json:"bookmarks"`

	// CurrentlySyncing names the stream in progress, empty between streams.
	CurrentlySyncing string `json:"currently_syncing,omitempty"`
}

// NewState creates an empty state.
func NewState() *State {
	return &State{Bookmarks: make(map[string]map[string]string)}
}

// Bookmark returns the bookmark of a stream's replication key.
func (s *State) Bookmark(streamID, field string) (string, bool) {
	if s == nil || s.Bookmarks == nil {
		return "", false
	}
	fields, ok := s.Bookmarks[streamID]
	if !ok {
		return "", false
	}
	value, ok := fields[field]
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// SetBookmark stores a bookmark value verbatim.
func (s *State) SetBookmark(streamID, field, value string) {
	if s.Bookmarks == nil {
		s.Bookmarks = make(map[string]map[string]string)
	}
	if s.Bookmarks[streamID] == nil {
		s.Bookmarks[streamID] = make(map[string]string)
	}
	s.Bookmarks[streamID][field] = value
}

// AdvanceBookmark stores t unless the current bookmark is already later,
// so a committed bookmark never moves backward. It returns the value now
// stored. An unparseable stored value is replaced.
func (s *State) AdvanceBookmark(streamID, field string, t time.Time) string {
	if current, ok := s.Bookmark(streamID, field); ok {
		if existing, err := ParseTimestamp(current); err == nil && existing.After(t) {
			return current
		}
	}
	value := FormatTimestamp(t)
	s.SetBookmark(streamID, field, value)
	return value
}

// SetCurrentlySyncing records the stream in progress; empty clears it.
func (s *State) SetCurrentlySyncing(streamID string) {
	s.CurrentlySyncing = streamID
}

// Clone returns a deep copy safe to hand to another goroutine or store.
func (s *State) Clone() *State {
	if s == nil {
		return NewState()
	}
	out := &State{
		Bookmarks:        make(map[string]map[string]string, len(s.Bookmarks)),
		CurrentlySyncing: s.CurrentlySyncing,
	}
	for stream, fields := range s.Bookmarks {
		copied := make(map[string]string, len(fields))
		for k, v := range fields {
			copied[k] = v
		}
		out.Bookmarks[stream] = copied
	}
	return out
}
