package domain

import (
	"fmt"
	"strings"
)

// Metadata keys written by discovery and read during sync.
const (
	MetaInclusion               = "inclusion"
	MetaSelected                = "selected"
	MetaForcedReplicationMethod = "forced-replication-method"
	MetaTableKeyProperties      = "table-key-properties"
	MetaValidReplicationKeys    = "valid-replication-keys"

	InclusionAvailable   = "available"
	InclusionAutomatic   = "automatic"
	InclusionUnsupported = "unsupported"
)

// Catalog is the declarative listing of streams produced by discovery.
type Catalog struct {
	Streams []CatalogEntry `json:"streams"`
}

// CatalogEntry describes one stream: its schema, keys and selection metadata.
type CatalogEntry struct {
	TapStreamID   string          `json:"tap_stream_id"`
	Stream        string          `json:"stream"`
	Schema        *Schema         `json:"schema"`
	KeyProperties []string        `json:"key_properties"`
	Metadata      []MetadataEntry `json:"metadata"`
}

// MetadataEntry attaches metadata to a breadcrumb path in the schema.
// The empty breadcrumb addresses the stream itself.
type MetadataEntry struct {
	Breadcrumb []string       `json:"breadcrumb"`
	Metadata   map[string]any `json:"metadata"`
}

// Metadata indexes metadata entries by breadcrumb.
type Metadata map[string]map[string]any

// Get returns one metadata value for a breadcrumb.
func (m Metadata) Get(breadcrumb []string, key string) (any, bool) {
	values, ok := m[breadcrumbKey(breadcrumb)]
	if !ok {
		return nil, false
	}
	v, ok := values[key]
	return v, ok
}

// FieldSelected reports whether a property should be kept in emitted records.
// Automatic fields are always kept; explicitly deselected or unsupported
// fields are dropped; anything else is kept.
func (m Metadata) FieldSelected(breadcrumb []string) bool {
	if inclusion, ok := m.Get(breadcrumb, MetaInclusion); ok {
		switch inclusion {
		case InclusionAutomatic:
			return true
		case InclusionUnsupported:
			return false
		}
	}
	if selected, ok := m.Get(breadcrumb, MetaSelected); ok {
		if b, isBool := selected.(bool); isBool && !b {
			return false
		}
	}
	return true
}

// Set stores one metadata value for a breadcrumb.
func (m Metadata) Set(breadcrumb []string, key string, value any) {
	k := breadcrumbKey(breadcrumb)
	if m[k] == nil {
		m[k] = make(map[string]any)
	}
	m[k][key] = value
}

func breadcrumbKey(breadcrumb []string) string {
	return strings.Join(breadcrumb, "/")
}

// MetadataMap indexes the entry's metadata list.
func (e *CatalogEntry) MetadataMap() Metadata {
	m := make(Metadata, len(e.Metadata))
	for _, entry := range e.Metadata {
		for key, value := range entry.Metadata {
			m.Set(entry.Breadcrumb, key, value)
		}
	}
	return m
}

// IsSelected reports whether the stream is marked for sync.
func (e *CatalogEntry) IsSelected() bool {
	v, ok := e.MetadataMap().Get(nil, MetaSelected)
	if !ok {
		return false
	}
	b, isBool := v.(bool)
	return isBool && b
}

// SetSelected marks the stream (root breadcrumb) as selected or not.
func (e *CatalogEntry) SetSelected(selected bool) {
	for i := range e.Metadata {
		if len(e.Metadata[i].Breadcrumb) == 0 {
			if e.Metadata[i].Metadata == nil {
				e.Metadata[i].Metadata = make(map[string]any)
			}
			e.Metadata[i].Metadata[MetaSelected] = selected
			return
		}
	}
	e.Metadata = append([]MetadataEntry{{
		Breadcrumb: []string{},
		Metadata:   map[string]any{MetaSelected: selected},
	}}, e.Metadata...)
}

// Get returns the entry for a stream id.
func (c *Catalog) Get(streamID string) (*CatalogEntry, error) {
	for i := range c.Streams {
		if c.Streams[i].TapStreamID == streamID {
			return &c.Streams[i], nil
		}
	}
	return nil, fmt.Errorf("%w: stream %s", ErrNotFound, streamID)
}

// SelectAll marks every stream as selected.
func (c *Catalog) SelectAll() {
	for i := range c.Streams {
		c.Streams[i].SetSelected(true)
	}
}

// SelectedStreams returns selected entries in catalog order, rotated so that
// currentlySyncing (if selected) comes first.
func (c *Catalog) SelectedStreams(currentlySyncing string) []CatalogEntry {
	var selected []CatalogEntry
	for _, entry := range c.Streams {
		if entry.IsSelected() {
			selected = append(selected, entry)
		}
	}
	if currentlySyncing == "" {
		return selected
	}
	for i, entry := range selected {
		if entry.TapStreamID == currentlySyncing {
			ordered := make([]CatalogEntry, 0, len(selected))
			ordered = append(ordered, selected[i:]...)
			return append(ordered, selected[:i]...)
		}
	}
	return selected
}
