package services

import (
	"fmt"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
	"github.com/custodia-labs/tap-freshcaller/internal/core/ports/driven"
	"github.com/custodia-labs/tap-freshcaller/internal/core/ports/driving"
)

// Ensure Discovery implements the interface.
var _ driving.DiscoveryService = (*Discovery)(nil)

// Discovery builds the catalog from the stream registry.
type Discovery struct {
	registry driven.StreamRegistry
}

// NewDiscovery creates a discovery service.
func NewDiscovery(registry driven.StreamRegistry) *Discovery {
	return &Discovery{registry: registry}
}

// Discover lists every registry stream with its schema, key properties and
// inclusion metadata. Nothing is selected.
func (d *Discovery) Discover() (domain.Catalog, error) {
	descs := d.registry.Streams()
	catalog := domain.Catalog{Streams: make([]domain.CatalogEntry, 0, len(descs))}

	for _, desc := range descs {
		schema, err := d.registry.Schema(desc.ID)
		if err != nil {
			return domain.Catalog{}, fmt.Errorf("discover %s: %w", desc.ID, err)
		}
		catalog.Streams = append(catalog.Streams, domain.CatalogEntry{
			TapStreamID:   desc.ID,
			Stream:        desc.ID,
			Schema:        schema,
			KeyProperties: append([]string(nil), desc.KeyProperties...),
			Metadata:      streamMetadata(desc, schema),
		})
	}

	return catalog, nil
}

// streamMetadata describes the stream and each of its properties. Object
// properties that declare sub-properties are described through those
// sub-properties instead of themselves.
func streamMetadata(desc domain.StreamDescriptor, schema *domain.Schema) []domain.MetadataEntry {
	root := map[string]any{
		domain.MetaInclusion:               domain.InclusionAvailable,
		domain.MetaForcedReplicationMethod: string(desc.Replication),
	}
	if len(desc.KeyProperties) > 0 {
		root[domain.MetaTableKeyProperties] = append([]string(nil), desc.KeyProperties...)
	}
	if desc.IsIncremental() {
		root[domain.MetaValidReplicationKeys] = desc.BookmarkProperties()
	}

	entries := []domain.MetadataEntry{{Breadcrumb: []string{}, Metadata: root}}

	automatic := make(map[string]bool, len(desc.KeyProperties)+1)
	for _, key := range desc.KeyProperties {
		automatic[key] = true
	}
	if desc.BookmarkField != "" {
		automatic[desc.BookmarkField] = true
	}

	for _, name := range schema.PropertyNames() {
		prop := schema.Properties[name]
		if prop.IsObjectWithProperties() {
			for _, sub := range prop.PropertyNames() {
				entries = append(entries, domain.MetadataEntry{
					Breadcrumb: []string{"properties", name, "properties", sub},
					Metadata:   map[string]any{domain.MetaInclusion: domain.InclusionAvailable},
				})
			}
			continue
		}

		inclusion := domain.InclusionAvailable
		if automatic[name] {
			inclusion = domain.InclusionAutomatic
		}
		entries = append(entries, domain.MetadataEntry{
			Breadcrumb: []string{"properties", name},
			Metadata:   map[string]any{domain.MetaInclusion: inclusion},
		})
	}

	return entries
}
