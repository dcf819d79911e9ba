package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
)

func TestDiscovery_Discover(t *testing.T) {
	catalog, err := NewDiscovery(newMockRegistry()).Discover()

	require.NoError(t, err)
	require.Len(t, catalog.Streams, 2)
	assert.Equal(t, "teams", catalog.Streams[0].TapStreamID)
	assert.Equal(t, "calls", catalog.Streams[1].TapStreamID)
	for _, entry := range catalog.Streams {
		assert.Equal(t, entry.TapStreamID, entry.Stream)
		assert.Equal(t, []string{"id"}, entry.KeyProperties)
		assert.NotNil(t, entry.Schema)
		assert.False(t, entry.IsSelected(), "discovery selects nothing")
	}
}

func TestDiscovery_RootMetadata(t *testing.T) {
	catalog, err := NewDiscovery(newMockRegistry()).Discover()
	require.NoError(t, err)

	teams := catalog.Streams[0].MetadataMap()
	method, _ := teams.Get(nil, domain.MetaForcedReplicationMethod)
	assert.Equal(t, "FULL_TABLE", method)
	keys, _ := teams.Get(nil, domain.MetaTableKeyProperties)
	assert.Equal(t, []string{"id"}, keys)
	_, hasKeys := teams.Get(nil, domain.MetaValidReplicationKeys)
	assert.False(t, hasKeys)

	calls := catalog.Streams[1].MetadataMap()
	method, _ = calls.Get(nil, domain.MetaForcedReplicationMethod)
	assert.Equal(t, "INCREMENTAL", method)
	replicationKeys, _ := calls.Get(nil, domain.MetaValidReplicationKeys)
	assert.Equal(t, []string{"created_time"}, replicationKeys)
	inclusion, _ := calls.Get(nil, domain.MetaInclusion)
	assert.Equal(t, domain.InclusionAvailable, inclusion)
}

func TestDiscovery_PropertyMetadata(t *testing.T) {
	catalog, err := NewDiscovery(newMockRegistry()).Discover()
	require.NoError(t, err)

	inclusion := func(md domain.Metadata, crumb ...string) any {
		v, _ := md.Get(crumb, domain.MetaInclusion)
		return v
	}

	calls := catalog.Streams[1].MetadataMap()
	assert.Equal(t, domain.InclusionAutomatic, inclusion(calls, "properties", "id"))
	assert.Equal(t, domain.InclusionAutomatic, inclusion(calls, "properties", "created_time"))
	assert.Equal(t, domain.InclusionAvailable, inclusion(calls, "properties", "direction"))

	teams := catalog.Streams[0].MetadataMap()
	assert.Equal(t, domain.InclusionAutomatic, inclusion(teams, "properties", "id"))
	assert.Nil(t, inclusion(teams, "properties", "owner"), "objects are described by their sub-properties")
	assert.Equal(t, domain.InclusionAvailable, inclusion(teams, "properties", "owner", "properties", "id"))
	assert.Equal(t, domain.InclusionAvailable, inclusion(teams, "properties", "owner", "properties", "email"))

	// root + id + name + owner.id + owner.email
	assert.Len(t, catalog.Streams[0].Metadata, 5)
}

func TestDiscovery_SchemaError(t *testing.T) {
	registry := newMockRegistry()
	delete(registry.schemas, "calls")

	_, err := NewDiscovery(registry).Discover()

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
