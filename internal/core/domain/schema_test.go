package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_Unmarshal(t *testing.T) {
	raw := `{
		"type": ["null", "object"],
		"additionalProperties": false,
		"properties": {
			"id": {"type": "integer"},
			"created_time": {"type": ["null", "string"], "format": "date-time"},
			"participants": {"type": ["null", "array"], "items": {"type": "object", "properties": {"id": {"type": "integer"}}}}
		}
	}`

	var schema Schema
	require.NoError(t, json.Unmarshal([]byte(raw), &schema))

	assert.True(t, schema.Type.Has(TypeObject))
	assert.True(t, schema.Type.Has(TypeNull))
	assert.False(t, schema.Type.Has(TypeString))
	assert.Equal(t, SchemaType{TypeInteger}, schema.Properties["id"].Type)
	assert.Equal(t, FormatDateTime, schema.Properties["created_time"].Format)
	assert.True(t, schema.Properties["participants"].Items.IsObjectWithProperties())
	assert.Equal(t, []string{"created_time", "id", "participants"}, schema.PropertyNames())
	require.NotNil(t, schema.AdditionalProperties)
	assert.False(t, *schema.AdditionalProperties)
}

func TestSchemaType_Invalid(t *testing.T) {
	var st SchemaType
	err := json.Unmarshal([]byte(`42`), &st)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSchemaType_Marshal(t *testing.T) {
	single, err := json.Marshal(SchemaType{TypeString})
	require.NoError(t, err)
	assert.Equal(t, `"string"`, string(single))

	union, err := json.Marshal(SchemaType{TypeNull, TypeString})
	require.NoError(t, err)
	assert.Equal(t, `["null","string"]`, string(union))
}

func TestSchema_NilSafe(t *testing.T) {
	var s *Schema
	assert.Nil(t, s.PropertyNames())
	assert.False(t, s.IsObjectWithProperties())
}
