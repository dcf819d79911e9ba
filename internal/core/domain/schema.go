package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// JSON schema type names understood by the transform.
const (
	TypeNull    = "null"
	TypeBoolean = "boolean"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeString  = "string"
	TypeObject  = "object"
	TypeArray   = "array"

	// FormatDateTime marks a string property holding a timestamp.
	FormatDateTime = "date-time"
)

// SchemaType is a JSON schema "type" keyword, which may be a single name
// or a union such as ["null", "string"].
type SchemaType []string

// UnmarshalJSON accepts both the string and the array form.
func (t *SchemaType) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = SchemaType{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("%w: schema type must be a string or array", ErrInvalidInput)
	}
	*t = many
	return nil
}

// MarshalJSON writes a single type as a bare string.
func (t SchemaType) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]string(t))
}

// Has reports whether name is one of the allowed types.
func (t SchemaType) Has(name string) bool {
	for _, n := range t {
		if n == name {
			return true
		}
	}
	return false
}

// Schema is the subset of JSON schema used to describe stream rows.
type Schema struct {
	Type                 SchemaType         `json:"type,omitempty"`
	Format               string             `json:"format,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty"`
}

// PropertyNames returns the property names in lexical order.
func (s *Schema) PropertyNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsObjectWithProperties reports whether s is an object declaring sub-properties.
func (s *Schema) IsObjectWithProperties() bool {
	return s != nil && s.Type.Has(TypeObject) && len(s.Properties) > 0
}
