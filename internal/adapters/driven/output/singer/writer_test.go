package singer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
)

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var msg map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &msg), scanner.Text())
		out = append(out, msg)
	}
	return out
}

func TestWriter_Schema(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	schema := &domain.Schema{
		Type:       domain.SchemaType{domain.TypeObject},
		Properties: map[string]*domain.Schema{"id": {Type: domain.SchemaType{domain.TypeNull, domain.TypeInteger}}},
	}

	require.NoError(t, w.WriteSchema("calls", schema, []string{"id"}, []string{"created_time"}))
	require.NoError(t, w.WriteSchema("teams", schema, nil, nil))

	msgs := lines(t, &buf)
	require.Len(t, msgs, 2)
	assert.Equal(t, "SCHEMA", msgs[0]["type"])
	assert.Equal(t, "calls", msgs[0]["stream"])
	assert.Equal(t, []any{"id"}, msgs[0]["key_properties"])
	assert.Equal(t, []any{"created_time"}, msgs[0]["bookmark_properties"])
	assert.Equal(t, map[string]any{
		"type":       "object",
		"properties": map[string]any{"id": map[string]any{"type": []any{"null", "integer"}}},
	}, msgs[0]["schema"])

	assert.Equal(t, []any{}, msgs[1]["key_properties"])
	assert.NotContains(t, msgs[1], "bookmark_properties")
}

func TestWriter_Record(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.now = func() time.Time { return time.Date(2023, 1, 3, 8, 0, 0, 0, time.UTC) }

	record := domain.Record{Stream: "calls", Data: domain.Object(map[string]domain.Value{
		"id":           domain.Integer(1),
		"created_time": domain.DateTime(time.Date(2023, 1, 1, 5, 0, 0, 0, time.UTC)),
	})}
	require.NoError(t, w.WriteRecord(record))

	assert.JSONEq(t, `{
		"type": "RECORD",
		"stream": "calls",
		"record": {"id": 1, "created_time": "2023-01-01T05:00:00Z"},
		"time_extracted": "2023-01-03T08:00:00Z"
	}`, strings.TrimSpace(buf.String()))
}

func TestWriter_State(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	state := domain.NewState()
	state.SetBookmark("calls", "created_time", "2023-01-02T00:00:00Z")
	require.NoError(t, w.WriteState(state))
	require.NoError(t, w.WriteState(nil))

	out := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, out, 2)
	assert.JSONEq(t, `{"type":"STATE","value":{"bookmarks":{"calls":{"created_time":"2023-01-02T00:00:00Z"}}}}`, out[0])
	assert.JSONEq(t, `{"type":"STATE","value":{"bookmarks":{}}}`, out[1])
}

func TestWriter_Catalog(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	catalog := domain.Catalog{Streams: []domain.CatalogEntry{{
		TapStreamID:   "teams",
		Stream:        "teams",
		Schema:        &domain.Schema{Type: domain.SchemaType{domain.TypeObject}},
		KeyProperties: []string{"id"},
		Metadata:      []domain.MetadataEntry{{Breadcrumb: []string{}, Metadata: map[string]any{"inclusion": "available"}}},
	}}}
	require.NoError(t, w.WriteCatalog(catalog))

	var decoded domain.Catalog
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.Streams, 1)
	assert.Equal(t, "teams", decoded.Streams[0].TapStreamID)
	assert.Contains(t, buf.String(), "\n  ", "catalog is indented")
}

func TestWriter_EncodeError(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	err := w.WriteRecord(domain.Record{Stream: "calls", Data: domain.Object(map[string]domain.Value{
		"cost": domain.Number(nanValue()),
	})})

	assert.Error(t, err)
	assert.Empty(t, buf.String(), "nothing is written for a failed message")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestWriter_WriteError(t *testing.T) {
	w := NewWriter(failingWriter{})

	err := w.WriteState(domain.NewState())

	assert.ErrorContains(t, err, "broken pipe")
}

func nanValue() float64 {
	zero := 0.0
	return zero / zero
}
