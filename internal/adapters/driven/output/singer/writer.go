// Package singer writes tap output as Singer messages: one JSON object per
// line, of type SCHEMA, RECORD or STATE.
package singer

import (
	"bufio"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
	"github.com/custodia-labs/tap-freshcaller/internal/core/ports/driven"
)

// Message types.
const (
	TypeSchema = "SCHEMA"
	TypeRecord = "RECORD"
	TypeState  = "STATE"
)

// Ensure Writer implements the interface.
var _ driven.Emitter = (*Writer)(nil)

type schemaMessage struct {
	Type               string         `json:"type"`
	Stream             string         `json:"stream"`
	Schema             *domain.Schema `json:"schema"`
	KeyProperties      []string       `json:"key_properties"`
	BookmarkProperties []string       `json:"bookmark_properties,omitempty"`
}

type recordMessage struct {
	Type          string       `json:"type"`
	Stream        string       `json:"stream"`
	Record        domain.Value `json:"record"`
	TimeExtracted string       `json:"time_extracted"`
}

type stateMessage struct {
	Type  string        `json:"type"`
	Value *domain.State `json:"value"`
}

// Writer serialises messages to an io.Writer, flushing after each one.
type Writer struct {
	mu  sync.Mutex
	out *bufio.Writer
	now func() time.Time
}

// NewWriter creates a writer over w (usually stdout).
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: bufio.NewWriter(w), now: time.Now}
}

// WriteSchema writes a SCHEMA message.
func (w *Writer) WriteSchema(streamID string, schema *domain.Schema, keyProperties, bookmarkProperties []string) error {
	if keyProperties == nil {
		keyProperties = []string{}
	}
	return w.write(schemaMessage{
		Type:               TypeSchema,
		Stream:             streamID,
		Schema:             schema,
		KeyProperties:      keyProperties,
		BookmarkProperties: bookmarkProperties,
	})
}

// WriteRecord writes a RECORD message stamped with the extraction time.
func (w *Writer) WriteRecord(record domain.Record) error {
	return w.write(recordMessage{
		Type:          TypeRecord,
		Stream:        record.Stream,
		Record:        record.Data,
		TimeExtracted: domain.FormatTimestamp(w.now()),
	})
}

// WriteState writes a STATE message.
func (w *Writer) WriteState(state *domain.State) error {
	if state == nil {
		state = domain.NewState()
	}
	return w.write(stateMessage{Type: TypeState, Value: state})
}

// WriteCatalog writes a discovered catalog as indented JSON.
func (w *Writer) WriteCatalog(catalog domain.Catalog) error {
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return w.writeLine(data)
}

func (w *Writer) write(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return w.writeLine(data)
}

func (w *Writer) writeLine(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.out.Write(data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.out.WriteByte('\n'); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.out.Flush(); err != nil {
		return fmt.Errorf("flush message: %w", err)
	}
	return nil
}
