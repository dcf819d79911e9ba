// Package file provides a JSON file implementation of the state store.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
	"github.com/custodia-labs/tap-freshcaller/internal/core/ports/driven"
)

// Ensure StateStore implements the interface.
var _ driven.StateStore = (*StateStore)(nil)

// StateStore keeps the state document in a single JSON file. Saves write a
// temporary sibling file and rename it over the target, so a reader never
// sees a partial document.
type StateStore struct {
	mu   sync.Mutex
	path string
}

// NewStateStore creates a store backed by the file at path.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Path returns the state file path.
func (s *StateStore) Path() string {
	return s.path
}

// Load reads the state file. Returns domain.ErrNotFound if it does not exist.
func (s *StateStore) Load(_ context.Context) (*domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ReadState(s.path)
}

// Save writes state to the file.
func (s *StateStore) Save(_ context.Context, state *domain.State) error {
	if state == nil {
		return domain.ErrInvalidInput
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

// ReadState decodes a state document from path. It accepts both a bare
// state object and the value of a STATE message.
func ReadState(path string) (*domain.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var envelope struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: parsing state file %s: %w", domain.ErrInvalidInput, path, err)
	}
	if envelope.Type == "STATE" && len(envelope.Value) > 0 {
		data = envelope.Value
	}

	state := domain.NewState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("%w: parsing state file %s: %w", domain.ErrInvalidInput, path, err)
	}
	if state.Bookmarks == nil {
		state.Bookmarks = make(map[string]map[string]string)
	}
	return state, nil
}
