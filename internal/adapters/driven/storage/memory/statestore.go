package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
	"github.com/custodia-labs/tap-freshcaller/internal/core/ports/driven"
)

// Ensure StateStore implements the interface.
var _ driven.StateStore = (*StateStore)(nil)

// StateStore is an in-memory implementation of driven.StateStore.
// Every saved snapshot is kept so tests can inspect the commit history.
type StateStore struct {
	mu      sync.RWMutex
	current *domain.State
	history []*domain.State
}

// NewStateStore creates a new in-memory state store.
func NewStateStore() *StateStore {
	return &StateStore{}
}

// Load returns a copy of the last saved state.
func (s *StateStore) Load(_ context.Context) (*domain.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, domain.ErrNotFound
	}
	return s.current.Clone(), nil
}

// Save stores a copy of state.
func (s *StateStore) Save(_ context.Context, state *domain.State) error {
	if state == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = state.Clone()
	s.history = append(s.history, state.Clone())
	return nil
}

// History returns copies of every saved state, oldest first.
func (s *StateStore) History() []*domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.State, 0, len(s.history))
	for _, st := range s.history {
		out = append(out, st.Clone())
	}
	return out
}
