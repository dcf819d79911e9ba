package driven

import (
	"context"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
)

// StateStore persists run state between process restarts.
type StateStore interface {
	// Load returns the last saved state.
	// Returns domain.ErrNotFound if nothing has been saved yet.
	Load(ctx context.Context) (*domain.State, error)

	// Save replaces the stored state.
	Save(ctx context.Context, state *domain.State) error
}
