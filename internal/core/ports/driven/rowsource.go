package driven

import (
	"context"
	"net/url"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
)

// RowSource drains one logical query across every result page.
type RowSource interface {
	// Drain fetches all pages of a stream's endpoint for the given query and
	// returns the rows in server order. Page parameters are managed by the
	// source; params must not carry them. Either every page succeeds or an
	// error is returned with no rows.
	Drain(ctx context.Context, streamID string, params url.Values) ([]domain.Row, error)
}
