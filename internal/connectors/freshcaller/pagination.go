package freshcaller

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
	"github.com/custodia-labs/tap-freshcaller/internal/core/ports/driven"
)

const (
	// PageParam is the 1-based page number query parameter.
	PageParam = "page"

	// PerPageParam is the page size query parameter.
	PerPageParam = "per_page"

	// PageSize is the largest page the API serves.
	PageSize = 1000

	// metaKey names the pagination envelope of every response.
	metaKey = "meta"
)

// Fetcher issues one GET request and returns the raw body.
type Fetcher interface {
	Fetch(ctx context.Context, path string, params url.Values) ([]byte, error)
}

// Ensure Paginator implements the interface.
var _ driven.RowSource = (*Paginator)(nil)

// Paginator drains a stream's endpoint across every result page.
type Paginator struct {
	fetcher  Fetcher
	registry driven.StreamRegistry
	logger   *zap.Logger
}

// NewPaginator creates a paginator over fetcher.
func NewPaginator(fetcher Fetcher, registry driven.StreamRegistry, logger *zap.Logger) *Paginator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Paginator{fetcher: fetcher, registry: registry, logger: logger}
}

// pageMeta is the pagination envelope.
type pageMeta struct {
	TotalPages *int `json:"total_pages"`
}

// Drain requests page 1, reads total_pages from the first response and keeps
// requesting until every page has been read. Rows keep server order.
func (p *Paginator) Drain(ctx context.Context, streamID string, params url.Values) ([]domain.Row, error) {
	desc, err := p.registry.Resolve(streamID)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = append([]string(nil), v...)
	}

	var rows []domain.Row
	totalPages := 1
	for page := 1; page <= totalPages; page++ {
		query.Set(PageParam, strconv.Itoa(page))

		body, err := p.fetcher.Fetch(ctx, desc.Endpoint, query)
		if err != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", streamID, page, err)
		}

		items, meta, err := decodePage(body, streamID)
		if err != nil {
			return nil, fmt.Errorf("decode %s page %d: %w", streamID, page, err)
		}
		if page == 1 && meta.TotalPages != nil {
			totalPages = *meta.TotalPages
		}

		p.logger.Debug("page fetched",
			zap.String("stream", streamID),
			zap.Int("page", page),
			zap.Int("total_pages", totalPages),
			zap.Int("records", len(items)),
		)
		rows = append(rows, items...)
	}

	return rows, nil
}

// decodePage splits a response into its rows and pagination envelope.
func decodePage(body []byte, streamID string) ([]domain.Row, pageMeta, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, pageMeta{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	rawMeta, ok := envelope[metaKey]
	if !ok {
		return nil, pageMeta{}, fmt.Errorf("%w: missing %q", domain.ErrMalformedResponse, metaKey)
	}
	var meta pageMeta
	if err := json.Unmarshal(rawMeta, &meta); err != nil {
		return nil, pageMeta{}, fmt.Errorf("%w: %s: %v", domain.ErrMalformedResponse, metaKey, err)
	}

	rawItems, ok := envelope[streamID]
	if !ok {
		return nil, pageMeta{}, fmt.Errorf("%w: missing %q", domain.ErrMalformedResponse, streamID)
	}
	var items []domain.Row
	dec := json.NewDecoder(bytes.NewReader(rawItems))
	dec.UseNumber()
	if err := dec.Decode(&items); err != nil {
		return nil, pageMeta{}, fmt.Errorf("%w: %s: %v", domain.ErrMalformedResponse, streamID, err)
	}

	return items, meta, nil
}
