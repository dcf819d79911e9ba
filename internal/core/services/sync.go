package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
	"github.com/custodia-labs/tap-freshcaller/internal/core/ports/driven"
	"github.com/custodia-labs/tap-freshcaller/internal/core/ports/driving"
	"github.com/custodia-labs/tap-freshcaller/internal/metrics"
	"github.com/custodia-labs/tap-freshcaller/internal/transform"
)

// Query parameters of an incremental window.
const (
	ParamFrom    = "by_time[from]"
	ParamTo      = "by_time[to]"
	ParamPerPage = "per_page"

	// WindowPageSize is the page size requested for incremental windows.
	WindowPageSize = 1000
)

// Ensure SyncEngine implements the interface.
var _ driving.SyncService = (*SyncEngine)(nil)

// SyncEngine replicates streams from a RowSource to an Emitter, one stream
// and one window at a time.
type SyncEngine struct {
	source    driven.RowSource
	registry  driven.StreamRegistry
	emitter   driven.Emitter
	store     driven.StateStore
	startDate time.Time
	logger    *zap.Logger
	metrics   *metrics.Collector
	now       func() time.Time

	mu      sync.Mutex
	summary []driving.SyncStatus
}

// EngineOption configures a SyncEngine.
type EngineOption func(*SyncEngine)

// WithEngineLogger sets the logger.
func WithEngineLogger(l *zap.Logger) EngineOption {
	return func(e *SyncEngine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithEngineMetrics sets the metrics collector.
func WithEngineMetrics(m *metrics.Collector) EngineOption {
	return func(e *SyncEngine) { e.metrics = m }
}

// WithClock replaces the clock used to capture today.
func WithClock(now func() time.Time) EngineOption {
	return func(e *SyncEngine) { e.now = now }
}

// NewSyncEngine creates a sync engine.
// The store is optional - if nil, state is only emitted.
func NewSyncEngine(
	source driven.RowSource,
	registry driven.StreamRegistry,
	emitter driven.Emitter,
	store driven.StateStore,
	startDate time.Time,
	opts ...EngineOption,
) *SyncEngine {
	e := &SyncEngine{
		source:    source,
		registry:  registry,
		emitter:   emitter,
		store:     store,
		startDate: startDate.UTC(),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sync processes every selected stream in catalog order, starting at the
// stream named by state.CurrentlySyncing when a previous run was interrupted.
// The first failing stream stops the run.
func (e *SyncEngine) Sync(ctx context.Context, catalog domain.Catalog, state *domain.State) error {
	e.mu.Lock()
	e.summary = nil
	e.mu.Unlock()

	if state == nil {
		return fmt.Errorf("%w: state is required", domain.ErrInvalidInput)
	}

	streams := catalog.SelectedStreams(state.CurrentlySyncing)
	if len(streams) == 0 {
		e.logger.Warn("no streams selected")
		return nil
	}

	for _, entry := range streams {
		if err := ctx.Err(); err != nil {
			return err
		}

		state.SetCurrentlySyncing(entry.TapStreamID)
		if err := e.persist(ctx, state); err != nil {
			return err
		}

		if err := e.SyncStream(ctx, entry, state); err != nil {
			return fmt.Errorf("sync stream %s: %w", entry.TapStreamID, err)
		}

		state.SetCurrentlySyncing("")
		if err := e.persist(ctx, state); err != nil {
			return err
		}
	}

	return nil
}

// SyncStream declares the stream's schema, then replicates it with the
// stream's replication method.
func (e *SyncEngine) SyncStream(ctx context.Context, entry domain.CatalogEntry, state *domain.State) error {
	desc, err := e.registry.Resolve(entry.TapStreamID)
	if err != nil {
		return fmt.Errorf("resolve stream: %w", err)
	}

	schema := entry.Schema
	if schema == nil {
		if schema, err = e.registry.Schema(desc.ID); err != nil {
			return fmt.Errorf("load schema: %w", err)
		}
	}
	keys := entry.KeyProperties
	if len(keys) == 0 {
		keys = desc.KeyProperties
	}

	if err := e.emitter.WriteSchema(desc.ID, schema, keys, desc.BookmarkProperties()); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}

	run := &streamRun{
		engine: e,
		desc:   desc,
		schema: schema,
		md:     entry.MetadataMap(),
		logger: e.logger.With(zap.String("stream", desc.ID)),
		status: driving.SyncStatus{StreamID: desc.ID},
	}
	start := time.Now()
	run.logger.Info("syncing stream", zap.String("replication", string(desc.Replication)))

	if desc.IsIncremental() {
		err = run.incremental(ctx, state)
	} else {
		err = run.fullTable(ctx)
	}

	run.status.Duration = time.Since(start)
	e.mu.Lock()
	e.summary = append(e.summary, run.status)
	e.mu.Unlock()

	if err != nil {
		return err
	}
	run.logger.Info("stream complete",
		zap.Int("records", run.status.RecordsEmitted),
		zap.Int("windows", run.status.WindowsCommitted),
		zap.Duration("duration", run.status.Duration),
	)
	return nil
}

// Plan returns the windows an incremental stream would query from its
// current bookmark. Full-table streams have no windows.
func (e *SyncEngine) Plan(streamID string, state *domain.State) ([]domain.Window, error) {
	desc, err := e.registry.Resolve(streamID)
	if err != nil {
		return nil, err
	}
	if !desc.IsIncremental() {
		return nil, nil
	}
	start, err := e.resolveBookmark(desc, state)
	if err != nil {
		return nil, err
	}
	return PlanWindows(start, e.now()), nil
}

// Summary returns the status of every stream processed by the last Sync.
func (e *SyncEngine) Summary() []driving.SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]driving.SyncStatus, len(e.summary))
	copy(out, e.summary)
	return out
}

// resolveBookmark returns the stored bookmark, or the start date when the
// stream has none.
func (e *SyncEngine) resolveBookmark(desc domain.StreamDescriptor, state *domain.State) (time.Time, error) {
	value, ok := state.Bookmark(desc.ID, desc.BookmarkField)
	if !ok {
		return e.startDate, nil
	}
	t, err := domain.ParseTimestamp(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse bookmark of %s: %w", desc.ID, err)
	}
	return t, nil
}

// persist emits the state and saves it to the durable store, if any.
func (e *SyncEngine) persist(ctx context.Context, state *domain.State) error {
	if err := e.emitter.WriteState(state); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if e.store == nil {
		return nil
	}
	if err := e.store.Save(ctx, state.Clone()); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// streamRun holds the per-stream values of one SyncStream call.
type streamRun struct {
	engine *SyncEngine
	desc   domain.StreamDescriptor
	schema *domain.Schema
	md     domain.Metadata
	logger *zap.Logger
	status driving.SyncStatus
}

// fullTable drains the whole endpoint once and emits every row.
func (r *streamRun) fullTable(ctx context.Context) error {
	rows, err := r.engine.source.Drain(ctx, r.desc.ID, url.Values{})
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	for _, row := range rows {
		if err := r.emit(row); err != nil {
			return err
		}
	}
	r.engine.metrics.AddRecords(r.desc.ID, len(rows))
	return nil
}

// incremental walks one-day windows from the bookmark, committing the
// highest observed bookmark after each fully emitted window.
func (r *streamRun) incremental(ctx context.Context, state *domain.State) error {
	start, err := r.engine.resolveBookmark(r.desc, state)
	if err != nil {
		return err
	}
	planner := NewWindowPlanner(start, r.engine.now())

	for {
		window, ok := planner.Next()
		if !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		from := domain.FormatTimestamp(window.From)
		to := domain.FormatTimestamp(window.To)
		r.logger.Info("querying window", zap.String("from", from), zap.String("to", to))

		params := url.Values{
			ParamFrom:    {from},
			ParamTo:      {to},
			ParamPerPage: {strconv.Itoa(WindowPageSize)},
		}
		rows, err := r.engine.source.Drain(ctx, r.desc.ID, params)
		if err != nil {
			return fmt.Errorf("fetch window %s: %w", window, err)
		}

		working := window.From
		for _, row := range rows {
			if err := r.emit(row); err != nil {
				return err
			}
			observed, err := r.bookmarkOf(row)
			if err != nil {
				return err
			}
			if observed.After(working) {
				working = observed
			}
		}
		r.engine.metrics.AddRecords(r.desc.ID, len(rows))

		committed := state.AdvanceBookmark(r.desc.ID, r.desc.BookmarkField, working)
		if err := r.engine.persist(ctx, state); err != nil {
			return err
		}
		r.status.WindowsCommitted++
		r.engine.metrics.ObserveCommit(r.desc.ID)
		r.logger.Info("window committed",
			zap.String("from", from),
			zap.Int("records", len(rows)),
			zap.String("bookmark", committed),
		)

		planner.Advance(working)
	}
}

// emit transforms and writes one row.
func (r *streamRun) emit(row domain.Row) error {
	record, err := transform.Transform(row, r.schema, r.md)
	if err != nil {
		return fmt.Errorf("transform record: %w", err)
	}
	record.Stream = r.desc.ID
	if err := r.engine.emitter.WriteRecord(record); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	r.status.RecordsEmitted++
	return nil
}

// bookmarkOf reads the replication key of a raw row.
func (r *streamRun) bookmarkOf(row domain.Row) (time.Time, error) {
	raw, ok := row[r.desc.BookmarkField]
	if !ok || raw == nil {
		return time.Time{}, fmt.Errorf("%w: %s", domain.ErrBookmarkMissing, r.desc.BookmarkField)
	}
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s is not a timestamp", domain.ErrBookmarkMissing, r.desc.BookmarkField)
	}
	t, err := domain.ParseTimestamp(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", domain.ErrBookmarkMissing, err)
	}
	return t, nil
}
