package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	configfile "github.com/custodia-labs/tap-freshcaller/internal/adapters/driven/config/file"
	"github.com/custodia-labs/tap-freshcaller/internal/adapters/driven/output/singer"
	statefile "github.com/custodia-labs/tap-freshcaller/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/tap-freshcaller/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/tap-freshcaller/internal/connectors/freshcaller"
	"github.com/custodia-labs/tap-freshcaller/internal/core/domain"
	"github.com/custodia-labs/tap-freshcaller/internal/core/ports/driven"
	"github.com/custodia-labs/tap-freshcaller/internal/core/services"
	"github.com/custodia-labs/tap-freshcaller/internal/logger"
	"github.com/custodia-labs/tap-freshcaller/internal/metrics"
)

func runTap(cmd *cobra.Command, _ []string) error {
	log, err := logger.New(logger.Options{
		Verbose:  verbose,
		Encoding: logFormat,
		Output:   cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	log = log.With(zap.String("run_id", uuid.NewString()))
	defer log.Sync() //nolint:errcheck // stderr sync errors are not actionable

	registry, err := freshcaller.NewRegistry()
	if err != nil {
		return fmt.Errorf("load streams: %w", err)
	}
	writer := singer.NewWriter(cmd.OutOrStdout())

	if discover {
		catalog, err := services.NewDiscovery(registry).Discover()
		if err != nil {
			return fmt.Errorf("discover: %w", err)
		}
		return writer.WriteCatalog(catalog)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, closeStore, err := openStateStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore() //nolint:errcheck

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	state, err := loadInitialState(ctx, store)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(registry)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	if metricsFile != "" {
		defer func() {
			if err := collector.WriteFile(metricsFile); err != nil {
				log.Error("write metrics", zap.String("path", metricsFile), zap.Error(err))
			}
		}()
	}

	client := freshcaller.NewClient(cfg.URL(), cfg.APIKey,
		freshcaller.WithRateLimiter(freshcaller.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)),
		freshcaller.WithUserAgent(cfg.UserAgent),
		freshcaller.WithLogger(log),
		freshcaller.WithMetrics(collector),
	)
	paginator := freshcaller.NewPaginator(client, registry, log)
	engine := services.NewSyncEngine(paginator, registry, writer, store, cfg.StartDate,
		services.WithEngineLogger(log),
		services.WithEngineMetrics(collector),
	)

	if dryRun {
		return printPlan(cmd, engine, catalog, state)
	}

	log.Info("sync started", zap.String("url", cfg.URL()), zap.Time("start_date", cfg.StartDate))
	syncErr := engine.Sync(ctx, catalog, state)
	for _, status := range engine.Summary() {
		log.Info("stream finished",
			zap.String("stream", status.StreamID),
			zap.Int("records", status.RecordsEmitted),
			zap.Int("windows", status.WindowsCommitted),
			zap.Duration("duration", status.Duration),
		)
	}
	if syncErr != nil {
		if freshcaller.IsUnauthorized(syncErr) {
			log.Error("the API key was rejected; check api_key in the config")
		}
		return syncErr
	}

	log.Info("sync finished")
	return nil
}

// printPlan lists the windows each selected incremental stream would query.
func printPlan(cmd *cobra.Command, engine *services.SyncEngine, catalog domain.Catalog, state *domain.State) error {
	for _, entry := range catalog.SelectedStreams(state.CurrentlySyncing) {
		windows, err := engine.Plan(entry.TapStreamID, state)
		if err != nil {
			return fmt.Errorf("plan %s: %w", entry.TapStreamID, err)
		}
		if windows == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tfull table\n", entry.TapStreamID)
			continue
		}
		for _, w := range windows {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", entry.TapStreamID,
				domain.FormatTimestamp(w.From), domain.FormatTimestamp(w.To))
		}
	}
	return nil
}

func loadConfig() (*freshcaller.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("%w: --config is required", domain.ErrInvalidInput)
	}
	store, err := configfile.NewConfigStore(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg, err := freshcaller.ParseConfig(store)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openStateStore opens the durable store selected by the config. The store
// is nil when state is only emitted.
func openStateStore(cfg *freshcaller.Config) (driven.StateStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StateBackend {
	case freshcaller.StateBackendFile:
		return statefile.NewStateStore(cfg.StatePath), noop, nil
	case freshcaller.StateBackendSQLite:
		db, err := sqlite.NewStore(cfg.StatePath)
		if err != nil {
			return nil, noop, fmt.Errorf("open state database: %w", err)
		}
		return db.StateStore(), db.Close, nil
	default:
		return nil, noop, nil
	}
}

// loadInitialState prefers the --state file, then the durable store, then
// an empty state.
func loadInitialState(ctx context.Context, store driven.StateStore) (*domain.State, error) {
	if statePath != "" {
		state, err := statefile.ReadState(statePath)
		if err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}
		return state, nil
	}

	if store != nil {
		state, err := store.Load(ctx)
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("load state: %w", err)
		default:
			return state, nil
		}
	}

	return domain.NewState(), nil
}

// loadCatalog reads the --catalog file. Without one, every stream is
// discovered and selected.
func loadCatalog(registry driven.StreamRegistry) (domain.Catalog, error) {
	if catalogPath == "" {
		catalog, err := services.NewDiscovery(registry).Discover()
		if err != nil {
			return domain.Catalog{}, fmt.Errorf("discover: %w", err)
		}
		catalog.SelectAll()
		return catalog, nil
	}

	data, err := os.ReadFile(catalogPath)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	var catalog domain.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return domain.Catalog{}, fmt.Errorf("%w: parse catalog: %w", domain.ErrInvalidInput, err)
	}
	return catalog, nil
}
