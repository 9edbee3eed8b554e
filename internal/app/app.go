package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"NewsIngestor/internal/config"
	"NewsIngestor/internal/feedsource"
	"NewsIngestor/internal/infrastructure/feed"
	"NewsIngestor/internal/infrastructure/scheduler"
	"NewsIngestor/internal/infrastructure/storage"
	"NewsIngestor/internal/logging"
	"NewsIngestor/internal/processing"
	"NewsIngestor/internal/security"
	"NewsIngestor/internal/usecase"
)

// Application wires configuration to the ingestion use cases.
type Application struct {
	cfg      config.Config
	db       *sql.DB
	pipeline *usecase.Pipeline
	sources  *usecase.SourceRegistry
	watcher  *usecase.Scheduler
}

// New builds a runnable application instance, connecting to Postgres and
// bootstrapping the schema.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repository := storage.NewPostgresRepository(db)
	if err := repository.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	checker := security.NewChecker(cfg.Security, baseLogger.With("component", "security"))
	decoder := processing.NewDecoder(cfg.Encoding, baseLogger.With("component", "encoding"))
	normalizer := processing.NewNormalizer(cfg.Normalization.TrackingParams, cfg.Ingestion.SummaryMaxLen, baseLogger.With("component", "normalizer"))
	hasher := processing.NewHasher(cfg.Ingestion.HashSummaryPrefix)

	providers := feedsource.NewRegistry()
	providers.Register(feed.NewFetcher(cfg.Ingestion, nil, checker, decoder, baseLogger.With("component", "fetcher")))
	providers.Register(feed.NewFileSource(decoder, baseLogger.With("component", "filesource")))

	sources := usecase.NewSourceRegistry(repository, baseLogger.With("component", "sources"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Repository: repository,
		Sources:    sources,
		Providers:  providers,
		Normalizer: normalizer,
		Hasher:     hasher,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	watcher := usecase.NewScheduler(
		scheduler.NewIntervalScheduler(cfg.Scheduler.Interval()),
		pipeline,
		repository,
		baseLogger.With("component", "scheduler"),
	)

	return &Application{
		cfg:      cfg,
		db:       db,
		pipeline: pipeline,
		sources:  sources,
		watcher:  watcher,
	}, nil
}

// Pipeline exposes the ingestion orchestrator to the CLI layer.
func (a *Application) Pipeline() *usecase.Pipeline {
	return a.pipeline
}

// Sources exposes the source registry to the CLI layer.
func (a *Application) Sources() *usecase.SourceRegistry {
	return a.sources
}

// Watch re-ingests all active sources on the configured interval until the
// context is cancelled.
func (a *Application) Watch(ctx context.Context) error {
	if err := a.watcher.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return a.watcher.Stop(context.Background())
}

// Close releases the database connection.
func (a *Application) Close() error {
	return a.db.Close()
}
