package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsIngestor/internal/ports"
)

// Scheduler wires the interval driver with the pipeline so every active
// source gets re-ingested periodically in watch mode.
type Scheduler struct {
	driver     ports.Scheduler
	pipeline   *Pipeline
	repository ports.Repository
	logger     *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring ingestion.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, repository ports.Repository, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, pipeline: pipeline, repository: repository, logger: logger}
}

// Start registers the re-ingestion job with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.runAll(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}

// runAll ingests every active source sequentially. One source failing
// never prevents the others from running.
func (s *Scheduler) runAll(ctx context.Context, trigger time.Time) {
	sources, err := s.repository.ListActiveSources(ctx)
	if err != nil {
		s.logger.Error("failed to list active sources", "error", err)
		return
	}

	s.logger.Info("scheduled ingestion pass", "trigger", trigger.Format(time.RFC3339), "sources", len(sources))

	for _, source := range sources {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.pipeline.IngestSource(ctx, source.ID); err != nil {
			s.logger.Warn("scheduled ingestion failed", "source_id", source.ID, "error", err)
		}
	}
}
