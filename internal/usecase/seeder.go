package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/ports"
)

const defaultCredibilityScore = 0.5

// SourceRegistry resolves and creates source records by feed URL and
// upserts operator-provided seed data.
type SourceRegistry struct {
	repository ports.Repository
	logger     *slog.Logger
}

// NewSourceRegistry wires the repository.
func NewSourceRegistry(repository ports.Repository, logger *slog.Logger) *SourceRegistry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SourceRegistry{repository: repository, logger: logger}
}

// GetOrCreate returns the source registered under feedURL, creating an
// inactive placeholder when none exists yet. Placeholders satisfy the
// articles' owning reference until an operator configures the feed.
func (r *SourceRegistry) GetOrCreate(ctx context.Context, feedURL, name string) (domain.Source, error) {
	source, err := r.repository.SourceByFeedURL(ctx, feedURL)
	if err == nil {
		return source, nil
	}
	if !errors.Is(err, ports.ErrNotFound) {
		return domain.Source{}, fmt.Errorf("lookup source: %w", err)
	}

	if name == "" {
		name = fmt.Sprintf("Unknown Source (%s)", feedURL)
	}

	created, err := r.repository.CreateSource(ctx, domain.Source{
		Name:             name,
		URL:              feedURL,
		FeedURL:          feedURL,
		CredibilityScore: defaultCredibilityScore,
		IsActive:         false,
	})
	if err != nil {
		return domain.Source{}, fmt.Errorf("create placeholder source: %w", err)
	}

	r.logger.Info("created placeholder source", "source_id", created.ID, "feed_url", feedURL)
	return created, nil
}

// SeedFromFile reads a JSON array of seed records and upserts them by
// feed URL.
func (r *SourceRegistry) SeedFromFile(ctx context.Context, path string) (domain.SeedStats, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.SeedStats{}, fmt.Errorf("read seed file: %w", err)
	}

	var seeds []domain.SourceSeed
	if err := json.Unmarshal(raw, &seeds); err != nil {
		return domain.SeedStats{}, fmt.Errorf("seed file must contain a JSON array: %w", err)
	}

	r.logger.Info("loading sources from file", "path", path, "count", len(seeds))
	return r.Seed(ctx, seeds)
}

// Seed validates every record up front, then upserts each by feed URL.
func (r *SourceRegistry) Seed(ctx context.Context, seeds []domain.SourceSeed) (domain.SeedStats, error) {
	var stats domain.SeedStats

	for i, seed := range seeds {
		if err := validateSeed(seed); err != nil {
			return domain.SeedStats{}, fmt.Errorf("invalid source data at index %d: %w", i, err)
		}
	}

	for _, seed := range seeds {
		score := defaultCredibilityScore
		if seed.CredibilityScore != nil {
			score = *seed.CredibilityScore
		}
		active := true
		if seed.IsActive != nil {
			active = *seed.IsActive
		}

		existing, err := r.repository.SourceByFeedURL(ctx, seed.FeedURL)
		switch {
		case err == nil:
			existing.Name = seed.Name
			existing.URL = seed.URL
			existing.CredibilityScore = score
			existing.IsActive = active
			if err := r.repository.UpdateSource(ctx, existing); err != nil {
				return stats, fmt.Errorf("update source %s: %w", seed.FeedURL, err)
			}
			stats.Updated++
			r.logger.Info("updated source", "source_id", existing.ID, "feed_url", seed.FeedURL)

		case errors.Is(err, ports.ErrNotFound):
			created, err := r.repository.CreateSource(ctx, domain.Source{
				Name:             seed.Name,
				URL:              seed.URL,
				FeedURL:          seed.FeedURL,
				CredibilityScore: score,
				IsActive:         active,
			})
			if err != nil {
				return stats, fmt.Errorf("create source %s: %w", seed.FeedURL, err)
			}
			stats.Created++
			r.logger.Info("created source", "source_id", created.ID, "feed_url", seed.FeedURL)

		default:
			return stats, fmt.Errorf("lookup source %s: %w", seed.FeedURL, err)
		}
	}

	r.logger.Info("source seeding completed", "created", stats.Created, "updated", stats.Updated, "skipped", stats.Skipped)
	return stats, nil
}

func validateSeed(seed domain.SourceSeed) error {
	if strings.TrimSpace(seed.Name) == "" {
		return errors.New("name must be a non-empty string")
	}
	if strings.TrimSpace(seed.URL) == "" {
		return errors.New("url must be a non-empty string")
	}
	if strings.TrimSpace(seed.FeedURL) == "" {
		return errors.New("feed_url must be a non-empty string")
	}
	if seed.CredibilityScore != nil && (*seed.CredibilityScore < 0 || *seed.CredibilityScore > 1) {
		return errors.New("credibility_score must be between 0.0 and 1.0")
	}
	return nil
}
