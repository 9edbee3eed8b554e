package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/feedsource"
	"NewsIngestor/internal/ports"
	"NewsIngestor/internal/processing"
)

const lastErrorMaxLen = 1000

// PipelineDeps wires all driven adapters into the ingestion pipeline.
type PipelineDeps struct {
	Repository ports.Repository
	Sources    *SourceRegistry
	Providers  *feedsource.Registry
	Normalizer *processing.Normalizer
	Hasher     *processing.Hasher
	Logger     *slog.Logger
}

// Pipeline drives one ingestion run: resolve source, fetch, normalize,
// deduplicate by content hash, stage inserts in one transaction, then
// update source health best-effort.
type Pipeline struct {
	repository ports.Repository
	sources    *SourceRegistry
	providers  *feedsource.Registry
	normalizer *processing.Normalizer
	hasher     *processing.Hasher
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		repository: deps.Repository,
		sources:    deps.Sources,
		providers:  deps.Providers,
		normalizer: deps.Normalizer,
		hasher:     deps.Hasher,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// IngestURL ingests a feed by URL, creating an inactive placeholder source
// when the URL is not registered yet.
func (p *Pipeline) IngestURL(ctx context.Context, feedURL string) (domain.IngestStats, error) {
	source, err := p.sources.GetOrCreate(ctx, feedURL, "")
	if err != nil {
		return domain.IngestStats{Errors: 1}, fmt.Errorf("resolve source: %w", err)
	}
	return p.run(ctx, source, "http", feedURL)
}

// IngestSource ingests the feed of an already registered source.
func (p *Pipeline) IngestSource(ctx context.Context, sourceID int64) (domain.IngestStats, error) {
	source, err := p.repository.SourceByID(ctx, sourceID)
	if err != nil {
		return domain.IngestStats{Errors: 1}, fmt.Errorf("resolve source %d: %w", sourceID, err)
	}
	return p.run(ctx, source, "http", source.FeedURL)
}

// IngestFile ingests a local feed file, bypassing network fetch and URL
// validation.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (domain.IngestStats, error) {
	name := fmt.Sprintf("Local File (%s)", filepath.Base(path))
	source, err := p.sources.GetOrCreate(ctx, "file://"+path, name)
	if err != nil {
		return domain.IngestStats{Errors: 1}, fmt.Errorf("resolve source: %w", err)
	}
	return p.run(ctx, source, "file", path)
}

func (p *Pipeline) run(ctx context.Context, source domain.Source, providerName, ref string) (domain.IngestStats, error) {
	var stats domain.IngestStats

	logger := p.logger.With("run_id", uuid.NewString(), "source_id", source.ID, "ref", ref)
	started := p.now()

	defer func() {
		logger.Info("ingestion completed",
			"duration", p.now().Sub(started).Round(time.Millisecond),
			"parsed", stats.Parsed,
			"inserted", stats.Inserted,
			"skipped", stats.Skipped,
			"errors", stats.Errors)
	}()

	provider, err := p.providers.Resolve(providerName)
	if err != nil {
		stats.Errors++
		return stats, err
	}

	logger.Info("starting ingestion", "source_name", source.Name)

	entries, err := provider.Fetch(ctx, ref)
	if err != nil {
		stats.Errors++
		p.recordFailure(ctx, logger, source, err)
		return stats, fmt.Errorf("fetch feed: %w", err)
	}

	if len(entries) == 0 {
		logger.Warn("feed contains no entries")
		return stats, nil
	}

	stats.Parsed = len(entries)

	tx, err := p.repository.Begin(ctx)
	if err != nil {
		stats.Errors++
		p.recordFailure(ctx, logger, source, err)
		return stats, fmt.Errorf("begin run: %w", err)
	}

	for _, entry := range entries {
		if err := p.processEntry(ctx, tx, source.ID, entry, &stats); err != nil {
			stats.Errors++
			logger.Warn("failed to process entry", "entry_title", entry.Title, "error", err)
		}
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		// The whole batch is gone; everything staged counts as an error.
		stats.Errors += stats.Inserted
		stats.Inserted = 0
		p.recordFailure(ctx, logger, source, err)
		return stats, err
	}

	p.recordSuccess(ctx, logger, source)
	return stats, nil
}

// processEntry maps, validates, dedupe-checks and stages one entry. A
// returned error covers exactly one entry and never aborts the run.
func (p *Pipeline) processEntry(ctx context.Context, tx ports.Tx, sourceID int64, entry feedsource.Entry, stats *domain.IngestStats) error {
	normalized, err := p.mapEntry(entry)
	if err != nil {
		return err
	}

	article := p.buildArticle(sourceID, normalized)
	if err := validateArticle(article); err != nil {
		return err
	}

	exists, err := tx.ArticleExists(ctx, article.ContentHash)
	if err != nil {
		return fmt.Errorf("dedupe check: %w", err)
	}
	if exists {
		stats.Skipped++
		return nil
	}

	if _, err := tx.InsertArticle(ctx, article); err != nil {
		// A concurrent run inserting the same hash between our check and
		// insert is a duplicate, not a failure: the store's uniqueness
		// constraint is the authority, not the pre-check.
		if errors.Is(err, ports.ErrDuplicateArticle) {
			stats.Skipped++
			return nil
		}
		return fmt.Errorf("insert article: %w", err)
	}

	stats.Inserted++
	return nil
}

// mapEntry normalizes one raw entry. Every optional field is read behind
// an explicit present-or-default decision.
func (p *Pipeline) mapEntry(entry feedsource.Entry) (domain.NormalizedEntry, error) {
	link := entry.Link
	if link == "" {
		link = entry.AlternateLink
	}
	if link == "" {
		return domain.NormalizedEntry{}, errors.New("entry missing required link")
	}

	publishedRaw := entry.Published
	if publishedRaw == "" {
		publishedRaw = entry.Updated
	}
	publishedAt, hasPublished := p.normalizer.PublishedDate(publishedRaw)

	return domain.NormalizedEntry{
		Title:        p.normalizer.Title(entry.Title),
		TitleForHash: p.normalizer.TitleForHash(entry.Title),
		Link:         p.normalizer.CanonicalLink(link),
		Summary:      p.normalizer.Summary(entry.Summary),
		Author:       p.normalizer.Author(entry.Author),
		Tags:         p.normalizer.Tags(entry.Tags),
		PublishedAt:  publishedAt,
		HasPublished: hasPublished,
	}, nil
}

func (p *Pipeline) buildArticle(sourceID int64, entry domain.NormalizedEntry) domain.Article {
	hashSummary := entry.Summary
	if hashSummary == processing.NoSummaryPlaceholder {
		hashSummary = ""
	}

	var published *time.Time
	if entry.HasPublished {
		published = &entry.PublishedAt
	}

	article := domain.Article{
		SourceID:    sourceID,
		Title:       entry.Title,
		Link:        entry.Link,
		ContentHash: p.hasher.ContentHash(entry.TitleForHash, entry.Link, published, hashSummary),
		PublishedAt: entry.PublishedAt,
		Tags:        entry.Tags,
	}

	if entry.Summary != processing.NoSummaryPlaceholder {
		summary := entry.Summary
		article.Summary = &summary
	}
	if entry.Author != processing.NoAuthorPlaceholder {
		author := entry.Author
		article.Author = &author
	}

	return article
}

func validateArticle(article domain.Article) error {
	if article.SourceID <= 0 {
		return errors.New("article requires a positive source id")
	}
	if article.Title == "" {
		return errors.New("article requires a title")
	}
	if article.Link == "" {
		return errors.New("article requires a link")
	}
	if len(article.ContentHash) != 64 {
		return fmt.Errorf("content hash must be 64 hex chars, got %d", len(article.ContentHash))
	}
	if article.PublishedAt.IsZero() {
		return errors.New("article requires a published timestamp")
	}
	return nil
}

// recordSuccess resets the source's failure bookkeeping. Health writes are
// best-effort: a failure here is logged and never overrides the run result.
func (p *Pipeline) recordSuccess(ctx context.Context, logger *slog.Logger, source domain.Source) {
	fetchedAt := p.now().UTC()
	health := domain.SourceHealth{LastFetchedAt: &fetchedAt, ErrorCount: 0}
	if err := p.repository.UpdateSourceHealth(ctx, source.ID, health); err != nil {
		logger.Warn("failed to update source health", "error", err)
	}
}

func (p *Pipeline) recordFailure(ctx context.Context, logger *slog.Logger, source domain.Source, cause error) {
	message := cause.Error()
	if len(message) > lastErrorMaxLen {
		message = message[:lastErrorMaxLen]
	}

	health := domain.SourceHealth{ErrorCount: source.ErrorCount + 1, LastError: &message}
	if err := p.repository.UpdateSourceHealth(ctx, source.ID, health); err != nil {
		logger.Warn("failed to update source health", "error", err)
	}
}
