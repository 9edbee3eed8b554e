package ports

import (
	"context"
	"errors"
	"time"

	"NewsIngestor/internal/domain"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("not found")

// ErrDuplicateArticle is returned by Tx.InsertArticle when another run won
// the content-hash uniqueness race. Callers treat it as a skip, not a failure.
var ErrDuplicateArticle = errors.New("article with content hash already exists")

// Repository persists sources and articles for deduplication and health
// bookkeeping. Content-hash uniqueness is enforced by the store itself and
// is the sole concurrency-safety mechanism between ingestion runs.
type Repository interface {
	SourceByFeedURL(ctx context.Context, feedURL string) (domain.Source, error)
	SourceByID(ctx context.Context, id int64) (domain.Source, error)
	CreateSource(ctx context.Context, source domain.Source) (domain.Source, error)
	UpdateSource(ctx context.Context, source domain.Source) error
	ListActiveSources(ctx context.Context) ([]domain.Source, error)

	// UpdateSourceHealth is best-effort: callers may ignore its error.
	UpdateSourceHealth(ctx context.Context, sourceID int64, health domain.SourceHealth) error

	// Begin opens the transaction that stages one ingestion run's inserts.
	Begin(ctx context.Context) (Tx, error)
}

// Tx scopes the article writes of a single ingestion run. Either Commit
// makes the whole batch visible or Rollback discards it.
type Tx interface {
	ArticleExists(ctx context.Context, contentHash string) (bool, error)
	InsertArticle(ctx context.Context, article domain.Article) (domain.Article, error)
	Commit() error
	Rollback() error
}

// Scheduler controls when recurring ingestion jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
