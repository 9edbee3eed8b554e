package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/ports"
)

const uniqueViolationCode = "23505"

var sourceColumns = []string{
	"id", "name", "url", "feed_url", "credibility_score",
	"is_active", "last_fetched_at", "last_error", "error_count",
}

// PostgresRepository persists sources and articles into Postgres. Article
// uniqueness on content_hash is enforced by the schema and is what makes
// concurrent ingestion of the same content safe.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.Repository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureSchema creates the tables and uniqueness constraints when absent.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sources (
            id BIGSERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            url TEXT NOT NULL,
            feed_url TEXT NOT NULL UNIQUE,
            credibility_score DOUBLE PRECISION NOT NULL DEFAULT 0.5,
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            last_fetched_at TIMESTAMPTZ,
            last_error TEXT,
            error_count INTEGER NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS articles (
            id BIGSERIAL PRIMARY KEY,
            source_id BIGINT NOT NULL REFERENCES sources(id),
            title TEXT NOT NULL,
            link TEXT NOT NULL,
            summary TEXT,
            content_hash CHAR(64) NOT NULL UNIQUE,
            published_at TIMESTAMPTZ NOT NULL,
            author TEXT,
            tags TEXT[] NOT NULL DEFAULT '{}'
        )`,
		`CREATE INDEX IF NOT EXISTS idx_articles_source_id ON articles (source_id)`,
	}

	for _, statement := range statements {
		if _, err := r.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SourceByFeedURL looks a source up by its unique feed URL.
func (r *PostgresRepository) SourceByFeedURL(ctx context.Context, feedURL string) (domain.Source, error) {
	return r.querySource(ctx, sq.Eq{"feed_url": feedURL})
}

// SourceByID looks a source up by primary key.
func (r *PostgresRepository) SourceByID(ctx context.Context, id int64) (domain.Source, error) {
	return r.querySource(ctx, sq.Eq{"id": id})
}

func (r *PostgresRepository) querySource(ctx context.Context, where sq.Eq) (domain.Source, error) {
	query, args, err := r.builder.
		Select(sourceColumns...).
		From("sources").
		Where(where).
		ToSql()
	if err != nil {
		return domain.Source{}, fmt.Errorf("build source query: %w", err)
	}

	source, err := scanSource(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Source{}, ports.ErrNotFound
	}
	if err != nil {
		return domain.Source{}, fmt.Errorf("query source: %w", err)
	}
	return source, nil
}

// CreateSource inserts a source and returns it with its assigned id.
func (r *PostgresRepository) CreateSource(ctx context.Context, source domain.Source) (domain.Source, error) {
	query, args, err := r.builder.
		Insert("sources").
		Columns("name", "url", "feed_url", "credibility_score", "is_active", "error_count").
		Values(source.Name, source.URL, source.FeedURL, source.CredibilityScore, source.IsActive, source.ErrorCount).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return domain.Source{}, fmt.Errorf("build source insert: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&source.ID); err != nil {
		return domain.Source{}, fmt.Errorf("insert source: %w", err)
	}
	return source, nil
}

// UpdateSource rewrites the operator-managed fields of an existing source.
func (r *PostgresRepository) UpdateSource(ctx context.Context, source domain.Source) error {
	query, args, err := r.builder.
		Update("sources").
		Set("name", source.Name).
		Set("url", source.URL).
		Set("credibility_score", source.CredibilityScore).
		Set("is_active", source.IsActive).
		Where(sq.Eq{"id": source.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build source update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	return nil
}

// ListActiveSources returns every source flagged active, oldest fetch first.
func (r *PostgresRepository) ListActiveSources(ctx context.Context) ([]domain.Source, error) {
	query, args, err := r.builder.
		Select(sourceColumns...).
		From("sources").
		Where(sq.Eq{"is_active": true}).
		OrderBy("last_fetched_at ASC NULLS FIRST").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active sources query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query active sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return sources, nil
}

// UpdateSourceHealth writes post-run bookkeeping. Callers treat failures
// as best-effort and may ignore the returned error.
func (r *PostgresRepository) UpdateSourceHealth(ctx context.Context, sourceID int64, health domain.SourceHealth) error {
	update := r.builder.
		Update("sources").
		Set("error_count", health.ErrorCount).
		Set("last_error", health.LastError).
		Where(sq.Eq{"id": sourceID})

	if health.LastFetchedAt != nil {
		update = update.Set("last_fetched_at", *health.LastFetchedAt)
	}

	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build health update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update source health: %w", err)
	}
	return nil
}

// Begin opens the transaction that stages one ingestion run.
func (r *PostgresRepository) Begin(ctx context.Context) (ports.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &postgresTx{tx: tx, builder: r.builder}, nil
}

type postgresTx struct {
	tx      *sql.Tx
	builder sq.StatementBuilderType
}

var _ ports.Tx = (*postgresTx)(nil)

// ArticleExists reports whether an article with the hash is already stored
// or staged in this transaction.
func (t *postgresTx) ArticleExists(ctx context.Context, contentHash string) (bool, error) {
	query, args, err := t.builder.
		Select("1").
		From("articles").
		Where(sq.Eq{"content_hash": contentHash}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build existence query: %w", err)
	}

	var one int
	err = t.tx.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query article existence: %w", err)
	}
	return true, nil
}

// InsertArticle stages one article. ON CONFLICT DO NOTHING keeps the
// transaction usable when a concurrent run wins the uniqueness race, which
// surfaces here as ports.ErrDuplicateArticle.
func (t *postgresTx) InsertArticle(ctx context.Context, article domain.Article) (domain.Article, error) {
	query, args, err := t.builder.
		Insert("articles").
		Columns("source_id", "title", "link", "summary", "content_hash", "published_at", "author", "tags").
		Values(
			article.SourceID,
			article.Title,
			article.Link,
			article.Summary,
			article.ContentHash,
			article.PublishedAt.UTC(),
			article.Author,
			pq.Array(article.Tags),
		).
		Suffix("ON CONFLICT (content_hash) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build article insert: %w", err)
	}

	err = t.tx.QueryRowContext(ctx, query, args...).Scan(&article.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, ports.ErrDuplicateArticle
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode {
		return domain.Article{}, ports.ErrDuplicateArticle
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("insert article: %w", err)
	}
	return article, nil
}

func (t *postgresTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

func (t *postgresTx) Rollback() error {
	return t.tx.Rollback()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (domain.Source, error) {
	var (
		source      domain.Source
		lastFetched sql.NullTime
		lastError   sql.NullString
	)

	err := row.Scan(
		&source.ID,
		&source.Name,
		&source.URL,
		&source.FeedURL,
		&source.CredibilityScore,
		&source.IsActive,
		&lastFetched,
		&lastError,
		&source.ErrorCount,
	)
	if err != nil {
		return domain.Source{}, err
	}

	if lastFetched.Valid {
		fetchedAt := lastFetched.Time.UTC()
		source.LastFetchedAt = &fetchedAt
	}
	if lastError.Valid {
		message := lastError.String
		source.LastError = &message
	}
	return source, nil
}
