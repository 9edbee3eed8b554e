package domain

import "time"

// Source is a registered feed provider. Placeholder sources are created
// inactive when a bare feed URL is ingested before an operator configures it.
type Source struct {
	ID               int64
	Name             string
	URL              string
	FeedURL          string
	CredibilityScore float64
	IsActive         bool
	LastFetchedAt    *time.Time
	LastError        *string
	ErrorCount       int
}

// Article is the canonical stored form of one feed entry. Rows are
// append-only: once inserted under a content hash they are never mutated
// or deleted by the ingestion subsystem.
type Article struct {
	ID          int64
	SourceID    int64
	Title       string
	Link        string
	Summary     *string
	ContentHash string
	PublishedAt time.Time
	Author      *string
	Tags        []string
}

// NormalizedEntry is the ephemeral canonical form of one feed item after
// sanitization. It lives only for the duration of a single ingestion run.
type NormalizedEntry struct {
	Title        string
	TitleForHash string
	Link         string
	Summary      string
	Author       string
	Tags         []string
	PublishedAt  time.Time
	// HasPublished reports whether the feed supplied a parseable timestamp;
	// when false the hasher uses its link-derived fallback component.
	HasPublished bool
}

// IngestStats accumulates per-run counters returned to the caller.
type IngestStats struct {
	Parsed   int
	Inserted int
	Skipped  int
	Errors   int
}

// SeedStats reports the outcome of a source seeding pass.
type SeedStats struct {
	Created int
	Updated int
	Skipped int
}

// SourceHealth carries the best-effort bookkeeping written back to a
// source after each ingestion attempt.
type SourceHealth struct {
	LastFetchedAt *time.Time
	ErrorCount    int
	LastError     *string
}

// SourceSeed is one record from the seed file, upserted by feed URL.
type SourceSeed struct {
	Name             string   `json:"name"`
	URL              string   `json:"url"`
	FeedURL          string   `json:"feed_url"`
	CredibilityScore *float64 `json:"credibility_score,omitempty"`
	IsActive         *bool    `json:"is_active,omitempty"`
}
