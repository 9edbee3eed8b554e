package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"NewsIngestor/internal/config"
	"NewsIngestor/internal/feedsource"
	"NewsIngestor/internal/processing"
	"NewsIngestor/internal/security"
)

// ErrTooLarge means the response exceeded the configured size cap. It is
// never retried.
var ErrTooLarge = errors.New("response too large")

// StatusError is a completed HTTP exchange that ended in a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %s", e.Status)
}

// Fetcher retrieves and parses a feed over HTTP with the security and
// retry posture the pipeline requires: URL validation before any I/O, TLS
// verification on, capped redirects, bounded response size and capped
// exponential-backoff retries.
type Fetcher struct {
	client    *http.Client
	checker   *security.Checker
	decoder   *processing.Decoder
	retry     *RetryPolicy
	userAgent string
	maxBytes  int64
	logger    *slog.Logger
}

var _ feedsource.Provider = (*Fetcher)(nil)

// NewFetcher wires an HTTP client from ingestion configuration. A nil
// client argument gets a default with the configured timeout and redirect
// cap; tests inject httptest clients.
func NewFetcher(cfg config.IngestionConfig, client *http.Client, checker *security.Checker, decoder *processing.Decoder, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout()}
	}

	maxRedirects := cfg.MaxRedirects
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}

	secToDuration := func(sec float64) time.Duration {
		return time.Duration(sec * float64(time.Second))
	}

	return &Fetcher{
		client:    client,
		checker:   checker,
		decoder:   decoder,
		retry:     NewRetryPolicy(cfg.MaxRetries, secToDuration(cfg.BackoffBaseSec), secToDuration(cfg.BackoffJitterSec), secToDuration(cfg.TotalRetryCapSec)),
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxResponseBytes(),
		logger:    logger,
	}
}

// Name identifies the provider inside the registry.
func (f *Fetcher) Name() string {
	return "http"
}

// Fetch validates the URL, then attempts the fetch-and-parse with retries.
// The last observed error is returned verbatim when all attempts are
// exhausted.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]feedsource.Entry, error) {
	if err := f.checker.Check(feedURL); err != nil {
		return nil, err
	}
	return f.fetchWithRetry(ctx, feedURL)
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, feedURL string) ([]feedsource.Entry, error) {
	var (
		lastErr error
		waited  time.Duration
	)

	for attempt := 0; attempt <= f.retry.MaxRetries(); attempt++ {
		f.debug("fetching feed", "url", feedURL, "attempt", attempt+1)

		entries, err := f.attempt(ctx, feedURL)
		if err == nil {
			f.info("fetched feed", "url", feedURL, "entries", len(entries), "attempt", attempt+1)
			return entries, nil
		}

		lastErr = err
		f.warn("feed fetch failed", "url", feedURL, "attempt", attempt+1, "error", err)

		if errors.Is(err, ErrTooLarge) || ctx.Err() != nil {
			break
		}
		if attempt == f.retry.MaxRetries() {
			break
		}

		canContinue, waitErr := f.retry.Wait(ctx, attempt, &waited)
		if waitErr != nil {
			break
		}
		if !canContinue {
			f.warn("retry time budget exhausted", "url", feedURL, "waited", waited)
			break
		}
	}

	return nil, lastErr
}

func (f *Fetcher) attempt(ctx context.Context, feedURL string) ([]feedsource.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: content-length %d bytes (max %d)", ErrTooLarge, resp.ContentLength, f.maxBytes)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes received (max %d)", ErrTooLarge, len(body), f.maxBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return parseEntries(f.decoder.DecodeBytes(body), f.logger)
}

func (f *Fetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

func (f *Fetcher) info(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Info(msg, args...)
	}
}

func (f *Fetcher) warn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
