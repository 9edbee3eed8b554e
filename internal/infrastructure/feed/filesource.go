package feed

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"NewsIngestor/internal/feedsource"
	"NewsIngestor/internal/processing"
)

// FileSource reads a feed from a local file, bypassing network fetch and
// URL validation. Used for fixture-driven ingestion and smoke testing.
type FileSource struct {
	decoder *processing.Decoder
	logger  *slog.Logger
}

var _ feedsource.Provider = (*FileSource)(nil)

// NewFileSource wires the shared encoding normalizer.
func NewFileSource(decoder *processing.Decoder, logger *slog.Logger) *FileSource {
	return &FileSource{decoder: decoder, logger: logger}
}

// Name identifies the provider inside the registry.
func (s *FileSource) Name() string {
	return "file"
}

// Fetch reads and parses the file at path.
func (s *FileSource) Fetch(ctx context.Context, path string) ([]feedsource.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feed file: %w", err)
	}

	return parseEntries(s.decoder.DecodeBytes(raw), s.logger)
}
