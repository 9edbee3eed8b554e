package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"NewsIngestor/internal/config"
	"NewsIngestor/internal/processing"
)

func newFileSource() *FileSource {
	decoder := processing.NewDecoder(config.EncodingConfig{
		AllowedEncodings: []string{"utf-8", "ascii", "iso-8859-1"},
		ConfidenceMin:    0,
		SampleSize:       8192,
	}, nil)
	return NewFileSource(decoder, nil)
}

func TestFileSourceParsesLocalFeed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "feed.xml")
	if err := os.WriteFile(path, []byte(rssFixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	entries, err := newFileSource().Fetch(context.Background(), path)
	if err != nil {
		t.Fatalf("fetch file: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Title != "First Post" {
		t.Fatalf("title = %q", entries[0].Title)
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := newFileSource().Fetch(context.Background(), filepath.Join(t.TempDir(), "absent.xml")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestFileSourceHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "feed.xml")
	if err := os.WriteFile(path, []byte(rssFixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newFileSource().Fetch(ctx, path); err == nil {
		t.Fatal("expected context error")
	}
}
