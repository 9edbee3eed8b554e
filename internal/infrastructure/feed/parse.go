package feed

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"

	"NewsIngestor/internal/feedsource"
)

// parseEntries turns decoded feed text into tolerant entries. gofeed
// handles RSS, Atom and JSON Feed; items missing optional fields come back
// with zero values rather than a reflection probe downstream.
func parseEntries(text string, logger *slog.Logger) ([]feedsource.Entry, error) {
	parsed, err := gofeed.NewParser().ParseString(text)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entries := make([]feedsource.Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}

		entry := feedsource.Entry{
			Title:     item.Title,
			Link:      strings.TrimSpace(item.Link),
			Summary:   item.Description,
			Published: item.Published,
			Updated:   item.Updated,
			Tags:      item.Categories,
		}

		if entry.Summary == "" {
			entry.Summary = item.Content
		}

		for _, alt := range item.Links {
			alt = strings.TrimSpace(alt)
			if alt != "" && alt != entry.Link {
				entry.AlternateLink = alt
				break
			}
		}

		for _, person := range item.Authors {
			if person == nil {
				continue
			}
			if person.Name != "" {
				entry.Author = person.Name
				break
			}
			if person.Email != "" {
				entry.Author = person.Email
				break
			}
		}

		entries = append(entries, entry)
	}

	if logger != nil && len(parsed.Items) == 0 {
		logger.Warn("feed parsed without entries", "feed_title", parsed.Title)
	}

	return entries, nil
}
