package processing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Hasher derives the stable deduplication key of an article. Source
// identity is deliberately excluded so identical content syndicated by
// different sources collapses to one stored row.
type Hasher struct {
	summaryPrefixLen int
}

// NewHasher bounds how much of the summary participates in the hash.
func NewHasher(summaryPrefixLen int) *Hasher {
	if summaryPrefixLen <= 0 {
		summaryPrefixLen = 100
	}
	return &Hasher{summaryPrefixLen: summaryPrefixLen}
}

// ContentHash computes
//
//	sha256(lower(trim(title)) + "|" + canonicalLink + "|" + timestampPart + "|" + summaryPrefix)
//
// where timestampPart is the RFC 3339 UTC form of published when the feed
// supplied one, and otherwise "fallback:" plus the first 8 hex chars of
// sha256(canonicalLink). The result is always 64 lowercase hex characters.
func (h *Hasher) ContentHash(title, canonicalLink string, published *time.Time, summary string) string {
	normalizedTitle := strings.ToLower(strings.TrimSpace(title))

	var timestampPart string
	if published != nil {
		timestampPart = published.UTC().Format(time.RFC3339)
	} else {
		linkSum := sha256.Sum256([]byte(canonicalLink))
		timestampPart = "fallback:" + hex.EncodeToString(linkSum[:])[:8]
	}

	summaryPrefix := summary
	if runes := []rune(summaryPrefix); len(runes) > h.summaryPrefixLen {
		summaryPrefix = string(runes[:h.summaryPrefixLen])
	}

	input := normalizedTitle + "|" + canonicalLink + "|" + timestampPart + "|" + summaryPrefix
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
