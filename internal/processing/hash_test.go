package processing

import (
	"regexp"
	"testing"
	"time"
)

var hexExpr = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestContentHashShape(t *testing.T) {
	t.Parallel()

	h := NewHasher(100)
	published := time.Date(2024, time.May, 17, 8, 30, 0, 0, time.UTC)

	got := h.ContentHash("Test Title", "https://x.com/a", &published, "summary text")
	if !hexExpr.MatchString(got) {
		t.Fatalf("hash %q is not 64 lowercase hex characters", got)
	}
}

func TestContentHashTitleCaseAndWhitespaceInvariant(t *testing.T) {
	t.Parallel()

	h := NewHasher(100)
	published := time.Date(2024, time.May, 17, 8, 30, 0, 0, time.UTC)

	a := h.ContentHash("Test Title", "https://x.com/a", &published, "s")
	b := h.ContentHash("  test TITLE  ", "https://x.com/a", &published, "s")
	if a != b {
		t.Fatalf("case/whitespace variants hashed differently: %s vs %s", a, b)
	}
}

func TestContentHashNormalizedInputsCollapse(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()
	h := NewHasher(100)
	published := time.Date(2024, time.May, 17, 8, 30, 0, 0, time.UTC)

	a := h.ContentHash(
		n.TitleForHash("  Test   Title  "),
		n.CanonicalLink("https://x.com/a?utm_source=feed"),
		&published, "",
	)
	b := h.ContentHash(
		n.TitleForHash("<b>Test</b> Title"),
		n.CanonicalLink("https://x.com/a"),
		&published, "",
	)
	if a != b {
		t.Fatalf("normalized-equivalent entries hashed differently: %s vs %s", a, b)
	}
}

func TestContentHashTimezoneInvariant(t *testing.T) {
	t.Parallel()

	h := NewHasher(100)
	utc := time.Date(2024, time.May, 17, 8, 30, 0, 0, time.UTC)
	offset := utc.In(time.FixedZone("EET", 2*60*60))

	a := h.ContentHash("title", "https://x.com/a", &utc, "s")
	b := h.ContentHash("title", "https://x.com/a", &offset, "s")
	if a != b {
		t.Fatalf("same instant in different zones hashed differently")
	}
}

func TestContentHashFallbackIsDeterministic(t *testing.T) {
	t.Parallel()

	h := NewHasher(100)

	a := h.ContentHash("title", "https://x.com/a", nil, "s")
	b := h.ContentHash("title", "https://x.com/a", nil, "s")
	if a != b {
		t.Fatalf("fallback hash is not deterministic: %s vs %s", a, b)
	}

	published := time.Date(2024, time.May, 17, 8, 30, 0, 0, time.UTC)
	c := h.ContentHash("title", "https://x.com/a", &published, "s")
	if a == c {
		t.Fatalf("fallback and dated hashes collided")
	}

	d := h.ContentHash("title", "https://x.com/b", nil, "s")
	if a == d {
		t.Fatalf("fallback hashes for different links collided")
	}
}

func TestContentHashSummaryPrefixBound(t *testing.T) {
	t.Parallel()

	h := NewHasher(10)
	published := time.Date(2024, time.May, 17, 8, 30, 0, 0, time.UTC)

	a := h.ContentHash("title", "https://x.com/a", &published, "abcdefghij tail one")
	b := h.ContentHash("title", "https://x.com/a", &published, "abcdefghij tail two")
	if a != b {
		t.Fatalf("summaries differing past the prefix hashed differently")
	}

	c := h.ContentHash("title", "https://x.com/a", &published, "abcdefghiX tail one")
	if a == c {
		t.Fatalf("summaries differing inside the prefix hashed identically")
	}
}

func TestContentHashDistinguishesFields(t *testing.T) {
	t.Parallel()

	h := NewHasher(100)
	published := time.Date(2024, time.May, 17, 8, 30, 0, 0, time.UTC)
	later := published.Add(time.Hour)

	base := h.ContentHash("title", "https://x.com/a", &published, "s")

	if got := h.ContentHash("other", "https://x.com/a", &published, "s"); got == base {
		t.Fatalf("title change did not change hash")
	}
	if got := h.ContentHash("title", "https://x.com/b", &published, "s"); got == base {
		t.Fatalf("link change did not change hash")
	}
	if got := h.ContentHash("title", "https://x.com/a", &later, "s"); got == base {
		t.Fatalf("timestamp change did not change hash")
	}
	if got := h.ContentHash("title", "https://x.com/a", &published, "other"); got == base {
		t.Fatalf("summary change did not change hash")
	}
}
