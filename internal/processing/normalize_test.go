package processing

import (
	"strings"
	"testing"
	"time"
)

var testTrackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"fbclid", "gclid", "msclkid", "ref", "source", "medium",
}

func newTestNormalizer() *Normalizer {
	return NewNormalizer(testTrackingParams, 4000, nil)
}

func TestTitleCollapsesWhitespace(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()
	if got := n.Title("  Test   Title  "); got != "Test Title" {
		t.Fatalf("Title = %q, want %q", got, "Test Title")
	}
}

func TestTitleStripsMarkup(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()

	cases := map[string]string{
		"<b>Breaking</b> News":                        "Breaking News",
		"<script>alert('x')</script>Hello <i>там</i>": "Hello там",
		"News &amp; Updates":                          "News & Updates",
		"<div><p>Nested</p></div>":                    "Nested",
	}

	for input, want := range cases {
		got := n.Title(input)
		if got != want {
			t.Fatalf("Title(%q) = %q, want %q", input, got, want)
		}
		if strings.ContainsAny(got, "<>") {
			t.Fatalf("Title(%q) kept angle brackets: %q", input, got)
		}
	}
}

func TestTitleDropsSQLPatterns(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()
	if got := n.Title("DROP TABLE users; --"); got != "users" {
		t.Fatalf("Title = %q, want %q", got, "users")
	}
	if got := n.Title("delete from accounts now"); strings.Contains(strings.ToLower(got), "delete from") {
		t.Fatalf("SQL pattern survived: %q", got)
	}
}

func TestTitleEmptyBecomesPlaceholder(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()
	for _, input := range []string{"", "   ", "<b></b>"} {
		if got := n.Title(input); got != UntitledPlaceholder {
			t.Fatalf("Title(%q) = %q, want placeholder", input, got)
		}
	}
}

func TestTitleUnicodeNormalization(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()

	if got := n.Title("ﬁsh"); got != "fish" {
		t.Fatalf("ligature not normalized: %q", got)
	}

	composed := n.Title("caf\u00e9")
	decomposed := n.Title("cafe\u0301")
	if composed != decomposed {
		t.Fatalf("composed %q != decomposed %q", composed, decomposed)
	}
}

func TestTitleForHashLowercases(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()
	if got := n.TitleForHash("  Test   TITLE  "); got != "test title" {
		t.Fatalf("TitleForHash = %q, want %q", got, "test title")
	}
}

func TestCanonicalLink(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()

	cases := map[string]string{
		"https://x.com/a?utm_source=feed":          "https://x.com/a",
		"HTTP://Example.COM:80/path/":              "http://example.com/path",
		"https://example.com:443/article":          "https://example.com/article",
		"https://x.com/a?b=2&a=1&UTM_MEDIUM=email": "https://x.com/a?a=1&b=2",
		"https://x.com/a#section":                  "https://x.com/a",
		"https://x.com/":                           "https://x.com/",
		"https://x.com/a?fbclid=123&gclid=456":     "https://x.com/a",
	}

	for input, want := range cases {
		if got := n.CanonicalLink(input); got != want {
			t.Fatalf("CanonicalLink(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCanonicalLinkEmpty(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()
	if got := n.CanonicalLink("   "); got != "" {
		t.Fatalf("CanonicalLink of blank = %q, want empty", got)
	}
}

func TestSummarySanitizesScriptsAndTriggers(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()

	cases := map[string]string{
		"<script>bad()</script><p>Hello &amp; welcome</p>": "Hello & welcome",
		"javascript:evil text":                              "evil text",
		"Click <a onclick=steal()>here</a> now":             "Click here now",
		"plain summary already":                              "plain summary already",
	}

	for input, want := range cases {
		got := n.Summary(input)
		if got != want {
			t.Fatalf("Summary(%q) = %q, want %q", input, got, want)
		}
		if strings.ContainsAny(got, "<>") {
			t.Fatalf("Summary(%q) kept angle brackets: %q", input, got)
		}
	}
}

func TestSummaryTruncates(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(testTrackingParams, 10, nil)
	got := n.Summary("0123456789 overflow text")
	if runes := []rune(got); len(runes) > 10 {
		t.Fatalf("summary not truncated: %q (%d runes)", got, len(runes))
	}
}

func TestSummaryEmptyBecomesPlaceholder(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()
	for _, input := range []string{"", "  ", "<p></p>"} {
		if got := n.Summary(input); got != NoSummaryPlaceholder {
			t.Fatalf("Summary(%q) = %q, want placeholder", input, got)
		}
	}
}

func TestAuthor(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()
	if got := n.Author(" Jane <b>Doe</b> "); got != "Jane Doe" {
		t.Fatalf("Author = %q", got)
	}
	if got := n.Author(""); got != NoAuthorPlaceholder {
		t.Fatalf("empty author = %q, want placeholder", got)
	}
}

func TestTagsDeduplicateAndSort(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()
	got := n.Tags([]string{"Tech", "tech", " AI ", "<b>News</b>", "", "TECH"})

	want := []string{"AI", "News", "Tech"}
	if len(got) != len(want) {
		t.Fatalf("Tags = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Tags = %v, want %v", got, want)
		}
	}
}

func TestPublishedDateParsesManyFormats(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()

	cases := map[string]time.Time{
		"Mon, 02 Jan 2006 15:04:05 -0700": time.Date(2006, time.January, 2, 22, 4, 5, 0, time.UTC),
		"2024-05-17T08:30:00Z":            time.Date(2024, time.May, 17, 8, 30, 0, 0, time.UTC),
		"2024-05-17 08:30:00":             time.Date(2024, time.May, 17, 8, 30, 0, 0, time.UTC),
	}

	for input, want := range cases {
		got, ok := n.PublishedDate(input)
		if !ok {
			t.Fatalf("PublishedDate(%q) reported fallback", input)
		}
		if !got.Equal(want) {
			t.Fatalf("PublishedDate(%q) = %v, want %v", input, got, want)
		}
		if got.Location() != time.UTC {
			t.Fatalf("PublishedDate(%q) not UTC: %v", input, got.Location())
		}
	}
}

func TestPublishedDateFallsBackToMidnightUTC(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()
	n.now = func() time.Time {
		return time.Date(2024, time.May, 17, 13, 45, 12, 0, time.UTC)
	}

	want := time.Date(2024, time.May, 17, 0, 0, 0, 0, time.UTC)
	for _, input := range []string{"", "   ", "not a date at all"} {
		got, ok := n.PublishedDate(input)
		if ok {
			t.Fatalf("PublishedDate(%q) claimed a parsed date", input)
		}
		if !got.Equal(want) {
			t.Fatalf("PublishedDate(%q) = %v, want %v", input, got, want)
		}
	}
}
