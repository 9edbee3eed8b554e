package processing

import (
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

const (
	// UntitledPlaceholder replaces titles that sanitize down to nothing.
	UntitledPlaceholder = "Untitled Article"
	// NoSummaryPlaceholder replaces summaries that sanitize down to nothing.
	NoSummaryPlaceholder = "no summary"
	// NoAuthorPlaceholder replaces authors that sanitize down to nothing.
	NoAuthorPlaceholder = "no author"
)

var (
	whitespaceExpr  = regexp.MustCompile(`\s+`)
	residualTagExpr = regexp.MustCompile(`<[^>]*>`)

	// SQL keyword fragments removed as defense in depth; the store uses
	// parameterized statements, this only denies stored payloads a ride.
	sqlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)DELETE\s+FROM`),
		regexp.MustCompile(`(?i)INSERT\s+INTO`),
		regexp.MustCompile(`(?i)UPDATE\s+SET`),
		regexp.MustCompile(`(?i)DROP\s+TABLE`),
		regexp.MustCompile(`;\s*--`),
		regexp.MustCompile(`--\s*$`),
	}

	// JavaScript trigger fragments removed from summaries beyond plain tag
	// stripping.
	jsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?i)javascript:`),
		regexp.MustCompile(`(?i)alert\s*\(`),
		regexp.MustCompile(`(?i)eval\s*\(`),
		regexp.MustCompile(`(?i)(document|window|location)\.`),
		regexp.MustCompile(`(?i)on\w+\s*=`),
	}

	suspiciousSubstrings = []string{"script", "javascript", "eval", "alert"}
)

// Normalizer holds the configured parts of content normalization. All of
// its methods are deterministic and perform no I/O.
type Normalizer struct {
	trackingParams map[string]struct{}
	summaryMaxLen  int
	logger         *slog.Logger
	now            func() time.Time
}

// NewNormalizer compiles the tracking-parameter set and wires the summary
// length bound.
func NewNormalizer(trackingParams []string, summaryMaxLen int, logger *slog.Logger) *Normalizer {
	params := make(map[string]struct{}, len(trackingParams))
	for _, p := range trackingParams {
		params[strings.ToLower(p)] = struct{}{}
	}

	return &Normalizer{
		trackingParams: params,
		summaryMaxLen:  summaryMaxLen,
		logger:         logger,
		now:            time.Now,
	}
}

// Title produces the display form of a feed item title.
func (n *Normalizer) Title(raw string) string {
	cleaned := sanitizeText(raw)
	for _, pattern := range sqlPatterns {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return UntitledPlaceholder
	}
	return cleaned
}

// TitleForHash is Title lowercased, the form the deduplication hash uses.
func (n *Normalizer) TitleForHash(raw string) string {
	return strings.ToLower(n.Title(raw))
}

// CanonicalLink rewrites a URL into one normalized form: lowercased scheme
// and host, default ports removed, tracking parameters dropped, remaining
// query keys sorted, trailing slash stripped (except root) and the
// fragment discarded. Unparseable input is returned as-is.
func (n *Normalizer) CanonicalLink(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		n.warn("URL canonicalization failed", "url", raw, "error", err)
		return raw
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme == "" {
		scheme = "https"
	}

	host := strings.ToLower(parsed.Host)
	if scheme == "http" {
		host = strings.TrimSuffix(host, ":80")
	} else if scheme == "https" {
		host = strings.TrimSuffix(host, ":443")
	}

	filtered := url.Values{}
	for key, values := range parsed.Query() {
		if _, tracked := n.trackingParams[strings.ToLower(key)]; tracked {
			continue
		}
		for _, v := range values {
			filtered.Add(key, v)
		}
	}

	path := parsed.Path
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}

	canonical := url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     path,
		RawQuery: filtered.Encode(), // Encode sorts keys
	}

	return canonical.String()
}

// Summary sanitizes a feed item summary down to bounded plain text.
func (n *Normalizer) Summary(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return NoSummaryPlaceholder
	}

	cleaned := NormalizeUnicode(raw)
	for _, pattern := range jsPatterns {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}
	cleaned = stripMarkup(cleaned)
	for _, pattern := range jsPatterns {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}
	for _, pattern := range sqlPatterns {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}
	cleaned = strings.TrimSpace(whitespaceExpr.ReplaceAllString(cleaned, " "))
	cleaned = truncateRunes(cleaned, n.summaryMaxLen)

	lowered := strings.ToLower(cleaned)
	for _, sub := range suspiciousSubstrings {
		if strings.Contains(lowered, sub) {
			n.warn("suspicious content detected in summary", "summary_preview", truncateRunes(cleaned, 200))
			break
		}
	}

	if cleaned == "" {
		return NoSummaryPlaceholder
	}
	return cleaned
}

// Author sanitizes the author field.
func (n *Normalizer) Author(raw string) string {
	cleaned := strings.TrimSpace(sanitizeText(raw))
	if cleaned == "" {
		return NoAuthorPlaceholder
	}
	return cleaned
}

// Tags cleans each tag, deduplicates case-insensitively keeping the first
// cleaned form, and sorts the result for stable ordering.
func (n *Normalizer) Tags(raw []string) []string {
	cleaned := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, tag := range raw {
		t := strings.TrimSpace(sanitizeText(tag))
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, t)
	}

	sort.Strings(cleaned)
	return cleaned
}

// PublishedDate parses a feed timestamp permissively and converts it to
// UTC. The second return value reports whether the feed actually supplied
// a usable timestamp; when it did not, the result is midnight UTC of the
// current day.
func (n *Normalizer) PublishedDate(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return n.fallbackDate(), false
	}

	parsed, err := dateparse.ParseIn(trimmed, time.UTC)
	if err != nil {
		n.warn("failed to parse published date, using fallback", "date", trimmed, "error", err)
		return n.fallbackDate(), false
	}

	return parsed.UTC(), true
}

func (n *Normalizer) fallbackDate() time.Time {
	return n.now().UTC().Truncate(24 * time.Hour)
}

func (n *Normalizer) warn(msg string, args ...any) {
	if n.logger != nil {
		n.logger.Warn(msg, args...)
	}
}

// sanitizeText is the shared title/author/tag pipeline: NFKC, tag
// stripping with entity decoding, residual fragment removal and whitespace
// collapsing.
func sanitizeText(raw string) string {
	if raw == "" {
		return ""
	}

	cleaned := stripMarkup(NormalizeUnicode(raw))
	return strings.TrimSpace(whitespaceExpr.ReplaceAllString(cleaned, " "))
}

// stripMarkup parses the fragment as HTML, drops script and style
// subtrees, and keeps only text content. The parser decodes entities, so a
// second pass removes anything that decoded back into markup, and any
// leftover angle brackets are dropped outright.
func stripMarkup(raw string) string {
	text := raw
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
		doc.Find("script, style").Remove()
		text = doc.Text()
	}

	text = residualTagExpr.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "<", "")
	text = strings.ReplaceAll(text, ">", "")
	return text
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit]))
}
