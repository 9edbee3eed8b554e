package security

import (
	"errors"
	"testing"

	"NewsIngestor/internal/config"
)

func testConfig() config.SecurityConfig {
	return config.SecurityConfig{
		AllowedSchemes: []string{"http", "https"},
		BlockedNetworks: []string{
			"10.0.0.0/8",
			"172.16.0.0/12",
			"192.168.0.0/16",
			"127.0.0.0/8",
			"169.254.0.0/16",
			"::1/128",
			"fc00::/7",
			"fe80::/10",
		},
	}
}

func TestCheckAcceptsPublicURLs(t *testing.T) {
	t.Parallel()

	checker := NewChecker(testConfig(), nil)

	for _, raw := range []string{
		"https://example.com/feed.xml",
		"http://news.example.org/rss?page=2",
		"https://8.8.8.8/feed",
		"HTTPS://EXAMPLE.COM/FEED",
	} {
		if err := checker.Check(raw); err != nil {
			t.Fatalf("Check(%q) returned error: %v", raw, err)
		}
	}
}

func TestCheckRejectsSchemes(t *testing.T) {
	t.Parallel()

	checker := NewChecker(testConfig(), nil)

	for _, raw := range []string{
		"ftp://example.com/feed.xml",
		"file:///etc/passwd",
		"javascript:alert(1)",
		"",
		"   ",
	} {
		if err := checker.Check(raw); !errors.Is(err, ErrInvalidScheme) {
			t.Fatalf("Check(%q) = %v, want ErrInvalidScheme", raw, err)
		}
	}
}

func TestCheckRejectsMissingHost(t *testing.T) {
	t.Parallel()

	checker := NewChecker(testConfig(), nil)

	if err := checker.Check("http:///feed.xml"); !errors.Is(err, ErrMissingHost) {
		t.Fatalf("expected ErrMissingHost, got %v", err)
	}
}

func TestCheckBlocksPrivateTargets(t *testing.T) {
	t.Parallel()

	checker := NewChecker(testConfig(), nil)

	for _, raw := range []string{
		"http://10.0.0.5/feed.xml",
		"http://172.16.1.1/feed",
		"http://192.168.1.10/rss",
		"http://127.0.0.1:8080/feed",
		"http://169.254.0.9/feed",
		"http://localhost/feed",
		"http://LOCALHOST/feed",
		"http://[::1]/feed",
		"http://[fe80::1]/feed",
		"http://[fc00::2]/feed",
	} {
		if err := checker.Check(raw); !errors.Is(err, ErrSSRFBlocked) {
			t.Fatalf("Check(%q) = %v, want ErrSSRFBlocked", raw, err)
		}
	}
}

func TestCheckAllowsDomainNamesWithoutResolution(t *testing.T) {
	t.Parallel()

	checker := NewChecker(testConfig(), nil)

	// Domain names are accepted at validation time even if they might
	// resolve to a private address later.
	if err := checker.Check("http://internal.corp.example/feed"); err != nil {
		t.Fatalf("domain name rejected: %v", err)
	}
}

func TestCheckSkipsMalformedBlockedNetworks(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.BlockedNetworks = append(cfg.BlockedNetworks, "not-a-cidr")
	checker := NewChecker(cfg, nil)

	if err := checker.Check("https://example.com/feed"); err != nil {
		t.Fatalf("valid URL rejected after malformed network config: %v", err)
	}
	if err := checker.Check("http://10.1.2.3/feed"); !errors.Is(err, ErrSSRFBlocked) {
		t.Fatalf("blocked range no longer enforced: %v", err)
	}
}
