package security

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"net/url"
	"strings"

	"NewsIngestor/internal/config"
)

var (
	// ErrInvalidScheme covers unparseable URLs and disallowed schemes.
	ErrInvalidScheme = errors.New("invalid or disallowed URL scheme")
	// ErrMissingHost is returned when the URL has no hostname.
	ErrMissingHost = errors.New("URL must include a hostname")
	// ErrSSRFBlocked is returned for targets inside blocked network ranges.
	ErrSSRFBlocked = errors.New("SSRF protection: target blocked")
)

// Checker validates feed URLs before any network I/O happens. It is pure:
// no DNS resolution is performed, so domain names that later resolve to a
// private address are not caught here (a known limitation of the
// literal-IP-only check).
type Checker struct {
	schemes map[string]struct{}
	blocked []netip.Prefix
	logger  *slog.Logger
}

// NewChecker compiles the scheme allow-list and blocked CIDR ranges.
// Malformed ranges are logged and skipped rather than failing startup.
func NewChecker(cfg config.SecurityConfig, logger *slog.Logger) *Checker {
	schemes := make(map[string]struct{}, len(cfg.AllowedSchemes))
	for _, s := range cfg.AllowedSchemes {
		schemes[strings.ToLower(s)] = struct{}{}
	}

	blocked := make([]netip.Prefix, 0, len(cfg.BlockedNetworks))
	for _, raw := range cfg.BlockedNetworks {
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			if logger != nil {
				logger.Warn("invalid blocked network, skipping", "network", raw, "error", err)
			}
			continue
		}
		blocked = append(blocked, prefix)
	}

	return &Checker{schemes: schemes, blocked: blocked, logger: logger}
}

// Check approves or rejects a feed URL. A nil return means the fetcher may
// issue the request.
func (c *Checker) Check(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: empty URL", ErrInvalidScheme)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScheme, err)
	}

	if _, ok := c.schemes[strings.ToLower(parsed.Scheme)]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidScheme, parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return ErrMissingHost
	}

	// Always blocked regardless of configuration.
	switch strings.ToLower(host) {
	case "localhost", "127.0.0.1", "::1":
		return fmt.Errorf("%w: localhost access", ErrSSRFBlocked)
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		// Domain name: accepted at validation time. The resolved address is
		// not re-checked at connect time (DNS-rebinding gap).
		return nil
	}

	return c.checkAddr(addr.Unmap())
}

func (c *Checker) checkAddr(addr netip.Addr) error {
	for _, prefix := range c.blocked {
		if prefix.Contains(addr) {
			return fmt.Errorf("%w: %s is in %s", ErrSSRFBlocked, addr, prefix)
		}
	}
	return nil
}
