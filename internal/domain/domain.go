// Package domain normalizes URLs, hostnames and brand names so presence
// checks can compare them against a profile's company and competitor domains.
package domain

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var protocolPrefix = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// diacriticStripper decomposes Unicode text and removes combining marks,
// so "café" and "cafe" normalize to the same brand token.
var diacriticStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

var nonAlphanumRun = regexp.MustCompile(`[^a-z0-9]+`)

// HostnameFromURL extracts a comparable hostname from a URL: lower-cased,
// with any leading "www." stripped. Malformed input degrades to regex
// stripping of the protocol and "www." prefix; it never fails.
func HostnameFromURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ""
	}

	if u, err := url.Parse(trimmed); err == nil && u.Hostname() != "" {
		return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	}

	// Fallback for strings url.Parse rejects or parses without a host.
	host := protocolPrefix.ReplaceAllString(trimmed, "")
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	if idx := strings.IndexAny(host, "/?#"); idx >= 0 {
		host = host[:idx]
	}
	return host
}

// MatchesDomain reports whether host is the domain itself or one of its
// subdomains.
func MatchesDomain(host, domain string) bool {
	if host == "" || domain == "" {
		return false
	}
	host = strings.ToLower(host)
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// NormalizeBrand lower-cases a brand string, strips diacritics, collapses
// every non-alphanumeric run to a single space and trims the result.
func NormalizeBrand(text string) string {
	lowered := strings.ToLower(text)
	stripped, _, err := transform.String(diacriticStripper, lowered)
	if err != nil {
		stripped = lowered
	}
	collapsed := nonAlphanumRun.ReplaceAllString(stripped, " ")
	return strings.TrimSpace(collapsed)
}

// BrandMatchesDomain reports whether a brand name plausibly belongs to a
// domain: the normalized, space-stripped brand token must be a substring of
// the lower-cased domain. This is deliberately a substring test rather than
// a canonical identity test; short brand tokens (length 1) are rejected but
// false positives for short common names remain an accepted tradeoff since
// no authoritative brand-to-domain mapping exists.
func BrandMatchesDomain(brand, domain string) bool {
	token := strings.ReplaceAll(NormalizeBrand(brand), " ", "")
	if len(token) <= 1 {
		return false
	}
	return strings.Contains(strings.ToLower(domain), token)
}
