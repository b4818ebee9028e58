// Package presence computes company and competitor presence for one signal
// channel from a list of result URLs or brand strings. All functions are
// pure and synchronous; collecting the inputs per channel is the
// orchestrator's job.
package presence

import (
	"github.com/jonathan/voice-audit/internal/domain"
)

// Signal is the presence outcome for a single channel.
type Signal struct {
	HasCompany     bool
	CompetitorsHit []string
}

// AnalyzeURLs checks a URL-based channel (organic results, shopping seller
// links). Each URL's hostname is tested against the company domain and every
// competitor domain; competitor hits are deduplicated in first-hit order.
func AnalyzeURLs(urls []string, companyDomain string, competitorDomains []string) Signal {
	var sig Signal
	seen := make(map[string]bool)

	for _, rawURL := range urls {
		host := domain.HostnameFromURL(rawURL)
		if host == "" {
			continue
		}
		if domain.MatchesDomain(host, companyDomain) {
			sig.HasCompany = true
		}
		for _, competitor := range competitorDomains {
			if seen[competitor] {
				continue
			}
			if domain.MatchesDomain(host, competitor) {
				seen[competitor] = true
				sig.CompetitorsHit = append(sig.CompetitorsHit, competitor)
			}
		}
	}
	return sig
}

// AnalyzeBrands checks the brand-based immersive channel. Each brand string
// is matched against the company and competitor domains with the normalized
// substring test from the domain package.
func AnalyzeBrands(brands []string, companyDomain string, competitorDomains []string) Signal {
	var sig Signal
	seen := make(map[string]bool)

	for _, brand := range brands {
		if domain.BrandMatchesDomain(brand, companyDomain) {
			sig.HasCompany = true
		}
		for _, competitor := range competitorDomains {
			if seen[competitor] {
				continue
			}
			if domain.BrandMatchesDomain(brand, competitor) {
				seen[competitor] = true
				sig.CompetitorsHit = append(sig.CompetitorsHit, competitor)
			}
		}
	}
	return sig
}
