// Package scoring converts per-prompt presence data into the normalized
// opportunity model and aggregates it into report metrics. Everything here
// is a pure function of its inputs: no I/O, no network, no narrative calls,
// and byte-identical output for identical input.
package scoring

import (
	"math"

	"github.com/jonathan/voice-audit/internal/types"
)

// Scoring model constants. These mirror the fixed formula the dashboard is
// built around; changing them is a report-schema-level decision.
const (
	googlePresenceWeight = 2.0
	bingPresenceWeight   = 1.2
	maxMissingPresence   = 2.0
	pressureSaturation   = 4.0
	pressureBoost        = 0.6
)

// Signal is the normalized per-prompt opportunity model.
type Signal struct {
	PromptID           types.PromptID
	Category           types.Category
	Text               string
	Volume             int
	GoogleHas          bool
	BingHas            bool
	CompetitorDomains  []string
	PresenceScore      float64
	MissingPresence    float64
	CompetitorPressure float64
	CategoryWeight     float64
	OpportunityScore   float64
}

// Present reports whether the company appears on at least one engine.
func (s Signal) Present() bool {
	return s.GoogleHas || s.BingHas
}

// WhiteSpace reports whether neither the company nor any competitor appears.
func (s Signal) WhiteSpace() bool {
	return !s.Present() && len(s.CompetitorDomains) == 0
}

// ComputeSignal derives the opportunity model for one prompt from its
// per-engine results. Missing engines, nil results and absent fields all
// default to "no presence"; partial data never fails.
func ComputeSignal(prompt types.Prompt, results types.ResultSet) Signal {
	sig := Signal{
		PromptID:       prompt.ID,
		Category:       prompt.Category,
		Text:           prompt.Text,
		Volume:         prompt.Volume,
		CategoryWeight: prompt.Category.Weight(),
	}

	var competitors []string
	seen := make(map[string]bool)
	collect := func(domains []string) {
		for _, d := range domains {
			if d == "" || seen[d] {
				continue
			}
			seen[d] = true
			competitors = append(competitors, d)
		}
	}

	if google := results[types.EngineGoogle]; google != nil {
		sig.GoogleHas = google.HasCompany
		collect(google.CompetitorsHit)
		if google.Shopping != nil {
			sig.GoogleHas = sig.GoogleHas || google.Shopping.HasCompany
			collect(google.Shopping.CompetitorsHit)
		}
		if google.Immersive != nil {
			sig.GoogleHas = sig.GoogleHas || google.Immersive.HasCompany
			collect(google.Immersive.CompetitorsHit)
		}
	}
	if bing := results[types.EngineBing]; bing != nil {
		sig.BingHas = bing.HasCompany
		collect(bing.CompetitorsHit)
	}
	sig.CompetitorDomains = competitors

	presence := 0.0
	if sig.GoogleHas {
		presence += googlePresenceWeight
	}
	if sig.BingHas {
		presence += bingPresenceWeight
	}
	sig.PresenceScore = round3(presence)
	sig.MissingPresence = round3(math.Max(0, maxMissingPresence-presence))
	sig.CompetitorPressure = round3(math.Min(1, float64(len(competitors))/pressureSaturation))
	sig.OpportunityScore = round3(sig.MissingPresence * (1 + pressureBoost*sig.CompetitorPressure) * sig.CategoryWeight)

	return sig
}

// round3 keeps scores at 3 decimal places internally. Percentages are left
// raw and rounded only at presentation.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
