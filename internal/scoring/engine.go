package scoring

import (
	"sort"

	"github.com/jonathan/voice-audit/internal/types"
)

const (
	topMoneyPromptCount    = 5
	topCategoryPromptCount = 5
	nextActionCount        = 10
)

// Computed bundles everything the scoring engine derives for one report.
// The narrative step consumes Signals; the report assembler consumes the rest.
type Computed struct {
	Metrics       types.ReportMetrics
	Categories    []types.CategorySummary
	Opportunities []types.Opportunity
	NextActions   []types.NextAction
	VisualData    types.VisualData
	Signals       []Signal
}

// Compute runs the full scoring pass over a prompt set and its per-engine
// results. Prompts keep their input ordering; all rankings are stable sorts
// so ties resolve by original position and reruns are deterministic.
func Compute(prompts []types.Prompt, results map[types.PromptID]types.ResultSet) *Computed {
	signals := make([]Signal, 0, len(prompts))
	for _, prompt := range prompts {
		signals = append(signals, ComputeSignal(prompt, results[prompt.ID]))
	}

	out := &Computed{Signals: signals}
	out.Metrics = computeMetrics(signals)
	out.Categories = computeCategorySummaries(signals)
	out.Opportunities = buildOpportunities(signals)
	out.NextActions = buildNextActions(signals)
	out.VisualData = buildVisualData(signals)
	return out
}

func computeMetrics(signals []Signal) types.ReportMetrics {
	metrics := types.ReportMetrics{
		PromptCount:     len(signals),
		TopMoneyPrompts: []types.MoneyPrompt{},
		CategoryWeights: categoryWeightTable(),
	}
	if len(signals) == 0 {
		return metrics
	}

	present := 0
	whiteSpace := 0
	pressureSum := 0.0
	for _, sig := range signals {
		if sig.Present() {
			present++
		}
		if sig.WhiteSpace() {
			whiteSpace++
		}
		pressureSum += sig.CompetitorPressure
	}

	total := float64(len(signals))
	metrics.ShareOfVoice = float64(present) / total
	metrics.WhiteSpacePct = float64(whiteSpace) / total
	metrics.CompetitorPressureIdx = pressureSum / total

	for _, sig := range topByOpportunity(signals, topMoneyPromptCount) {
		metrics.TopMoneyPrompts = append(metrics.TopMoneyPrompts, types.MoneyPrompt{
			PromptID:         sig.PromptID,
			Text:             sig.Text,
			OpportunityScore: sig.OpportunityScore,
		})
	}
	return metrics
}

func computeCategorySummaries(signals []Signal) []types.CategorySummary {
	summaries := make([]types.CategorySummary, 0, len(types.Categories))
	for _, category := range types.Categories {
		group := filterByCategory(signals, category)
		summary := types.CategorySummary{
			Category:         category,
			PromptCount:      len(group),
			TopOpportunities: []types.PromptID{},
		}
		if len(group) > 0 {
			present := 0
			pressureSum := 0.0
			for _, sig := range group {
				if sig.Present() {
					present++
				}
				pressureSum += sig.CompetitorPressure
			}
			summary.PresencePct = float64(present) / float64(len(group))
			summary.MeanCompetitorPressure = pressureSum / float64(len(group))
			for _, sig := range topByOpportunity(group, topCategoryPromptCount) {
				summary.TopOpportunities = append(summary.TopOpportunities, sig.PromptID)
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

func buildOpportunities(signals []Signal) []types.Opportunity {
	opportunities := make([]types.Opportunity, 0, len(signals))
	for _, sig := range signals {
		opportunities = append(opportunities, types.Opportunity{
			PromptID:           sig.PromptID,
			Text:               sig.Text,
			Category:           sig.Category,
			GoogleHas:          sig.GoogleHas,
			BingHas:            sig.BingHas,
			CompetitorDomains:  sig.CompetitorDomains,
			MissingPresence:    sig.MissingPresence,
			CompetitorPressure: sig.CompetitorPressure,
			CategoryWeight:     sig.CategoryWeight,
			OpportunityScore:   sig.OpportunityScore,
			Volume:             sig.Volume,
		})
	}
	return opportunities
}

// topByOpportunity returns the n highest-scoring signals without mutating
// the input ordering. Stable sort keeps input-order tie-breaking.
func topByOpportunity(signals []Signal, n int) []Signal {
	ranked := make([]Signal, len(signals))
	copy(ranked, signals)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].OpportunityScore > ranked[j].OpportunityScore
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func filterByCategory(signals []Signal, category types.Category) []Signal {
	var group []Signal
	for _, sig := range signals {
		if sig.Category == category {
			group = append(group, sig)
		}
	}
	return group
}

func categoryWeightTable() map[string]float64 {
	table := make(map[string]float64, len(types.Categories))
	for _, category := range types.Categories {
		table[string(category)] = category.Weight()
	}
	return table
}
