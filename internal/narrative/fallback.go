package narrative

import (
	"github.com/jonathan/voice-audit/internal/scoring"
	"github.com/jonathan/voice-audit/internal/types"
)

var fallbackTitles = map[types.Category]string{
	types.CategoryBrainstorming:     "Early exploration topics",
	types.CategoryIdentifiedProblem: "Named problems to solve",
	types.CategorySolutionComparing: "Head-to-head comparisons",
	types.CategoryInfoSeeking:       "Factual questions",
}

var fallbackIcons = map[types.Category]types.ClusterIcon{
	types.CategoryBrainstorming:     types.IconLightbulb,
	types.CategoryIdentifiedProblem: types.IconAlert,
	types.CategorySolutionComparing: types.IconCompare,
	types.CategoryInfoSeeking:       types.IconSearch,
}

// Canned insight strings used when the collaborator is unavailable. Kept
// deliberately generic: they state what the numbers already show, nothing
// more.
const (
	fallbackStrength  = "Presence data was collected across both engines for this prompt set."
	fallbackWeakness  = "Qualitative analysis was unavailable for this run; clusters reflect categories only."
	fallbackNarrative = "Narrative generation was unavailable. The opportunity scores and category metrics in this report are computed deterministically and remain fully usable."
)

var fallbackPerCategory = map[types.Category]string{
	types.CategoryBrainstorming:     "Brainstorming prompts grouped as one topic cluster.",
	types.CategoryIdentifiedProblem: "Identified-problem prompts grouped as one topic cluster.",
	types.CategorySolutionComparing: "Solution-comparing prompts grouped as one topic cluster.",
	types.CategoryInfoSeeking:       "Info-seeking prompts grouped as one topic cluster.",
}

// Fallback produces the deterministic narrative: one cluster per non-empty
// category containing exactly that category's prompts, with canned insight
// strings.
func Fallback(signals []scoring.Signal) *Output {
	clusters := make([]types.Cluster, 0, len(types.Categories))
	perCategory := make(map[types.Category]string)

	for _, category := range types.Categories {
		var ids []types.PromptID
		sum := 0.0
		for _, sig := range signals {
			if sig.Category != category {
				continue
			}
			ids = append(ids, sig.PromptID)
			sum += sig.OpportunityScore
		}
		if len(ids) == 0 {
			continue
		}
		clusters = append(clusters, types.Cluster{
			Title:          fallbackTitles[category],
			Icon:           fallbackIcons[category],
			PromptIDs:      ids,
			OpportunitySum: sum,
		})
		perCategory[category] = fallbackPerCategory[category]
	}

	return &Output{
		Clusters: clusters,
		Insights: types.Insights{
			Strengths:            []string{fallbackStrength},
			Weaknesses:           []string{fallbackWeakness},
			CompetitiveNarrative: fallbackNarrative,
			PerCategory:          perCategory,
		},
		Source: types.NarrativeFromFallback,
	}
}
