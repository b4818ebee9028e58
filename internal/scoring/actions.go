package scoring

import (
	"fmt"
	"strings"

	"github.com/jonathan/voice-audit/internal/types"
)

// buildNextActions ranks the top prompts by opportunity score and attaches
// a rule-generated content outline plus a mechanical "why" rationale to
// each. No model call is involved, so reruns reproduce the same actions.
func buildNextActions(signals []Signal) []types.NextAction {
	ranked := topByOpportunity(signals, nextActionCount)
	actions := make([]types.NextAction, 0, len(ranked))
	for i, sig := range ranked {
		actions = append(actions, types.NextAction{
			Rank:             i + 1,
			PromptID:         sig.PromptID,
			Text:             sig.Text,
			Category:         sig.Category,
			OpportunityScore: sig.OpportunityScore,
			Why:              buildWhy(sig),
			Outline:          outlineFor(sig.Category, sig.Text),
		})
	}
	return actions
}

// buildWhy derives the rationale list from the missing-channel set and the
// competitor domains. Free text generation is deliberately avoided here.
func buildWhy(sig Signal) []string {
	var why []string
	if !sig.GoogleHas {
		why = append(why, "Not visible in Google results for this prompt")
	}
	if !sig.BingHas {
		why = append(why, "Not visible in Bing results for this prompt")
	}
	if len(sig.CompetitorDomains) > 0 {
		why = append(why, fmt.Sprintf("Competitors already cited: %s", strings.Join(sig.CompetitorDomains, ", ")))
	} else if !sig.Present() {
		why = append(why, "Uncontested topic: no competitor coverage yet")
	}
	if sig.CategoryWeight > 1.0 {
		why = append(why, fmt.Sprintf("High-intent funnel stage (%s)", sig.Category))
	}
	return why
}

// outlineFor returns the category-specific content outline template applied
// to a prompt text. Each category maps to one artifact type with fixed
// steps and section scaffolding.
func outlineFor(category types.Category, promptText string) types.ContentOutline {
	topic := strings.TrimSpace(promptText)

	switch category {
	case types.CategoryBrainstorming:
		return types.ContentOutline{
			ArtifactType: "idea-roundup",
			Steps: []string{
				"Collect 8-12 concrete ideas answering the prompt",
				"Group ideas by use case or audience",
				"Add one product tie-in per group without over-selling",
				"Close with a shortlist for readers in a hurry",
			},
			Sections: []types.OutlineSection{
				{Heading: fmt.Sprintf("Ideas for: %s", topic), Bullets: []string{
					"Open with the reader's situation in one paragraph",
					"List each idea with a one-line takeaway",
				}},
				{Heading: "How to choose", Bullets: []string{
					"Decision criteria relevant to the prompt",
					"Common mistakes to avoid",
				}},
			},
		}
	case types.CategoryIdentifiedProblem:
		return types.ContentOutline{
			ArtifactType: "how-to-guide",
			Steps: []string{
				"Name the problem exactly as the prompt phrases it",
				"Explain the underlying cause in plain language",
				"Walk through the fix step by step",
				"List when to escalate to a product or service",
			},
			Sections: []types.OutlineSection{
				{Heading: fmt.Sprintf("Fixing: %s", topic), Bullets: []string{
					"Symptoms checklist",
					"Step-by-step resolution with expected outcomes",
				}},
				{Heading: "Prevention", Bullets: []string{
					"Habits or tools that stop the problem recurring",
				}},
			},
		}
	case types.CategorySolutionComparing:
		return types.ContentOutline{
			ArtifactType: "comparison-page",
			Steps: []string{
				"Define the comparison criteria before naming options",
				"Score each option against every criterion",
				"State which option wins for which reader",
				"Include an honest fit/no-fit verdict for your own product",
			},
			Sections: []types.OutlineSection{
				{Heading: fmt.Sprintf("Comparing options: %s", topic), Bullets: []string{
					"Criteria table with per-option scores",
					"Narrative verdict per reader profile",
				}},
				{Heading: "Bottom line", Bullets: []string{
					"One-sentence recommendation per scenario",
				}},
			},
		}
	default: // info_seeking
		return types.ContentOutline{
			ArtifactType: "explainer",
			Steps: []string{
				"Answer the question directly in the first paragraph",
				"Expand with the three facts readers ask next",
				"Add a short FAQ mirroring related prompts",
			},
			Sections: []types.OutlineSection{
				{Heading: fmt.Sprintf("Answer: %s", topic), Bullets: []string{
					"Direct answer up front",
					"Supporting detail with sources",
				}},
				{Heading: "Related questions", Bullets: []string{
					"FAQ entries phrased the way users search",
				}},
			},
		}
	}
}
