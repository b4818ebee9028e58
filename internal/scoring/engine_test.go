package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/voice-audit/internal/types"
)

// oneOfEachCategory builds the four-prompt scenario with no presence and no
// competitor hits anywhere.
func oneOfEachCategory() ([]types.Prompt, map[types.PromptID]types.ResultSet) {
	prompts := make([]types.Prompt, 0, 4)
	results := make(map[types.PromptID]types.ResultSet)
	for _, category := range types.Categories {
		p := promptFor(category, 1, "prompt for "+string(category))
		prompts = append(prompts, p)
		results[p.ID] = types.ResultSet{
			types.EngineGoogle: {Status: types.StatusDone},
			types.EngineBing:   {Status: types.StatusDone},
		}
	}
	return prompts, results
}

func TestCompute_AllAbsentScenario(t *testing.T) {
	prompts, results := oneOfEachCategory()
	computed := Compute(prompts, results)

	assert.InDelta(t, 0.0, computed.Metrics.ShareOfVoice, 1e-9)
	assert.InDelta(t, 1.0, computed.Metrics.WhiteSpacePct, 1e-9)
	assert.InDelta(t, 0.0, computed.Metrics.CompetitorPressureIdx, 1e-9)
	assert.Equal(t, 4, computed.Metrics.PromptCount)

	wantScores := map[types.Category]float64{
		types.CategoryBrainstorming:     2.0,
		types.CategoryIdentifiedProblem: 2.6,
		types.CategorySolutionComparing: 3.4,
		types.CategoryInfoSeeking:       1.8,
	}
	for _, opp := range computed.Opportunities {
		assert.InDelta(t, wantScores[opp.Category], opp.OpportunityScore, 1e-9)
	}
}

func TestCompute_ShareOfVoice(t *testing.T) {
	prompts := []types.Prompt{
		promptFor(types.CategoryBrainstorming, 1, "a"),
		promptFor(types.CategoryBrainstorming, 2, "b"),
		promptFor(types.CategoryInfoSeeking, 1, "c"),
		promptFor(types.CategoryInfoSeeking, 2, "d"),
	}
	results := map[types.PromptID]types.ResultSet{
		prompts[0].ID: {types.EngineGoogle: {Status: types.StatusDone, HasCompany: true}},
		prompts[1].ID: {types.EngineBing: {Status: types.StatusDone, HasCompany: true}},
		// prompts[2] competitor-only, prompts[3] white space
		prompts[2].ID: {types.EngineGoogle: {Status: types.StatusDone, CompetitorsHit: []string{"r.com"}}},
	}

	computed := Compute(prompts, results)
	assert.InDelta(t, 0.5, computed.Metrics.ShareOfVoice, 1e-9)
	assert.InDelta(t, 0.25, computed.Metrics.WhiteSpacePct, 1e-9)
}

func TestCompute_TopMoneyPromptsStableOrder(t *testing.T) {
	// Five prompts in one category, identical scores: ties must keep input order.
	var prompts []types.Prompt
	results := make(map[types.PromptID]types.ResultSet)
	for i := 1; i <= 6; i++ {
		p := promptFor(types.CategoryBrainstorming, i, "same")
		prompts = append(prompts, p)
		results[p.ID] = types.ResultSet{}
	}

	computed := Compute(prompts, results)
	require.Len(t, computed.Metrics.TopMoneyPrompts, 5)
	for i, mp := range computed.Metrics.TopMoneyPrompts {
		assert.Equal(t, prompts[i].ID, mp.PromptID)
	}
}

func TestCompute_CategorySummaries(t *testing.T) {
	prompts := []types.Prompt{
		promptFor(types.CategoryBrainstorming, 1, "a"),
		promptFor(types.CategoryBrainstorming, 2, "b"),
	}
	results := map[types.PromptID]types.ResultSet{
		prompts[0].ID: {types.EngineGoogle: {Status: types.StatusDone, HasCompany: true, CompetitorsHit: []string{"r.com", "s.com"}}},
		prompts[1].ID: {},
	}

	computed := Compute(prompts, results)
	require.Len(t, computed.Categories, 4)

	var brainstorming types.CategorySummary
	for _, summary := range computed.Categories {
		if summary.Category == types.CategoryBrainstorming {
			brainstorming = summary
		}
	}
	assert.Equal(t, 2, brainstorming.PromptCount)
	assert.InDelta(t, 0.5, brainstorming.PresencePct, 1e-9)
	assert.InDelta(t, 0.25, brainstorming.MeanCompetitorPressure, 1e-9) // (0.5+0)/2
	// Prompt without presence scores higher.
	require.NotEmpty(t, brainstorming.TopOpportunities)
	assert.Equal(t, prompts[1].ID, brainstorming.TopOpportunities[0])
}

func TestCompute_EmptyCategorySummariesPresent(t *testing.T) {
	computed := Compute(nil, nil)
	assert.Len(t, computed.Categories, 4)
	assert.Equal(t, 0, computed.Metrics.PromptCount)
	assert.Empty(t, computed.Opportunities)
	assert.Empty(t, computed.NextActions)
}

func TestCompute_Deterministic(t *testing.T) {
	prompts := []types.Prompt{
		promptFor(types.CategorySolutionComparing, 1, "compare tools"),
		promptFor(types.CategoryInfoSeeking, 1, "what is x"),
		promptFor(types.CategoryIdentifiedProblem, 1, "fix y"),
	}
	results := map[types.PromptID]types.ResultSet{
		prompts[0].ID: {types.EngineGoogle: {Status: types.StatusDone, CompetitorsHit: []string{"a.com", "b.com"}}},
		prompts[1].ID: {types.EngineBing: {Status: types.StatusDone, HasCompany: true}},
	}

	first, err := json.Marshal(Compute(prompts, results))
	require.NoError(t, err)
	second, err := json.Marshal(Compute(prompts, results))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
