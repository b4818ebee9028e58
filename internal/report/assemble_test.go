package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/voice-audit/internal/narrative"
	"github.com/jonathan/voice-audit/internal/scoring"
	"github.com/jonathan/voice-audit/internal/store"
	"github.com/jonathan/voice-audit/internal/types"
)

func fixtureInputs() (*scoring.Computed, *narrative.Output) {
	prompts := []types.Prompt{
		{ID: "brainstorming:1", Category: types.CategoryBrainstorming, Sequence: 1, Text: "ideas"},
		{ID: "info_seeking:1", Category: types.CategoryInfoSeeking, Sequence: 1, Text: "what is"},
	}
	computed := scoring.Compute(prompts, map[types.PromptID]types.ResultSet{})
	enrichment := narrative.Fallback(computed.Signals)
	return computed, enrichment
}

func TestAssemble_MergesAndStamps(t *testing.T) {
	computed, enrichment := fixtureInputs()
	generatedAt := time.Date(2026, 8, 29, 10, 30, 0, 0, time.FixedZone("CEST", 2*3600))

	rep := Assemble("p1", computed, enrichment, generatedAt)

	assert.Equal(t, types.ReportVersion, rep.Version)
	assert.Equal(t, "p1", rep.ProfileID)
	assert.Equal(t, time.UTC, rep.GeneratedAt.Location())
	assert.True(t, rep.GeneratedAt.Equal(generatedAt))
	assert.Equal(t, computed.Metrics, rep.Metrics)
	assert.Equal(t, enrichment.Clusters, rep.Clusters)
	assert.Equal(t, types.NarrativeFromFallback, rep.NarrativeSource)
	assert.Len(t, rep.Opportunities, 2)
}

func TestAssemble_ReferencedPromptsExist(t *testing.T) {
	computed, enrichment := fixtureInputs()
	rep := Assemble("p1", computed, enrichment, time.Now())

	known := map[types.PromptID]bool{"brainstorming:1": true, "info_seeking:1": true}
	for _, opp := range rep.Opportunities {
		assert.True(t, known[opp.PromptID])
	}
	for _, action := range rep.NextActions {
		assert.True(t, known[action.PromptID])
	}
	for _, cluster := range rep.Clusters {
		for _, id := range cluster.PromptIDs {
			assert.True(t, known[id])
		}
	}
}

func TestSave_OverwritesPriorReport(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	computed, enrichment := fixtureInputs()

	first := Assemble("p1", computed, enrichment, time.Now())
	require.NoError(t, Save(ctx, mem, first))

	second := Assemble("p1", computed, enrichment, time.Now().Add(time.Hour))
	require.NoError(t, Save(ctx, mem, second))

	var stored types.OverallReport
	found, err := mem.Get(ctx, store.ReportPath("p1"), &stored)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, stored.GeneratedAt.Equal(second.GeneratedAt))
}
