// Package report merges the scoring engine's output with the narrative
// block into the single versioned report object the dashboard consumes.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/voice-audit/internal/narrative"
	"github.com/jonathan/voice-audit/internal/scoring"
	"github.com/jonathan/voice-audit/internal/store"
	"github.com/jonathan/voice-audit/internal/types"
)

// Assemble builds the overall report from computed metrics and the
// narrative output. Every prompt referenced by opportunities and next
// actions comes from the scoring input itself, and the narrative parser has
// already dropped unknown references, so the assembled report satisfies the
// referential validity rule by construction.
func Assemble(profileID string, computed *scoring.Computed, enrichment *narrative.Output, generatedAt time.Time) *types.OverallReport {
	return &types.OverallReport{
		Version:         types.ReportVersion,
		GeneratedAt:     generatedAt.UTC(),
		ProfileID:       profileID,
		Metrics:         computed.Metrics,
		Categories:      computed.Categories,
		Opportunities:   computed.Opportunities,
		NextActions:     computed.NextActions,
		VisualData:      computed.VisualData,
		Clusters:        enrichment.Clusters,
		Insights:        enrichment.Insights,
		NarrativeSource: enrichment.Source,
	}
}

// Save writes the report as a single atomic overwrite at the profile's
// fixed report path. No merging with a prior report: reruns replace it
// wholesale, which keeps re-entrant runs idempotent.
func Save(ctx context.Context, st store.Store, rep *types.OverallReport) error {
	if err := st.Set(ctx, store.ReportPath(rep.ProfileID), rep); err != nil {
		return fmt.Errorf("failed to persist overall report: %w", err)
	}
	return nil
}
