// Package narrative enriches the computed opportunity model with
// model-generated thematic clusters and qualitative insights. The model
// only ever sees the already-scored signal set, and its response is parsed
// defensively; any failure degrades to a deterministic fallback so report
// generation never fails on this step.
package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jonathan/voice-audit/internal/llm"
	"github.com/jonathan/voice-audit/internal/prompts"
	"github.com/jonathan/voice-audit/internal/scoring"
	"github.com/jonathan/voice-audit/internal/types"
)

const (
	narrativeTemperature     = 0.4
	narrativeMaxOutputTokens = 4096
)

// Output is the narrative block merged into the report.
type Output struct {
	Clusters []types.Cluster
	Insights types.Insights
	Source   types.NarrativeSource
}

// payloadItem is the per-prompt slice of the numeric model sent to the
// collaborator. Nothing outside these fields leaves the process.
type payloadItem struct {
	ID                types.PromptID `json:"id"`
	Category          types.Category `json:"category"`
	Text              string         `json:"text"`
	GoogleHas         bool           `json:"googleHas"`
	BingHas           bool           `json:"bingHas"`
	CompetitorDomains []string       `json:"competitorDomains,omitempty"`
	OpportunityScore  float64        `json:"opportunityScore"`
}

// Augment asks the text-generation collaborator for clusters and insights
// over the scored signals. It always returns a usable Output: on
// collaborator error, parse failure or schema violation it logs and falls
// back to clustering by category.
func Augment(ctx context.Context, client llm.Client, companyName string, signals []scoring.Signal) *Output {
	if client == nil {
		return Fallback(signals)
	}

	payload, err := buildPayload(signals)
	if err != nil {
		log.Printf("narrative payload build failed: %v", err)
		return Fallback(signals)
	}

	instructions := prompts.Format(
		prompts.MustGet("narrative.json", "clusters_and_insights"),
		map[string]string{"Company": companyName},
	)

	raw, err := client.GenerateJSON(ctx, llm.Request{
		Instructions:    instructions,
		Input:           payload,
		Temperature:     narrativeTemperature,
		MaxOutputTokens: narrativeMaxOutputTokens,
		Tier:            llm.TierAdvanced,
	})
	if err != nil {
		log.Printf("narrative generation failed, using fallback: %v", err)
		return Fallback(signals)
	}

	output, err := ParseResponse(raw, signals)
	if err != nil {
		log.Printf("narrative response rejected, using fallback: %v", err)
		return Fallback(signals)
	}
	return output
}

func buildPayload(signals []scoring.Signal) (string, error) {
	items := make([]payloadItem, 0, len(signals))
	for _, sig := range signals {
		items = append(items, payloadItem{
			ID:                sig.PromptID,
			Category:          sig.Category,
			Text:              sig.Text,
			GoogleHas:         sig.GoogleHas,
			BingHas:           sig.BingHas,
			CompetitorDomains: sig.CompetitorDomains,
			OpportunityScore:  sig.OpportunityScore,
		})
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode signal payload: %w", err)
	}
	return string(raw), nil
}
