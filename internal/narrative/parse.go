package narrative

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/voice-audit/internal/llm"
	"github.com/jonathan/voice-audit/internal/scoring"
	"github.com/jonathan/voice-audit/internal/types"
)

//go:embed schema.json
var responseSchema string

var schemaLoader = gojsonschema.NewStringLoader(responseSchema)

// wire shapes for the collaborator response.
type responseBody struct {
	Clusters []responseCluster `json:"clusters"`
	Insights responseInsights  `json:"insights"`
}

type responseCluster struct {
	Title     string   `json:"title"`
	Icon      string   `json:"icon"`
	PromptIDs []string `json:"promptIds"`
}

type responseInsights struct {
	Strengths            []string          `json:"strengths"`
	Weaknesses           []string          `json:"weaknesses"`
	CompetitiveNarrative string            `json:"competitiveNarrative"`
	PerCategory          map[string]string `json:"perCategory"`
}

// ParseResponse validates a raw collaborator response and maps it into the
// narrative output. Recovery order: strip code fences, parse; on failure
// extract the outermost brace span and parse that. The parsed document must
// satisfy the embedded schema. Cluster entries referencing unknown prompt
// IDs are silently dropped, and each cluster's opportunity sum is recomputed
// locally from the validated scores rather than trusted from the model.
func ParseResponse(raw string, signals []scoring.Signal) (*Output, error) {
	cleaned := llm.CleanJSONBlock(raw)

	var body responseBody
	if err := json.Unmarshal([]byte(cleaned), &body); err != nil {
		extracted := llm.ExtractJSONObject(cleaned)
		if extracted == "" {
			return nil, fmt.Errorf("response contains no JSON object: %w", err)
		}
		if err := json.Unmarshal([]byte(extracted), &body); err != nil {
			return nil, fmt.Errorf("failed to parse extracted JSON object: %w", err)
		}
		cleaned = extracted
	}

	if err := validateSchema(cleaned); err != nil {
		return nil, err
	}

	scoreByID := make(map[types.PromptID]float64, len(signals))
	categoryByID := make(map[types.PromptID]types.Category, len(signals))
	for _, sig := range signals {
		scoreByID[sig.PromptID] = sig.OpportunityScore
		categoryByID[sig.PromptID] = sig.Category
	}

	clusters := make([]types.Cluster, 0, len(body.Clusters))
	for _, rc := range body.Clusters {
		cluster := types.Cluster{
			Title: rc.Title,
			Icon:  types.ClusterIcon(rc.Icon),
		}
		sum := 0.0
		for _, rawID := range rc.PromptIDs {
			id := types.PromptID(rawID)
			score, known := scoreByID[id]
			if !known {
				continue // unknown prompt reference: drop silently
			}
			cluster.PromptIDs = append(cluster.PromptIDs, id)
			sum += score
		}
		if len(cluster.PromptIDs) == 0 {
			continue
		}
		cluster.OpportunitySum = sum
		clusters = append(clusters, cluster)
	}
	if len(clusters) == 0 {
		return nil, fmt.Errorf("no cluster references a known prompt")
	}

	insights := types.Insights{
		Strengths:            body.Insights.Strengths,
		Weaknesses:           body.Insights.Weaknesses,
		CompetitiveNarrative: body.Insights.CompetitiveNarrative,
		PerCategory:          make(map[types.Category]string),
	}
	for rawCategory, text := range body.Insights.PerCategory {
		category := types.Category(rawCategory)
		if category.Valid() && text != "" {
			insights.PerCategory[category] = text
		}
	}

	return &Output{
		Clusters: clusters,
		Insights: insights,
		Source:   types.NarrativeFromModel,
	}, nil
}

func validateSchema(document string) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(document))
	if err != nil {
		return fmt.Errorf("schema validation errored: %w", err)
	}
	if !result.Valid() {
		first := "unknown violation"
		if errs := result.Errors(); len(errs) > 0 {
			first = errs[0].String()
		}
		return fmt.Errorf("response violates narrative schema: %s", first)
	}
	return nil
}
