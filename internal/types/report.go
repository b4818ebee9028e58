package types

import "time"

// ReportVersion is the schema version stamped on every generated report.
// Bump when the report shape changes in a way the dashboard must detect.
const ReportVersion = 2

// ClusterIcon is the fixed icon-tag vocabulary for narrative clusters.
type ClusterIcon string

const (
	IconLightbulb  ClusterIcon = "lightbulb"
	IconAlert      ClusterIcon = "alert"
	IconCompare    ClusterIcon = "compare"
	IconSearch     ClusterIcon = "search"
	IconTrendingUp ClusterIcon = "trending-up"
	IconTarget     ClusterIcon = "target"
)

// ClusterIcons lists the accepted icon tags.
var ClusterIcons = []ClusterIcon{
	IconLightbulb, IconAlert, IconCompare, IconSearch, IconTrendingUp, IconTarget,
}

// ValidClusterIcon reports whether s is an accepted icon tag.
func ValidClusterIcon(s string) bool {
	for _, icon := range ClusterIcons {
		if string(icon) == s {
			return true
		}
	}
	return false
}

// ReportMetrics is the scalar summary at the top of a report.
type ReportMetrics struct {
	ShareOfVoice          float64            `json:"shareOfVoice"`
	WhiteSpacePct         float64            `json:"whiteSpacePct"`
	CompetitorPressureIdx float64            `json:"competitorPressureIdx"`
	PromptCount           int                `json:"promptCount"`
	TopMoneyPrompts       []MoneyPrompt      `json:"topMoneyPrompts"`
	CategoryWeights       map[string]float64 `json:"categoryWeights"`
}

// MoneyPrompt is one entry in the top-opportunity shortlist.
type MoneyPrompt struct {
	PromptID         PromptID `json:"promptId"`
	Text             string   `json:"text"`
	OpportunityScore float64  `json:"opportunityScore"`
}

// CategorySummary aggregates presence and pressure for one category.
type CategorySummary struct {
	Category               Category   `json:"category"`
	PromptCount            int        `json:"promptCount"`
	PresencePct            float64    `json:"presencePct"`
	MeanCompetitorPressure float64    `json:"meanCompetitorPressure"`
	TopOpportunities       []PromptID `json:"topOpportunities"`
}

// Cluster is a thematic grouping of prompts, normally model-derived.
type Cluster struct {
	Title          string      `json:"title"`
	Icon           ClusterIcon `json:"icon"`
	PromptIDs      []PromptID  `json:"promptIds"`
	OpportunitySum float64     `json:"opportunitySum"`
}

// Opportunity is the scored record for a single prompt.
type Opportunity struct {
	PromptID           PromptID `json:"promptId"`
	Text               string   `json:"text"`
	Category           Category `json:"category"`
	GoogleHas          bool     `json:"googleHas"`
	BingHas            bool     `json:"bingHas"`
	CompetitorDomains  []string `json:"competitorDomains,omitempty"`
	MissingPresence    float64  `json:"missingPresence"`
	CompetitorPressure float64  `json:"competitorPressure"`
	CategoryWeight     float64  `json:"categoryWeight"`
	OpportunityScore   float64  `json:"opportunityScore"`
	Volume             int      `json:"volume,omitempty"`
}

// OutlineSection is one heading with its bullets in a generated outline.
type OutlineSection struct {
	Heading string   `json:"heading"`
	Bullets []string `json:"bullets"`
}

// ContentOutline is the deterministic, rule-generated content plan
// attached to a next action.
type ContentOutline struct {
	ArtifactType string           `json:"artifactType"`
	Steps        []string         `json:"steps"`
	Sections     []OutlineSection `json:"sections"`
}

// NextAction is one ranked content recommendation.
type NextAction struct {
	Rank             int            `json:"rank"`
	PromptID         PromptID       `json:"promptId"`
	Text             string         `json:"text"`
	Category         Category       `json:"category"`
	OpportunityScore float64        `json:"opportunityScore"`
	Why              []string       `json:"why"`
	Outline          ContentOutline `json:"outline"`
}

// HeatmapRow is one prompt's channel booleans plus competitor count.
type HeatmapRow struct {
	PromptID        PromptID `json:"promptId"`
	Label           string   `json:"label"`
	Category        Category `json:"category"`
	Google          bool     `json:"google"`
	Bing            bool     `json:"bing"`
	CompetitorCount int      `json:"competitorCount"`
}

// BubblePoint is one prompt projected onto the opportunity bubble matrix.
type BubblePoint struct {
	PromptID PromptID `json:"promptId"`
	Label    string   `json:"label"`
	Category Category `json:"category"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Size     float64  `json:"size"`
}

// FunnelRow splits one category into present / competitor-only / white-space
// fractions. The three fractions sum to 1 for a non-empty category.
type FunnelRow struct {
	Category      Category `json:"category"`
	PresentPct    float64  `json:"presentPct"`
	CompetitorPct float64  `json:"competitorPct"`
	WhiteSpacePct float64  `json:"whiteSpacePct"`
}

// RadarRow carries presence and pressure per category for the radar chart.
type RadarRow struct {
	Category    Category `json:"category"`
	PresencePct float64  `json:"presencePct"`
	PressurePct float64  `json:"pressurePct"`
}

// VisualData groups the chart-shaped projections of the computed metrics.
type VisualData struct {
	Heatmap      []HeatmapRow  `json:"heatmap"`
	BubbleMatrix []BubblePoint `json:"bubbleMatrix"`
	Funnel       []FunnelRow   `json:"funnel"`
	Radar        []RadarRow    `json:"radar"`
}

// Insights is the qualitative narrative block of the report.
type Insights struct {
	Strengths            []string            `json:"strengths"`
	Weaknesses           []string            `json:"weaknesses"`
	CompetitiveNarrative string              `json:"competitiveNarrative"`
	PerCategory          map[Category]string `json:"perCategory"`
}

// NarrativeSource records whether the narrative block came from the model
// or from the deterministic fallback.
type NarrativeSource string

const (
	NarrativeFromModel    NarrativeSource = "model"
	NarrativeFromFallback NarrativeSource = "fallback"
)

// OverallReport is the single aggregate artifact consumed by the dashboard.
// It is regenerated wholesale on each run; never merged incrementally.
type OverallReport struct {
	Version         int               `json:"version"`
	GeneratedAt     time.Time         `json:"generatedAt"`
	ProfileID       string            `json:"profileId"`
	Metrics         ReportMetrics     `json:"metrics"`
	Categories      []CategorySummary `json:"categories"`
	Clusters        []Cluster         `json:"clusters"`
	Opportunities   []Opportunity     `json:"opportunities"`
	NextActions     []NextAction      `json:"nextActions"`
	VisualData      VisualData        `json:"visualData"`
	Insights        Insights          `json:"insights"`
	NarrativeSource NarrativeSource   `json:"narrativeSource"`
}
