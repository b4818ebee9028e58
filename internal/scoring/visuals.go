package scoring

import (
	"strings"

	"github.com/jonathan/voice-audit/internal/types"
)

// maxLabelLength bounds chart labels so long prompt texts do not break
// dashboard layouts.
const maxLabelLength = 64

func buildVisualData(signals []Signal) types.VisualData {
	return types.VisualData{
		Heatmap:      buildHeatmap(signals),
		BubbleMatrix: buildBubbleMatrix(signals),
		Funnel:       buildFunnel(signals),
		Radar:        buildRadar(signals),
	}
}

func buildHeatmap(signals []Signal) []types.HeatmapRow {
	rows := make([]types.HeatmapRow, 0, len(signals))
	for _, sig := range signals {
		rows = append(rows, types.HeatmapRow{
			PromptID:        sig.PromptID,
			Label:           truncateLabel(sig.Text),
			Category:        sig.Category,
			Google:          sig.GoogleHas,
			Bing:            sig.BingHas,
			CompetitorCount: len(sig.CompetitorDomains),
		})
	}
	return rows
}

func buildBubbleMatrix(signals []Signal) []types.BubblePoint {
	points := make([]types.BubblePoint, 0, len(signals))
	for _, sig := range signals {
		points = append(points, types.BubblePoint{
			PromptID: sig.PromptID,
			Label:    truncateLabel(sig.Text),
			Category: sig.Category,
			X:        sig.CompetitorPressure,
			Y:        round3(sig.MissingPresence * sig.CategoryWeight),
			Size:     sig.OpportunityScore,
		})
	}
	return points
}

// buildFunnel splits each category into present / competitor-only /
// white-space fractions; the three sum to 1 for a non-empty category.
func buildFunnel(signals []Signal) []types.FunnelRow {
	rows := make([]types.FunnelRow, 0, len(types.Categories))
	for _, category := range types.Categories {
		group := filterByCategory(signals, category)
		row := types.FunnelRow{Category: category}
		if len(group) > 0 {
			present := 0
			competitorOnly := 0
			whiteSpace := 0
			for _, sig := range group {
				switch {
				case sig.Present():
					present++
				case len(sig.CompetitorDomains) > 0:
					competitorOnly++
				default:
					whiteSpace++
				}
			}
			total := float64(len(group))
			row.PresentPct = float64(present) / total
			row.CompetitorPct = float64(competitorOnly) / total
			row.WhiteSpacePct = float64(whiteSpace) / total
		}
		rows = append(rows, row)
	}
	return rows
}

func buildRadar(signals []Signal) []types.RadarRow {
	rows := make([]types.RadarRow, 0, len(types.Categories))
	for _, category := range types.Categories {
		group := filterByCategory(signals, category)
		row := types.RadarRow{Category: category}
		if len(group) > 0 {
			present := 0
			pressureSum := 0.0
			for _, sig := range group {
				if sig.Present() {
					present++
				}
				pressureSum += sig.CompetitorPressure
			}
			row.PresencePct = float64(present) / float64(len(group))
			row.PressurePct = pressureSum / float64(len(group))
		}
		rows = append(rows, row)
	}
	return rows
}

func truncateLabel(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= maxLabelLength {
		return text
	}
	return strings.TrimSpace(string(runes[:maxLabelLength-1])) + "…"
}
