// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/voice-audit/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted report output.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintMetrics outputs the scalar summary of a report.
func (p *Printer) PrintMetrics(rep *types.OverallReport) {
	if rep == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Prompts audited:     %d\n", rep.Metrics.PromptCount))
	sb.WriteString(fmt.Sprintf("Share of voice:      %.1f%%\n", rep.Metrics.ShareOfVoice*100))
	sb.WriteString(fmt.Sprintf("White space:         %.1f%%\n", rep.Metrics.WhiteSpacePct*100))
	sb.WriteString(fmt.Sprintf("Competitor pressure: %.2f\n", rep.Metrics.CompetitorPressureIdx))
	sb.WriteString(fmt.Sprintf("Narrative source:    %s", rep.NarrativeSource))

	p.printBox("Audit Metrics", sb.String())
}

// PrintCategories outputs per-category presence and pressure.
func (p *Printer) PrintCategories(summaries []types.CategorySummary) {
	if len(summaries) == 0 {
		return
	}

	var sb strings.Builder
	for i, summary := range summaries {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%-20s %2d prompts  presence %3.0f%%  pressure %.2f",
			summary.Category, summary.PromptCount, summary.PresencePct*100, summary.MeanCompetitorPressure))
	}

	p.printBox("Categories", sb.String())
}

// PrintTopOpportunities outputs the money-prompt shortlist.
func (p *Printer) PrintTopOpportunities(rep *types.OverallReport) {
	if rep == nil || len(rep.Metrics.TopMoneyPrompts) == 0 {
		return
	}

	var sb strings.Builder
	for i, mp := range rep.Metrics.TopMoneyPrompts {
		if i >= maxItemsToShow {
			sb.WriteString(fmt.Sprintf("... and %d more", len(rep.Metrics.TopMoneyPrompts)-maxItemsToShow))
			break
		}
		sb.WriteString(fmt.Sprintf("%.3f  %s\n", mp.OpportunityScore, mp.Text))
	}

	p.printBox("Top Opportunities", strings.TrimRight(sb.String(), "\n"))
}

// PrintNextActions outputs the ranked content recommendations.
func (p *Printer) PrintNextActions(actions []types.NextAction) {
	if len(actions) == 0 {
		return
	}

	var sb strings.Builder
	for _, action := range actions {
		sb.WriteString(fmt.Sprintf("%2d. [%s] %s\n", action.Rank, action.Category, action.Text))
		sb.WriteString(fmt.Sprintf("    -> %s\n", action.Outline.ArtifactType))
	}

	p.printBox("Next Actions", strings.TrimRight(sb.String(), "\n"))
}

// PrintClusters outputs the narrative clusters.
func (p *Printer) PrintClusters(clusters []types.Cluster) {
	if len(clusters) == 0 {
		return
	}

	var sb strings.Builder
	for i, cluster := range clusters {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%s (%d prompts, sum %.3f)",
			cluster.Title, len(cluster.PromptIDs), cluster.OpportunitySum))
	}

	p.printBox("Clusters", sb.String())
}

// PrintReport outputs the full human-readable report summary.
func (p *Printer) PrintReport(rep *types.OverallReport) {
	if rep == nil {
		return
	}
	p.PrintMetrics(rep)
	p.PrintCategories(rep.Categories)
	p.PrintTopOpportunities(rep)
	p.PrintClusters(rep.Clusters)
	p.PrintNextActions(rep.NextActions)
}
