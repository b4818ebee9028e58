package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/voice-audit/internal/config"
	"github.com/jonathan/voice-audit/internal/observability"
	"github.com/jonathan/voice-audit/internal/store"
	"github.com/jonathan/voice-audit/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run a full audit end-to-end and print the report summary",
	Long: `Runs the entire audit pipeline for one profile: prompt generation ->
presence checks on both engines -> scoring -> narrative -> report. The
report is persisted and a summary is printed to stdout.`,
	RunE: runAuditCmd,
}

var (
	runProfileID   string
	runCompany     string
	runCompanyURL  string
	runCompetitors []string
	runRegion      string
	runJSONOut     bool
)

func init() {
	runCommand.Flags().StringVar(&runProfileID, "profile", "", "Profile ID (required)")
	runCommand.Flags().StringVar(&runCompany, "company", "", "Company name (required)")
	runCommand.Flags().StringVar(&runCompanyURL, "url", "", "Company website URL (required)")
	runCommand.Flags().StringSliceVar(&runCompetitors, "competitor", nil, "Competitor URL (repeatable)")
	runCommand.Flags().StringVar(&runRegion, "region", "", "SERP region code (defaults to SERP_REGION)")
	runCommand.Flags().BoolVar(&runJSONOut, "json", false, "Print the full report as JSON instead of a summary")

	_ = runCommand.MarkFlagRequired("profile")
	_ = runCommand.MarkFlagRequired("company")
	_ = runCommand.MarkFlagRequired("url")

	rootCmd.AddCommand(runCommand)
}

func runAuditCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	region := runRegion
	if region == "" {
		region = cfg.Region
	}

	ctx := context.Background()
	wired, err := buildDeps(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to wire dependencies: %w", err)
	}
	defer wired.close()

	profile := types.Profile{
		ID:          runProfileID,
		CompanyName: runCompany,
		CompanyURL:  runCompanyURL,
		Competitors: runCompetitors,
		Region:      region,
	}

	runID, err := wired.runner.Bootstrap(ctx, profile)
	if err != nil {
		return err
	}
	fmt.Printf("Auditing %s (%s), run %s...\n", runCompany, runCompanyURL, runID)

	if err := wired.runner.Run(ctx, runProfileID, runID); err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	var rep types.OverallReport
	found, err := wired.store.Get(ctx, store.ReportPath(runProfileID), &rep)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("report missing after run")
	}

	if runJSONOut {
		return json.NewEncoder(os.Stdout).Encode(&rep)
	}

	fmt.Printf("\nReport generated at %s\n", rep.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	observability.NewPrinter(os.Stdout).PrintReport(&rep)
	return nil
}
