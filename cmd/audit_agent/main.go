// Package main provides the entry point for the Voice Audit HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "audit_agent",
	Short: "AI-search share-of-voice audit service",
	Long:  "Voice Audit measures how often a company appears in AI-search answers versus its competitors, scores the gaps, and produces a prioritized content report via REST API.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
