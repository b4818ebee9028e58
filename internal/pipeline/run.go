// Package pipeline provides the high-level orchestration for a full audit
// run: prompt generation, volume enrichment, SERP presence checks, scoring,
// narrative augmentation and report assembly.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/voice-audit/internal/llm"
	"github.com/jonathan/voice-audit/internal/narrative"
	"github.com/jonathan/voice-audit/internal/orchestrator"
	"github.com/jonathan/voice-audit/internal/promptgen"
	"github.com/jonathan/voice-audit/internal/report"
	"github.com/jonathan/voice-audit/internal/scoring"
	"github.com/jonathan/voice-audit/internal/serp"
	"github.com/jonathan/voice-audit/internal/store"
	"github.com/jonathan/voice-audit/internal/types"
	"github.com/jonathan/voice-audit/internal/volume"
)

// Progress milestones for the stages the pipeline drives directly. The SERP
// batch maps its own completion onto the orchestrator's range.
const (
	progressBootstrap  = 5
	progressGenStart   = 10
	progressGenEnd     = 30
	progressEnriched   = 40
	progressAssembling = 98
	progressDone       = 100
)

// ErrPromptsPending is returned by RefreshReport while any prompt still has
// a non-terminal result on either engine.
var ErrPromptsPending = errors.New("prompts still being checked")

// ErrProfileNotFound is returned when the profile does not exist.
var ErrProfileNotFound = errors.New("profile not found")

// RunRecord is the stored history entry for one pipeline run.
type RunRecord struct {
	ID         string    `json:"id"`
	ProfileID  string    `json:"profileId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// Options holds the collaborators a Runner needs. Volume is optional.
type Options struct {
	Store              store.Store
	LLM                llm.Client
	Searcher           serp.Searcher
	Volume             volume.Provider
	PromptsPerCategory int
	Concurrency        int
	Language           string
	LocationCode       int
}

// Runner executes audit pipelines against one store.
type Runner struct {
	store        store.Store
	llm          llm.Client
	volume       volume.Provider
	gen          *promptgen.Generator
	orch         *orchestrator.Orchestrator
	perCategory  int
	language     string
	locationCode int
}

// New creates a Runner.
func New(opts Options) *Runner {
	perCategory := opts.PromptsPerCategory
	if perCategory <= 0 {
		perCategory = promptgen.DefaultCountPerCategory
	}
	language := opts.Language
	if language == "" {
		language = "en"
	}
	return &Runner{
		store:        opts.Store,
		llm:          opts.LLM,
		volume:       opts.Volume,
		gen:          promptgen.New(opts.LLM, opts.Store),
		orch:         orchestrator.New(opts.Store, opts.Searcher, orchestrator.Options{Concurrency: opts.Concurrency}),
		perCategory:  perCategory,
		language:     language,
		locationCode: opts.LocationCode,
	}
}

// Bootstrap stores the profile in running state and records a new run.
// The returned run ID identifies the record Run will close out.
func (r *Runner) Bootstrap(ctx context.Context, profile types.Profile) (string, error) {
	profile.Status = types.ProfileRunning
	profile.Progress = progressBootstrap
	profile.LastError = ""
	if err := r.store.Set(ctx, store.ProfilePath(profile.ID), profile); err != nil {
		return "", fmt.Errorf("failed to store profile: %w", err)
	}

	runID := uuid.NewString()
	record := RunRecord{
		ID:        runID,
		ProfileID: profile.ID,
		StartedAt: time.Now().UTC(),
		Status:    "running",
	}
	if err := r.store.Set(ctx, store.RunPath(profile.ID, runID), record); err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return runID, nil
}

// Run executes the full pipeline for a bootstrapped profile. Critical
// failures mark the profile as errored and close the run record; volume and
// narrative failures degrade without failing the run.
func (r *Runner) Run(ctx context.Context, profileID, runID string) error {
	profile, err := r.loadProfile(ctx, profileID)
	if err != nil {
		r.failRun(ctx, profileID, runID, err)
		return err
	}

	prompts, err := r.generatePrompts(ctx, *profile)
	if err != nil {
		r.failRun(ctx, profileID, runID, fmt.Errorf("prompt generation failed: %w", err))
		return err
	}
	if len(prompts) == 0 {
		err := fmt.Errorf("no prompts available for profile %s", profileID)
		r.failRun(ctx, profileID, runID, err)
		return err
	}

	r.enrichVolumes(ctx, profileID, prompts)
	r.writeProgress(ctx, profileID, progressEnriched)

	completion, err := r.orch.RunBatch(ctx, *profile, prompts, orchestrator.DefaultProgress)
	if err != nil {
		r.failRun(ctx, profileID, runID, fmt.Errorf("presence check batch failed: %w", err))
		return err
	}
	if completion.Errored > 0 {
		log.Printf("profile %s: %d of %d prompts finished with engine errors", profileID, completion.Errored, completion.Done+completion.Errored)
	}

	r.writeProgress(ctx, profileID, progressAssembling)
	if err := r.assembleReport(ctx, *profile, prompts); err != nil {
		r.failRun(ctx, profileID, runID, fmt.Errorf("report assembly failed: %w", err))
		return err
	}

	if err := r.store.Update(ctx, store.ProfilePath(profileID), map[string]any{
		"status":    types.ProfileDone,
		"progress":  progressDone,
		"lastError": "",
	}); err != nil {
		return fmt.Errorf("failed to finalize profile: %w", err)
	}
	r.closeRun(ctx, profileID, runID, "completed", "")
	return nil
}

// CheckPrompts runs single-prompt presence checks, used after manual adds
// and one-category generations. Engine errors land in the stored results;
// only infrastructure failures are returned.
func (r *Runner) CheckPrompts(ctx context.Context, profile types.Profile, prompts []types.Prompt) error {
	for _, prompt := range prompts {
		if err := r.orch.RunPrompt(ctx, profile, prompt); err != nil {
			return err
		}
	}
	return nil
}

// RefreshReport recomputes scoring and narrative from the stored results and
// overwrites the report. Returns ErrPromptsPending while any prompt is still
// checking.
func (r *Runner) RefreshReport(ctx context.Context, profileID string) (*types.OverallReport, error) {
	profile, err := r.loadProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	prompts, err := promptgen.ListPrompts(ctx, r.store, profileID)
	if err != nil {
		return nil, err
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("no prompts for profile %s", profileID)
	}
	results, err := LoadResults(ctx, r.store, profileID)
	if err != nil {
		return nil, err
	}
	for _, prompt := range prompts {
		if !results[prompt.ID].Terminal() {
			return nil, ErrPromptsPending
		}
	}

	rep := r.buildReport(ctx, *profile, prompts, results)
	if err := report.Save(ctx, r.store, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// GeneratePrompts adds a batch of generated prompts for one category and
// checks each new prompt.
func (r *Runner) GeneratePrompts(ctx context.Context, profileID string, category types.Category, count int) ([]types.Prompt, error) {
	profile, err := r.loadProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = r.perCategory
	}
	prompts, err := r.gen.Generate(ctx, *profile, category, count)
	if err != nil {
		return nil, err
	}
	if err := r.CheckPrompts(ctx, *profile, prompts); err != nil {
		return nil, err
	}
	return prompts, nil
}

// AddPrompt stores one manual prompt and checks it.
func (r *Runner) AddPrompt(ctx context.Context, profileID string, category types.Category, text string) (*types.Prompt, error) {
	profile, err := r.loadProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	prompt, err := r.gen.AddManual(ctx, profileID, category, text)
	if err != nil {
		return nil, err
	}
	if err := r.CheckPrompts(ctx, *profile, []types.Prompt{*prompt}); err != nil {
		return nil, err
	}
	return prompt, nil
}

func (r *Runner) loadProfile(ctx context.Context, profileID string) (*types.Profile, error) {
	var profile types.Profile
	found, err := r.store.Get(ctx, store.ProfilePath(profileID), &profile)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if !found {
		return nil, ErrProfileNotFound
	}
	return &profile, nil
}

// generatePrompts fills each category that has none yet, mapping progress
// across the generation range. Categories with existing prompts keep them.
func (r *Runner) generatePrompts(ctx context.Context, profile types.Profile) ([]types.Prompt, error) {
	existing, err := promptgen.ListPrompts(ctx, r.store, profile.ID)
	if err != nil {
		return nil, err
	}
	have := make(map[types.Category]bool)
	for _, prompt := range existing {
		have[prompt.Category] = true
	}

	r.writeProgress(ctx, profile.ID, progressGenStart)
	span := progressGenEnd - progressGenStart
	for i, category := range types.Categories {
		if have[category] {
			continue
		}
		if _, err := r.gen.Generate(ctx, profile, category, r.perCategory); err != nil {
			return nil, fmt.Errorf("category %s: %w", category, err)
		}
		r.writeProgress(ctx, profile.ID, progressGenStart+span*(i+1)/len(types.Categories))
	}
	r.writeProgress(ctx, profile.ID, progressGenEnd)

	return promptgen.ListPrompts(ctx, r.store, profile.ID)
}

// enrichVolumes attaches search volumes to prompts when the volume
// collaborator is configured. Failures only cost the volume numbers.
func (r *Runner) enrichVolumes(ctx context.Context, profileID string, prompts []types.Prompt) {
	if r.volume == nil {
		return
	}
	keywords := make([]string, 0, len(prompts))
	for _, prompt := range prompts {
		keywords = append(keywords, prompt.Text)
	}
	entries, err := r.volume.Lookup(ctx, volume.Request{
		Keywords:     keywords,
		Language:     r.language,
		LocationCode: r.locationCode,
	})
	if err != nil {
		log.Printf("volume enrichment failed for profile %s: %v", profileID, err)
		return
	}
	for i := range prompts {
		entry, ok := entries[prompts[i].Text]
		if !ok || entry.Volume == 0 {
			continue
		}
		prompts[i].Volume = entry.Volume
		path := store.PromptPath(profileID, prompts[i].Category, prompts[i].Sequence)
		if err := r.store.Update(ctx, path, map[string]any{"volume": entry.Volume}); err != nil {
			log.Printf("failed to store volume for %s: %v", prompts[i].ID, err)
		}
	}
}

func (r *Runner) assembleReport(ctx context.Context, profile types.Profile, prompts []types.Prompt) error {
	results, err := LoadResults(ctx, r.store, profile.ID)
	if err != nil {
		return err
	}
	rep := r.buildReport(ctx, profile, prompts, results)
	return report.Save(ctx, r.store, rep)
}

func (r *Runner) buildReport(ctx context.Context, profile types.Profile, prompts []types.Prompt, results map[types.PromptID]types.ResultSet) *types.OverallReport {
	computed := scoring.Compute(prompts, results)
	enrichment := narrative.Augment(ctx, r.llm, profile.CompanyName, computed.Signals)
	return report.Assemble(profile.ID, computed, enrichment, time.Now().UTC())
}

func (r *Runner) writeProgress(ctx context.Context, profileID string, pct int) {
	if err := r.store.Update(ctx, store.ProfilePath(profileID), map[string]any{"progress": pct}); err != nil {
		log.Printf("failed to write progress for %s: %v", profileID, err)
	}
}

func (r *Runner) failRun(ctx context.Context, profileID, runID string, cause error) {
	if err := r.store.Update(ctx, store.ProfilePath(profileID), map[string]any{
		"status":    types.ProfileError,
		"lastError": cause.Error(),
	}); err != nil {
		log.Printf("failed to mark profile %s errored: %v", profileID, err)
	}
	r.closeRun(ctx, profileID, runID, "error", cause.Error())
}

func (r *Runner) closeRun(ctx context.Context, profileID, runID, status, message string) {
	if runID == "" {
		return
	}
	fields := map[string]any{
		"status":     status,
		"finishedAt": time.Now().UTC(),
	}
	if message != "" {
		fields["error"] = message
	}
	if err := r.store.Update(ctx, store.RunPath(profileID, runID), fields); err != nil {
		log.Printf("failed to close run %s: %v", runID, err)
	}
}

// LoadResults reads every stored engine result for a profile and groups
// them per prompt.
func LoadResults(ctx context.Context, st store.Store, profileID string) (map[types.PromptID]types.ResultSet, error) {
	entries, err := st.List(ctx, store.ResultsPrefix(profileID))
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	results := make(map[types.PromptID]types.ResultSet)
	for path, raw := range entries {
		rel := strings.TrimPrefix(path, store.ResultsPrefix(profileID))
		idx := strings.LastIndex(rel, "/")
		if idx < 0 {
			continue
		}
		promptID := types.PromptID(rel[:idx])
		engine := types.Engine(rel[idx+1:])
		if engine != types.EngineGoogle && engine != types.EngineBing {
			continue
		}
		var result types.EngineResult
		if err := json.Unmarshal(raw, &result); err != nil {
			log.Printf("skipping unreadable result at %s: %v", path, err)
			continue
		}
		if results[promptID] == nil {
			results[promptID] = make(types.ResultSet)
		}
		results[promptID][engine] = &result
	}
	return results, nil
}
