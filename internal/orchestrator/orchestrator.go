// Package orchestrator drives concurrent presence checks per prompt across
// both engines, persists per-prompt per-engine status transitions, and
// reports aggregate completion for the batch.
package orchestrator

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/jonathan/voice-audit/internal/domain"
	"github.com/jonathan/voice-audit/internal/presence"
	"github.com/jonathan/voice-audit/internal/serp"
	"github.com/jonathan/voice-audit/internal/store"
	"github.com/jonathan/voice-audit/internal/types"
)

const (
	// DefaultConcurrency bounds how many prompts are in flight at once,
	// to respect the search collaborator's rate limits.
	DefaultConcurrency = 4

	// DefaultCallTimeout is the budget for one engine's check of one
	// prompt, follow-up product calls included.
	DefaultCallTimeout = 60 * time.Second
)

// ProgressRange maps batch completion onto the profile's progress
// percentage, e.g. 72 at batch start climbing to 97 when every prompt is
// terminal.
type ProgressRange struct {
	Start int
	End   int
}

// DefaultProgress is the SERP phase's slice of the pipeline progress bar.
var DefaultProgress = ProgressRange{Start: 72, End: 97}

// at returns the progress percentage when completed of total prompts are
// terminal.
func (r ProgressRange) at(completed, total int) int {
	if total <= 0 {
		return r.End
	}
	return r.Start + (r.End-r.Start)*completed/total
}

// Completion is the aggregate outcome of a batch run.
type Completion struct {
	Done    int
	Errored int
}

// Options configures the orchestrator.
type Options struct {
	Concurrency int
	CallTimeout time.Duration
}

// Orchestrator owns every per-prompt result write for a run.
type Orchestrator struct {
	store       store.Store
	searcher    serp.Searcher
	concurrency int64
	callTimeout time.Duration
}

// New creates an orchestrator over the given store and search collaborator.
func New(st store.Store, searcher serp.Searcher, opts Options) *Orchestrator {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Orchestrator{
		store:       st,
		searcher:    searcher,
		concurrency: int64(concurrency),
		callTimeout: timeout,
	}
}

// RunBatch checks every prompt for the profile. All (prompt, engine) pairs
// are written as checking before the first lookup goes out, so live
// subscribers see immediate feedback. Each pair then transitions exactly
// once to done or error; one engine's failure never blocks the other.
func (o *Orchestrator) RunBatch(ctx context.Context, profile types.Profile, prompts []types.Prompt, progress ProgressRange) (*Completion, error) {
	companyDomain := domain.HostnameFromURL(profile.CompanyURL)
	competitorDomains := resolveCompetitors(profile.Competitors)

	for _, prompt := range prompts {
		for _, engine := range types.Engines {
			if err := o.store.Set(ctx, store.ResultPath(profile.ID, prompt.ID, engine), types.EngineResult{Status: types.StatusChecking}); err != nil {
				return nil, err
			}
		}
	}
	if err := o.writeProgress(ctx, profile.ID, progress.at(0, len(prompts))); err != nil {
		return nil, err
	}

	sem := semaphore.NewWeighted(o.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	completion := &Completion{}
	completed := 0

	for _, prompt := range prompts {
		if err := sem.Acquire(ctx, 1); err != nil {
			return completion, err
		}
		wg.Add(1)
		go func(prompt types.Prompt) {
			defer wg.Done()
			defer sem.Release(1)

			errored := o.checkPrompt(ctx, profile, prompt, companyDomain, competitorDomains)

			mu.Lock()
			completed++
			if errored {
				completion.Errored++
			} else {
				completion.Done++
			}
			pct := progress.at(completed, len(prompts))
			mu.Unlock()

			if err := o.writeProgress(ctx, profile.ID, pct); err != nil {
				log.Printf("failed to write progress for profile %s: %v", profile.ID, err)
			}
		}(prompt)
	}
	wg.Wait()

	return completion, nil
}

// RunPrompt checks a single prompt with the same per-engine logic and no
// batch bookkeeping. Used for incrementally added prompts.
func (o *Orchestrator) RunPrompt(ctx context.Context, profile types.Profile, prompt types.Prompt) error {
	companyDomain := domain.HostnameFromURL(profile.CompanyURL)
	competitorDomains := resolveCompetitors(profile.Competitors)

	for _, engine := range types.Engines {
		if err := o.store.Set(ctx, store.ResultPath(profile.ID, prompt.ID, engine), types.EngineResult{Status: types.StatusChecking}); err != nil {
			return err
		}
	}
	o.checkPrompt(ctx, profile, prompt, companyDomain, competitorDomains)
	return nil
}

// checkPrompt runs both engines concurrently and writes each terminal
// result. Returns true when at least one engine errored.
func (o *Orchestrator) checkPrompt(ctx context.Context, profile types.Profile, prompt types.Prompt, companyDomain string, competitorDomains []string) bool {
	g, gCtx := errgroup.WithContext(ctx)
	var googleErr, bingErr error

	g.Go(func() error {
		googleErr = o.checkEngine(gCtx, profile, prompt, types.EngineGoogle, companyDomain, competitorDomains)
		return nil // engine failures are recorded, not propagated
	})
	g.Go(func() error {
		bingErr = o.checkEngine(gCtx, profile, prompt, types.EngineBing, companyDomain, competitorDomains)
		return nil
	})
	_ = g.Wait()

	return googleErr != nil || bingErr != nil
}

// checkEngine performs one engine's lookup, analyzes its channels, and
// writes the terminal result. Errors are written as error status with the
// message preserved.
func (o *Orchestrator) checkEngine(ctx context.Context, profile types.Profile, prompt types.Prompt, engine types.Engine, companyDomain string, competitorDomains []string) error {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	result, err := o.lookup(callCtx, profile, prompt, engine, companyDomain, competitorDomains)
	path := store.ResultPath(profile.ID, prompt.ID, engine)
	if err != nil {
		log.Printf("presence check failed for %s on %s: %v", prompt.ID, engine, err)
		writeErr := o.store.Set(ctx, path, types.EngineResult{
			Status: types.StatusError,
			Error:  err.Error(),
		})
		if writeErr != nil {
			log.Printf("failed to write error result for %s on %s: %v", prompt.ID, engine, writeErr)
		}
		return err
	}
	if writeErr := o.store.Set(ctx, path, *result); writeErr != nil {
		log.Printf("failed to write result for %s on %s: %v", prompt.ID, engine, writeErr)
		return writeErr
	}
	return nil
}

func (o *Orchestrator) lookup(ctx context.Context, profile types.Profile, prompt types.Prompt, engine types.Engine, companyDomain string, competitorDomains []string) (*types.EngineResult, error) {
	resp, err := o.searcher.Search(ctx, serp.Request{
		Query:  prompt.Text,
		Engine: engine,
		Region: profile.Region,
	})
	if err != nil {
		return nil, err
	}

	organic := presence.AnalyzeURLs(resp.Top10, companyDomain, competitorDomains)
	result := &types.EngineResult{
		Status:         types.StatusDone,
		Top10:          resp.Top10,
		HasCompany:     organic.HasCompany,
		CompetitorsHit: organic.CompetitorsHit,
	}

	if engine != types.EngineGoogle {
		return result, nil
	}

	if len(resp.Shopping) > 0 {
		links := make([]string, 0, len(resp.Shopping))
		sellers := make([]string, 0, len(resp.Shopping))
		for _, listing := range resp.Shopping {
			if listing.Link != "" {
				links = append(links, listing.Link)
			}
			if listing.Seller != "" {
				sellers = append(sellers, listing.Seller)
			}
		}
		sig := presence.AnalyzeURLs(links, companyDomain, competitorDomains)
		result.Shopping = &types.ShoppingBlock{
			HasCompany:     sig.HasCompany,
			CompetitorsHit: sig.CompetitorsHit,
			Sellers:        sellers,
		}
	}

	if len(resp.Immersive) > 0 {
		// Follow-up calls run sequentially per listing: a SERP carries at
		// most a handful, and the collaborator rate-limits aggressively.
		var brands, sellers []string
		for _, ref := range resp.Immersive {
			info, lookupErr := o.searcher.ProductLookup(ctx, ref.PageToken)
			if lookupErr != nil {
				log.Printf("immersive follow-up failed for %s: %v", prompt.ID, lookupErr)
				continue
			}
			if info.Brand != "" {
				brands = append(brands, info.Brand)
			}
			sellers = append(sellers, info.Sellers...)
		}
		sig := presence.AnalyzeBrands(brands, companyDomain, competitorDomains)
		result.Immersive = &types.ImmersiveBlock{
			HasCompany:     sig.HasCompany,
			Brands:         brands,
			CompetitorsHit: sig.CompetitorsHit,
			Sellers:        sellers,
		}
	}

	return result, nil
}

func (o *Orchestrator) writeProgress(ctx context.Context, profileID string, pct int) error {
	return o.store.Update(ctx, store.ProfilePath(profileID), map[string]any{
		"progress": pct,
	})
}

func resolveCompetitors(competitors []string) []string {
	resolved := make([]string, 0, len(competitors))
	for _, competitor := range competitors {
		if host := domain.HostnameFromURL(competitor); host != "" {
			resolved = append(resolved, host)
		}
	}
	return resolved
}
