package main

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/jonathan/voice-audit/internal/config"
	"github.com/jonathan/voice-audit/internal/llm"
	"github.com/jonathan/voice-audit/internal/pipeline"
	"github.com/jonathan/voice-audit/internal/serp"
	"github.com/jonathan/voice-audit/internal/store"
	"github.com/jonathan/voice-audit/internal/volume"
)

// deps bundles the wired collaborators shared by serve and run.
type deps struct {
	store  store.Store
	llm    llm.Client
	runner *pipeline.Runner
}

func (d *deps) close() {
	if d.llm != nil {
		if err := d.llm.Close(); err != nil {
			log.Printf("failed to close LLM client: %v", err)
		}
	}
	if d.store != nil {
		d.store.Close()
	}
}

// buildDeps wires the store, LLM, SERP and volume clients from config.
func buildDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		st = pg
	} else {
		log.Println("DATABASE_URL not set, using in-memory store")
		st = store.NewMemory()
	}

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.GeminiAPIKey)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	searcher, err := serp.NewClient(serp.ClientOptions{
		BaseURL: cfg.SerpAPIURL,
		APIKey:  cfg.SerpAPIKey,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create SERP client: %w", err)
	}

	var volumes volume.Provider
	if cfg.VolumeEnabled() {
		var cache volume.Cache
		if cfg.RedisAddr != "" {
			cache = volume.NewRedisCache(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), 0)
		} else {
			cache = volume.NewMemoryCache()
		}
		volumes, err = volume.NewClient(volume.ClientOptions{
			BaseURL: cfg.VolumeAPIURL,
			APIKey:  cfg.VolumeAPIKey,
			Cache:   cache,
			LLM:     client,
		})
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to create volume client: %w", err)
		}
	}

	runner := pipeline.New(pipeline.Options{
		Store:              st,
		LLM:                client,
		Searcher:           searcher,
		Volume:             volumes,
		PromptsPerCategory: cfg.PromptsPerCategory,
		Concurrency:        cfg.SerpConcurrency,
	})

	return &deps{store: st, llm: client, runner: runner}, nil
}
