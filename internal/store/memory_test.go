package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/voice-audit/internal/types"
)

func TestMemory_SetGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	profile := types.Profile{ID: "p1", CompanyName: "Acme", CompanyURL: "https://acme.com"}
	require.NoError(t, m.Set(ctx, ProfilePath("p1"), profile))

	var got types.Profile
	found, err := m.Get(ctx, ProfilePath("p1"), &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Acme", got.CompanyName)
}

func TestMemory_GetMissing(t *testing.T) {
	m := NewMemory()
	var got types.Profile
	found, err := m.Get(context.Background(), ProfilePath("nope"), &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemory_SetOverwrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "k", map[string]any{"a": 1, "b": 2}))
	require.NoError(t, m.Set(ctx, "k", map[string]any{"a": 3}))

	var got map[string]int
	_, err := m.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 3}, got)
}

func TestMemory_UpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, ProfilePath("p1"), types.Profile{ID: "p1", CompanyName: "Acme"}))
	require.NoError(t, m.Update(ctx, ProfilePath("p1"), map[string]any{
		"status":   types.ProfileRunning,
		"progress": 42,
	}))

	var got types.Profile
	_, err := m.Get(ctx, ProfilePath("p1"), &got)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.CompanyName)
	assert.Equal(t, types.ProfileRunning, got.Status)
	assert.Equal(t, 42, got.Progress)
}

func TestMemory_UpdateCreatesMissingObject(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Update(ctx, "fresh", map[string]any{"x": "y"}))

	var got map[string]string
	found, err := m.Get(ctx, "fresh", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "y", got["x"])
}

func TestMemory_ListByPrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, PromptPath("p1", types.CategoryBrainstorming, 1), types.Prompt{Text: "a"}))
	require.NoError(t, m.Set(ctx, PromptPath("p1", types.CategoryInfoSeeking, 1), types.Prompt{Text: "b"}))
	require.NoError(t, m.Set(ctx, ProfilePath("p2"), types.Profile{ID: "p2"}))

	entries, err := m.List(ctx, PromptsPrefix("p1"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestMemory_SubscribeReceivesWritesUnderPrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	events, cancel := m.Subscribe(ctx, ResultsPrefix("p1"))
	defer cancel()

	result := types.EngineResult{Status: types.StatusChecking}
	require.NoError(t, m.Set(ctx, ResultPath("p1", "brainstorming:1", types.EngineGoogle), result))
	require.NoError(t, m.Set(ctx, ProfilePath("p2"), types.Profile{ID: "p2"})) // outside prefix

	select {
	case ev := <-events:
		assert.Equal(t, ResultPath("p1", "brainstorming:1", types.EngineGoogle), ev.Path)
	case <-time.After(time.Second):
		t.Fatal("expected a subscription event")
	}

	select {
	case ev := <-events:
		t.Fatalf("unexpected event for path %s", ev.Path)
	default:
	}
}

func TestMemory_SubscribeCancelStopsDelivery(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	events, cancel := m.Subscribe(ctx, "profiles/")
	cancel()

	_, open := <-events
	assert.False(t, open)
}
