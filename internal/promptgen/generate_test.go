package promptgen

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/voice-audit/internal/llm"
	"github.com/jonathan/voice-audit/internal/store"
	"github.com/jonathan/voice-audit/internal/types"
)

type stubClient struct {
	response string
	err      error
	lastReq  llm.Request
}

func (s *stubClient) GenerateText(ctx context.Context, req llm.Request) (string, error) {
	return s.GenerateJSON(ctx, req)
}

func (s *stubClient) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	s.lastReq = req
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubClient) Close() error { return nil }

func testProfile() types.Profile {
	return types.Profile{
		ID:          "p1",
		CompanyName: "Acme",
		CompanyURL:  "https://acme.com",
		Competitors: []string{"rival.com"},
	}
}

func TestGenerate_AssignsSequenceKeys(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	client := &stubClient{response: `{"prompts": ["idea one", "idea two", "idea three"]}`}
	gen := New(client, mem)

	created, err := gen.Generate(ctx, testProfile(), types.CategoryBrainstorming, 3)
	require.NoError(t, err)
	require.Len(t, created, 3)

	for i, prompt := range created {
		assert.Equal(t, i+1, prompt.Sequence)
		assert.Equal(t, types.NewPromptID(types.CategoryBrainstorming, i+1), prompt.ID)

		var stored types.Prompt
		found, err := mem.Get(ctx, store.PromptPath("p1", types.CategoryBrainstorming, i+1), &stored)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, prompt.Text, stored.Text)
	}
}

func TestGenerate_AppendsAfterExistingMax(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	existing := types.Prompt{
		ID:       types.NewPromptID(types.CategoryInfoSeeking, 7),
		Category: types.CategoryInfoSeeking,
		Sequence: 7,
		Text:     "old prompt",
	}
	require.NoError(t, mem.Set(ctx, store.PromptPath("p1", types.CategoryInfoSeeking, 7), existing))

	client := &stubClient{response: `{"prompts": ["new prompt"]}`}
	created, err := New(client, mem).Generate(ctx, testProfile(), types.CategoryInfoSeeking, 1)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, 8, created[0].Sequence)
}

func TestGenerate_SequenceIsPerCategory(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Set(ctx, store.PromptPath("p1", types.CategoryBrainstorming, 5), types.Prompt{
		Category: types.CategoryBrainstorming, Sequence: 5,
	}))

	client := &stubClient{response: `{"prompts": ["compare a and b"]}`}
	created, err := New(client, mem).Generate(ctx, testProfile(), types.CategorySolutionComparing, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, created[0].Sequence)
}

func TestGenerate_TruncatesToRequestedCount(t *testing.T) {
	client := &stubClient{response: `{"prompts": ["a", "b", "c", "d", "e"]}`}
	created, err := New(client, store.NewMemory()).Generate(context.Background(), testProfile(), types.CategoryBrainstorming, 2)
	require.NoError(t, err)
	assert.Len(t, created, 2)
}

func TestGenerate_FencedResponseTolerated(t *testing.T) {
	client := &stubClient{response: "```json\n{\"prompts\": [\"idea\"]}\n```"}
	created, err := New(client, store.NewMemory()).Generate(context.Background(), testProfile(), types.CategoryBrainstorming, 1)
	require.NoError(t, err)
	assert.Equal(t, "idea", created[0].Text)
}

func TestGenerate_CollaboratorError(t *testing.T) {
	client := &stubClient{err: fmt.Errorf("model down")}
	_, err := New(client, store.NewMemory()).Generate(context.Background(), testProfile(), types.CategoryBrainstorming, 1)
	assert.Error(t, err)
}

func TestGenerate_EmptyResponse(t *testing.T) {
	client := &stubClient{response: `{"prompts": []}`}
	_, err := New(client, store.NewMemory()).Generate(context.Background(), testProfile(), types.CategoryBrainstorming, 1)
	assert.Error(t, err)
}

func TestGenerate_InvalidCategory(t *testing.T) {
	client := &stubClient{response: `{"prompts": ["x"]}`}
	_, err := New(client, store.NewMemory()).Generate(context.Background(), testProfile(), types.Category("nope"), 1)
	assert.Error(t, err)
}

func TestAddManual(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	gen := New(nil, mem)

	prompt, err := gen.AddManual(ctx, "p1", types.CategoryIdentifiedProblem, "  my zipper broke  ")
	require.NoError(t, err)
	assert.Equal(t, "my zipper broke", prompt.Text)
	assert.Equal(t, 1, prompt.Sequence)

	second, err := gen.AddManual(ctx, "p1", types.CategoryIdentifiedProblem, "strap frayed")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Sequence)
}

func TestAddManual_EmptyText(t *testing.T) {
	_, err := New(nil, store.NewMemory()).AddManual(context.Background(), "p1", types.CategoryInfoSeeking, "   ")
	assert.Error(t, err)
}

func TestListPrompts_CanonicalOrder(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	gen := New(nil, mem)

	_, err := gen.AddManual(ctx, "p1", types.CategoryInfoSeeking, "q1")
	require.NoError(t, err)
	_, err = gen.AddManual(ctx, "p1", types.CategoryBrainstorming, "b1")
	require.NoError(t, err)
	_, err = gen.AddManual(ctx, "p1", types.CategoryBrainstorming, "b2")
	require.NoError(t, err)

	listed, err := ListPrompts(ctx, mem, "p1")
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, types.PromptID("brainstorming:1"), listed[0].ID)
	assert.Equal(t, types.PromptID("brainstorming:2"), listed[1].ID)
	assert.Equal(t, types.PromptID("info_seeking:1"), listed[2].ID)
}
