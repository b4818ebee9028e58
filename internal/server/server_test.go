package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/voice-audit/internal/pipeline"
	"github.com/jonathan/voice-audit/internal/store"
	"github.com/jonathan/voice-audit/internal/types"
)

// stubPipeline records calls and returns canned values.
type stubPipeline struct {
	bootstrapped []types.Profile
	runCalls     chan string
	report       *types.OverallReport
	refreshErr   error
	addErr       error
}

func newStubPipeline() *stubPipeline {
	return &stubPipeline{runCalls: make(chan string, 8)}
}

func (p *stubPipeline) Bootstrap(_ context.Context, profile types.Profile) (string, error) {
	p.bootstrapped = append(p.bootstrapped, profile)
	return "run-1", nil
}

func (p *stubPipeline) Run(_ context.Context, profileID, runID string) error {
	p.runCalls <- profileID + "/" + runID
	return nil
}

func (p *stubPipeline) GeneratePrompts(_ context.Context, _ string, category types.Category, count int) ([]types.Prompt, error) {
	if count <= 0 {
		count = 2
	}
	prompts := make([]types.Prompt, 0, count)
	for i := 1; i <= count; i++ {
		prompts = append(prompts, types.Prompt{
			ID:       types.NewPromptID(category, i),
			Category: category,
			Sequence: i,
			Text:     fmt.Sprintf("generated %d", i),
		})
	}
	return prompts, nil
}

func (p *stubPipeline) AddPrompt(_ context.Context, _ string, category types.Category, text string) (*types.Prompt, error) {
	if p.addErr != nil {
		return nil, p.addErr
	}
	return &types.Prompt{ID: types.NewPromptID(category, 1), Category: category, Sequence: 1, Text: text}, nil
}

func (p *stubPipeline) RefreshReport(_ context.Context, _ string) (*types.OverallReport, error) {
	if p.refreshErr != nil {
		return nil, p.refreshErr
	}
	return p.report, nil
}

func newTestServer(t *testing.T, cfg Config) (*Server, store.Store, *stubPipeline) {
	t.Helper()
	st := store.NewMemory()
	t.Cleanup(st.Close)
	stub := newStubPipeline()
	return New(cfg, st, stub), st, stub
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, Config{Port: 8080})
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestBootstrapStartsRun(t *testing.T) {
	srv, _, stub := newTestServer(t, Config{Port: 8080})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/profiles/acme/bootstrap", BootstrapRequest{
		CompanyName: "Acme",
		CompanyURL:  "https://acme.example",
		Competitors: []string{"https://rival.example"},
	}, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp BootstrapResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "acme", resp.ProfileID)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, "started", resp.Status)

	require.Len(t, stub.bootstrapped, 1)
	assert.Equal(t, "acme", stub.bootstrapped[0].ID)

	select {
	case call := <-stub.runCalls:
		assert.Equal(t, "acme/run-1", call)
	case <-time.After(time.Second):
		t.Fatal("pipeline run was not started")
	}
}

func TestBootstrapValidation(t *testing.T) {
	srv, _, stub := newTestServer(t, Config{Port: 8080})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/profiles/acme/bootstrap", BootstrapRequest{
		CompanyName: "Acme",
		CompanyURL:  "not a url",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, stub.bootstrapped)
}

func TestAddPrompt(t *testing.T) {
	srv, _, _ := newTestServer(t, Config{Port: 8080})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/profiles/acme/prompts", AddPromptRequest{
		Category: "info_seeking",
		Text:     "what are widgets",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var prompt types.Prompt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prompt))
	assert.Equal(t, types.CategoryInfoSeeking, prompt.Category)
	assert.Equal(t, "what are widgets", prompt.Text)
}

func TestAddPromptUnknownCategory(t *testing.T) {
	srv, _, _ := newTestServer(t, Config{Port: 8080})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/profiles/acme/prompts", AddPromptRequest{
		Category: "navigational",
		Text:     "acme login",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "navigational")
}

func TestAddPromptUnknownProfile(t *testing.T) {
	srv, _, stub := newTestServer(t, Config{Port: 8080})
	stub.addErr = pipeline.ErrProfileNotFound

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/profiles/ghost/prompts", AddPromptRequest{
		Category: "info_seeking",
		Text:     "anything",
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGeneratePrompts(t *testing.T) {
	srv, _, _ := newTestServer(t, Config{Port: 8080})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/profiles/acme/prompts/generate", GeneratePromptsRequest{
		Category: "brainstorming",
		Count:    3,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Prompts []types.Prompt `json:"prompts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Prompts, 3)
}

func TestGeneratePromptsCountBounds(t *testing.T) {
	srv, _, _ := newTestServer(t, Config{Port: 8080})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/profiles/acme/prompts/generate", GeneratePromptsRequest{
		Category: "brainstorming",
		Count:    100,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshReportConflictWhilePending(t *testing.T) {
	srv, _, stub := newTestServer(t, Config{Port: 8080})
	stub.refreshErr = pipeline.ErrPromptsPending

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/profiles/acme/report/refresh", nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRefreshReportReturnsReport(t *testing.T) {
	srv, _, stub := newTestServer(t, Config{Port: 8080})
	stub.report = &types.OverallReport{Version: types.ReportVersion, ProfileID: "acme"}

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/profiles/acme/report/refresh", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rep types.OverallReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, types.ReportVersion, rep.Version)
}

func TestGetReport(t *testing.T) {
	srv, st, _ := newTestServer(t, Config{Port: 8080})
	ctx := context.Background()

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/profiles/acme/report", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, st.Set(ctx, store.ReportPath("acme"), types.OverallReport{Version: types.ReportVersion, ProfileID: "acme"}))
	rec = doJSON(t, srv.Handler(), http.MethodGet, "/profiles/acme/report", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rep types.OverallReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, "acme", rep.ProfileID)
}

func TestStatus(t *testing.T) {
	srv, st, _ := newTestServer(t, Config{Port: 8080})
	ctx := context.Background()

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/profiles/acme/status", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, st.Set(ctx, store.ProfilePath("acme"), types.Profile{
		ID: "acme", Status: types.ProfileRunning, Progress: 42,
	}))
	rec = doJSON(t, srv.Handler(), http.MethodGet, "/profiles/acme/status", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "running", status.Status)
	assert.Equal(t, 42, status.Progress)
}

func TestListPrompts(t *testing.T) {
	srv, st, _ := newTestServer(t, Config{Port: 8080})
	ctx := context.Background()

	prompt := types.Prompt{
		ID:       types.NewPromptID(types.CategoryBrainstorming, 1),
		Category: types.CategoryBrainstorming,
		Sequence: 1,
		Text:     "ideas for widgets",
	}
	require.NoError(t, st.Set(ctx, store.PromptPath("acme", prompt.Category, prompt.Sequence), prompt))

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/profiles/acme/prompts", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Prompts []types.Prompt `json:"prompts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Prompts, 1)
	assert.Equal(t, prompt.ID, resp.Prompts[0].ID)
}

func signToken(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthGuardsMutatingEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t, Config{Port: 8080, JWTSecret: "test-secret"})
	body := AddPromptRequest{Category: "info_seeking", Text: "what are widgets"}

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/profiles/acme/prompts", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/profiles/acme/prompts", body, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/profiles/acme/prompts", body, map[string]string{
		"Authorization": "Bearer " + signToken(t, "wrong-secret"),
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/profiles/acme/prompts", body, map[string]string{
		"Authorization": "Bearer " + signToken(t, "test-secret"),
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAuthDisabledWithoutSecret(t *testing.T) {
	srv, _, _ := newTestServer(t, Config{Port: 8080})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/profiles/acme/prompts", AddPromptRequest{
		Category: "info_seeking",
		Text:     "what are widgets",
	}, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestReadEndpointsSkipAuth(t *testing.T) {
	srv, st, _ := newTestServer(t, Config{Port: 8080, JWTSecret: "test-secret"})
	require.NoError(t, st.Set(context.Background(), store.ProfilePath("acme"), types.Profile{ID: "acme", Status: types.ProfileDone}))

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/profiles/acme/status", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEventsStreamsStoreWrites(t *testing.T) {
	srv, st, _ := newTestServer(t, Config{Port: 8080})

	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpSrv.URL+"/profiles/acme/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			if line == "" && event != "" {
				return event, data
			}
			if v, ok := strings.CutPrefix(line, "event: "); ok {
				event = v
			}
			if v, ok := strings.CutPrefix(line, "data: "); ok {
				data = v
			}
		}
	}

	event, _ := readEvent()
	require.Equal(t, "connected", event)

	require.NoError(t, st.Update(context.Background(), store.ProfilePath("acme"), map[string]any{"progress": 50}))

	event, data := readEvent()
	require.Equal(t, "change", event)

	var change changeEvent
	require.NoError(t, json.Unmarshal([]byte(data), &change))
	assert.Equal(t, store.ProfilePath("acme"), change.Path)
	assert.Contains(t, string(change.Value), "50")
}
