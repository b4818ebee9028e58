// Package volume is the client for the keyword-volume collaborator. Lookups
// are cached (volume data is billed per request and changes monthly) and
// keywords with no data can be retried once through model-suggested
// variants.
package volume

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/voice-audit/internal/llm"
	"github.com/jonathan/voice-audit/internal/prompts"
)

const (
	defaultTimeout  = 30 * time.Second
	maxVariantCount = 3

	variantTemperature = 0.3
)

// MonthlyVolume is one point of a keyword's volume series.
type MonthlyVolume struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Volume int `json:"volume"`
}

// Entry is the volume data for one keyword.
type Entry struct {
	Keyword       string          `json:"keyword"`
	Volume        int             `json:"volume"`
	MonthlySeries []MonthlyVolume `json:"monthlySeries,omitempty"`
}

// Request is one volume lookup.
type Request struct {
	Keywords     []string
	Language     string
	LocationCode int
}

// Provider is the collaborator boundary the pipeline depends on.
type Provider interface {
	Lookup(ctx context.Context, req Request) (map[string]Entry, error)
}

// ClientOptions configures the HTTP volume client.
type ClientOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Cache   Cache      // optional; nil disables caching
	LLM     llm.Client // optional; nil disables variant expansion
}

// Client calls the keyword-volume collaborator over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      Cache
	llm        llm.Client
}

// NewClient creates a volume client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("volume base URL is required")
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("volume API key is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		cache:      opts.Cache,
		llm:        opts.LLM,
	}, nil
}

type wireRequest struct {
	Keywords     []string `json:"keywords"`
	Language     string   `json:"language"`
	LocationCode int      `json:"locationCode"`
}

type wireResponse struct {
	Results []Entry `json:"results"`
}

// Lookup resolves volume data per keyword. Cached entries are served
// without a network call. Keywords the collaborator has no data for are
// retried once with model-suggested variants; the best variant's volume is
// attributed to the original keyword. Missing data is never an error: the
// keyword is simply absent from the result map.
func (c *Client) Lookup(ctx context.Context, req Request) (map[string]Entry, error) {
	results := make(map[string]Entry, len(req.Keywords))

	var uncached []string
	for _, keyword := range req.Keywords {
		if entry, ok := c.cacheGet(ctx, req, keyword); ok {
			results[keyword] = *entry
			continue
		}
		uncached = append(uncached, keyword)
	}
	if len(uncached) == 0 {
		return results, nil
	}

	fetched, err := c.fetch(ctx, Request{Keywords: uncached, Language: req.Language, LocationCode: req.LocationCode})
	if err != nil {
		return nil, err
	}

	var misses []string
	for _, keyword := range uncached {
		entry, ok := fetched[keyword]
		if !ok || entry.Volume == 0 {
			misses = append(misses, keyword)
			continue
		}
		results[keyword] = entry
		c.cacheSet(ctx, req, keyword, entry)
	}

	for _, keyword := range misses {
		entry, ok := c.lookupVariants(ctx, req, keyword)
		if !ok {
			continue
		}
		entry.Keyword = keyword
		results[keyword] = entry
		c.cacheSet(ctx, req, keyword, entry)
	}

	return results, nil
}

// lookupVariants asks the model for close variants of a missed keyword and
// returns the highest-volume variant's data. Degrades silently: variant
// expansion failing is never worth failing a lookup over.
func (c *Client) lookupVariants(ctx context.Context, req Request, keyword string) (Entry, bool) {
	if c.llm == nil {
		return Entry{}, false
	}

	template, err := prompts.Get("generation.json", "keyword_variants")
	if err != nil {
		return Entry{}, false
	}
	raw, err := c.llm.GenerateJSON(ctx, llm.Request{
		Instructions: prompts.Format(template, map[string]string{
			"Keyword": keyword,
			"Count":   fmt.Sprintf("%d", maxVariantCount),
		}),
		Temperature: variantTemperature,
		Tier:        llm.TierLite,
	})
	if err != nil {
		log.Printf("variant expansion failed for %q: %v", keyword, err)
		return Entry{}, false
	}

	var body struct {
		Variants []string `json:"variants"`
	}
	cleaned := llm.CleanJSONBlock(raw)
	if err := json.Unmarshal([]byte(cleaned), &body); err != nil {
		if extracted := llm.ExtractJSONObject(cleaned); extracted != "" {
			_ = json.Unmarshal([]byte(extracted), &body)
		}
	}
	var variants []string
	for _, variant := range body.Variants {
		variant = strings.TrimSpace(variant)
		if variant != "" && !strings.EqualFold(variant, keyword) {
			variants = append(variants, variant)
		}
	}
	if len(variants) > maxVariantCount {
		variants = variants[:maxVariantCount]
	}
	if len(variants) == 0 {
		return Entry{}, false
	}

	fetched, err := c.fetch(ctx, Request{Keywords: variants, Language: req.Language, LocationCode: req.LocationCode})
	if err != nil {
		log.Printf("variant lookup failed for %q: %v", keyword, err)
		return Entry{}, false
	}

	best := Entry{}
	for _, entry := range fetched {
		if entry.Volume > best.Volume {
			best = entry
		}
	}
	return best, best.Volume > 0
}

func (c *Client) fetch(ctx context.Context, req Request) (map[string]Entry, error) {
	payload, err := json.Marshal(wireRequest{
		Keywords:     req.Keywords,
		Language:     req.Language,
		LocationCode: req.LocationCode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode volume request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/keywords/volume", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create volume request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("volume request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read volume response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("volume API returned status %d", resp.StatusCode)
	}

	var decoded wireResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode volume response: %w", err)
	}

	results := make(map[string]Entry, len(decoded.Results))
	for _, entry := range decoded.Results {
		if entry.Keyword != "" {
			results[entry.Keyword] = entry
		}
	}
	return results, nil
}

func (c *Client) cacheGet(ctx context.Context, req Request, keyword string) (*Entry, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(ctx, cacheKey(req, keyword))
}

func (c *Client) cacheSet(ctx context.Context, req Request, keyword string, entry Entry) {
	if c.cache == nil {
		return
	}
	c.cache.Set(ctx, cacheKey(req, keyword), entry)
}

func cacheKey(req Request, keyword string) string {
	return fmt.Sprintf("volume:%s:%d:%s", req.Language, req.LocationCode, strings.ToLower(keyword))
}
