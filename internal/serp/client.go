package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonathan/voice-audit/internal/fetch"
	"github.com/jonathan/voice-audit/internal/types"
)

const (
	// DefaultTimeout is the per-call budget; a call that exceeds it
	// surfaces as an error, never as a hung checking status.
	DefaultTimeout = 60 * time.Second

	// defaultRatePerSecond spaces outbound calls to respect the
	// collaborator's rate limits on top of the orchestrator's pool bound.
	defaultRatePerSecond = 5

	maxOrganicResults = 10
)

// ClientOptions configures the HTTP SERP client.
type ClientOptions struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RatePerSecond float64
}

// Client calls the search-result collaborator over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a SERP client. BaseURL and APIKey are required.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("serp base URL is required")
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("serp API key is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	perSecond := opts.RatePerSecond
	if perSecond <= 0 {
		perSecond = defaultRatePerSecond
	}

	return &Client{
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
	}, nil
}

// wire shapes for the collaborator's JSON. Decoding is strict about types
// but tolerant about missing blocks; absent fields simply stay empty.

type organicResult struct {
	Link string `json:"link"`
}

type shoppingResult struct {
	Title  string `json:"title"`
	Link   string `json:"link"`
	Source string `json:"source"`
}

type immersiveProduct struct {
	Title     string `json:"title"`
	PageToken string `json:"immersive_product_page_token"`
}

type searchResponse struct {
	OrganicResults    []organicResult    `json:"organic_results"`
	ShoppingResults   []shoppingResult   `json:"shopping_results"`
	ImmersiveProducts []immersiveProduct `json:"immersive_products"`
}

type productResponse struct {
	ProductResults struct {
		Brand   string `json:"brand"`
		Sellers []struct {
			Name string `json:"name"`
		} `json:"sellers"`
		SellersLink string `json:"sellers_link"`
	} `json:"product_results"`
}

// Search performs one SERP lookup.
func (c *Client) Search(ctx context.Context, req Request) (*Response, error) {
	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("engine", string(req.Engine))
	if req.Region != "" {
		params.Set("gl", req.Region)
	}

	var decoded searchResponse
	if err := c.get(ctx, "/search", params, &decoded); err != nil {
		return nil, err
	}

	resp := &Response{}
	for _, result := range decoded.OrganicResults {
		if result.Link == "" {
			continue
		}
		resp.Top10 = append(resp.Top10, result.Link)
		if len(resp.Top10) == maxOrganicResults {
			break
		}
	}
	// Shopping and immersive blocks only exist on the google engine.
	if req.Engine == types.EngineGoogle {
		for _, listing := range decoded.ShoppingResults {
			resp.Shopping = append(resp.Shopping, ShoppingListing{
				Title:  listing.Title,
				Link:   listing.Link,
				Seller: listing.Source,
			})
		}
		for _, product := range decoded.ImmersiveProducts {
			if product.PageToken == "" {
				continue
			}
			resp.Immersive = append(resp.Immersive, ImmersiveRef{
				Title:     product.Title,
				PageToken: product.PageToken,
			})
		}
	}
	return resp, nil
}

// ProductLookup resolves one immersive product reference. When the response
// has no structured sellers but links a seller offers page, the page is
// fetched and parsed for seller names.
func (c *Client) ProductLookup(ctx context.Context, pageToken string) (*ProductInfo, error) {
	params := url.Values{}
	params.Set("engine", "immersive_product")
	params.Set("page_token", pageToken)

	var decoded productResponse
	if err := c.get(ctx, "/search", params, &decoded); err != nil {
		return nil, err
	}

	info := &ProductInfo{Brand: decoded.ProductResults.Brand}
	for _, seller := range decoded.ProductResults.Sellers {
		if seller.Name != "" {
			info.Sellers = append(info.Sellers, seller.Name)
		}
	}
	if len(info.Sellers) == 0 && decoded.ProductResults.SellersLink != "" {
		html, err := fetch.URL(ctx, decoded.ProductResults.SellersLink, nil)
		if err == nil {
			if names, parseErr := fetch.ExtractSellerNames(html); parseErr == nil {
				info.Sellers = names
			}
		}
		// Seller-page failures are non-fatal; brand data already answers
		// the presence question.
	}
	return info, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dest any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter interrupted: %w", err)
	}

	params.Set("api_key", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("search API returned status %d: %s", resp.StatusCode, truncateBody(body))
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to decode search response: %w", err)
	}
	return nil
}

func truncateBody(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
