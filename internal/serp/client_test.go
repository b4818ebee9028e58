package serp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/voice-audit/internal/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientOptions{
		BaseURL:       srv.URL,
		APIKey:        "test-key",
		RatePerSecond: 1000, // keep tests fast
	})
	require.NoError(t, err)
	return client, srv
}

func TestNewClient_RequiredFields(t *testing.T) {
	_, err := NewClient(ClientOptions{APIKey: "k"})
	assert.Error(t, err)
	_, err = NewClient(ClientOptions{BaseURL: "http://x"})
	assert.Error(t, err)
}

func TestSearch_GoogleFullResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "best travel bag", r.URL.Query().Get("q"))
		assert.Equal(t, "google", r.URL.Query().Get("engine"))
		assert.Equal(t, "us", r.URL.Query().Get("gl"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))

		_, _ = w.Write([]byte(`{
			"organic_results": [
				{"link": "https://example.com/a"},
				{"link": "https://rival.com/b"}
			],
			"shopping_results": [
				{"title": "Bag", "link": "https://shop.example.com/bag", "source": "Example Store"}
			],
			"immersive_products": [
				{"title": "Duffel", "immersive_product_page_token": "tok123"},
				{"title": "No token"}
			]
		}`))
	})

	resp, err := client.Search(context.Background(), Request{
		Query:  "best travel bag",
		Engine: types.EngineGoogle,
		Region: "us",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com/a", "https://rival.com/b"}, resp.Top10)
	require.Len(t, resp.Shopping, 1)
	assert.Equal(t, "Example Store", resp.Shopping[0].Seller)
	require.Len(t, resp.Immersive, 1)
	assert.Equal(t, "tok123", resp.Immersive[0].PageToken)
}

func TestSearch_BingIgnoresAuxiliaryBlocks(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"organic_results": [{"link": "https://example.com"}],
			"shopping_results": [{"title": "x", "source": "y"}]
		}`))
	})

	resp, err := client.Search(context.Background(), Request{Query: "q", Engine: types.EngineBing})
	require.NoError(t, err)
	assert.Len(t, resp.Top10, 1)
	assert.Empty(t, resp.Shopping)
	assert.Empty(t, resp.Immersive)
}

func TestSearch_CapsAtTenResults(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := `{"organic_results": [`
		for i := 0; i < 15; i++ {
			if i > 0 {
				body += ","
			}
			body += `{"link": "https://example.com/p"}`
		}
		body += `]}`
		_, _ = w.Write([]byte(body))
	})

	resp, err := client.Search(context.Background(), Request{Query: "q", Engine: types.EngineGoogle})
	require.NoError(t, err)
	assert.Len(t, resp.Top10, 10)
}

func TestSearch_NonOKStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": "rate limited"}`))
	})

	_, err := client.Search(context.Background(), Request{Query: "q", Engine: types.EngineGoogle})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSearch_MalformedJSON(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := client.Search(context.Background(), Request{Query: "q", Engine: types.EngineGoogle})
	assert.Error(t, err)
}

func TestProductLookup_StructuredSellers(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "immersive_product", r.URL.Query().Get("engine"))
		assert.Equal(t, "tok123", r.URL.Query().Get("page_token"))
		_, _ = w.Write([]byte(`{
			"product_results": {
				"brand": "Vera Bradley",
				"sellers": [{"name": "Acme Outlet"}, {"name": "BagWorld"}]
			}
		}`))
	})

	info, err := client.ProductLookup(context.Background(), "tok123")
	require.NoError(t, err)
	assert.Equal(t, "Vera Bradley", info.Brand)
	assert.Equal(t, []string{"Acme Outlet", "BagWorld"}, info.Sellers)
}

func TestProductLookup_SellerPageFallback(t *testing.T) {
	sellerPage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<div><span class="seller-name">Acme Outlet</span></div>`))
	}))
	defer sellerPage.Close()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"product_results": {
				"brand": "Tumi",
				"sellers_link": "` + sellerPage.URL + `"
			}
		}`))
	})

	info, err := client.ProductLookup(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "Tumi", info.Brand)
	assert.Equal(t, []string{"Acme Outlet"}, info.Sellers)
}

func TestProductLookup_SellerPageFailureNonFatal(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"product_results": {
				"brand": "Tumi",
				"sellers_link": "http://127.0.0.1:1/unreachable"
			}
		}`))
	})

	info, err := client.ProductLookup(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "Tumi", info.Brand)
	assert.Empty(t, info.Sellers)
}
