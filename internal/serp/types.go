// Package serp is the client for the search-result collaborator: a JSON
// HTTP API that returns ranked organic results per engine plus, for Google,
// shopping listings and immersive-product references that need a follow-up
// call each.
package serp

import (
	"context"

	"github.com/jonathan/voice-audit/internal/types"
)

// Request is one SERP lookup.
type Request struct {
	Query  string
	Engine types.Engine
	Region string
}

// ShoppingListing is one structured shopping result.
type ShoppingListing struct {
	Title  string `json:"title"`
	Link   string `json:"link"`
	Seller string `json:"seller"`
}

// ImmersiveRef points at an immersive product listing. Resolving brand and
// sellers requires a ProductLookup with the page token.
type ImmersiveRef struct {
	Title     string `json:"title"`
	PageToken string `json:"page_token"`
}

// Response is a decoded SERP lookup result.
type Response struct {
	Top10     []string
	Shopping  []ShoppingListing
	Immersive []ImmersiveRef
}

// ProductInfo is the outcome of one immersive-product follow-up call.
type ProductInfo struct {
	Brand   string
	Sellers []string
}

// Searcher is the collaborator boundary the orchestrator depends on.
// Implementations must translate timeouts and non-2xx statuses into errors
// rather than hanging; the orchestrator maps those to error status.
type Searcher interface {
	Search(ctx context.Context, req Request) (*Response, error)
	ProductLookup(ctx context.Context, pageToken string) (*ProductInfo, error)
}
