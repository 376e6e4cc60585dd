// Package reconcile turns raw OCR line items into confidence-tagged items by
// merging them with verified product history and AI suggestions, and writes
// human-confirmed items back to that history.
package reconcile

import (
	"context"

	"github.com/castlemilk/grocerylens/backend/internal/receipt"
)

// ProductLookup is the read side of the verified product store.
type ProductLookup interface {
	FindVerifiedProducts(ctx context.Context, codes []string, storeChain string) ([]*receipt.VerifiedProduct, error)
}

// ProductStore is the verified product store as used by the Learner.
type ProductStore interface {
	ProductLookup
	GetVerifiedProduct(ctx context.Context, code, storeChain string) (*receipt.VerifiedProduct, error)
	UpsertVerifiedProduct(ctx context.Context, product *receipt.VerifiedProduct) error
}

// AtomicVerifier is implemented by stores that can insert-or-increment a
// verified product in a single operation.
type AtomicVerifier interface {
	RecordVerification(ctx context.Context, product *receipt.VerifiedProduct) (*receipt.VerifiedProduct, error)
}

// EnrichRequest is one coded item sent for AI enrichment.
type EnrichRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Suggestion is the enrichment service's best guess for one code.
type Suggestion struct {
	FullName   string `json:"fullName"`
	Brand      string `json:"brand,omitempty"`
	Size       string `json:"size,omitempty"`
	Category   string `json:"category,omitempty"`
	Confidence string `json:"confidence,omitempty"`
}

// Enricher suggests canonical product fields for a batch of coded items.
// A code missing from the returned map means no suggestion.
type Enricher interface {
	Enrich(ctx context.Context, items []EnrichRequest) (map[string]Suggestion, error)
}

// Indexer receives every product the Learner writes.
type Indexer interface {
	IndexProduct(ctx context.Context, product *receipt.VerifiedProduct) error
}
