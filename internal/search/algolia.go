// Package search keeps the verified product catalogue in an Algolia index so
// the review UI can look products up by name, brand or code.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/algolia/algoliasearch-client-go/v4/algolia/search"
	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/castlemilk/grocerylens/backend/internal/reconcile"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultIndexName is used when no index is configured.
const DefaultIndexName = "grocerylens_products"

// Config holds Algolia configuration.
type Config struct {
	AppID     string
	APIKey    string // needs addObject for indexing, search for lookups
	IndexName string
}

// ProductHit is one catalogue search result.
type ProductHit struct {
	Code              string    `json:"product_code"`
	StoreChain        string    `json:"store_chain"`
	Name              string    `json:"name"`
	Brand             string    `json:"brand,omitempty"`
	Size              string    `json:"size,omitempty"`
	Category          string    `json:"category,omitempty"`
	VerificationCount int       `json:"verification_count"`
	LastVerified      time.Time `json:"last_verified"`
}

// SearchParams defines the input for a catalogue search.
type SearchParams struct {
	Query     string
	StoreName string // scopes hits to the store's lookup key when set
	Category  string
	PageSize  int
}

// backend is the slice of the Algolia API the index uses.
type backend interface {
	saveObject(indexName string, object map[string]any) error
	search(indexName, query, filters string, hitsPerPage int32) ([]map[string]any, error)
}

type algoliaBackend struct {
	client *search.APIClient
}

func (b *algoliaBackend) saveObject(indexName string, object map[string]any) error {
	_, err := b.client.SaveObject(b.client.NewApiSaveObjectRequest(indexName, object))
	return err
}

func (b *algoliaBackend) search(indexName, query, filters string, hitsPerPage int32) ([]map[string]any, error) {
	params := search.SearchParamsObjectAsSearchParams(
		search.NewSearchParamsObject().
			SetQuery(query).
			SetHitsPerPage(hitsPerPage).
			SetFilters(filters),
	)
	resp, err := b.client.SearchSingleIndex(b.client.NewApiSearchSingleIndexRequest(indexName).WithSearchParams(params))
	if err != nil {
		return nil, err
	}
	hits := make([]map[string]any, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if hit.AdditionalProperties != nil {
			hits = append(hits, hit.AdditionalProperties)
		}
	}
	return hits, nil
}

// ProductIndex writes verified products to Algolia and searches them.
type ProductIndex struct {
	backend   backend
	indexName string
}

var _ reconcile.Indexer = (*ProductIndex)(nil)

// NewProductIndex creates an Algolia-backed product index.
func NewProductIndex(cfg Config) (*ProductIndex, error) {
	if cfg.AppID == "" || cfg.APIKey == "" {
		return nil, eris.New("search: algolia app id and api key are required")
	}
	client, err := search.NewClient(cfg.AppID, cfg.APIKey)
	if err != nil {
		return nil, eris.Wrap(err, "search: create algolia client")
	}
	return newProductIndex(&algoliaBackend{client: client}, cfg.IndexName), nil
}

func newProductIndex(b backend, indexName string) *ProductIndex {
	if indexName == "" {
		indexName = DefaultIndexName
	}
	return &ProductIndex{backend: b, indexName: indexName}
}

// IndexProduct upserts one verified product. The object id is the product
// key, so repeated verifications overwrite the same record.
func (p *ProductIndex) IndexProduct(ctx context.Context, product *receipt.VerifiedProduct) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if product == nil || product.Code == "" {
		return eris.New("search: product without code")
	}
	if err := p.backend.saveObject(p.indexName, productObject(product)); err != nil {
		return eris.Wrapf(err, "search: index product %s", product.Key())
	}
	return nil
}

// Search runs a full-text catalogue query.
func (p *ProductIndex) Search(ctx context.Context, params SearchParams) ([]ProductHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	raw, err := p.backend.search(p.indexName, strings.TrimSpace(params.Query), buildFilters(params), int32(pageSize))
	if err != nil {
		return nil, eris.Wrap(err, "search: algolia search")
	}

	hits := make([]ProductHit, 0, len(raw))
	for _, props := range raw {
		if hit, ok := hitToProduct(props); ok {
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

func productObject(p *receipt.VerifiedProduct) map[string]any {
	obj := map[string]any{
		"objectID":          p.Key(),
		"Code":              p.Code,
		"StoreChain":        p.StoreChain,
		"Name":              p.Name,
		"Brand":             p.Brand,
		"Size":              p.Size,
		"Category":          p.Category,
		"VerificationCount": p.VerificationCount,
	}
	if !p.LastVerified.IsZero() {
		obj["LastVerifiedUnix"] = p.LastVerified.Unix()
	}
	return obj
}

// buildFilters constructs the Algolia filter string from search params.
func buildFilters(params SearchParams) string {
	var parts []string
	if params.StoreName != "" {
		parts = append(parts, fmt.Sprintf("StoreChain:%q", receipt.LookupKey(params.StoreName)))
	}
	if params.Category != "" {
		parts = append(parts, fmt.Sprintf("Category:%q", params.Category))
	}
	return strings.Join(parts, " AND ")
}

func hitToProduct(props map[string]any) (ProductHit, bool) {
	var hit ProductHit
	hit.Code, _ = props["Code"].(string)
	hit.StoreChain, _ = props["StoreChain"].(string)
	hit.Name, _ = props["Name"].(string)
	hit.Brand, _ = props["Brand"].(string)
	hit.Size, _ = props["Size"].(string)
	hit.Category, _ = props["Category"].(string)
	if v, ok := props["VerificationCount"].(float64); ok {
		hit.VerificationCount = int(v)
	}
	if v, ok := props["LastVerifiedUnix"].(float64); ok && v > 0 {
		hit.LastVerified = time.Unix(int64(v), 0).UTC()
	}

	if hit.Code == "" {
		id, _ := props["objectID"].(string)
		zap.L().Debug("algolia: skipping hit with no code", zap.String("object_id", id))
		return ProductHit{}, false
	}
	return hit, true
}
