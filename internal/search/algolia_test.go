package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeBackend struct {
	saved       []map[string]any
	lastIndex   string
	lastQuery   string
	lastFilters string
	lastHits    int32
	hits        []map[string]any
	err         error
}

func (f *fakeBackend) saveObject(indexName string, object map[string]any) error {
	f.lastIndex = indexName
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, object)
	return nil
}

func (f *fakeBackend) search(indexName, query, filters string, hitsPerPage int32) ([]map[string]any, error) {
	f.lastIndex, f.lastQuery, f.lastFilters, f.lastHits = indexName, query, filters, hitsPerPage
	return f.hits, f.err
}

func TestNewProductIndex_RequiresCredentials(t *testing.T) {
	_, err := NewProductIndex(Config{AppID: "app"})
	assert.Error(t, err)
}

func TestIndexProduct(t *testing.T) {
	fb := &fakeBackend{}
	idx := newProductIndex(fb, "")

	verified := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	err := idx.IndexProduct(context.Background(), &receipt.VerifiedProduct{
		Code: "06038318640", StoreChain: "real_canadian_superstore",
		Name: "PC Blue Menu Oats", Brand: "President's Choice", Size: "1kg", Category: "Pantry",
		VerificationCount: 3, LastVerified: verified,
	})
	require.NoError(t, err)

	require.Len(t, fb.saved, 1)
	obj := fb.saved[0]
	assert.Equal(t, DefaultIndexName, fb.lastIndex)
	assert.Equal(t, "real_canadian_superstore_06038318640", obj["objectID"])
	assert.Equal(t, "PC Blue Menu Oats", obj["Name"])
	assert.Equal(t, 3, obj["VerificationCount"])
	assert.Equal(t, verified.Unix(), obj["LastVerifiedUnix"])
}

func TestIndexProduct_Errors(t *testing.T) {
	t.Run("no code", func(t *testing.T) {
		idx := newProductIndex(&fakeBackend{}, "products")
		assert.Error(t, idx.IndexProduct(context.Background(), &receipt.VerifiedProduct{Name: "x"}))
	})

	t.Run("backend failure", func(t *testing.T) {
		idx := newProductIndex(&fakeBackend{err: errors.New("403")}, "products")
		err := idx.IndexProduct(context.Background(), &receipt.VerifiedProduct{Code: "1234", StoreChain: "walmart"})
		assert.ErrorContains(t, err, "walmart_1234")
	})

	t.Run("cancelled", func(t *testing.T) {
		fb := &fakeBackend{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := newProductIndex(fb, "").IndexProduct(ctx, &receipt.VerifiedProduct{Code: "1234"})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, fb.saved)
	})
}

func TestSearch(t *testing.T) {
	fb := &fakeBackend{hits: []map[string]any{
		{"objectID": "walmart_0605", "Code": "0605", "StoreChain": "walmart", "Name": "Great Value Milk", "VerificationCount": float64(4), "LastVerifiedUnix": float64(1714557600)},
		{"objectID": "broken"},
	}}
	idx := newProductIndex(fb, "products")

	hits, err := idx.Search(context.Background(), SearchParams{Query: "  milk ", StoreName: "Walmart Supercentre", PageSize: 500})
	require.NoError(t, err)

	assert.Equal(t, "milk", fb.lastQuery)
	assert.Equal(t, `StoreChain:"walmart"`, fb.lastFilters)
	assert.Equal(t, int32(100), fb.lastHits)

	require.Len(t, hits, 1, "hits without a code are dropped")
	assert.Equal(t, "Great Value Milk", hits[0].Name)
	assert.Equal(t, 4, hits[0].VerificationCount)
	assert.Equal(t, int64(1714557600), hits[0].LastVerified.Unix())
}

func TestBuildFilters(t *testing.T) {
	tests := []struct {
		name   string
		params SearchParams
		want   string
	}{
		{name: "none", params: SearchParams{}, want: ""},
		{name: "unknown store uses its name key", params: SearchParams{StoreName: "Corner  Market"}, want: `StoreChain:"corner market"`},
		{name: "store and category", params: SearchParams{StoreName: "No Frills", Category: "Produce"}, want: `StoreChain:"no_frills" AND Category:"Produce"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildFilters(tt.params))
		})
	}
}

func TestSearch_BackendError(t *testing.T) {
	idx := newProductIndex(&fakeBackend{err: errors.New("unreachable")}, "products")
	_, err := idx.Search(context.Background(), SearchParams{Query: "eggs"})
	assert.Error(t, err)
}
