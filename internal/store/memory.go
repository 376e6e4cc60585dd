package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/rotisserie/eris"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore implements Store interface with in-memory storage
type MemoryStore struct {
	mu sync.RWMutex

	receipts map[string]*receipt.Receipt
	products map[string]*receipt.VerifiedProduct

	now func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		receipts: make(map[string]*receipt.Receipt),
		products: make(map[string]*receipt.VerifiedProduct),
		now:      time.Now,
	}
}

// receiptSortKey orders receipts newest first: by date, then id.
func receiptSortKey(r *receipt.Receipt) string {
	return r.Date + "|" + r.ID
}

// paginateKeys applies cursor-based pagination to keys sorted descending.
// Returns the page and the next page token (empty if no more pages).
func paginateKeys(keys []string, pageSize int32, pageToken string) ([]string, string) {
	size := normalizePageSize(pageSize)

	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	if pageToken != "" {
		cursor, err := DecodePageToken(pageToken)
		if err == nil {
			idx := sort.Search(len(keys), func(i int) bool { return keys[i] < cursor })
			keys = keys[idx:]
		}
	}

	var nextToken string
	if len(keys) > size {
		nextToken = EncodePageToken(keys[size-1])
		keys = keys[:size]
	}
	return keys, nextToken
}

func cloneReceipt(r *receipt.Receipt) *receipt.Receipt {
	c := *r
	c.Items = append([]receipt.Item(nil), r.Items...)
	return &c
}

// Receipt operations

func (m *MemoryStore) CreateReceipt(ctx context.Context, r *receipt.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.receipts[r.ID]; exists {
		return eris.Errorf("store: receipt %s already exists", r.ID)
	}
	m.receipts[r.ID] = cloneReceipt(r)
	return nil
}

func (m *MemoryStore) GetReceipt(ctx context.Context, receiptID string) (*receipt.Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.receipts[receiptID]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "store: receipt %s", receiptID)
	}
	return cloneReceipt(r), nil
}

func (m *MemoryStore) UpdateReceipt(ctx context.Context, r *receipt.Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.receipts[r.ID]; !ok {
		return eris.Wrapf(ErrNotFound, "store: receipt %s", r.ID)
	}
	m.receipts[r.ID] = cloneReceipt(r)
	return nil
}

func (m *MemoryStore) DeleteReceipt(ctx context.Context, receiptID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.receipts[receiptID]; !ok {
		return eris.Wrapf(ErrNotFound, "store: receipt %s", receiptID)
	}
	delete(m.receipts, receiptID)
	return nil
}

func (m *MemoryStore) ListReceipts(ctx context.Context, userID string, startDate, endDate *time.Time, pageSize int32, pageToken string) ([]*receipt.Receipt, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start, end := dateBounds(startDate, endDate)

	byKey := make(map[string]*receipt.Receipt)
	var keys []string
	for _, r := range m.receipts {
		if userID != "" && r.UserID != userID {
			continue
		}
		if !inDateRange(r.Date, start, end) {
			continue
		}
		key := receiptSortKey(r)
		byKey[key] = r
		keys = append(keys, key)
	}

	page, nextToken := paginateKeys(keys, pageSize, pageToken)
	result := make([]*receipt.Receipt, 0, len(page))
	for _, k := range page {
		result = append(result, cloneReceipt(byKey[k]))
	}
	return result, nextToken, nil
}

// Item operations

func (m *MemoryStore) UpdateReceiptItem(ctx context.Context, receiptID string, item *receipt.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.receipts[receiptID]
	if !ok {
		return eris.Wrapf(ErrNotFound, "store: receipt %s", receiptID)
	}
	idx := r.FindItem(item.ID)
	if idx < 0 {
		return eris.Wrapf(ErrNotFound, "store: item %s on receipt %s", item.ID, receiptID)
	}
	r.Items[idx] = *item
	r.UpdatedAt = m.now()
	return nil
}

func (m *MemoryStore) DeleteReceiptItem(ctx context.Context, receiptID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.receipts[receiptID]
	if !ok {
		return eris.Wrapf(ErrNotFound, "store: receipt %s", receiptID)
	}
	idx := r.FindItem(itemID)
	if idx < 0 {
		return eris.Wrapf(ErrNotFound, "store: item %s on receipt %s", itemID, receiptID)
	}
	r.Items = append(r.Items[:idx], r.Items[idx+1:]...)
	r.UpdatedAt = m.now()
	return nil
}

// Verified product operations

func (m *MemoryStore) FindVerifiedProducts(ctx context.Context, codes []string, storeChain string) ([]*receipt.VerifiedProduct, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*receipt.VerifiedProduct
	for _, code := range dedupeCodes(codes) {
		if p, ok := m.products[receipt.ProductKey(code, storeChain)]; ok {
			c := *p
			result = append(result, &c)
		}
	}
	return result, nil
}

func (m *MemoryStore) GetVerifiedProduct(ctx context.Context, code, storeChain string) (*receipt.VerifiedProduct, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[receipt.ProductKey(code, storeChain)]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (m *MemoryStore) UpsertVerifiedProduct(ctx context.Context, product *receipt.VerifiedProduct) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *product
	m.products[product.Key()] = &c
	return nil
}

// RecordVerification overwrites the descriptive fields of the product and
// increments its verification count in one step, creating it with a count
// of 1 when absent.
func (m *MemoryStore) RecordVerification(ctx context.Context, product *receipt.VerifiedProduct) (*receipt.VerifiedProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	key := product.Key()
	rec, ok := m.products[key]
	if !ok {
		rec = &receipt.VerifiedProduct{
			Code:       product.Code,
			StoreChain: product.StoreChain,
			CreatedAt:  now,
		}
		m.products[key] = rec
	}
	rec.Name = product.Name
	rec.Brand = product.Brand
	rec.Size = product.Size
	rec.Category = product.Category
	rec.LastVerifiedBy = product.LastVerifiedBy
	rec.LastVerified = now
	rec.VerificationCount++

	c := *rec
	return &c, nil
}
