package reconcile

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"golang.org/x/sync/errgroup"
	"go.uber.org/zap"
)

const defaultLearnConcurrency = 4

// LearnResult counts what one approval wrote back.
type LearnResult struct {
	Eligible int `json:"eligible"`
	Written  int `json:"written"`
	Failed   int `json:"failed"`
}

// Learner writes human-confirmed items back to the verified product store.
// The most recent confirmation always wins; the verification count grows by
// one per approval per product.
type Learner struct {
	products    ProductStore
	indexer     Indexer
	concurrency int
	now         func() time.Time
	locks       keyLocks
}

// NewLearner creates a Learner. indexer may be nil.
func NewLearner(products ProductStore, indexer Indexer, concurrency int) *Learner {
	if concurrency <= 0 {
		concurrency = defaultLearnConcurrency
	}
	return &Learner{
		products:    products,
		indexer:     indexer,
		concurrency: concurrency,
		now:         time.Now,
		locks:       keyLocks{m: make(map[string]*keyLock)},
	}
}

// Eligible reports whether a confirmed item may be learned: not a discount,
// a lookup-length code and a non-empty name.
func Eligible(item receipt.Item) bool {
	return !item.IsDiscount && item.HasLookupCode() && strings.TrimSpace(item.Name) != ""
}

// Learn writes every eligible item. Per-item failures are logged and counted;
// they never fail the call.
func (l *Learner) Learn(ctx context.Context, items []receipt.Item, storeChain, actor string) LearnResult {
	// Collapse repeated codes so the last confirmation wins.
	byCode := make(map[string]receipt.Item)
	var order []string
	for _, item := range items {
		if !Eligible(item) {
			continue
		}
		code := strings.TrimSpace(item.Code)
		if _, ok := byCode[code]; !ok {
			order = append(order, code)
		}
		byCode[code] = item
	}

	result := LearnResult{Eligible: len(order)}
	if len(order) == 0 {
		return result
	}

	var written, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for _, code := range order {
		item := byCode[code]
		g.Go(func() error {
			product := &receipt.VerifiedProduct{
				Code:           code,
				StoreChain:     storeChain,
				Name:           strings.TrimSpace(item.Name),
				Brand:          item.Brand,
				Size:           item.Size,
				Category:       item.Category,
				LastVerifiedBy: actor,
			}
			saved, err := l.learnOne(gctx, product)
			if err != nil {
				failed.Add(1)
				zap.L().Warn("learn item failed",
					zap.String("code", code),
					zap.String("store_chain", storeChain),
					zap.Error(err))
				return nil
			}
			written.Add(1)
			l.index(gctx, saved)
			return nil
		})
	}
	_ = g.Wait()

	result.Written = int(written.Load())
	result.Failed = int(failed.Load())
	zap.L().Info("learned verified products",
		zap.String("store_chain", storeChain),
		zap.Int("eligible", result.Eligible),
		zap.Int("written", result.Written),
		zap.Int("failed", result.Failed))
	return result
}

func (l *Learner) learnOne(ctx context.Context, product *receipt.VerifiedProduct) (*receipt.VerifiedProduct, error) {
	if av, ok := l.products.(AtomicVerifier); ok {
		return av.RecordVerification(ctx, product)
	}

	unlock := l.locks.lock(product.Key())
	defer unlock()

	now := l.now()
	existing, err := l.products.GetVerifiedProduct(ctx, product.Code, product.StoreChain)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.Name = product.Name
		existing.Brand = product.Brand
		existing.Size = product.Size
		existing.Category = product.Category
		existing.VerificationCount++
		existing.LastVerified = now
		existing.LastVerifiedBy = product.LastVerifiedBy
		product = existing
	} else {
		product.VerificationCount = 1
		product.LastVerified = now
		product.CreatedAt = now
	}
	if err := l.products.UpsertVerifiedProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (l *Learner) index(ctx context.Context, product *receipt.VerifiedProduct) {
	if l.indexer == nil || product == nil {
		return
	}
	if err := l.indexer.IndexProduct(ctx, product); err != nil {
		zap.L().Warn("index product failed", zap.String("key", product.Key()), zap.Error(err))
	}
}

// keyLocks serialises check-then-write per product key.
type keyLocks struct {
	mu sync.Mutex
	m  map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	kl, ok := k.m[key]
	if !ok {
		kl = &keyLock{}
		k.m[key] = kl
	}
	kl.refs++
	k.mu.Unlock()

	kl.Lock()
	return func() {
		kl.Unlock()
		k.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(k.m, key)
		}
		k.mu.Unlock()
	}
}
