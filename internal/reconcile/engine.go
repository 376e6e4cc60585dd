package reconcile

import (
	"context"
	"strings"

	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine reconciles raw OCR items against verified history and AI suggestions.
// It issues at most one verified lookup and one enrichment call per receipt.
type Engine struct {
	products ProductLookup
	enricher Enricher
	denyList []string
	newID    func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithDenyList replaces the banner deny-list used by the suggestion gate.
func WithDenyList(deny []string) Option {
	return func(e *Engine) { e.denyList = deny }
}

// WithIDGenerator replaces the item id generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// NewEngine creates an Engine. Either collaborator may be nil, in which case
// that stage is skipped.
func NewEngine(products ProductLookup, enricher Enricher, opts ...Option) *Engine {
	e := &Engine{
		products: products,
		enricher: enricher,
		denyList: receipt.BannerDenyList(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile annotates raw items in their original order. storeChain is the
// lookup key of the receipt's store (see receipt.LookupKey). Lookup and
// enrichment failures degrade confidence; they are never returned.
func (e *Engine) Reconcile(ctx context.Context, raw []receipt.RawItem, storeChain string) []receipt.Item {
	items := make([]receipt.Item, len(raw))
	resolved := make([]bool, len(raw))

	var coded []int
	for i, r := range raw {
		items[i] = receipt.Item{
			RawItem:    r,
			ID:         e.newID(),
			IsDiscount: receipt.IsDiscount(r.Name, r.TotalPrice),
			Confidence: receipt.ConfidenceOCR,
		}
		if items[i].IsDiscount {
			resolved[i] = true
			continue
		}
		if r.HasLookupCode() {
			coded = append(coded, i)
		}
	}

	pending := e.applyVerified(ctx, items, resolved, coded, storeChain)
	e.applySuggestions(ctx, items, resolved, pending)

	for i := range items {
		if resolved[i] {
			continue
		}
		if !hasStructure(items[i].RawItem) {
			items[i].Confidence = receipt.ConfidenceFallback
		}
	}

	zap.L().Debug("reconciled receipt items",
		zap.String("store_chain", storeChain),
		zap.Int("items", len(items)),
		zap.Int("coded", len(coded)),
		zap.Int("unresolved_coded", len(pending)))

	return items
}

// applyVerified fills coded items from verified records and returns the
// indexes that are still unresolved.
func (e *Engine) applyVerified(ctx context.Context, items []receipt.Item, resolved []bool, coded []int, storeChain string) []int {
	if len(coded) == 0 {
		return nil
	}
	if e.products == nil {
		return coded
	}

	codes := uniqueCodes(items, coded)
	found, err := e.products.FindVerifiedProducts(ctx, codes, storeChain)
	if err != nil {
		zap.L().Warn("verified lookup failed",
			zap.String("store_chain", storeChain),
			zap.Int("codes", len(codes)),
			zap.Error(err))
		return coded
	}

	byCode := make(map[string]*receipt.VerifiedProduct, len(found))
	for _, p := range found {
		byCode[strings.TrimSpace(p.Code)] = p
	}

	var pending []int
	for _, i := range coded {
		p, ok := byCode[codeOf(items[i])]
		if !ok {
			pending = append(pending, i)
			continue
		}
		items[i].Name = p.Name
		items[i].Brand = p.Brand
		items[i].Size = p.Size
		items[i].Category = p.Category
		items[i].Confidence = receipt.ConfidenceVerified
		resolved[i] = true
	}
	return pending
}

// applySuggestions sends every pending item in one enrichment request and
// applies suggestions that pass the gate.
func (e *Engine) applySuggestions(ctx context.Context, items []receipt.Item, resolved []bool, pending []int) {
	if len(pending) == 0 || e.enricher == nil {
		return
	}

	seen := make(map[string]bool, len(pending))
	reqs := make([]EnrichRequest, 0, len(pending))
	for _, i := range pending {
		code := codeOf(items[i])
		if seen[code] {
			continue
		}
		seen[code] = true
		reqs = append(reqs, EnrichRequest{Code: code, Name: items[i].Name})
	}

	suggestions, err := e.enricher.Enrich(ctx, reqs)
	if err != nil {
		zap.L().Warn("enrichment failed", zap.Int("items", len(reqs)), zap.Error(err))
		return
	}

	for _, i := range pending {
		s, ok := suggestions[codeOf(items[i])]
		if !ok || !AcceptSuggestion(items[i].Name, s.FullName, e.denyList) {
			continue
		}
		items[i].Name = strings.TrimSpace(s.FullName)
		if s.Brand != "" {
			items[i].Brand = s.Brand
		}
		if s.Size != "" {
			items[i].Size = s.Size
		}
		if s.Category != "" {
			items[i].Category = s.Category
		}
		items[i].Confidence = suggestionConfidence(s.Confidence)
		resolved[i] = true
	}
}

func codeOf(item receipt.Item) string {
	return strings.TrimSpace(item.Code)
}

func uniqueCodes(items []receipt.Item, idx []int) []string {
	seen := make(map[string]bool, len(idx))
	codes := make([]string, 0, len(idx))
	for _, i := range idx {
		c := codeOf(items[i])
		if !seen[c] {
			seen[c] = true
			codes = append(codes, c)
		}
	}
	return codes
}

// hasStructure reports whether OCR produced anything beyond a bare line:
// a name plus a price or a code.
func hasStructure(r receipt.RawItem) bool {
	if strings.TrimSpace(r.Name) == "" {
		return false
	}
	return r.TotalPrice != 0 || r.UnitPrice != 0 || strings.TrimSpace(r.Code) != ""
}
