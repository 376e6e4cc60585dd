package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/castlemilk/grocerylens/backend/internal/reconcile"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const enrichmentPrompt = `You are a grocery product catalogue assistant for Canadian supermarkets.
Each entry below is a product code and the abbreviated name printed on a receipt.
For every entry you recognise, expand the abbreviation into the full retail product name.

Rules:
- Keep the product specific: never answer with only a store or house-brand name
- Only include entries you are reasonably sure about; omit the rest
- confidence is "ai_suggested" unless you are guessing, then "ocr"

Return JSON only:
[{"code": "...", "fullName": "...", "brand": "...", "size": "...", "category": "...", "confidence": "ai_suggested"}]

Items:
%s`

// EnricherConfig configures the Gemini enrichment client.
type EnricherConfig struct {
	Gemini            GeminiConfig
	RequestsPerSecond float64
	Burst             int
}

// GeminiEnricher expands abbreviated receipt names with one Gemini call per
// batch. A client-side limiter spaces calls out; failed calls are not
// retried.
type GeminiEnricher struct {
	client  *geminiClient
	limiter *rate.Limiter
}

var _ reconcile.Enricher = (*GeminiEnricher)(nil)

// NewGeminiEnricher creates the enrichment client.
func NewGeminiEnricher(cfg EnricherConfig) *GeminiEnricher {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	return &GeminiEnricher{
		client:  newGeminiClient(cfg.Gemini),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// Enrich sends every request in a single prompt and returns suggestions
// keyed by code. Codes the model omits have no entry.
func (e *GeminiEnricher) Enrich(ctx context.Context, items []reconcile.EnrichRequest) (map[string]reconcile.Suggestion, error) {
	if len(items) == 0 {
		return map[string]reconcile.Suggestion{}, nil
	}
	if e.client.apiKey == "" {
		return nil, eris.New("extraction: Gemini API key not configured")
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return nil, eris.Wrap(err, "extraction: marshal enrichment items")
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "extraction: enrichment rate limit")
	}

	parts := []map[string]any{
		{"text": fmt.Sprintf(enrichmentPrompt, string(payload))},
	}
	text, err := e.client.generate(ctx, parts, 4096)
	if err != nil {
		return nil, eris.Wrap(err, "extraction: enrichment call")
	}

	raw, err := extractJSON(text)
	if err != nil {
		return nil, eris.Wrap(err, "extraction: enrichment response")
	}
	entries, err := parseSuggestionsJSON(raw)
	if err != nil {
		return nil, err
	}

	requested := make(map[string]bool, len(items))
	for _, it := range items {
		requested[strings.TrimSpace(it.Code)] = true
	}

	out := make(map[string]reconcile.Suggestion, len(entries))
	for _, entry := range entries {
		code := strings.TrimSpace(entry.Code)
		if !requested[code] {
			continue
		}
		out[code] = reconcile.Suggestion{
			FullName:   entry.FullName,
			Brand:      entry.Brand,
			Size:       entry.Size,
			Category:   CanonicalCategory(entry.Category),
			Confidence: entry.Confidence,
		}
	}
	return out, nil
}
