package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/castlemilk/grocerylens/backend/internal/reconcile"
)

// geminiServer answers generateContent with the given text.
func geminiServer(t *testing.T, text string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key")
		}
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

const geminiReceiptJSON = `{
  "store_name": "WALMART SUPERCENTRE #1234",
  "date": "03/15/24",
  "subtotal": 6.49, "tax": null, "total": 6.49,
  "payment": {"method": "debit", "card_last4": null},
  "items": [
    {"item_name": "GV MILK", "quantity": 1, "unit_price": 4.99, "total_price": 4.99, "product_code": "06200012345", "line_number": 1},
    {"item_name": "BANANAS", "quantity": null, "unit_price": null, "total_price": 1.50, "product_code": null, "line_number": 2}
  ]
}`

func TestGeminiVision_Recognize(t *testing.T) {
	server := geminiServer(t, "```json\n"+geminiReceiptJSON+"\n```", nil)
	defer server.Close()

	v := NewGeminiVision(GeminiConfig{APIKey: "test-key", BaseURL: server.URL})
	res, err := v.Recognize(context.Background(), Document{Data: jpegHeader})
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if res.Method != "gemini" {
		t.Errorf("Method = %q, want gemini", res.Method)
	}
	if res.Parsed.StoreName != "WALMART SUPERCENTRE #1234" {
		t.Errorf("StoreName = %q", res.Parsed.StoreName)
	}
	if len(res.Parsed.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(res.Parsed.Items))
	}
	if res.Parsed.Items[1].Code != "" || res.Parsed.Items[1].TotalPrice != 1.50 {
		t.Errorf("null fields not decoded as zero values: %+v", res.Parsed.Items[1])
	}
	if res.Parsed.Payment.Method != "debit" {
		t.Errorf("Payment.Method = %q", res.Parsed.Payment.Method)
	}
}

func TestGeminiVision_SchemaViolation(t *testing.T) {
	server := geminiServer(t, `{"store_name": "X", "items": [{"item_name": "MILK", "total_price": "4.99"}]}`, nil)
	defer server.Close()

	v := NewGeminiVision(GeminiConfig{APIKey: "test-key", BaseURL: server.URL})
	_, err := v.Recognize(context.Background(), Document{Data: jpegHeader})
	if got := CodeOf(err); got != ErrOCRUnavailable {
		t.Errorf("code = %s, want %s (%v)", got, ErrOCRUnavailable, err)
	}
}

func TestGeminiVision_NullFieldsDegrade(t *testing.T) {
	server := geminiServer(t, `{
  "store_name": null,
  "date": null,
  "items": [
    {"item_name": "GV MILK", "total_price": 4.99, "product_code": "06200012345"},
    {"item_name": "TORN LINE", "total_price": null},
    {"item_name": null, "total_price": 1.25}
  ]
}`, nil)
	defer server.Close()

	v := NewGeminiVision(GeminiConfig{APIKey: "test-key", BaseURL: server.URL})
	res, err := v.Recognize(context.Background(), Document{Data: jpegHeader})
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if res.Parsed.StoreName != "" {
		t.Errorf("StoreName = %q, want empty", res.Parsed.StoreName)
	}
	if len(res.Parsed.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(res.Parsed.Items))
	}
	if res.Parsed.Items[1].Name != "TORN LINE" || res.Parsed.Items[1].TotalPrice != 0 {
		t.Errorf("unpriced line = %+v", res.Parsed.Items[1])
	}
	if res.Parsed.Items[2].Name != "" || res.Parsed.Items[2].TotalPrice != 1.25 {
		t.Errorf("unnamed line = %+v", res.Parsed.Items[2])
	}
}

func TestGeminiVision_NoAPIKey(t *testing.T) {
	_, err := NewGeminiVision(GeminiConfig{}).Recognize(context.Background(), Document{Data: jpegHeader})
	if got := CodeOf(err); got != ErrOCRUnavailable {
		t.Errorf("code = %s, want %s", got, ErrOCRUnavailable)
	}
}

func TestGeminiVision_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	v := NewGeminiVision(GeminiConfig{APIKey: "test-key", BaseURL: server.URL})
	_, err := v.Recognize(context.Background(), Document{Data: jpegHeader})
	if got := CodeOf(err); got != ErrOCRRateLimited {
		t.Errorf("code = %s, want %s", got, ErrOCRRateLimited)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, false},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"prose around array", `Here you go: [{"a":"}"}] hope that helps`, `[{"a":"}"}]`, false},
		{"escaped quote", `{"a":"say \"hi\" {"}`, `{"a":"say \"hi\" {"}`, false},
		{"nested", `{"a":{"b":[1,2]}} trailing`, `{"a":{"b":[1,2]}}`, false},
		{"no json", `sorry, I cannot read this`, "", true},
		{"unterminated", `{"a":1`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("extractJSON = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGeminiEnricher_Enrich(t *testing.T) {
	answer := `[
	  {"code": "06200012345", "fullName": "Great Value 2% Milk 4L", "brand": "Great Value", "size": "4L", "category": "dairy", "confidence": "ai_suggested"},
	  {"code": "99999999", "fullName": "Not Requested", "confidence": null}
	]`
	var calls atomic.Int32
	server := geminiServer(t, answer, &calls)
	defer server.Close()

	e := NewGeminiEnricher(EnricherConfig{Gemini: GeminiConfig{APIKey: "test-key", BaseURL: server.URL}})
	got, err := e.Enrich(context.Background(), []reconcile.EnrichRequest{
		{Code: "06200012345", Name: "GV MILK"},
		{Code: "0601", Name: "BANANAS"},
	})
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want one batched call", calls.Load())
	}
	if len(got) != 1 {
		t.Fatalf("suggestions = %d, want 1 (unrequested codes dropped): %+v", len(got), got)
	}
	s := got["06200012345"]
	if s.FullName != "Great Value 2% Milk 4L" || s.Category != CategoryDairy {
		t.Errorf("unexpected suggestion: %+v", s)
	}
	if _, ok := got["0601"]; ok {
		t.Error("omitted code must have no suggestion")
	}
}

func TestGeminiEnricher_EmptyBatch(t *testing.T) {
	e := NewGeminiEnricher(EnricherConfig{})
	got, err := e.Enrich(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Errorf("Enrich(nil) = %v, %v; want empty map, nil", got, err)
	}
}

func TestGeminiEnricher_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	e := NewGeminiEnricher(EnricherConfig{Gemini: GeminiConfig{APIKey: "test-key", BaseURL: server.URL}})
	if _, err := e.Enrich(context.Background(), []reconcile.EnrichRequest{{Code: "0601", Name: "X"}}); err == nil {
		t.Fatal("expected error")
	}
}

func TestGeminiEnricher_CancelledWhileLimited(t *testing.T) {
	e := NewGeminiEnricher(EnricherConfig{
		Gemini:            GeminiConfig{APIKey: "test-key", BaseURL: "http://127.0.0.1:0"},
		RequestsPerSecond: 0.001,
		Burst:             1,
	})
	// Drain the single token so the next call has to wait.
	e.limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Enrich(ctx, []reconcile.EnrichRequest{{Code: "0601", Name: "X"}}); err == nil {
		t.Fatal("expected rate limiter wait to fail on cancelled context")
	}
}
