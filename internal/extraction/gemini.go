package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/rotisserie/eris"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.0-flash"
	methodGemini         = "gemini"
)

const receiptPrompt = `Extract the grocery receipt in this image.
Return ONLY a JSON object with this structure:
{
  "store_name": "store name as printed",
  "date": "date exactly as printed",
  "subtotal": 0.00, "tax": 0.00, "total": 0.00,
  "payment": {"method": "cash|debit|credit", "card_last4": "1234"},
  "items": [
    {"item_name": "name as printed", "quantity": 1, "unit_price": 0.00, "total_price": 0.00,
     "product_code": "code if printed", "line_number": 1}
  ]
}
Rules:
- One entry per printed line, in printed order, including discount and savings lines
- Discount lines keep their printed text and use a negative total_price
- Copy the date exactly as printed; do not reformat it
- Use null for anything that is not printed`

// GeminiConfig configures the Gemini REST client.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// geminiClient issues generateContent calls.
type geminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func newGeminiClient(cfg GeminiConfig) *geminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &geminiClient{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// generate sends the parts and returns the text of the first candidate.
func (g *geminiClient) generate(ctx context.Context, parts []map[string]any, maxTokens int) (string, error) {
	requestBody := map[string]any{
		"contents": []map[string]any{
			{"parts": parts},
		},
		"generationConfig": map[string]any{
			"temperature":      0.1,
			"maxOutputTokens":  maxTokens,
			"responseMimeType": "application/json",
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", eris.Wrap(err, "extraction: marshal request")
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", eris.Wrap(err, "extraction: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", unavailable(methodGemini, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", classifyHTTPStatus(methodGemini, resp.StatusCode, string(body))
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", unavailable(methodGemini, eris.Wrap(err, "decode response"))
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", &ExtractionError{Code: ErrOCRUnavailable, Message: "no response from Gemini", Method: methodGemini}
	}
	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}

// GeminiVision recognizes receipts with a locally configured Gemini key. It
// is the client-side alternative to the hosted OCR function.
type GeminiVision struct {
	client *geminiClient
}

// NewGeminiVision creates a Gemini vision recognizer.
func NewGeminiVision(cfg GeminiConfig) *GeminiVision {
	return &GeminiVision{client: newGeminiClient(cfg)}
}

func (v *GeminiVision) Name() string { return methodGemini }

// Recognize sends the image inline and validates the returned JSON.
func (v *GeminiVision) Recognize(ctx context.Context, doc Document) (*receipt.OCRResult, error) {
	if v.client.apiKey == "" {
		return nil, &ExtractionError{Code: ErrOCRUnavailable, Message: "Gemini API key not configured", Method: methodGemini}
	}

	parts := []map[string]any{
		{"text": receiptPrompt},
		{
			"inline_data": map[string]string{
				"mime_type": doc.mimeType(),
				"data":      base64.StdEncoding.EncodeToString(doc.Data),
			},
		},
	}
	text, err := v.client.generate(ctx, parts, 8192)
	if err != nil {
		return nil, err
	}
	return parseModelReceipt(methodGemini, text)
}

// parseModelReceipt converts the text answer of a vision model into an
// OCR envelope.
func parseModelReceipt(method, text string) (*receipt.OCRResult, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, &ExtractionError{Code: ErrOCRUnavailable, Message: "no JSON in model response", Method: method, Cause: err}
	}
	parsed, err := ParseReceiptJSON(raw)
	if err != nil {
		return nil, &ExtractionError{Code: ErrOCRUnavailable, Message: "invalid receipt JSON", Method: method, Cause: err}
	}
	result := &receipt.OCRResult{
		Success: true,
		Parsed:  parsed,
		OCRText: text,
		Method:  method,
	}
	if err := checkResult(method, result); err != nil {
		return nil, err
	}
	return result, nil
}

// extractJSON returns the first balanced JSON object or array in text.
// Models sometimes wrap JSON in prose or code fences.
func extractJSON(text string) ([]byte, error) {
	start := -1
	var opener, closer byte
	for i := 0; i < len(text); i++ {
		if text[i] == '{' || text[i] == '[' {
			start = i
			opener = text[i]
			closer = '}'
			if opener == '[' {
				closer = ']'
			}
			break
		}
	}
	if start == -1 {
		return nil, eris.New("no JSON found in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return []byte(text[start : i+1]), nil
			}
		}
	}
	return nil, eris.New("unterminated JSON in response")
}
