package extraction

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/rotisserie/eris"
)

const (
	defaultClaudeModel     = "claude-sonnet-4-5-20250929"
	defaultClaudeMaxTokens = 8192
	methodClaude           = "claude"
)

// ClaudeConfig configures the Anthropic vision recognizer.
type ClaudeConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
	BaseURL   string
}

// ClaudeVision recognizes receipts through the Anthropic Messages API.
type ClaudeVision struct {
	client    sdk.Client
	model     string
	maxTokens int64
	apiKey    string
}

// NewClaudeVision creates a Claude vision recognizer. The SDK's own retry
// loop is disabled; a failed call is reported once.
func NewClaudeVision(cfg ClaudeConfig) *ClaudeVision {
	if cfg.Model == "" {
		cfg.Model = defaultClaudeModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultClaudeMaxTokens
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &ClaudeVision{
		client:    sdk.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		apiKey:    cfg.APIKey,
	}
}

func (v *ClaudeVision) Name() string { return methodClaude }

// Recognize sends the prompt and a base64 image block in one user message.
func (v *ClaudeVision) Recognize(ctx context.Context, doc Document) (*receipt.OCRResult, error) {
	if v.apiKey == "" {
		return nil, &ExtractionError{Code: ErrOCRUnavailable, Message: "Anthropic API key not configured", Method: methodClaude}
	}
	if doc.isPDF() {
		return nil, &ExtractionError{
			Code:              ErrInvalidImage,
			Message:           "claude vision accepts images only",
			Method:            methodClaude,
			SuggestedFallback: methodGemini,
		}
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(v.model),
		MaxTokens: v.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(
				sdk.NewImageBlockBase64(doc.mimeType(), base64.StdEncoding.EncodeToString(doc.Data)),
				sdk.NewTextBlock(receiptPrompt),
			),
		},
	}

	msg, err := v.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifySDKError(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, &ExtractionError{Code: ErrOCRUnavailable, Message: "no text in Claude response", Method: methodClaude}
	}
	return parseModelReceipt(methodClaude, text.String())
}

func classifySDKError(err error) *ExtractionError {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, 529:
			return &ExtractionError{Code: ErrOCRRateLimited, Message: "claude rate limited", Method: methodClaude, Cause: err}
		case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
			return &ExtractionError{Code: ErrInvalidImage, Message: "claude rejected the image", Method: methodClaude, Cause: err}
		}
	}
	return unavailable(methodClaude, eris.Wrap(err, "anthropic: create message"))
}
