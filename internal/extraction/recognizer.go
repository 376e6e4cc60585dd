// Package extraction turns receipt images and PDFs into structured OCR
// results, and provides the AI enrichment client used by reconciliation.
package extraction

import (
	"bytes"
	"context"
	"net/http"

	"github.com/castlemilk/grocerylens/backend/internal/receipt"
)

// Document is a receipt image or PDF ready for recognition.
type Document struct {
	Data     []byte
	MimeType string
	Filename string
}

// Recognizer extracts a structured receipt from a document. Every
// implementation returns the same envelope so callers never need to know
// which source produced it.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, doc Document) (*receipt.OCRResult, error)
}

// detectMimeType returns the MIME type based on document data.
func detectMimeType(data []byte) string {
	if len(data) >= 4 && bytes.Equal(data[:4], []byte("%PDF")) {
		return "application/pdf"
	}
	switch ct := http.DetectContentType(data); ct {
	case "image/png", "image/jpeg", "image/webp", "image/gif":
		return ct
	}
	// HEIC and unknown payloads go out as JPEG; the vision models sniff content.
	return "image/jpeg"
}

func (d Document) mimeType() string {
	if d.MimeType != "" {
		return d.MimeType
	}
	return detectMimeType(d.Data)
}

func (d Document) isPDF() bool {
	return d.mimeType() == "application/pdf"
}

// checkResult turns an unsuccessful or empty envelope into an error.
func checkResult(method string, res *receipt.OCRResult) error {
	if res == nil || !res.Success {
		msg := "recognition failed"
		if res != nil && res.Error != "" {
			msg = res.Error
		}
		return &ExtractionError{Code: ErrOCRUnavailable, Message: msg, Method: method}
	}
	if res.Parsed == nil || len(res.Parsed.Items) == 0 {
		return &ExtractionError{Code: ErrNoItemsFound, Message: "no line items found on receipt", Method: method}
	}
	return nil
}
