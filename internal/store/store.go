package store

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/rotisserie/eris"
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=store

// ErrNotFound is returned (wrapped) when a receipt or item does not exist.
var ErrNotFound = eris.New("not found")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store defines the interface for all persistence used by the service
type Store interface {
	// Receipt operations
	CreateReceipt(ctx context.Context, r *receipt.Receipt) error
	GetReceipt(ctx context.Context, receiptID string) (*receipt.Receipt, error)
	UpdateReceipt(ctx context.Context, r *receipt.Receipt) error
	DeleteReceipt(ctx context.Context, receiptID string) error
	ListReceipts(ctx context.Context, userID string, startDate, endDate *time.Time, pageSize int32, pageToken string) ([]*receipt.Receipt, string, error)

	// Item operations, keyed by receipt id + item id
	UpdateReceiptItem(ctx context.Context, receiptID string, item *receipt.Item) error
	DeleteReceiptItem(ctx context.Context, receiptID, itemID string) error

	// Verified product operations
	FindVerifiedProducts(ctx context.Context, codes []string, storeChain string) ([]*receipt.VerifiedProduct, error)
	GetVerifiedProduct(ctx context.Context, code, storeChain string) (*receipt.VerifiedProduct, error)
	UpsertVerifiedProduct(ctx context.Context, product *receipt.VerifiedProduct) error
}

// EncodePageToken encodes a document ID into a page token.
func EncodePageToken(docID string) string {
	if docID == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(docID))
}

// DecodePageToken decodes a page token back to a document ID.
func DecodePageToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// normalizePageSize returns a valid page size (default 100, max 1000)
func normalizePageSize(pageSize int32) int {
	if pageSize <= 0 {
		return 100
	}
	if pageSize > 1000 {
		return 1000
	}
	return int(pageSize)
}

// dateBounds converts an optional time range to inclusive ISO date strings.
func dateBounds(startDate, endDate *time.Time) (string, string) {
	var start, end string
	if startDate != nil {
		start = startDate.Format(receipt.ISODate)
	}
	if endDate != nil {
		end = endDate.Format(receipt.ISODate)
	}
	return start, end
}

// inDateRange compares ISO dates lexically; empty bounds are open.
func inDateRange(date, start, end string) bool {
	if start != "" && date < start {
		return false
	}
	if end != "" && date > end {
		return false
	}
	return true
}

// dedupeCodes drops blanks and repeats, keeping first-seen order.
func dedupeCodes(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
