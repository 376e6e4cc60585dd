// Package receipt holds the receipt domain model and the pure classification
// rules that operate on it: store chain lookup, discount detection and
// receipt date normalization.
package receipt

import (
	"fmt"
	"strings"
	"time"
)

// RawItem is a line item as returned by OCR. Nothing on it is trusted yet.
type RawItem struct {
	Name       string  `json:"item_name" firestore:"Name"`
	Quantity   float64 `json:"quantity" firestore:"Quantity"`
	UnitPrice  float64 `json:"unit_price" firestore:"UnitPrice"`
	TotalPrice float64 `json:"total_price" firestore:"TotalPrice"`
	Code       string  `json:"product_code,omitempty" firestore:"Code"`
	Brand      string  `json:"brand,omitempty" firestore:"Brand"`
	Size       string  `json:"size,omitempty" firestore:"Size"`
	Category   string  `json:"category,omitempty" firestore:"Category"`
	LineNumber int     `json:"line_number,omitempty" firestore:"LineNumber"`
}

// HasLookupCode reports whether the item carries a product code long enough
// to be looked up in the verified product store.
func (r RawItem) HasLookupCode() bool {
	return len(strings.TrimSpace(r.Code)) >= MinCodeLength
}

// MinCodeLength is the shortest product code that is looked up or learned.
const MinCodeLength = 4

// Item is a RawItem annotated by reconciliation.
type Item struct {
	RawItem
	ID         string     `json:"id" firestore:"ID"`
	IsDiscount bool       `json:"is_discount" firestore:"IsDiscount"`
	Confidence Confidence `json:"confidence" firestore:"Confidence"`
}

// Payment is the tender information printed on the receipt.
type Payment struct {
	Method    string `json:"method,omitempty" firestore:"Method"`
	CardLast4 string `json:"card_last4,omitempty" firestore:"CardLast4"`
}

// ParsedReceipt is the structured guess produced by OCR, before reconciliation.
type ParsedReceipt struct {
	StoreName string    `json:"store_name"`
	Date      string    `json:"date"`
	Subtotal  float64   `json:"subtotal"`
	Tax       float64   `json:"tax"`
	Total     float64   `json:"total"`
	Payment   Payment   `json:"payment"`
	Items     []RawItem `json:"items"`
}

// OCRResult is the envelope every OCR implementation returns.
type OCRResult struct {
	Success bool           `json:"success"`
	Parsed  *ParsedReceipt `json:"parsedData,omitempty"`
	OCRText string         `json:"ocrText,omitempty"`
	Error   string         `json:"error,omitempty"`
	Method  string         `json:"method,omitempty"`
}

// Receipt is a reviewed receipt as persisted.
type Receipt struct {
	ID         string    `json:"id" firestore:"ID"`
	UserID     string    `json:"user_id" firestore:"UserID"`
	StoreName  string    `json:"store_name" firestore:"StoreName"`
	StoreChain string    `json:"store_chain" firestore:"StoreChain"`
	Date       string    `json:"date" firestore:"Date"`
	Subtotal   float64   `json:"subtotal" firestore:"Subtotal"`
	Tax        float64   `json:"tax" firestore:"Tax"`
	Total      float64   `json:"total" firestore:"Total"`
	Payment    Payment   `json:"payment" firestore:"Payment"`
	Items      []Item    `json:"items" firestore:"Items"`
	ImageURI   string    `json:"image_uri,omitempty" firestore:"ImageURI"`
	CreatedAt  time.Time `json:"created_at" firestore:"CreatedAt"`
	UpdatedAt  time.Time `json:"updated_at" firestore:"UpdatedAt"`
}

// DateValue parses the normalized receipt date.
func (r *Receipt) DateValue() (time.Time, bool) {
	t, err := time.Parse(ISODate, r.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FindItem returns the index of the item with the given id, or -1.
func (r *Receipt) FindItem(itemID string) int {
	for i := range r.Items {
		if r.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// VerifiedProduct is a human-confirmed mapping from a product code at a chain
// to canonical descriptive fields.
type VerifiedProduct struct {
	Code              string    `json:"product_code" firestore:"Code"`
	StoreChain        string    `json:"store_chain" firestore:"StoreChain"`
	Name              string    `json:"name" firestore:"Name"`
	Brand             string    `json:"brand,omitempty" firestore:"Brand"`
	Size              string    `json:"size,omitempty" firestore:"Size"`
	Category          string    `json:"category,omitempty" firestore:"Category"`
	VerificationCount int       `json:"verification_count" firestore:"VerificationCount"`
	LastVerified      time.Time `json:"last_verified" firestore:"LastVerified"`
	LastVerifiedBy    string    `json:"last_verified_by,omitempty" firestore:"LastVerifiedBy"`
	CreatedAt         time.Time `json:"created_at" firestore:"CreatedAt"`
}

// Key returns the identity of the product: chain and code.
func (p *VerifiedProduct) Key() string {
	return ProductKey(p.Code, p.StoreChain)
}

// ProductKey builds the verified product identity for a code at a chain.
func ProductKey(code, chain string) string {
	return fmt.Sprintf("%s_%s", chain, strings.TrimSpace(code))
}
