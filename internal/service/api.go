package service

import (
	"github.com/castlemilk/grocerylens/backend/internal/analytics"
	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/castlemilk/grocerylens/backend/internal/reconcile"
	"github.com/castlemilk/grocerylens/backend/internal/search"
)

// Request and response messages of the ReceiptService procedures. Dates on
// the wire are YYYY-MM-DD strings.

type UploadReceiptRequest struct {
	ImageURI  string `json:"image_uri,omitempty"`
	ImageData []byte `json:"image_data,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
}

type UploadReceiptResponse struct {
	Draft *Draft `json:"draft"`
}

type ReconcileItemsRequest struct {
	StoreName string            `json:"store_name"`
	Items     []receipt.RawItem `json:"items"`
}

type ReconcileItemsResponse struct {
	StoreChain string         `json:"store_chain"`
	Items      []receipt.Item `json:"items"`
}

type ApproveReceiptRequest struct {
	DraftID string           `json:"draft_id,omitempty"`
	Receipt *receipt.Receipt `json:"receipt,omitempty"`
}

type ApproveReceiptResponse struct {
	Receipt     *receipt.Receipt      `json:"receipt"`
	Learned     reconcile.LearnResult `json:"learned"`
	DuplicateOf string                `json:"duplicate_of,omitempty"`
}

type GetReceiptRequest struct {
	ReceiptID string `json:"receipt_id"`
}

type GetReceiptResponse struct {
	Receipt *receipt.Receipt `json:"receipt"`
}

type ListReceiptsRequest struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	PageSize  int32  `json:"page_size,omitempty"`
	PageToken string `json:"page_token,omitempty"`
}

type ListReceiptsResponse struct {
	Receipts      []*receipt.Receipt `json:"receipts"`
	NextPageToken string             `json:"next_page_token,omitempty"`
}

type UpdateReceiptRequest struct {
	Receipt *receipt.Receipt `json:"receipt"`
}

type UpdateReceiptResponse struct {
	Receipt *receipt.Receipt `json:"receipt"`
}

type DeleteReceiptRequest struct {
	ReceiptID string `json:"receipt_id"`
}

type DeleteReceiptResponse struct{}

type UpdateReceiptItemRequest struct {
	ReceiptID string        `json:"receipt_id"`
	Item      *receipt.Item `json:"item"`
}

type UpdateReceiptItemResponse struct {
	Item *receipt.Item `json:"item"`
}

type DeleteReceiptItemRequest struct {
	ReceiptID string `json:"receipt_id"`
	ItemID    string `json:"item_id"`
}

type DeleteReceiptItemResponse struct{}

type DateRangeRequest struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

type GetCategoryTotalsResponse struct {
	Categories []analytics.CategoryTotal `json:"categories"`
}

type GetMonthlyTrendsRequest struct {
	Months int `json:"months,omitempty"`
}

type GetMonthlyTrendsResponse struct {
	Trends   []analytics.MonthlyTrend `json:"trends"`
	Slope    float64                  `json:"slope"`
	RSquared float64                  `json:"r_squared"`
}

type GetSpendingSummaryResponse struct {
	Summary analytics.Summary `json:"summary"`
}

type ExportSpendingResponse struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

type SearchProductsRequest struct {
	Query     string `json:"query"`
	StoreName string `json:"store_name,omitempty"`
	Category  string `json:"category,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
}

type SearchProductsResponse struct {
	Products []search.ProductHit `json:"products"`
}
