// seed-receipts loads a few months of grocery receipts into a running
// backend through the public API, so analytics and product search have data.
//
// Usage:
//
//	API_URL=http://localhost:8111 go run ./scripts/seed-receipts
//	API_URL=... AUTH_TOKEN=<firebase id token> go run ./scripts/seed-receipts
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/castlemilk/grocerylens/backend/internal/service"
)

type client struct {
	reconcile *connect.Client[service.ReconcileItemsRequest, service.ReconcileItemsResponse]
	approve   *connect.Client[service.ApproveReceiptRequest, service.ApproveReceiptResponse]
	summary   *connect.Client[service.DateRangeRequest, service.GetSpendingSummaryResponse]
}

func newClient(apiURL string, opts ...connect.ClientOption) *client {
	opts = append(opts, connect.WithCodec(service.JSONCodec{}))
	return &client{
		reconcile: connect.NewClient[service.ReconcileItemsRequest, service.ReconcileItemsResponse](
			http.DefaultClient, apiURL+service.ReceiptServiceReconcileItemsProcedure, opts...),
		approve: connect.NewClient[service.ApproveReceiptRequest, service.ApproveReceiptResponse](
			http.DefaultClient, apiURL+service.ReceiptServiceApproveReceiptProcedure, opts...),
		summary: connect.NewClient[service.DateRangeRequest, service.GetSpendingSummaryResponse](
			http.DefaultClient, apiURL+service.ReceiptServiceGetSpendingSummaryProcedure, opts...),
	}
}

// authInterceptor adds the Authorization header to requests
func authInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			req.Header().Set("Authorization", "Bearer "+token)
			return next(ctx, req)
		}
	}
}

type seedReceipt struct {
	store   string
	daysAgo int
	items   []receipt.RawItem
}

var receipts = []seedReceipt{
	{"Real Canadian Superstore #1520", 3, []receipt.RawItem{
		{Name: "PC BLUE MENU OATS", Quantity: 1, TotalPrice: 4.99, Code: "06038318640", Category: "Pantry"},
		{Name: "BANANAS", Quantity: 1, TotalPrice: 1.87, Code: "4011", Category: "Produce"},
		{Name: "NN 2% MILK 4L", Quantity: 1, TotalPrice: 6.29, Code: "06038366014", Category: "Dairy"},
		{Name: "ARCP 1.00 OFF", Quantity: 1, TotalPrice: -1.00},
	}},
	{"WALMART SUPERCENTRE #1120", 10, []receipt.RawItem{
		{Name: "GV LARGE EGGS 12", Quantity: 2, UnitPrice: 3.97, TotalPrice: 7.94, Code: "06282501234", Category: "Dairy"},
		{Name: "GV WHITE BREAD", Quantity: 1, TotalPrice: 2.47, Code: "06282505678", Category: "Bakery"},
		{Name: "ROLLBACK SAVINGS", Quantity: 1, TotalPrice: -0.50},
	}},
	{"No Frills", 24, []receipt.RawItem{
		{Name: "CHKN BRST BNLS", Quantity: 1, TotalPrice: 14.32, Code: "2841230", Category: "Meat"},
		{Name: "ROMA TOMATOES", Quantity: 1, TotalPrice: 2.11, Code: "4087", Category: "Produce"},
	}},
	{"Costco Wholesale", 45, []receipt.RawItem{
		{Name: "KS WATER 40PK", Quantity: 1, TotalPrice: 4.49, Code: "1234567", Category: "Beverages"},
		{Name: "KS PAPER TOWEL", Quantity: 1, TotalPrice: 24.99, Code: "7654321", Category: "Household"},
	}},
	{"Save-On-Foods", 70, []receipt.RawItem{
		{Name: "WESTERN FAMILY YOGURT", Quantity: 1, TotalPrice: 3.49, Code: "06241234567", Category: "Dairy"},
		{Name: "GALA APPLES", Quantity: 1, TotalPrice: 5.12, Code: "4133", Category: "Produce"},
	}},
}

func main() {
	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8111"
	}

	var opts []connect.ClientOption
	if token := os.Getenv("AUTH_TOKEN"); token != "" {
		log.Println("Using provided auth token")
		opts = append(opts, connect.WithInterceptors(authInterceptor(token)))
	} else {
		log.Println("No auth token provided - backend must run with the memory store or auth.skip")
	}

	c := newClient(apiURL, opts...)
	ctx := context.Background()

	log.Printf("Seeding %d receipts into %s", len(receipts), apiURL)
	for _, sr := range receipts {
		if err := seed(ctx, c, sr); err != nil {
			log.Fatalf("Failed to seed %s receipt: %v", sr.store, err)
		}
	}

	resp, err := c.summary.CallUnary(ctx, connect.NewRequest(&service.DateRangeRequest{}))
	if err != nil {
		log.Fatalf("Failed to read spending summary: %v", err)
	}
	s := resp.Msg.Summary
	fmt.Println()
	fmt.Printf("Receipts:   %d\n", s.ReceiptCount)
	fmt.Printf("Items:      %d\n", s.ItemCount)
	fmt.Printf("Spent:      %.2f\n", s.TotalSpent)
	fmt.Printf("Savings:    %.2f\n", s.TotalSavings)
	fmt.Printf("Top store:  %s\n", s.TopStore)
}

// seed reconciles the items as the review screen would, then approves the
// receipt so its coded items are learned.
func seed(ctx context.Context, c *client, sr seedReceipt) error {
	rec, err := c.reconcile.CallUnary(ctx, connect.NewRequest(&service.ReconcileItemsRequest{
		StoreName: sr.store,
		Items:     sr.items,
	}))
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	var total float64
	for _, it := range rec.Msg.Items {
		total += it.TotalPrice
	}

	resp, err := c.approve.CallUnary(ctx, connect.NewRequest(&service.ApproveReceiptRequest{
		Receipt: &receipt.Receipt{
			StoreName: sr.store,
			Date:      time.Now().AddDate(0, 0, -sr.daysAgo).Format(receipt.ISODate),
			Subtotal:  total,
			Total:     total,
			Items:     rec.Msg.Items,
		},
	}))
	if err != nil {
		return fmt.Errorf("approve: %w", err)
	}

	log.Printf("  %-32s %s  items=%d learned=%d", sr.store, resp.Msg.Receipt.Date, len(resp.Msg.Receipt.Items), resp.Msg.Learned.Written)
	if resp.Msg.DuplicateOf != "" {
		log.Printf("  (duplicate of %s)", resp.Msg.DuplicateOf)
	}
	return nil
}
