package service

import (
	"context"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"github.com/castlemilk/grocerylens/backend/internal/analytics"
	"github.com/castlemilk/grocerylens/backend/internal/auth"
	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/rotisserie/eris"
)

const (
	analyticsPageSize = 500
	maxTrendMonths    = 36
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// listAllReceipts pages through every receipt of a user in a date range.
func (s *ReceiptService) listAllReceipts(ctx context.Context, userID string, start, end *time.Time) ([]*receipt.Receipt, error) {
	var all []*receipt.Receipt
	var pageToken string
	for {
		page, next, err := s.store.ListReceipts(ctx, userID, start, end, analyticsPageSize, pageToken)
		if err != nil {
			return nil, mapStoreError("list receipts", err)
		}
		all = append(all, page...)
		if next == "" {
			return all, nil
		}
		pageToken = next
	}
}

// rangeReceipts authenticates the caller and loads their receipts in the
// requested range.
func (s *ReceiptService) rangeReceipts(ctx context.Context, msg *DateRangeRequest) ([]*receipt.Receipt, error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	start, end, err := parseDateRange(msg.StartDate, msg.EndDate)
	if err != nil {
		return nil, err
	}
	return s.listAllReceipts(ctx, claims.UID, start, end)
}

// GetCategoryTotals returns spending per category.
func (s *ReceiptService) GetCategoryTotals(ctx context.Context, req *connect.Request[DateRangeRequest]) (*connect.Response[GetCategoryTotalsResponse], error) {
	receipts, err := s.rangeReceipts(ctx, req.Msg)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&GetCategoryTotalsResponse{
		Categories: analytics.CategoryTotals(receipts),
	}), nil
}

// GetMonthlyTrends returns spending per month for the last N months
// (default 6) and the fitted trend line.
func (s *ReceiptService) GetMonthlyTrends(ctx context.Context, req *connect.Request[GetMonthlyTrendsRequest]) (*connect.Response[GetMonthlyTrendsResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	months := req.Msg.Months
	if months <= 0 {
		months = 6
	}
	if months > maxTrendMonths {
		return nil, invalidArgument("months must not exceed %d", maxTrendMonths)
	}

	now := s.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)
	receipts, err := s.listAllReceipts(ctx, claims.UID, &start, nil)
	if err != nil {
		return nil, err
	}

	trends := analytics.MonthlyTrends(receipts, months, now)
	slope, r2 := analytics.TrendLine(trends)
	return connect.NewResponse(&GetMonthlyTrendsResponse{
		Trends:   trends,
		Slope:    slope,
		RSquared: r2,
	}), nil
}

// GetSpendingSummary returns overview statistics.
func (s *ReceiptService) GetSpendingSummary(ctx context.Context, req *connect.Request[DateRangeRequest]) (*connect.Response[GetSpendingSummaryResponse], error) {
	receipts, err := s.rangeReceipts(ctx, req.Msg)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&GetSpendingSummaryResponse{
		Summary: analytics.Summarize(receipts),
	}), nil
}

// ExportSpending returns an XLSX workbook of the caller's receipts.
func (s *ReceiptService) ExportSpending(ctx context.Context, req *connect.Request[DateRangeRequest]) (*connect.Response[ExportSpendingResponse], error) {
	receipts, err := s.rangeReceipts(ctx, req.Msg)
	if err != nil {
		return nil, err
	}
	if len(receipts) == 0 {
		return nil, connect.NewError(connect.CodeNotFound, eris.New("no receipts in the requested range"))
	}

	data, err := analytics.ExportXLSX(receipts)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&ExportSpendingResponse{
		Filename:    exportFilename(req.Msg, s.now()),
		ContentType: xlsxContentType,
		Data:        data,
	}), nil
}

func exportFilename(msg *DateRangeRequest, now time.Time) string {
	from, to := msg.StartDate, msg.EndDate
	if from == "" {
		from = "all"
	}
	if to == "" {
		to = now.Format(receipt.ISODate)
	}
	return fmt.Sprintf("grocery-spending_%s_%s.xlsx", from, to)
}
