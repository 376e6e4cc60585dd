package service

import (
	"bytes"
	"errors"
	"testing"

	"connectrpc.com/connect"
	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/mock/gomock"
)

func spendReceipt(id, date string, items ...receipt.Item) *receipt.Receipt {
	r := &receipt.Receipt{ID: id, UserID: "user-1", StoreName: "No Frills", StoreChain: "no_frills", Date: date, Items: items}
	for _, it := range items {
		r.Total += it.TotalPrice
	}
	return r
}

func line(name, category string, total float64) receipt.Item {
	return receipt.Item{
		RawItem:    receipt.RawItem{Name: name, Category: category, TotalPrice: total, Quantity: 1},
		IsDiscount: receipt.IsDiscount(name, total),
	}
}

func TestGetCategoryTotals_PagesThroughStore(t *testing.T) {
	f := newFixture(t)
	gomock.InOrder(
		f.store.EXPECT().
			ListReceipts(gomock.Any(), "user-1", gomock.Any(), nil, int32(analyticsPageSize), "").
			Return([]*receipt.Receipt{spendReceipt("r1", "2024-05-02", line("APPLES", "Produce", 6))}, "page-2", nil),
		f.store.EXPECT().
			ListReceipts(gomock.Any(), "user-1", gomock.Any(), nil, int32(analyticsPageSize), "page-2").
			Return([]*receipt.Receipt{spendReceipt("r2", "2024-05-09", line("MILK", "Dairy", 4), line("PEARS", "Produce", 2))}, "", nil),
	)

	resp, err := f.svc.GetCategoryTotals(testContextWithUser("user-1"), connect.NewRequest(&DateRangeRequest{StartDate: "2024-05-01"}))
	require.NoError(t, err)

	cats := resp.Msg.Categories
	require.Len(t, cats, 2)
	assert.Equal(t, "Produce", cats[0].Category)
	assert.InDelta(t, 8.0, cats[0].Total, 0.001)
	assert.Equal(t, 2, cats[0].ItemCount)
	assert.Equal(t, "Dairy", cats[1].Category)
}

func TestGetCategoryTotals_Errors(t *testing.T) {
	t.Run("unauthenticated", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.GetCategoryTotals(t.Context(), connect.NewRequest(&DateRangeRequest{}))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture(t)
		f.store.EXPECT().ListReceipts(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, "", errors.New("unavailable"))
		_, err := f.svc.GetCategoryTotals(testContextWithUser("user-1"), connect.NewRequest(&DateRangeRequest{}))
		assert.Equal(t, connect.CodeInternal, connect.CodeOf(err))
	})
}

func TestGetMonthlyTrends(t *testing.T) {
	t.Run("defaults to six months", func(t *testing.T) {
		f := newFixture(t)
		f.store.EXPECT().
			ListReceipts(gomock.Any(), "user-1", gomock.Any(), nil, gomock.Any(), "").
			Return([]*receipt.Receipt{
				spendReceipt("r1", "2024-04-10", line("APPLES", "Produce", 10)),
				spendReceipt("r2", "2024-05-10", line("APPLES", "Produce", 20)),
			}, "", nil)

		resp, err := f.svc.GetMonthlyTrends(testContextWithUser("user-1"), connect.NewRequest(&GetMonthlyTrendsRequest{}))
		require.NoError(t, err)

		trends := resp.Msg.Trends
		require.Len(t, trends, 6)
		assert.Equal(t, "2024-01", trends[0].Month)
		assert.Equal(t, "2024-06", trends[5].Month)
		assert.InDelta(t, 20.0, trends[4].Total, 0.001)
		assert.InDelta(t, 100.0, trends[4].ChangePct, 0.01)
	})

	t.Run("too many months", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.GetMonthlyTrends(testContextWithUser("user-1"), connect.NewRequest(&GetMonthlyTrendsRequest{Months: maxTrendMonths + 1}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})
}

func TestGetSpendingSummary(t *testing.T) {
	f := newFixture(t)
	f.store.EXPECT().
		ListReceipts(gomock.Any(), "user-1", nil, nil, gomock.Any(), "").
		Return([]*receipt.Receipt{
			spendReceipt("r1", "2024-05-02", line("APPLES", "Produce", 6), line("ARCP DISC", "", -1)),
			spendReceipt("r2", "2024-05-09", line("MILK", "Dairy", 4)),
		}, "", nil)

	resp, err := f.svc.GetSpendingSummary(testContextWithUser("user-1"), connect.NewRequest(&DateRangeRequest{}))
	require.NoError(t, err)

	s := resp.Msg.Summary
	assert.Equal(t, 2, s.ReceiptCount)
	assert.InDelta(t, 9.0, s.TotalSpent, 0.001)
	assert.InDelta(t, 1.0, s.TotalSavings, 0.001)
	assert.Equal(t, "2024-05-02", s.FirstDate)
	assert.Equal(t, "2024-05-09", s.LastDate)
}

func TestExportSpending(t *testing.T) {
	t.Run("workbook", func(t *testing.T) {
		f := newFixture(t)
		f.store.EXPECT().
			ListReceipts(gomock.Any(), "user-1", gomock.Any(), nil, gomock.Any(), "").
			Return([]*receipt.Receipt{spendReceipt("r1", "2024-05-02", line("APPLES", "Produce", 6))}, "", nil)

		resp, err := f.svc.ExportSpending(testContextWithUser("user-1"), connect.NewRequest(&DateRangeRequest{StartDate: "2024-05-01"}))
		require.NoError(t, err)

		assert.Equal(t, "grocery-spending_2024-05-01_2024-06-01.xlsx", resp.Msg.Filename)
		assert.Equal(t, xlsxContentType, resp.Msg.ContentType)

		wb, err := excelize.OpenReader(bytes.NewReader(resp.Msg.Data))
		require.NoError(t, err)
		defer wb.Close()
		rows, err := wb.GetRows("Items")
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("nothing to export", func(t *testing.T) {
		f := newFixture(t)
		f.store.EXPECT().ListReceipts(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, "", nil)

		_, err := f.svc.ExportSpending(testContextWithUser("user-1"), connect.NewRequest(&DateRangeRequest{}))
		assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "grocery-spending_all_2024-06-01.xlsx", exportFilename(&DateRangeRequest{}, testNow))
	assert.Equal(t, "grocery-spending_2024-01-01_2024-03-31.xlsx",
		exportFilename(&DateRangeRequest{StartDate: "2024-01-01", EndDate: "2024-03-31"}, testNow))
}
