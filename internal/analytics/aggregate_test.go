package analytics

import (
	"testing"
	"time"

	"github.com/castlemilk/grocerylens/backend/internal/extraction"
	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(name, category string, total float64) receipt.Item {
	return receipt.Item{
		RawItem:    receipt.RawItem{Name: name, Category: category, Quantity: 1, UnitPrice: total, TotalPrice: total},
		Confidence: receipt.ConfidenceOCR,
	}
}

func discount(name string, total float64) receipt.Item {
	it := item(name, "", total)
	it.IsDiscount = true
	return it
}

func sampleReceipts() []*receipt.Receipt {
	return []*receipt.Receipt{
		{
			ID: "r1", StoreName: "Real Canadian Superstore", StoreChain: "real_canadian_superstore",
			Date: "2024-04-02", Total: 14.00,
			Items: []receipt.Item{
				item("Milk 2% 2L", "dairy", 5.00),
				item("Bananas", "Produce", 2.00),
				item("Steak", "meat", 8.00),
				discount("ARCP SAVE", -1.00),
			},
		},
		{
			ID: "r2", StoreName: "Walmart Supercentre", StoreChain: "walmart",
			Date: "2024-05-10", Total: 0, // no printed total
			Items: []receipt.Item{
				item("Cheese", "Dairy & Eggs", 6.00),
				item("Mystery", "", 4.00),
			},
		},
		{
			ID: "r3", StoreName: "Real Canadian Superstore", StoreChain: "real_canadian_superstore",
			Date: "2024-06-01", Total: 20.00,
			Items: []receipt.Item{
				item("Apples", "fruit", 20.00),
			},
		},
	}
}

func TestCategoryTotals(t *testing.T) {
	totals := CategoryTotals(sampleReceipts())

	byName := make(map[string]CategoryTotal)
	for _, ct := range totals {
		byName[ct.Category] = ct
	}

	assert.Equal(t, extraction.CategoryProduce, totals[0].Category)
	assert.Equal(t, 22.00, byName[extraction.CategoryProduce].Total)
	assert.Equal(t, 2, byName[extraction.CategoryProduce].ItemCount)
	assert.Equal(t, 11.00, byName[extraction.CategoryDairy].Total)
	assert.Equal(t, 8.00, byName[extraction.CategoryMeat].Total)
	assert.Equal(t, 4.00, byName[extraction.CategoryOther].Total)

	disc := byName[extraction.CategoryDiscounts]
	assert.Equal(t, -1.00, disc.Total)
	assert.Zero(t, disc.Share)
	assert.Equal(t, extraction.CategoryDiscounts, totals[len(totals)-1].Category, "negative bucket sorts last")

	assert.InDelta(t, 22.0/45.0, byName[extraction.CategoryProduce].Share, 0.0001)
}

func TestCategoryTotals_PositiveDiscountLine(t *testing.T) {
	receipts := []*receipt.Receipt{{
		ID: "r1", StoreName: "Costco Wholesale", Date: "2024-05-02", Total: 8.00,
		Items: []receipt.Item{
			item("Cheese", "dairy", 10.00),
			discount("MEMBER SAVINGS", 2.00),
		},
	}}

	var sum float64
	for _, ct := range CategoryTotals(receipts) {
		if ct.Category == extraction.CategoryDiscounts {
			assert.Equal(t, -2.00, ct.Total)
		}
		sum += ct.Total
	}
	assert.InDelta(t, 8.00, sum, 0.001)

	s := Summarize(receipts)
	assert.Equal(t, 2.00, s.TotalSavings)
	assert.Equal(t, 8.00, s.TotalSpent)

	receipts[0].Total = 0
	assert.Equal(t, 8.00, Summarize(receipts).TotalSpent, "item sum nets the discount")
}

func TestCategoryTotals_Empty(t *testing.T) {
	assert.Empty(t, CategoryTotals(nil))
}

func TestMonthlyTrends(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	trends := MonthlyTrends(sampleReceipts(), 4, now)

	require.Len(t, trends, 4)
	assert.Equal(t, []string{"2024-03", "2024-04", "2024-05", "2024-06"},
		[]string{trends[0].Month, trends[1].Month, trends[2].Month, trends[3].Month})

	assert.Zero(t, trends[0].Total)
	assert.Zero(t, trends[0].ReceiptCount)

	assert.Equal(t, 14.00, trends[1].Total)
	assert.Zero(t, trends[1].ChangePct, "previous month had no spend")

	assert.Equal(t, 10.00, trends[2].Total, "item sum used when no total printed")
	assert.InDelta(t, -28.57, trends[2].ChangePct, 0.01)

	assert.Equal(t, 20.00, trends[3].Total)
	assert.Equal(t, 100.0, trends[3].ChangePct)
}

func TestMonthlyTrends_YearBoundaryAndDefaults(t *testing.T) {
	now := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	receipts := []*receipt.Receipt{
		{Date: "2024-12-24", Total: 50},
		{Date: "garbage", Total: 999},
		{Date: "2019-01-01", Total: 999},
	}
	trends := MonthlyTrends(receipts, 0, now)

	require.Len(t, trends, 6)
	assert.Equal(t, "2024-08", trends[0].Month)
	assert.Equal(t, "2025-01", trends[5].Month)
	assert.Equal(t, 50.0, trends[4].Total)
}

func TestTrendLine(t *testing.T) {
	slope, r2 := TrendLine([]MonthlyTrend{{Total: 10}, {Total: 20}, {Total: 30}})
	assert.InDelta(t, 10.0, slope, 1e-9)
	assert.InDelta(t, 1.0, r2, 1e-9)

	slope, r2 = TrendLine([]MonthlyTrend{{Total: 5}})
	assert.Zero(t, slope)
	assert.Zero(t, r2)

	slope, r2 = TrendLine([]MonthlyTrend{{Total: 5}, {Total: 5}})
	assert.Zero(t, slope)
	assert.Equal(t, 1.0, r2)
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleReceipts())

	assert.Equal(t, 3, s.ReceiptCount)
	assert.Equal(t, 7, s.ItemCount)
	assert.Equal(t, 44.00, s.TotalSpent)
	assert.Equal(t, 14.67, s.AverageReceipt)
	assert.Equal(t, 1.00, s.TotalSavings)
	assert.Equal(t, extraction.CategoryProduce, s.TopCategory)
	assert.Equal(t, "Real Canadian Superstore", s.TopStore)
	assert.Equal(t, "2024-04-02", s.FirstDate)
	assert.Equal(t, "2024-06-01", s.LastDate)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.ReceiptCount)
	assert.Zero(t, s.AverageReceipt)
	assert.Empty(t, s.TopStore)
}
