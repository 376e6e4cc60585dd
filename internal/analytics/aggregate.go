// Package analytics aggregates persisted receipts into spending views:
// category totals, monthly trends, a summary and an XLSX export.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/castlemilk/grocerylens/backend/internal/extraction"
	"github.com/castlemilk/grocerylens/backend/internal/receipt"
)

// CategoryTotal is spending in one category.
type CategoryTotal struct {
	Category  string  `json:"category"`
	Total     float64 `json:"total"`
	ItemCount int     `json:"item_count"`
	Share     float64 `json:"share"` // fraction of gross spend, 0 for Discounts
}

// MonthlyTrend is spending in one calendar month.
type MonthlyTrend struct {
	Month        string  `json:"month"` // YYYY-MM
	Total        float64 `json:"total"`
	ReceiptCount int     `json:"receipt_count"`
	ChangePct    float64 `json:"change_pct"` // vs previous month, 0 when it had no spend
}

// Summary is an overview of a set of receipts.
type Summary struct {
	ReceiptCount   int     `json:"receipt_count"`
	ItemCount      int     `json:"item_count"`
	TotalSpent     float64 `json:"total_spent"`
	AverageReceipt float64 `json:"average_receipt"`
	TotalSavings   float64 `json:"total_savings"`
	TopCategory    string  `json:"top_category,omitempty"`
	TopStore       string  `json:"top_store,omitempty"`
	FirstDate      string  `json:"first_date,omitempty"`
	LastDate       string  `json:"last_date,omitempty"`
}

// itemCategory returns the reporting bucket of an item. Discount lines are
// netted in their own bucket.
func itemCategory(item receipt.Item) string {
	if item.IsDiscount {
		return extraction.CategoryDiscounts
	}
	if c := extraction.CanonicalCategory(item.Category); c != "" {
		return c
	}
	return extraction.CategoryOther
}

// lineSpend is what an item adds to spend. Discount lines always reduce it,
// whatever sign the receipt printed them with.
func lineSpend(item receipt.Item) float64 {
	if item.IsDiscount {
		return -math.Abs(item.TotalPrice)
	}
	return item.TotalPrice
}

// receiptTotal is the printed total, or the item sum when none was printed.
func receiptTotal(r *receipt.Receipt) float64 {
	if r.Total != 0 {
		return r.Total
	}
	var sum float64
	for _, item := range r.Items {
		sum += lineSpend(item)
	}
	return sum
}

// CategoryTotals sums item spend per category, largest first.
func CategoryTotals(receipts []*receipt.Receipt) []CategoryTotal {
	byCategory := make(map[string]*CategoryTotal)
	var gross float64

	for _, r := range receipts {
		for _, item := range r.Items {
			cat := itemCategory(item)
			ct, ok := byCategory[cat]
			if !ok {
				ct = &CategoryTotal{Category: cat}
				byCategory[cat] = ct
			}
			spend := lineSpend(item)
			ct.Total += spend
			ct.ItemCount++
			if cat != extraction.CategoryDiscounts {
				gross += spend
			}
		}
	}

	out := make([]CategoryTotal, 0, len(byCategory))
	for _, ct := range byCategory {
		if gross > 0 && ct.Category != extraction.CategoryDiscounts {
			ct.Share = roundTo(ct.Total/gross, 4)
		}
		ct.Total = roundCents(ct.Total)
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// MonthlyTrends returns the last months calendar months ending at now,
// oldest first, with months without receipts zero-filled.
func MonthlyTrends(receipts []*receipt.Receipt, months int, now time.Time) []MonthlyTrend {
	if months <= 0 {
		months = 6
	}
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	trends := make([]MonthlyTrend, months)
	index := make(map[string]int, months)
	for i := range trends {
		label := start.AddDate(0, i, 0).Format("2006-01")
		trends[i].Month = label
		index[label] = i
	}

	for _, r := range receipts {
		d, ok := r.DateValue()
		if !ok {
			continue
		}
		i, ok := index[d.Format("2006-01")]
		if !ok {
			continue
		}
		trends[i].Total += receiptTotal(r)
		trends[i].ReceiptCount++
	}

	for i := range trends {
		trends[i].Total = roundCents(trends[i].Total)
		if i > 0 && trends[i-1].Total > 0 {
			trends[i].ChangePct = roundTo((trends[i].Total-trends[i-1].Total)/trends[i-1].Total*100, 2)
		}
	}
	return trends
}

// TrendLine fits a least-squares line through the monthly totals and
// returns its slope per month and R².
func TrendLine(trends []MonthlyTrend) (slope, rSquared float64) {
	points := make([]float64, len(trends))
	for i, t := range trends {
		points[i] = t.Total
	}
	return computeLinearRegression(points)
}

// computeLinearRegression computes slope and R-squared for a series of
// y-values where x = 0, 1, 2, ...
func computeLinearRegression(points []float64) (slope, rSquared float64) {
	n := float64(len(points))
	if n < 2 {
		return 0, 0
	}
	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range points {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, 0
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssRes, ssTot float64
	for i, y := range points {
		predicted := slope*float64(i) + intercept
		ssRes += (y - predicted) * (y - predicted)
		ssTot += (y - meanY) * (y - meanY)
	}
	if ssTot == 0 {
		return slope, 1
	}
	return slope, 1 - ssRes/ssTot
}

// Summarize computes overview statistics.
func Summarize(receipts []*receipt.Receipt) Summary {
	var s Summary
	storeSpend := make(map[string]float64)

	for _, r := range receipts {
		s.ReceiptCount++
		s.ItemCount += len(r.Items)
		total := receiptTotal(r)
		s.TotalSpent += total

		store := r.StoreName
		if store == "" {
			store = r.StoreChain
		}
		if store != "" {
			storeSpend[store] += total
		}

		for _, item := range r.Items {
			if item.IsDiscount {
				s.TotalSavings += math.Abs(item.TotalPrice)
			}
		}

		if _, ok := r.DateValue(); ok {
			if s.FirstDate == "" || r.Date < s.FirstDate {
				s.FirstDate = r.Date
			}
			if r.Date > s.LastDate {
				s.LastDate = r.Date
			}
		}
	}

	if s.ReceiptCount > 0 {
		s.AverageReceipt = roundCents(s.TotalSpent / float64(s.ReceiptCount))
	}
	s.TotalSpent = roundCents(s.TotalSpent)
	s.TotalSavings = roundCents(s.TotalSavings)
	s.TopStore = topKey(storeSpend)

	for _, ct := range CategoryTotals(receipts) {
		if ct.Category != extraction.CategoryDiscounts {
			s.TopCategory = ct.Category
			break
		}
	}
	return s
}

func topKey(m map[string]float64) string {
	var best string
	bestVal := math.Inf(-1)
	for k, v := range m {
		if v > bestVal || (v == bestVal && k < best) {
			best, bestVal = k, v
		}
	}
	return best
}

func roundCents(v float64) float64 {
	return roundTo(v, 2)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
