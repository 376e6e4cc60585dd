// Package eval compares receipt extraction strategies (text-layer parser,
// vision models) against ground-truth fixtures.
package eval

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/castlemilk/grocerylens/backend/internal/receipt"
)

// GroundTruth is the expected extraction of a fixture.
type GroundTruth struct {
	Name      string      `json:"name"`
	StoreName string      `json:"store_name"`
	Date      string      `json:"date"` // YYYY-MM-DD after normalization
	Total     float64     `json:"total"`
	Items     []TruthItem `json:"items"`
}

// TruthItem is one expected line item.
type TruthItem struct {
	Name  string  `json:"name"`
	Code  string  `json:"code"`
	Price float64 `json:"price"`
}

// EvalResult holds metrics from running one strategy on one fixture.
type EvalResult struct {
	Strategy     string
	Fixture      string
	ItemCount    CountMetrics
	CodeAccuracy float64
	NameSim      float64
	DateCorrect  bool
	TotalCorrect bool
	OverallScore float64
	Duration     time.Duration
	ModelCalls   int
	Error        string
}

// CountMetrics measures line-item detection.
type CountMetrics struct {
	Expected  int
	Extracted int
	Matched   int
	Precision float64
	Recall    float64
	F1        float64
}

type itemPair struct {
	extracted receipt.RawItem
	truth     TruthItem
}

// StrategyFunc extracts a receipt from its text lines and reports how many
// model calls it made.
type StrategyFunc func(ctx context.Context, lines []string) (*receipt.ParsedReceipt, int, error)

// ComputeMetrics compares a parsed receipt against ground truth.
func ComputeMetrics(
	strategy string,
	fixture string,
	parsed *receipt.ParsedReceipt,
	truth *GroundTruth,
	duration time.Duration,
	modelCalls int,
) *EvalResult {
	result := &EvalResult{
		Strategy:   strategy,
		Fixture:    fixture,
		Duration:   duration,
		ModelCalls: modelCalls,
	}
	if parsed == nil {
		parsed = &receipt.ParsedReceipt{}
	}

	matched := matchItems(parsed.Items, truth.Items)
	result.ItemCount = CountMetrics{
		Expected:  len(truth.Items),
		Extracted: len(parsed.Items),
		Matched:   len(matched),
	}
	if len(parsed.Items) > 0 {
		result.ItemCount.Precision = float64(len(matched)) / float64(len(parsed.Items))
	}
	if len(truth.Items) > 0 {
		result.ItemCount.Recall = float64(len(matched)) / float64(len(truth.Items))
	}
	p, r := result.ItemCount.Precision, result.ItemCount.Recall
	if p+r > 0 {
		result.ItemCount.F1 = 2 * p * r / (p + r)
	}

	if len(matched) > 0 {
		var codeOK int
		var simSum float64
		for _, pair := range matched {
			if strings.TrimSpace(pair.extracted.Code) == pair.truth.Code {
				codeOK++
			}
			simSum += nameSimilarity(pair.extracted.Name, pair.truth.Name)
		}
		result.CodeAccuracy = float64(codeOK) / float64(len(matched))
		result.NameSim = simSum / float64(len(matched))
	}

	if truth.Date != "" {
		result.DateCorrect = receipt.NormalizeDate(parsed.Date, parsed.StoreName) == truth.Date
	}
	result.TotalCorrect = priceMatch(parsed.Total, truth.Total)

	result.OverallScore = 0.40*result.ItemCount.F1 +
		0.20*result.CodeAccuracy +
		0.15*result.NameSim +
		0.15*boolScore(result.DateCorrect) +
		0.10*boolScore(result.TotalCorrect)

	return result
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// matchItems pairs extracted items to truth items by price, preferring the
// most similar name.
func matchItems(extracted []receipt.RawItem, truth []TruthItem) []itemPair {
	used := make([]bool, len(truth))
	var matched []itemPair

	for _, ext := range extracted {
		bestIdx := -1
		bestScore := -1.0
		for j, tr := range truth {
			if used[j] || !priceMatch(ext.TotalPrice, tr.Price) {
				continue
			}
			score := nameSimilarity(ext.Name, tr.Name)
			if tr.Code != "" && strings.TrimSpace(ext.Code) == tr.Code {
				score += 1
			}
			if score > bestScore {
				bestScore = score
				bestIdx = j
			}
		}
		if bestIdx >= 0 {
			used[bestIdx] = true
			matched = append(matched, itemPair{extracted: ext, truth: truth[bestIdx]})
		}
	}
	return matched
}

// priceMatch reports whether two prices agree to the cent.
func priceMatch(a, b float64) bool {
	return math.Abs(a-b) < 0.005
}

// nameSimilarity returns a 0-1 score from normalized Levenshtein distance.
func nameSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1.0
	}
	lenA := utf8.RuneCountInString(a)
	lenB := utf8.RuneCountInString(b)
	maxLen := max(lenA, lenB)
	return 1.0 - float64(levenshtein(a, b))/float64(maxLen)
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr := make([]int, len(rb)+1)
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev = curr
	}
	return prev[len(rb)]
}

// RunEval executes every strategy against every fixture.
func RunEval(ctx context.Context, strategies map[string]StrategyFunc, fixtures []*Fixture) []*EvalResult {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []*EvalResult
	for _, fixture := range fixtures {
		for _, name := range names {
			start := time.Now()
			parsed, calls, err := strategies[name](ctx, fixture.Lines)
			elapsed := time.Since(start)
			if err != nil {
				results = append(results, &EvalResult{
					Strategy:   name,
					Fixture:    fixture.Name,
					Duration:   elapsed,
					ModelCalls: calls,
					Error:      err.Error(),
				})
				continue
			}
			results = append(results, ComputeMetrics(name, fixture.Name, parsed, fixture.GroundTruth, elapsed, calls))
		}
	}
	return results
}

// PrintSummary writes a comparison table.
func PrintSummary(w io.Writer, results []*EvalResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Strategy\tFixture\tF1\tCode%\tName~\tDate\tTotal\tScore\tTime\tCalls\tMatch\tError")
	fmt.Fprintln(tw, "--------\t-------\t--\t-----\t-----\t----\t-----\t-----\t----\t-----\t-----\t-----")
	for _, r := range results {
		errStr := ""
		if r.Error != "" {
			errStr = truncate(r.Error, 30)
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.0f%%\t%.2f\t%s\t%s\t%.2f\t%s\t%d\t%d/%d\t%s\n",
			r.Strategy,
			r.Fixture,
			r.ItemCount.F1,
			r.CodeAccuracy*100,
			r.NameSim,
			check(r.DateCorrect),
			check(r.TotalCorrect),
			r.OverallScore,
			r.Duration.Round(time.Millisecond),
			r.ModelCalls,
			r.ItemCount.Matched, r.ItemCount.Expected,
			errStr,
		)
	}
	tw.Flush()
}

func check(ok bool) string {
	if ok {
		return "ok"
	}
	return "-"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
