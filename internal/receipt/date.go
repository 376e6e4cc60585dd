package receipt

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISODate is the layout every normalized receipt date uses.
const ISODate = "2006-01-02"

// Rule names reported by DateNormalizer.Resolve.
const (
	RuleISOPrefix       = "iso-prefix"
	RuleYearLast        = "four-digit-year-last"
	RuleYearFirst       = "four-digit-year-first"
	RuleChainPrior      = "chain-prior"
	RuleYearNearNow     = "year-near-now"
	RuleYearByMagnitude = "year-first-by-magnitude"
	RuleToday           = "today"
)

var (
	isoPrefixRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	dateSepRe   = regexp.MustCompile(`[/.-]`)
)

// dateInput is what every split-based rule sees.
type dateInput struct {
	parts [3]string
	nums  [3]int
	chain StoreChain
	now   time.Time
}

type dateRule struct {
	name  string
	apply func(in dateInput) (string, bool)
}

// dateRules is evaluated top-down, first match wins. The year-near-now rule
// is checked before the year-first magnitude rule: "15/03/24" read in 2024
// is the 15th of March, not 2015.
var dateRules = []dateRule{
	{RuleYearLast, yearLastRule},
	{RuleYearFirst, yearFirstRule},
	{RuleChainPrior, chainPriorRule},
	{RuleYearNearNow, yearNearNowRule},
	{RuleYearByMagnitude, yearByMagnitudeRule},
}

// DateNormalizer turns printed receipt dates into YYYY-MM-DD.
type DateNormalizer struct {
	now func() time.Time
}

// NewDateNormalizer creates a normalizer. A nil clock uses time.Now.
func NewDateNormalizer(now func() time.Time) *DateNormalizer {
	if now == nil {
		now = time.Now
	}
	return &DateNormalizer{now: now}
}

var defaultDateNormalizer = NewDateNormalizer(nil)

// NormalizeDate normalizes raw with the wall clock.
func NormalizeDate(raw, storeName string) string {
	return defaultDateNormalizer.Normalize(raw, storeName)
}

// Normalize returns the ISO date for raw, using the store name as a hint for
// ambiguous two-digit formats. Unparseable or empty input yields today.
func (n *DateNormalizer) Normalize(raw, storeName string) string {
	date, _ := n.Resolve(raw, storeName)
	return date
}

// Resolve is Normalize plus the name of the rule that produced the date.
func (n *DateNormalizer) Resolve(raw, storeName string) (string, string) {
	now := n.now()
	today := now.Format(ISODate)

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return today, RuleToday
	}
	if prefix := isoPrefixRe.FindString(raw); prefix != "" {
		return prefix, RuleISOPrefix
	}

	// drop a trailing time component such as "15/03/24 14:02"
	if i := strings.IndexAny(raw, " \t"); i > 0 {
		raw = raw[:i]
	}
	// empty parts such as "15//03/24" fail the integer parse below
	parts := dateSepRe.Split(raw, -1)
	if len(parts) != 3 {
		return today, RuleToday
	}

	in := dateInput{chain: ClassifyStore(storeName), now: now}
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return today, RuleToday
		}
		in.parts[i] = p
		in.nums[i] = v
	}

	for _, rule := range dateRules {
		if date, ok := rule.apply(in); ok {
			return date, rule.name
		}
	}
	return today, RuleToday
}

// yearLastRule handles DD/MM/YYYY and MM/DD/YYYY.
func yearLastRule(in dateInput) (string, bool) {
	if len(in.parts[2]) != 4 {
		return "", false
	}
	day, month := dayMonth(in.nums[0], in.nums[1], in.chain)
	return formatDate(in.nums[2], month, day)
}

// yearFirstRule handles YYYY/MM/DD.
func yearFirstRule(in dateInput) (string, bool) {
	if len(in.parts[0]) != 4 {
		return "", false
	}
	return formatDate(in.nums[0], in.nums[1], in.nums[2])
}

func chainPriorRule(in dateInput) (string, bool) {
	if !allTwoDigit(in) {
		return "", false
	}
	switch in.chain.DatePrior() {
	case DateOrderYMD:
		return formatDate(expandYear(in.nums[0]), in.nums[1], in.nums[2])
	case DateOrderMDY:
		return formatDate(expandYear(in.nums[2]), in.nums[0], in.nums[1])
	}
	return "", false
}

func yearNearNowRule(in dateInput) (string, bool) {
	if !allTwoDigit(in) {
		return "", false
	}
	current := in.now.Year() % 100
	diff := in.nums[2] - current
	if diff < 0 {
		diff = -diff
	}
	if diff > 50 {
		diff = 100 - diff
	}
	if diff > 1 {
		return "", false
	}
	day, month := dayMonth(in.nums[0], in.nums[1], in.chain)
	return formatDate(expandYear(in.nums[2]), month, day)
}

func yearByMagnitudeRule(in dateInput) (string, bool) {
	if !allTwoDigit(in) {
		return "", false
	}
	if in.nums[0] > 12 && in.nums[1] <= 12 {
		return formatDate(expandYear(in.nums[0]), in.nums[1], in.nums[2])
	}
	return "", false
}

// dayMonth orders the first two fields. A first field above 12 can only be a
// day; otherwise Walmart prints month first and everyone else day first.
func dayMonth(p1, p2 int, chain StoreChain) (day, month int) {
	if p1 > 12 {
		return p1, p2
	}
	if chain.IsWalmart() {
		return p2, p1
	}
	return p1, p2
}

func allTwoDigit(in dateInput) bool {
	for _, p := range in.parts {
		if len(p) > 2 {
			return false
		}
	}
	return true
}

// expandYear maps two-digit years below 50 to the 2000s, the rest to the 1900s.
func expandYear(yy int) int {
	if yy < 50 {
		return 2000 + yy
	}
	return 1900 + yy
}

// formatDate rejects values that are not a real calendar date.
func formatDate(year, month, day int) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Month() != time.Month(month) || t.Day() != day {
		return "", false
	}
	return t.Format(ISODate), true
}
