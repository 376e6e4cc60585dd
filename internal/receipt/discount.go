package receipt

import (
	"regexp"
)

// discountPatterns catch store adjustment lines by name.
var discountPatterns = []*regexp.Regexp{
	// Loblaw-family discount lines are prefixed with ARCP
	regexp.MustCompile(`(?i)^\s*arcp`),
	regexp.MustCompile(`(?i)discount`),
	regexp.MustCompile(`(?i)savings`),
	regexp.MustCompile(`^\s*-`),
	regexp.MustCompile(`(?i)\(\s*\d+(?:\.\d+)?\s*%\s*off\s*\)`),
}

// IsDiscount reports whether a line item is a discount or adjustment rather
// than a purchased product. A negative total always counts, whatever the name.
func IsDiscount(name string, totalPrice float64) bool {
	if totalPrice < 0 {
		return true
	}
	for _, p := range discountPatterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}
