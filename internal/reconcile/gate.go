package reconcile

import (
	"strings"
	"unicode/utf8"

	"github.com/castlemilk/grocerylens/backend/internal/receipt"
)

// minSuggestionLength is the shortest suggested name that may replace an item name.
const minSuggestionLength = 4

// AcceptSuggestion reports whether an AI-suggested name may replace the
// current item name. The suggestion must be at least four characters, must
// differ from the current name ignoring case and must not contain a
// deny-list substring (case-insensitive).
func AcceptSuggestion(current, suggested string, denyList []string) bool {
	s := strings.TrimSpace(suggested)
	if utf8.RuneCountInString(s) < minSuggestionLength {
		return false
	}
	if strings.EqualFold(s, strings.TrimSpace(current)) {
		return false
	}
	lower := strings.ToLower(s)
	for _, d := range denyList {
		if d != "" && strings.Contains(lower, strings.ToLower(d)) {
			return false
		}
	}
	return true
}

// suggestionConfidence maps the enrichment-provided tag onto the closed
// confidence set. Unknown tags, and tags reserved for human-confirmed data,
// become ai_suggested.
func suggestionConfidence(tag string) receipt.Confidence {
	c, ok := receipt.ParseConfidence(tag)
	if !ok || c.Outranks(receipt.ConfidenceAISuggested) {
		return receipt.ConfidenceAISuggested
	}
	return c
}
