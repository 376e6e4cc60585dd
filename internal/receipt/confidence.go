package receipt

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Confidence records where an item's current field values came from.
// Values are ordered by trust, so comparisons are plain integer comparisons.
type Confidence int

const (
	ConfidenceUnspecified Confidence = iota
	ConfidenceFallback
	ConfidenceOCR
	ConfidenceAISuggested
	ConfidenceVerified
)

var confidenceNames = map[Confidence]string{
	ConfidenceUnspecified: "unspecified",
	ConfidenceFallback:    "fallback",
	ConfidenceOCR:         "ocr",
	ConfidenceAISuggested: "ai_suggested",
	ConfidenceVerified:    "verified",
}

func (c Confidence) String() string {
	if name, ok := confidenceNames[c]; ok {
		return name
	}
	return "unspecified"
}

// Outranks reports whether c is strictly more trusted than other.
func (c Confidence) Outranks(other Confidence) bool {
	return c > other
}

// ParseConfidence maps a tag such as "ai_suggested" to a Confidence.
func ParseConfidence(s string) (Confidence, bool) {
	tag := strings.ToLower(strings.TrimSpace(s))
	tag = strings.ReplaceAll(tag, "-", "_")
	for c, name := range confidenceNames {
		if c != ConfidenceUnspecified && name == tag {
			return c, true
		}
	}
	return ConfidenceUnspecified, false
}

func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Confidence) UnmarshalText(text []byte) error {
	if len(text) == 0 || string(text) == confidenceNames[ConfidenceUnspecified] {
		*c = ConfidenceUnspecified
		return nil
	}
	parsed, ok := ParseConfidence(string(text))
	if !ok {
		return eris.Errorf("receipt: unknown confidence %q", string(text))
	}
	*c = parsed
	return nil
}
