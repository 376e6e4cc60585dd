package receipt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStore(t *testing.T) {
	tests := []struct {
		storeName string
		want      StoreChain
	}{
		{"Real Canadian Superstore #1517", ChainSuperstore},
		{"REAL CANADIAN SUPERSTORE", ChainSuperstore},
		{"Loblaws Queens Quay", ChainLoblaws},
		{"NO FRILLS", ChainNoFrills},
		{"Walmart Supercentre", ChainWalmart},
		{"WAL-MART CANADA", ChainWalmart},
		{"Costco Wholesale", ChainCostco},
		{"Save-On-Foods", ChainSaveOnFoods},
		{"Food Basics / Metro Ontario", ChainFoodBasics},
		{"METRO", ChainMetro},
		{"T&T Supermarket", ChainTAndT},
		{"Corner Market", ChainUnknown},
		{"", ChainUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.storeName, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStore(tt.storeName))
		})
	}
}

func TestStoreChain_DatePrior(t *testing.T) {
	assert.Equal(t, DateOrderYMD, ChainSuperstore.DatePrior())
	assert.Equal(t, DateOrderYMD, ChainLoblaws.DatePrior())
	assert.Equal(t, DateOrderYMD, ChainNoFrills.DatePrior())
	assert.Equal(t, DateOrderMDY, ChainWalmart.DatePrior())
	assert.Equal(t, DateOrderNone, ChainCostco.DatePrior())
	assert.Equal(t, DateOrderNone, ChainUnknown.DatePrior())
	assert.True(t, ChainWalmart.IsWalmart())
	assert.False(t, ChainSuperstore.IsWalmart())
}

func TestLookupKey(t *testing.T) {
	assert.Equal(t, "real_canadian_superstore", LookupKey("Real Canadian SUPERSTORE"))
	assert.Equal(t, "corner market", LookupKey("  Corner   MARKET "))
	assert.Equal(t, "unknown", LookupKey(""))
}

func TestBannerDenyList(t *testing.T) {
	deny := BannerDenyList()
	assert.Contains(t, deny, "superstore")
	assert.Contains(t, deny, "walmart")
	assert.Contains(t, deny, "great value")
	assert.Contains(t, deny, "kirkland")

	seen := map[string]bool{}
	for _, d := range deny {
		assert.False(t, seen[d], "duplicate deny entry %q", d)
		seen[d] = true
	}
}

func TestConfidence_Ordering(t *testing.T) {
	assert.True(t, ConfidenceVerified.Outranks(ConfidenceAISuggested))
	assert.True(t, ConfidenceAISuggested.Outranks(ConfidenceOCR))
	assert.True(t, ConfidenceOCR.Outranks(ConfidenceFallback))
	assert.False(t, ConfidenceOCR.Outranks(ConfidenceOCR))
	assert.False(t, ConfidenceFallback.Outranks(ConfidenceVerified))
}

func TestConfidence_JSON(t *testing.T) {
	item := Item{
		RawItem:    RawItem{Name: "Milk 2% 2L", Code: "012345", TotalPrice: 4.99},
		ID:         "item-1",
		Confidence: ConfidenceVerified,
	}
	b, err := json.Marshal(item)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"confidence":"verified"`)
	assert.Contains(t, string(b), `"item_name":"Milk 2% 2L"`)

	var back Item
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, ConfidenceVerified, back.Confidence)

	err = json.Unmarshal([]byte(`{"confidence":"certain"}`), &back)
	assert.Error(t, err)

	var unset Item
	b, err = json.Marshal(unset)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &back), "zero confidence survives a round trip")
	assert.Equal(t, ConfidenceUnspecified, back.Confidence)
}

func TestParseConfidence(t *testing.T) {
	c, ok := ParseConfidence("AI-Suggested")
	assert.True(t, ok)
	assert.Equal(t, ConfidenceAISuggested, c)

	_, ok = ParseConfidence("unspecified")
	assert.False(t, ok)
	_, ok = ParseConfidence("")
	assert.False(t, ok)
}
