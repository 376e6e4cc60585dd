package extraction

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Grocery categories used across the catalogue and analytics.
const (
	CategoryProduce   = "Produce"
	CategoryDairy     = "Dairy & Eggs"
	CategoryMeat      = "Meat & Seafood"
	CategoryBakery    = "Bakery"
	CategoryPantry    = "Pantry"
	CategoryFrozen    = "Frozen"
	CategoryBeverages = "Beverages"
	CategorySnacks    = "Snacks"
	CategoryDeli      = "Deli"
	CategoryHousehold = "Household"
	CategoryPersonal  = "Personal Care"
	CategoryBaby      = "Baby"
	CategoryPet       = "Pet"
	CategoryOther     = "Other"
	CategoryDiscounts = "Discounts"
)

// categoryAliases maps lower-cased model and user spellings to a category.
var categoryAliases = map[string]string{
	"produce": CategoryProduce, "fruit": CategoryProduce, "fruits": CategoryProduce,
	"vegetables": CategoryProduce, "vegetable": CategoryProduce, "fresh produce": CategoryProduce,
	"dairy": CategoryDairy, "dairy & eggs": CategoryDairy, "dairy and eggs": CategoryDairy, "eggs": CategoryDairy, "cheese": CategoryDairy,
	"meat": CategoryMeat, "seafood": CategoryMeat, "meat & seafood": CategoryMeat, "meat and seafood": CategoryMeat, "poultry": CategoryMeat, "fish": CategoryMeat,
	"bakery": CategoryBakery, "bread": CategoryBakery,
	"pantry": CategoryPantry, "grocery": CategoryPantry, "dry goods": CategoryPantry, "canned goods": CategoryPantry, "condiments": CategoryPantry,
	"frozen": CategoryFrozen, "frozen foods": CategoryFrozen, "frozen food": CategoryFrozen,
	"beverages": CategoryBeverages, "beverage": CategoryBeverages, "drinks": CategoryBeverages,
	"snacks": CategorySnacks, "snack": CategorySnacks, "candy": CategorySnacks, "confectionery": CategorySnacks,
	"deli": CategoryDeli, "prepared foods": CategoryDeli,
	"household": CategoryHousehold, "cleaning": CategoryHousehold, "paper goods": CategoryHousehold,
	"personal care": CategoryPersonal, "health & beauty": CategoryPersonal, "health and beauty": CategoryPersonal, "pharmacy": CategoryPersonal,
	"baby": CategoryBaby, "pet": CategoryPet, "pet supplies": CategoryPet,
	"other": CategoryOther, "misc": CategoryOther, "general merchandise": CategoryOther,
	"discount": CategoryDiscounts, "discounts": CategoryDiscounts,
}

// CanonicalCategory maps free-text categories onto the fixed set. Empty
// input stays empty; anything unknown becomes Other.
func CanonicalCategory(raw string) string {
	key := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if key == "" {
		return ""
	}
	if c, ok := categoryAliases[key]; ok {
		return c
	}
	return CategoryOther
}

var (
	storeNumberPattern = regexp.MustCompile(`(?i)\s*(#\s*\d+|store\s+\d+|\(\d+\))\s*$`)
	specialChars       = regexp.MustCompile(`[*_]+`)
	keepUpper          = map[string]string{"t&t": "T&T", "pc": "PC"}
)

// NormalizeStoreName cleans an OCR'd store header for display: store
// numbers and decoration are dropped and words are title cased.
func NormalizeStoreName(raw string) string {
	cleaned := specialChars.ReplaceAllString(raw, " ")
	cleaned = storeNumberPattern.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return ""
	}

	caser := cases.Title(language.English)
	words := strings.Fields(cleaned)
	for i, word := range words {
		lower := strings.ToLower(word)
		if up, ok := keepUpper[lower]; ok {
			words[i] = up
			continue
		}
		words[i] = caser.String(lower)
	}

	result := strings.Join(words, " ")
	if len(result) > 60 {
		result = strings.TrimSpace(result[:60])
	}
	return result
}
