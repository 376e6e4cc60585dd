package receipt

import (
	"strings"
)

// StoreChain is a canonical retailer identity.
type StoreChain string

const (
	ChainUnknown     StoreChain = "unknown"
	ChainSuperstore  StoreChain = "real_canadian_superstore"
	ChainLoblaws     StoreChain = "loblaws"
	ChainNoFrills    StoreChain = "no_frills"
	ChainZehrs       StoreChain = "zehrs"
	ChainFortinos    StoreChain = "fortinos"
	ChainWalmart     StoreChain = "walmart"
	ChainCostco      StoreChain = "costco"
	ChainSaveOnFoods StoreChain = "save_on_foods"
	ChainSafeway     StoreChain = "safeway"
	ChainSobeys      StoreChain = "sobeys"
	ChainMetro       StoreChain = "metro"
	ChainFreshCo     StoreChain = "freshco"
	ChainFoodBasics  StoreChain = "food_basics"
	ChainTAndT       StoreChain = "t_and_t"
)

// DateOrder is the field order a chain prints two-digit dates in.
type DateOrder int

const (
	DateOrderNone DateOrder = iota
	DateOrderYMD
	DateOrderMDY
)

type chainFamily int

const (
	familyNone chainFamily = iota
	familyLoblaw
	familyWalmart
)

// chainEntry is one row of the store table. Matching is by case-insensitive
// substring of the printed store name, first row wins.
type chainEntry struct {
	chain    StoreChain
	patterns []string
	family   chainFamily
	banners  []string
}

// The "food basics" row sits before "metro" since Food Basics receipts
// often print "Metro Ontario" in the header.
var chainTable = []chainEntry{
	{ChainSuperstore, []string{"superstore", "rcss"}, familyLoblaw, []string{"superstore", "real canadian", "president's choice", "presidents choice", "no name"}},
	{ChainNoFrills, []string{"no frills", "nofrills"}, familyLoblaw, []string{"no frills", "nofrills"}},
	{ChainZehrs, []string{"zehrs"}, familyLoblaw, []string{"zehrs"}},
	{ChainFortinos, []string{"fortinos"}, familyLoblaw, []string{"fortinos"}},
	{ChainLoblaws, []string{"loblaw"}, familyLoblaw, []string{"loblaw"}},
	{ChainWalmart, []string{"walmart", "wal-mart", "wal mart"}, familyWalmart, []string{"walmart", "wal-mart", "great value", "equate", "mainstays"}},
	{ChainCostco, []string{"costco"}, familyNone, []string{"costco", "kirkland"}},
	{ChainSaveOnFoods, []string{"save-on", "save on foods", "saveonfoods"}, familyNone, []string{"save-on", "western family"}},
	{ChainSafeway, []string{"safeway"}, familyNone, []string{"safeway"}},
	{ChainSobeys, []string{"sobeys"}, familyNone, []string{"sobeys", "compliments"}},
	{ChainFoodBasics, []string{"food basics"}, familyNone, []string{"food basics"}},
	{ChainMetro, []string{"metro"}, familyNone, []string{"metro", "irresistibles"}},
	{ChainFreshCo, []string{"freshco"}, familyNone, []string{"freshco"}},
	{ChainTAndT, []string{"t&t", "t & t", "t and t"}, familyNone, []string{"t&t"}},
}

// ClassifyStore maps a free-text store name to its chain.
func ClassifyStore(storeName string) StoreChain {
	entry := lookupChain(storeName)
	if entry == nil {
		return ChainUnknown
	}
	return entry.chain
}

func lookupChain(storeName string) *chainEntry {
	name := strings.ToLower(storeName)
	if strings.TrimSpace(name) == "" {
		return nil
	}
	for i := range chainTable {
		for _, p := range chainTable[i].patterns {
			if strings.Contains(name, p) {
				return &chainTable[i]
			}
		}
	}
	return nil
}

// DatePrior returns the two-digit date order the chain is known to print.
func (c StoreChain) DatePrior() DateOrder {
	for _, e := range chainTable {
		if e.chain != c {
			continue
		}
		switch e.family {
		case familyLoblaw:
			return DateOrderYMD
		case familyWalmart:
			return DateOrderMDY
		}
	}
	return DateOrderNone
}

// IsWalmart reports whether the chain belongs to the Walmart family.
func (c StoreChain) IsWalmart() bool {
	return c.DatePrior() == DateOrderMDY
}

// LookupKey returns the chain component of the verified product key. Known
// chains use their canonical id; unknown stores fall back to the collapsed,
// lower-cased store name so they are tracked on their own.
func LookupKey(storeName string) string {
	chain := ClassifyStore(storeName)
	if chain != ChainUnknown {
		return string(chain)
	}
	name := strings.Join(strings.Fields(strings.ToLower(storeName)), " ")
	if name == "" {
		return string(ChainUnknown)
	}
	return name
}

// BannerDenyList returns every retailer banner and house-brand substring.
// An enrichment suggestion containing any of them is too generic to keep.
func BannerDenyList() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range chainTable {
		for _, b := range e.banners {
			if !seen[b] {
				seen[b] = true
				out = append(out, b)
			}
		}
	}
	return out
}
