// algolia-setup configures the Algolia product catalogue index.
// This is the IaC definition for the search index.
//
// Usage:
//
//	ALGOLIA_APP_ID=... ALGOLIA_ADMIN_KEY=... go run ./scripts/algolia-setup
//	ALGOLIA_APP_ID=... ALGOLIA_ADMIN_KEY=... ALGOLIA_INDEX_NAME=grocerylens_products go run ./scripts/algolia-setup
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/algolia/algoliasearch-client-go/v4/algolia/search"
	grocerysearch "github.com/castlemilk/grocerylens/backend/internal/search"
)

func int32Ptr(v int32) *int32 { return &v }

func main() {
	appID := os.Getenv("ALGOLIA_APP_ID")
	adminKey := os.Getenv("ALGOLIA_ADMIN_KEY")
	indexName := os.Getenv("ALGOLIA_INDEX_NAME")

	if appID == "" || adminKey == "" {
		log.Fatal("ALGOLIA_APP_ID and ALGOLIA_ADMIN_KEY are required")
	}
	if indexName == "" {
		indexName = grocerysearch.DefaultIndexName
	}

	client, err := search.NewClient(appID, adminKey)
	if err != nil {
		log.Fatalf("Failed to create Algolia client: %v", err)
	}

	log.Printf("Configuring Algolia index %q (app: %s)...", indexName, appID)

	settings := &search.IndexSettings{
		// Searchable attributes in priority order. Code is matched exactly
		// so a scanned UPC finds its product.
		SearchableAttributes: []string{
			"Name",
			"Brand",
			"unordered(Code)",
			"Category",
		},

		AttributesForFaceting: []string{
			"filterOnly(StoreChain)",
			"searchable(Category)",
			"searchable(Brand)",
		},

		NumericAttributesForFiltering: []string{
			"VerificationCount",
			"LastVerifiedUnix",
		},

		// Products confirmed most often rank first.
		CustomRanking: []string{
			"desc(VerificationCount)",
			"desc(LastVerifiedUnix)",
		},

		AttributesToRetrieve: []string{
			"objectID",
			"Code",
			"StoreChain",
			"Name",
			"Brand",
			"Size",
			"Category",
			"VerificationCount",
			"LastVerifiedUnix",
		},

		AttributesToHighlight: []string{
			"Name",
			"Brand",
		},

		DisableTypoToleranceOnAttributes: []string{"Code"},

		HitsPerPage:       int32Ptr(20),
		MaxValuesPerFacet: int32Ptr(100),

		MinWordSizefor1Typo:  int32Ptr(4),
		MinWordSizefor2Typos: int32Ptr(8),
	}

	req := client.NewApiSetSettingsRequest(indexName, settings)
	resp, err := client.SetSettings(req)
	if err != nil {
		log.Fatalf("Failed to set index settings: %v", err)
	}

	log.Printf("Index settings applied (taskID: %d, updatedAt: %s)", resp.TaskID, resp.UpdatedAt)

	fmt.Println()
	fmt.Println("=== Algolia Product Index Configuration ===")
	fmt.Printf("Index:              %s\n", indexName)
	fmt.Printf("App ID:             %s\n", appID)
	fmt.Println()
	fmt.Println("Searchable attrs:   Name, Brand, Code, Category")
	fmt.Println("Facet filters:      StoreChain, Category, Brand")
	fmt.Println("Numeric filters:    VerificationCount, LastVerifiedUnix")
	fmt.Println("Custom ranking:     desc(VerificationCount), desc(LastVerifiedUnix)")
	fmt.Println("Hits per page:      20")
	fmt.Println()
	fmt.Println("Done. Settings are applied asynchronously and will be active within seconds.")
}
