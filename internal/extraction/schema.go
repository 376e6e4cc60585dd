package extraction

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// receiptSchema describes the JSON the vision models are asked to return.
// Any field may be null when it is not printed; only the items array is
// required. Line quality is judged later, not here.
const receiptSchema = `{
  "type": "object",
  "required": ["items"],
  "properties": {
    "store_name": {"type": ["string", "null"]},
    "date": {"type": ["string", "null"]},
    "subtotal": {"type": ["number", "null"]},
    "tax": {"type": ["number", "null"]},
    "total": {"type": ["number", "null"]},
    "payment": {
      "type": ["object", "null"],
      "properties": {
        "method": {"type": ["string", "null"]},
        "card_last4": {"type": ["string", "null"]}
      }
    },
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "item_name": {"type": ["string", "null"]},
          "quantity": {"type": ["number", "null"]},
          "unit_price": {"type": ["number", "null"]},
          "total_price": {"type": ["number", "null"]},
          "product_code": {"type": ["string", "null"]},
          "brand": {"type": ["string", "null"]},
          "size": {"type": ["string", "null"]},
          "category": {"type": ["string", "null"]},
          "line_number": {"type": ["integer", "null"]}
        }
      }
    }
  }
}`

// suggestionSchema describes the enrichment model's answer.
const suggestionSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["code", "fullName"],
    "properties": {
      "code": {"type": "string"},
      "fullName": {"type": "string"},
      "brand": {"type": ["string", "null"]},
      "size": {"type": ["string", "null"]},
      "category": {"type": ["string", "null"]},
      "confidence": {"type": ["string", "null"]}
    }
  }
}`

var (
	schemaOnce     sync.Once
	schemaErr      error
	receiptSchemaC *jsonschema.Schema
	suggestSchemaC *jsonschema.Schema
)

func compileSchemas() error {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("receipt.json", strings.NewReader(receiptSchema)); err != nil {
			schemaErr = eris.Wrap(err, "extraction: add receipt schema")
			return
		}
		if err := compiler.AddResource("suggestions.json", strings.NewReader(suggestionSchema)); err != nil {
			schemaErr = eris.Wrap(err, "extraction: add suggestion schema")
			return
		}
		if receiptSchemaC, schemaErr = compiler.Compile("receipt.json"); schemaErr != nil {
			schemaErr = eris.Wrap(schemaErr, "extraction: compile receipt schema")
			return
		}
		if suggestSchemaC, schemaErr = compiler.Compile("suggestions.json"); schemaErr != nil {
			schemaErr = eris.Wrap(schemaErr, "extraction: compile suggestion schema")
		}
	})
	return schemaErr
}

func validateAgainst(schema func() *jsonschema.Schema, data []byte) error {
	if err := compileSchemas(); err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return eris.Wrap(err, "extraction: unmarshal model output")
	}
	if err := schema().Validate(v); err != nil {
		return eris.Wrap(err, "extraction: model output does not match schema")
	}
	return nil
}

// ParseReceiptJSON validates model output against the receipt schema and
// decodes it.
func ParseReceiptJSON(data []byte) (*receipt.ParsedReceipt, error) {
	if err := validateAgainst(func() *jsonschema.Schema { return receiptSchemaC }, data); err != nil {
		return nil, err
	}
	var parsed receipt.ParsedReceipt
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, eris.Wrap(err, "extraction: decode receipt")
	}
	return &parsed, nil
}

// suggestionEntry is one element of the enrichment model's answer.
type suggestionEntry struct {
	Code       string `json:"code"`
	FullName   string `json:"fullName"`
	Brand      string `json:"brand"`
	Size       string `json:"size"`
	Category   string `json:"category"`
	Confidence string `json:"confidence"`
}

func parseSuggestionsJSON(data []byte) ([]suggestionEntry, error) {
	if err := validateAgainst(func() *jsonschema.Schema { return suggestSchemaC }, data); err != nil {
		return nil, err
	}
	var entries []suggestionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrap(err, "extraction: decode suggestions")
	}
	return entries, nil
}
