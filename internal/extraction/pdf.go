package extraction

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	maxTextBytes     = 100 * 1024 // 100KB cap for extracted text
	scannedThreshold = 50         // chars per page below which PDF is considered scanned
	methodPDFText    = "pdf-text"
)

// PDFAnalysis contains the results of reading a PDF's text layer.
type PDFAnalysis struct {
	PageCount     int
	ExtractedText string
	TextLines     []string
	IsScanned     bool
	Error         error
}

// AnalyzePDF extracts the text layer of a PDF. It never panics; on any
// error the document is reported as scanned.
func AnalyzePDF(data []byte) (result *PDFAnalysis) {
	result = &PDFAnalysis{
		PageCount: 1,
		IsScanned: true,
	}

	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("recovered from panic in pdf analysis", zap.Any("panic", r))
			result.Error = fmt.Errorf("panic during PDF analysis: %v", r)
			result.IsScanned = true
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		result.Error = eris.Wrap(err, "open PDF reader")
		return result
	}

	result.PageCount = reader.NumPage()
	if result.PageCount < 1 {
		result.PageCount = 1
	}

	plainText, err := reader.GetPlainText()
	if err != nil {
		result.Error = eris.Wrap(err, "extract plain text")
		return result
	}

	textBytes, err := io.ReadAll(io.LimitReader(plainText, int64(maxTextBytes)))
	if err != nil {
		result.Error = eris.Wrap(err, "read plain text")
		return result
	}

	result.ExtractedText = string(textBytes)
	result.IsScanned = isLikelyScanned(result.ExtractedText, result.PageCount)

	for _, line := range strings.Split(result.ExtractedText, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			result.TextLines = append(result.TextLines, trimmed)
		}
	}
	return result
}

func isLikelyScanned(text string, pages int) bool {
	if pages <= 0 {
		pages = 1
	}
	return len(strings.TrimSpace(text))/pages < scannedThreshold
}

var (
	// NAME [CODE] PRICE [TAX FLAG], e.g. "BANANAS 4011 1.29 MRJ" or "ARCP SAVE -2.50".
	itemLineRe = regexp.MustCompile(
		`^(.+?)\s+(?:(\d{4,14})\s+)?(-?\$?\d{1,4}(?:,\d{3})*\.\d{2})(-)?(?:\s+([A-Z]{1,3}))?$`,
	)
	quantityLineRe = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(?:@|x|kg\s*@)\s*\$?(\d+\.\d{2})`)
	receiptDateRe  = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})\b`)
	totalsLineRe   = regexp.MustCompile(`(?i)^(sub\s*-?total|total|hst|gst|pst|tax)\b.*?(-?\$?\d{1,4}(?:,\d{3})*\.\d{2})\s*$`)
	skipLineRe     = regexp.MustCompile(`(?i)(change|cash|visa|mastercard|debit|approved|balance|points|thank you)`)
)

// PDFTextRecognizer parses e-receipts from the PDF text layer without
// calling any model. Scanned PDFs are rejected so the next recognizer runs.
type PDFTextRecognizer struct{}

func (PDFTextRecognizer) Name() string { return methodPDFText }

// Recognize reads the text layer and parses header, items and totals.
func (PDFTextRecognizer) Recognize(_ context.Context, doc Document) (*receipt.OCRResult, error) {
	if !doc.isPDF() {
		return nil, &ExtractionError{Code: ErrInvalidImage, Message: "not a PDF document", Method: methodPDFText}
	}
	analysis := AnalyzePDF(doc.Data)
	if analysis.Error != nil || analysis.IsScanned {
		return nil, &ExtractionError{
			Code:              ErrInvalidImage,
			Message:           "PDF has no usable text layer",
			Method:            methodPDFText,
			SuggestedFallback: "vision",
			Cause:             analysis.Error,
		}
	}

	parsed := ParseReceiptText(analysis.TextLines)
	result := &receipt.OCRResult{
		Success: true,
		Parsed:  parsed,
		OCRText: analysis.ExtractedText,
		Method:  methodPDFText,
	}
	if err := checkResult(methodPDFText, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ParseReceiptText parses receipt lines. The first line without a price is
// taken as the store name; the first date-like token as the receipt date.
func ParseReceiptText(lines []string) *receipt.ParsedReceipt {
	parsed := &receipt.ParsedReceipt{}
	var pendingQty, pendingUnit float64

	for _, line := range lines {
		if parsed.Date == "" {
			if m := receiptDateRe.FindString(line); m != "" {
				parsed.Date = m
			}
		}

		if m := totalsLineRe.FindStringSubmatch(line); m != nil {
			if strings.Contains(strings.ToLower(line), "saving") {
				continue
			}
			amount, ok := parsePrice(m[2])
			if !ok {
				continue
			}
			switch label := strings.ToLower(strings.Join(strings.Fields(m[1]), "")); label {
			case "subtotal", "sub-total":
				parsed.Subtotal = amount
			case "total":
				parsed.Total = amount
			default:
				parsed.Tax += amount
			}
			continue
		}

		if m := quantityLineRe.FindStringSubmatch(line); m != nil {
			pendingQty, _ = strconv.ParseFloat(m[1], 64)
			pendingUnit, _ = parsePrice(m[2])
			// "2 @ 1.99 3.98" lines carry no name; the next item line does.
			continue
		}

		m := itemLineRe.FindStringSubmatch(line)
		if m == nil {
			if parsed.StoreName == "" && len(parsed.Items) == 0 && !receiptDateRe.MatchString(line) {
				parsed.StoreName = line
			}
			continue
		}
		if skipLineRe.MatchString(m[1]) {
			continue
		}

		total, ok := parsePrice(m[3])
		if !ok {
			continue
		}
		if m[4] == "-" {
			total = -total
		}
		item := receipt.RawItem{
			Name:       strings.TrimSpace(m[1]),
			Code:       m[2],
			Quantity:   1,
			UnitPrice:  total,
			TotalPrice: total,
			LineNumber: len(parsed.Items) + 1,
		}
		if pendingQty > 0 {
			item.Quantity = pendingQty
			item.UnitPrice = pendingUnit
			pendingQty, pendingUnit = 0, 0
		}
		parsed.Items = append(parsed.Items, item)
	}

	if parsed.Total == 0 && parsed.Subtotal != 0 {
		parsed.Total = parsed.Subtotal + parsed.Tax
	}
	return parsed
}

// parsePrice converts "$1,234.56" or "-2.50" to a float.
func parsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}
