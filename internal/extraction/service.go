package extraction

import (
	"context"
	"time"

	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"go.uber.org/zap"
)

// Extraction is a recognized receipt with its header normalized.
type Extraction struct {
	Parsed    *receipt.ParsedReceipt
	OCRText   string
	Method    string
	StoreName string
	Chain     receipt.StoreChain
	Date      string
	DateRule  string
}

// Service loads receipt images and runs them through the recognizers.
type Service struct {
	loader     *ImageLoader
	recognizer Recognizer
	pdfText    Recognizer
	dates      *receipt.DateNormalizer
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock sets the clock used for undatable receipts.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.dates = receipt.NewDateNormalizer(now) }
}

// WithPDFText overrides the PDF text-layer recognizer.
func WithPDFText(r Recognizer) ServiceOption {
	return func(s *Service) { s.pdfText = r }
}

// NewService creates an extraction service. recognizer is usually a
// FallbackRecognizer chain.
func NewService(loader *ImageLoader, recognizer Recognizer, opts ...ServiceOption) *Service {
	s := &Service{
		loader:     loader,
		recognizer: recognizer,
		pdfText:    PDFTextRecognizer{},
		dates:      receipt.NewDateNormalizer(time.Now),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extract loads and recognizes a receipt. Any failure is returned as an
// *ExtractionError and nothing downstream should run.
func (s *Service) Extract(ctx context.Context, ref ImageRef) (*Extraction, error) {
	doc, err := s.loader.Load(ctx, ref)
	if err != nil {
		return nil, err
	}

	res, err := s.recognize(ctx, doc)
	if err != nil {
		zap.L().Warn("receipt extraction failed",
			zap.String("code", string(CodeOf(err))),
			zap.Error(err),
		)
		return nil, err
	}

	parsed := res.Parsed
	storeName := NormalizeStoreName(parsed.StoreName)
	date, rule := s.dates.Resolve(parsed.Date, storeName)

	zap.L().Info("receipt extracted",
		zap.String("method", res.Method),
		zap.String("store", storeName),
		zap.Int("items", len(parsed.Items)),
		zap.String("date_rule", rule),
	)

	return &Extraction{
		Parsed:    parsed,
		OCRText:   res.OCRText,
		Method:    res.Method,
		StoreName: storeName,
		Chain:     receipt.ClassifyStore(storeName),
		Date:      date,
		DateRule:  rule,
	}, nil
}

// recognize sends text-layer PDFs to the local parser first; scanned PDFs
// and images go to the configured recognizer.
func (s *Service) recognize(ctx context.Context, doc Document) (*receipt.OCRResult, error) {
	if doc.isPDF() && s.pdfText != nil {
		res, err := s.pdfText.Recognize(ctx, doc)
		if err == nil {
			return res, nil
		}
		zap.L().Debug("pdf text layer unusable, using recognizer", zap.Error(err))
	}
	if s.recognizer == nil {
		return nil, &ExtractionError{Code: ErrOCRUnavailable, Message: "no recognizer configured"}
	}
	return s.recognizer.Recognize(ctx, doc)
}
