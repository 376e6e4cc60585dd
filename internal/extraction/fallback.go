package extraction

import (
	"context"

	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"go.uber.org/zap"
)

// FallbackRecognizer tries Primary, then Fallback once when the primary
// fails in a way another source may not. It never calls the same source
// twice.
type FallbackRecognizer struct {
	Primary  Recognizer
	Fallback Recognizer
}

func (f *FallbackRecognizer) Name() string {
	if f.Fallback == nil {
		return f.Primary.Name()
	}
	return f.Primary.Name() + "+" + f.Fallback.Name()
}

// Recognize runs the primary recognizer and, on a recoverable failure, the
// fallback. When both fail the result is ALL_METHODS_FAILED carrying the
// fallback's error.
func (f *FallbackRecognizer) Recognize(ctx context.Context, doc Document) (*receipt.OCRResult, error) {
	res, err := f.Primary.Recognize(ctx, doc)
	if err == nil || f.Fallback == nil || !shouldFallback(err) {
		return res, err
	}
	if ctx.Err() != nil {
		return nil, err
	}

	zap.L().Warn("primary recognizer failed, trying fallback",
		zap.String("primary", f.Primary.Name()),
		zap.String("fallback", f.Fallback.Name()),
		zap.Error(err),
	)

	res, fbErr := f.Fallback.Recognize(ctx, doc)
	if fbErr == nil {
		return res, nil
	}
	return nil, &ExtractionError{
		Code:    ErrAllMethodsFailed,
		Message: "all recognizers failed: " + err.Error(),
		Method:  f.Fallback.Name(),
		Cause:   fbErr,
	}
}

// shouldFallback reports whether another source could succeed where err
// was returned. A rejected image is rejected by every source unless the
// failing recognizer names an alternative.
func shouldFallback(err error) bool {
	ee, ok := AsExtractionError(err)
	if !ok {
		return true
	}
	if ee.SuggestedFallback != "" {
		return true
	}
	return ee.Code != ErrInvalidImage
}
