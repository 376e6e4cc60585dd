package extraction

import (
	"errors"
	"fmt"
)

// ExtractionErrorCode represents specific extraction error types.
type ExtractionErrorCode string

const (
	ErrOCRUnavailable   ExtractionErrorCode = "OCR_UNAVAILABLE"
	ErrOCRRateLimited   ExtractionErrorCode = "OCR_RATE_LIMITED"
	ErrInvalidImage     ExtractionErrorCode = "INVALID_IMAGE"
	ErrNoItemsFound     ExtractionErrorCode = "NO_ITEMS_FOUND"
	ErrImageFetchFailed ExtractionErrorCode = "IMAGE_FETCH_FAILED"
	ErrAllMethodsFailed ExtractionErrorCode = "ALL_METHODS_FAILED"
)

// ExtractionError is a structured error for extraction failures.
type ExtractionError struct {
	Code              ExtractionErrorCode
	Message           string
	Method            string // e.g. "remote", "gemini", "claude", "pdf-text"
	SuggestedFallback string // set when another recognizer is likely to succeed
	Cause             error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// AsExtractionError unwraps err to an *ExtractionError when it carries one.
func AsExtractionError(err error) (*ExtractionError, bool) {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// CodeOf returns the extraction code of err, or ErrAllMethodsFailed for
// errors that carry none.
func CodeOf(err error) ExtractionErrorCode {
	if ee, ok := AsExtractionError(err); ok {
		return ee.Code
	}
	return ErrAllMethodsFailed
}

// unavailable wraps a transport failure of the named method.
func unavailable(method string, cause error) *ExtractionError {
	return &ExtractionError{
		Code:    ErrOCRUnavailable,
		Message: method + " request failed",
		Method:  method,
		Cause:   cause,
	}
}

// classifyHTTPStatus converts a non-200 response of the named method.
func classifyHTTPStatus(method string, statusCode int, body string) *ExtractionError {
	switch {
	case statusCode == 429:
		return &ExtractionError{
			Code:    ErrOCRRateLimited,
			Message: method + " rate limited",
			Method:  method,
		}
	case statusCode == 400 || statusCode == 415 || statusCode == 413:
		return &ExtractionError{
			Code:    ErrInvalidImage,
			Message: fmt.Sprintf("%s rejected the image (HTTP %d): %s", method, statusCode, truncate(body, 200)),
			Method:  method,
		}
	default:
		return &ExtractionError{
			Code:    ErrOCRUnavailable,
			Message: fmt.Sprintf("%s error (HTTP %d): %s", method, statusCode, truncate(body, 200)),
			Method:  method,
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
