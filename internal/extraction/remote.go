package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"github.com/rotisserie/eris"
)

const methodRemote = "remote"

// RemoteRecognizer is an HTTP client for the hosted OCR function. The
// function accepts a multipart image upload and answers with the
// {success, parsedData, ocrText, error} envelope.
type RemoteRecognizer struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewRemoteRecognizer creates a client for the OCR function at url.
func NewRemoteRecognizer(url, apiKey string, timeout time.Duration) *RemoteRecognizer {
	if timeout <= 0 {
		timeout = 120 * time.Second // vision OCR on large photos is slow
	}
	return &RemoteRecognizer{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *RemoteRecognizer) Name() string { return methodRemote }

// Recognize uploads the document and decodes the envelope.
func (c *RemoteRecognizer) Recognize(ctx context.Context, doc Document) (*receipt.OCRResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	filename := doc.Filename
	if filename == "" {
		filename = "receipt"
	}
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, eris.Wrap(err, "extraction: create form file")
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, eris.Wrap(err, "extraction: write image data")
	}
	if err := writer.WriteField("mime_type", doc.mimeType()); err != nil {
		return nil, eris.Wrap(err, "extraction: write mime_type")
	}
	if err := writer.Close(); err != nil {
		return nil, eris.Wrap(err, "extraction: close writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return nil, eris.Wrap(err, "extraction: create request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, unavailable(methodRemote, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(methodRemote, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(methodRemote, resp.StatusCode, string(body))
	}

	var result receipt.OCRResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &ExtractionError{
			Code:    ErrOCRUnavailable,
			Message: "malformed OCR response",
			Method:  methodRemote,
			Cause:   err,
		}
	}
	result.Method = methodRemote

	if err := checkResult(methodRemote, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
