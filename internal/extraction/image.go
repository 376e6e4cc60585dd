package extraction

import (
	"context"
	"errors"
	"io"
	"strings"

	gcsstorage "cloud.google.com/go/storage"
	"github.com/rotisserie/eris"
)

// MaxImageBytes is the largest receipt image or PDF accepted.
const MaxImageBytes = 20 * 1024 * 1024

// ImageRef points at receipt bytes: either inline data or a storage URI.
// URI is "gs://bucket/object" or an object path in the default bucket.
type ImageRef struct {
	URI      string
	Data     []byte
	MimeType string
}

// ObjectSource opens stored objects for reading.
type ObjectSource interface {
	Open(ctx context.Context, bucket, object string) (io.ReadCloser, error)
}

// GCSObjects reads objects from Cloud Storage.
type GCSObjects struct {
	client *gcsstorage.Client
}

// NewGCSObjects wraps a storage client.
func NewGCSObjects(client *gcsstorage.Client) *GCSObjects {
	return &GCSObjects{client: client}
}

func (g *GCSObjects) Open(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	return g.client.Bucket(bucket).Object(object).NewReader(ctx)
}

// ImageLoader resolves an ImageRef to a Document.
type ImageLoader struct {
	objects       ObjectSource
	defaultBucket string
}

// NewImageLoader creates a loader. objects may be nil when only inline
// data is accepted.
func NewImageLoader(objects ObjectSource, defaultBucket string) *ImageLoader {
	return &ImageLoader{objects: objects, defaultBucket: defaultBucket}
}

// Load returns the referenced document. Empty or oversized input is
// INVALID_IMAGE; storage failures are IMAGE_FETCH_FAILED.
func (l *ImageLoader) Load(ctx context.Context, ref ImageRef) (Document, error) {
	if len(ref.Data) > 0 {
		return newDocument(ref.Data, ref.MimeType, "")
	}
	if strings.TrimSpace(ref.URI) == "" {
		return Document{}, &ExtractionError{Code: ErrInvalidImage, Message: "no image provided"}
	}

	bucket, object, err := l.parseURI(ref.URI)
	if err != nil {
		return Document{}, &ExtractionError{Code: ErrInvalidImage, Message: err.Error()}
	}
	if l.objects == nil {
		return Document{}, &ExtractionError{Code: ErrImageFetchFailed, Message: "storage is not configured"}
	}

	reader, err := l.objects.Open(ctx, bucket, object)
	if err != nil {
		if errors.Is(err, gcsstorage.ErrObjectNotExist) {
			return Document{}, &ExtractionError{Code: ErrImageFetchFailed, Message: "image not found: " + ref.URI, Cause: err}
		}
		return Document{}, &ExtractionError{Code: ErrImageFetchFailed, Message: "open image", Cause: err}
	}
	defer reader.Close()

	// One byte over the cap is enough to reject.
	data, err := io.ReadAll(io.LimitReader(reader, MaxImageBytes+1))
	if err != nil {
		return Document{}, &ExtractionError{Code: ErrImageFetchFailed, Message: "read image", Cause: err}
	}
	return newDocument(data, ref.MimeType, object)
}

func (l *ImageLoader) parseURI(uri string) (string, string, error) {
	if rest, ok := strings.CutPrefix(uri, "gs://"); ok {
		bucket, object, found := strings.Cut(rest, "/")
		if !found || bucket == "" || object == "" {
			return "", "", eris.Errorf("malformed storage URI %q", uri)
		}
		return bucket, object, nil
	}
	if strings.Contains(uri, "://") {
		return "", "", eris.Errorf("unsupported image URI %q", uri)
	}
	if l.defaultBucket == "" {
		return "", "", eris.New("no bucket configured for object path")
	}
	return l.defaultBucket, strings.TrimPrefix(uri, "/"), nil
}

func newDocument(data []byte, mimeType, filename string) (Document, error) {
	switch {
	case len(data) == 0:
		return Document{}, &ExtractionError{Code: ErrInvalidImage, Message: "image is empty"}
	case len(data) > MaxImageBytes:
		return Document{}, &ExtractionError{Code: ErrInvalidImage, Message: "image exceeds 20MB"}
	}
	if filename != "" {
		if i := strings.LastIndex(filename, "/"); i >= 0 {
			filename = filename[i+1:]
		}
	}
	return Document{Data: data, MimeType: mimeType, Filename: filename}, nil
}
