package extraction

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/castlemilk/grocerylens/backend/internal/receipt"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func TestRemoteRecognizer_Recognize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q, want Bearer secret", got)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if mt := r.FormValue("mime_type"); mt != "image/jpeg" {
			t.Errorf("mime_type = %q, want image/jpeg", mt)
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			t.Errorf("missing image part: %v", err)
			return
		}
		data, _ := io.ReadAll(file)
		if len(data) != len(jpegHeader) {
			t.Errorf("uploaded %d bytes, want %d", len(data), len(jpegHeader))
		}

		resp := receipt.OCRResult{
			Success: true,
			OCRText: "SUPERSTORE",
			Parsed: &receipt.ParsedReceipt{
				StoreName: "Real Canadian Superstore",
				Date:      "24/03/15",
				Total:     4.99,
				Items:     []receipt.RawItem{{Name: "MLK 2%", Code: "012345", TotalPrice: 4.99}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	rec := NewRemoteRecognizer(server.URL, "secret", 5*time.Second)
	res, err := rec.Recognize(context.Background(), Document{Data: jpegHeader})
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if res.Method != "remote" {
		t.Errorf("Method = %q, want remote", res.Method)
	}
	if len(res.Parsed.Items) != 1 || res.Parsed.Items[0].Code != "012345" {
		t.Errorf("unexpected items: %+v", res.Parsed.Items)
	}
}

func TestRemoteRecognizer_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode ExtractionErrorCode
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrOCRRateLimited},
		{"bad image", http.StatusBadRequest, `{"error":"cannot decode"}`, ErrInvalidImage},
		{"server error", http.StatusInternalServerError, `oops`, ErrOCRUnavailable},
		{"unsuccessful envelope", http.StatusOK, `{"success":false,"error":"vision quota"}`, ErrOCRUnavailable},
		{"no items", http.StatusOK, `{"success":true,"parsedData":{"store_name":"X","items":[]}}`, ErrNoItemsFound},
		{"malformed json", http.StatusOK, `{not json`, ErrOCRUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			rec := NewRemoteRecognizer(server.URL, "", time.Second)
			_, err := rec.Recognize(context.Background(), Document{Data: jpegHeader})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := CodeOf(err); got != tt.wantCode {
				t.Errorf("code = %s, want %s (%v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestRemoteRecognizer_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewRemoteRecognizer(url, "", time.Second).Recognize(context.Background(), Document{Data: jpegHeader})
	if got := CodeOf(err); got != ErrOCRUnavailable {
		t.Errorf("code = %s, want %s", got, ErrOCRUnavailable)
	}
}

func TestDetectMimeType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"pdf", []byte("%PDF-1.7\n..."), "application/pdf"},
		{"jpeg", jpegHeader, "image/jpeg"},
		{"png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), "image/png"},
		{"unknown", []byte("hello"), "image/jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMimeType(tt.data); got != tt.want {
				t.Errorf("detectMimeType = %q, want %q", got, tt.want)
			}
		})
	}
}
