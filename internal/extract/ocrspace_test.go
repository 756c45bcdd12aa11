package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOCRExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("parsing multipart form: %v", err)
		}
		if got := r.FormValue("apikey"); got != "test-key" {
			t.Errorf("unexpected api key %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("reading uploaded file: %v", err)
		}
		file.Close()
		if header.Filename != "scan.png" {
			t.Errorf("unexpected filename %q", header.Filename)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"IsErroredOnProcessing": false,
			"ParsedResults": []map[string]any{
				{"ParsedText": "recognized text"},
			},
		})
	}))
	defer srv.Close()

	client := NewOCRClient(srv.URL, "test-key")
	text, err := client.Extract(context.Background(), "scan.png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if text != "recognized text" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestOCRExtractProcessingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"IsErroredOnProcessing": true,
			"ErrorMessage":          []string{"file too large"},
		})
	}))
	defer srv.Close()

	client := NewOCRClient(srv.URL, "key")
	if _, err := client.Extract(context.Background(), "scan.png", []byte("x")); err == nil {
		t.Fatal("expected error when processing fails")
	}
}

func TestOCRExtractNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"IsErroredOnProcessing": false})
	}))
	defer srv.Close()

	client := NewOCRClient(srv.URL, "key")
	text, err := client.Extract(context.Background(), "blank.png", []byte("x"))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}
}
