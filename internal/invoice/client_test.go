package invoice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestHTTPExtractor_Extract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Filename != "invoice.pdf" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var buf bytes.Buffer
		buf.ReadFrom(file)
		if buf.String() != "fake pdf content" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		json.NewEncoder(w).Encode(Draft{
			Description: strPtr("Office supplies"),
			Amount:      strPtr("42.50"),
			Date:        strPtr("2025-06-10"),
		})
	}))
	defer server.Close()

	extractor := NewHTTPExtractor(server.URL, 5*time.Second)

	draft, err := extractor.Extract(context.Background(), "invoice.pdf", []byte("fake pdf content"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if draft.Description == nil || *draft.Description != "Office supplies" {
		t.Errorf("Extract() Description = %v, want Office supplies", draft.Description)
	}
	if draft.Amount == nil || *draft.Amount != "42.50" {
		t.Errorf("Extract() Amount = %v, want 42.50", draft.Amount)
	}
	if draft.Category != nil {
		t.Errorf("Extract() Category = %v, want nil", *draft.Category)
	}
}

func TestHTTPExtractor_ExtractRejectsOversizedFile(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	extractor := NewHTTPExtractor(server.URL, 5*time.Second)

	content := bytes.Repeat([]byte("a"), MaxFileSize+1)
	_, err := extractor.Extract(context.Background(), "big.pdf", content)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("Extract() error = %v, want ErrFileTooLarge", err)
	}
	if called {
		t.Error("Extract() contacted the service for an oversized file")
	}
}

func TestHTTPExtractor_ExtractRejectsEmptyFile(t *testing.T) {
	extractor := NewHTTPExtractor("http://localhost:1", 5*time.Second)

	_, err := extractor.Extract(context.Background(), "empty.pdf", nil)
	if !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("Extract() error = %v, want ErrEmptyFile", err)
	}
}

func TestHTTPExtractor_ExtractServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	extractor := NewHTTPExtractor(server.URL, 5*time.Second)

	_, err := extractor.Extract(context.Background(), "invoice.pdf", []byte("content"))
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("Extract() error = %v, want ErrExtractionFailed", err)
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("Extract() error = %v, want status code in message", err)
	}
}

func TestHTTPExtractor_ExtractMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	extractor := NewHTTPExtractor(server.URL, 5*time.Second)

	_, err := extractor.Extract(context.Background(), "invoice.pdf", []byte("content"))
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("Extract() error = %v, want ErrExtractionFailed", err)
	}
}

func TestDraft_ToRawRecord(t *testing.T) {
	tests := []struct {
		name  string
		draft Draft
		want  string // expected amount in the raw record
	}{
		{
			name: "full draft",
			draft: Draft{
				Description: strPtr("Lunch"),
				Amount:      strPtr("12.30"),
				Date:        strPtr("2025-06-10"),
				Category:    strPtr("Food"),
			},
			want: "12.3",
		},
		{
			name: "unparseable amount left blank",
			draft: Draft{
				Amount: strPtr("not-a-number"),
			},
			want: "",
		},
		{
			name:  "empty draft",
			draft: Draft{},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.draft.ToRawRecord()
			if raw.Kind != "expense" {
				t.Errorf("ToRawRecord() Kind = %v, want expense", raw.Kind)
			}
			if raw.Amount != tt.want {
				t.Errorf("ToRawRecord() Amount = %v, want %v", raw.Amount, tt.want)
			}
		})
	}
}

func TestDraft_Empty(t *testing.T) {
	if !(Draft{}).Empty() {
		t.Error("Empty() = false for zero draft, want true")
	}
	if (Draft{Amount: strPtr("1")}).Empty() {
		t.Error("Empty() = true for draft with amount, want false")
	}
}
