package invoice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Extractor analyzes an invoice document and proposes a record draft.
type Extractor interface {
	Extract(ctx context.Context, filename string, content []byte) (Draft, error)
}

// HTTPExtractor calls a remote extraction service over HTTP.
type HTTPExtractor struct {
	url    string
	client *http.Client
}

// NewHTTPExtractor creates an extractor pointed at the given endpoint.
func NewHTTPExtractor(url string, timeout time.Duration) *HTTPExtractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPExtractor{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Extract uploads the document as multipart form data and decodes the
// draft the service returns. Oversized and empty files are rejected
// before any network traffic happens.
func (e *HTTPExtractor) Extract(ctx context.Context, filename string, content []byte) (Draft, error) {
	if len(content) == 0 {
		return Draft{}, ErrEmptyFile
	}
	if len(content) > MaxFileSize {
		return Draft{}, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(content))
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if _, err := part.Write(content); err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if err := writer.Close(); err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, &body)
	if err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Draft{}, fmt.Errorf("%w: extractor returned status %d", ErrExtractionFailed, resp.StatusCode)
	}

	var draft Draft
	if err := json.NewDecoder(resp.Body).Decode(&draft); err != nil {
		return Draft{}, fmt.Errorf("%w: invalid response: %v", ErrExtractionFailed, err)
	}

	return draft, nil
}
