package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lifeos/ctxpack/pkg/telemetry/tracing"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 512

// StatusError reports a non-2xx collaborator response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("semantic search returned status %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets callers match ErrSearchFailed.
func (e *StatusError) Unwrap() error { return ErrSearchFailed }

// HTTPSearcher calls a semantic search endpoint with a JSON POST.
type HTTPSearcher struct {
	endpoint string
	client   *http.Client
	headers  map[string]string
}

// HTTPOption configures an HTTPSearcher.
type HTTPOption func(*HTTPSearcher)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSearcher) {
		if c != nil {
			s.client = c
		}
	}
}

// WithHeaders adds static headers to every call.
func WithHeaders(h map[string]string) HTTPOption {
	return func(s *HTTPSearcher) {
		s.headers = h
	}
}

// NewHTTPSearcher creates a searcher for endpoint.
func NewHTTPSearcher(endpoint string, opts ...HTTPOption) *HTTPSearcher {
	s := &HTTPSearcher{
		endpoint: endpoint,
		client:   &http.Client{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Searcher.
func (s *HTTPSearcher) Name() string { return "http" }

// Search implements Searcher.
func (s *HTTPSearcher) Search(ctx context.Context, req Request) ([]Snippet, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrSearchFailed, err)
	}

	httpReq, err := tracing.NewRequest(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrSearchFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range s.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchFailed, err)
	}
	return out.Results, nil
}
