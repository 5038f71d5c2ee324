package compress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lifeos/ctxpack/pkg/telemetry/tracing"
)

// StatusError reports a non-2xx collaborator response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("summarization returned status %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets callers match ErrSummarizeFailed.
func (e *StatusError) Unwrap() error { return ErrSummarizeFailed }

// HTTPSummarizer calls a summarization endpoint with a JSON POST.
type HTTPSummarizer struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSummarizer creates a summarizer for endpoint. A nil client uses a
// default one.
func NewHTTPSummarizer(endpoint string, client *http.Client) *HTTPSummarizer {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPSummarizer{endpoint: endpoint, client: client}
}

// Name implements Summarizer.
func (s *HTTPSummarizer) Name() string { return "http" }

// Summarize implements Summarizer.
func (s *HTTPSummarizer) Summarize(ctx context.Context, items []Item, maxTokensPerItem int) ([]Output, error) {
	body, err := json.Marshal(Request{Items: items, MaxTokensPerItem: maxTokensPerItem})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrSummarizeFailed, err)
	}

	req, err := tracing.NewRequest(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrSummarizeFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSummarizeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSummarizeFailed, err)
	}
	return out.Results, nil
}
