package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lifeos/ctxpack/pkg/telemetry/tracing"
)

// HTTPSink posts records to a telemetry store endpoint.
type HTTPSink struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSink creates an HTTPSink. A nil client uses http.DefaultClient.
func NewHTTPSink(endpoint string, client *http.Client) *HTTPSink {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSink{endpoint: endpoint, client: client}
}

func (s *HTTPSink) Name() string { return "http" }

type httpRecord struct {
	UserID            string  `json:"userId"`
	TotalTokens       int     `json:"totalTokens"`
	MemoryItemCount   int     `json:"memoryItemCount"`
	TopRelevanceScore float64 `json:"topRelevanceScore"`
	Intent            string  `json:"intent"`
}

func (s *HTTPSink) Write(ctx context.Context, rec Record) error {
	body, err := json.Marshal(httpRecord{
		UserID:            rec.UserID,
		TotalTokens:       rec.TotalTokens,
		MemoryItemCount:   rec.MemoryItemCount,
		TopRelevanceScore: rec.TopRelevanceScore,
		Intent:            rec.Intent,
	})
	if err != nil {
		return fmt.Errorf("marshal telemetry record: %w", err)
	}

	req, err := tracing.NewRequest(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build telemetry request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post telemetry: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("telemetry store returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *HTTPSink) Close() error { return nil }
