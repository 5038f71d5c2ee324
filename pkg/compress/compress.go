// Package compress shrinks memory snippets to a token target through a
// summarization collaborator. Every item always yields a result: failures fall
// back to a fixed-length cut of the raw content.
package compress

import (
	"context"
	"errors"
)

// DefaultFallbackChars is the raw-content cut used when summarization fails.
const DefaultFallbackChars = 600

// ErrSummarizeFailed marks collaborator failures.
var ErrSummarizeFailed = errors.New("compress: summarize failed")

// Item is one snippet to compress. ID is the snippet's ordinal position.
type Item struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
}

// Output is a collaborator result for one item. A non-empty Error is a
// degraded per-item payload.
type Output struct {
	ID    int    `json:"id"`
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Request is the summarization collaborator wire request.
type Request struct {
	Items            []Item `json:"items"`
	MaxTokensPerItem int    `json:"maxTokensPerItem"`
}

// Response is the summarization collaborator wire response.
type Response struct {
	Results []Output `json:"results"`
}

// Result is a compressed snippet. Fallback is set when Text is the raw cut.
type Result struct {
	ID       int    `json:"id"`
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
}

// Summarizer is a summarization collaborator.
type Summarizer interface {
	// Name identifies the backend in logs and status output.
	Name() string
	// Summarize returns one output per item in the same id space.
	Summarize(ctx context.Context, items []Item, maxTokensPerItem int) ([]Output, error)
}
