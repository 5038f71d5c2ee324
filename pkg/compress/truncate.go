package compress

import (
	"context"

	"github.com/lifeos/ctxpack/pkg/tokens"
)

// TruncateSummarizer "summarizes" by ratio truncation to the token target.
// It is the backend used when no model is configured.
type TruncateSummarizer struct {
	ratio float64
}

// NewTruncateSummarizer creates a TruncateSummarizer with the given ratio.
func NewTruncateSummarizer(ratio float64) *TruncateSummarizer {
	return &TruncateSummarizer{ratio: ratio}
}

// Name implements Summarizer.
func (s *TruncateSummarizer) Name() string { return "truncate" }

// Summarize implements Summarizer.
func (s *TruncateSummarizer) Summarize(ctx context.Context, items []Item, maxTokensPerItem int) ([]Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Output, len(items))
	for i, it := range items {
		out[i] = Output{ID: it.ID, Text: tokens.Truncate(it.Content, maxTokensPerItem, s.ratio)}
	}
	return out, nil
}
