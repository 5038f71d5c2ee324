package retrieval

import (
	"context"
	"fmt"

	"github.com/lifeos/ctxpack/pkg/memory"
)

// LocalSearcher serves searches from the in-process document index.
type LocalSearcher struct {
	index *memory.Index
	mode  string
}

// NewLocalSearcher wraps idx. An empty mode means hybrid.
func NewLocalSearcher(idx *memory.Index, mode string) *LocalSearcher {
	if mode == "" {
		mode = memory.ModeHybrid
	}
	return &LocalSearcher{index: idx, mode: mode}
}

// Name implements Searcher.
func (s *LocalSearcher) Name() string { return "local" }

// Search implements Searcher.
func (s *LocalSearcher) Search(ctx context.Context, req Request) ([]Snippet, error) {
	results, err := s.index.Search(ctx, req.UserID, memory.Query{
		Text:  req.Query,
		Kinds: req.Kinds,
		Range: req.Range,
		Mode:  s.mode,
		TopK:  req.TopK,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}

	snippets := make([]Snippet, len(results))
	for i, r := range results {
		snippets[i] = Snippet{
			ID:      i,
			Title:   r.Document.Title,
			Content: r.Document.Content,
			Score:   r.Score,
		}
	}
	return snippets, nil
}
