package memory

import (
	"context"
	"sync"
)

// HybridRetriever runs BM25 and vector search side by side and fuses the two
// rankings with weighted Reciprocal Rank Fusion.
type HybridRetriever struct {
	vector       *VectorIndex
	bm25         *BM25Index
	embedder     Embedder
	vectorWeight float64
	bm25Weight   float64
	rrfK         float64
}

// NewHybridRetriever creates a new hybrid retriever.
func NewHybridRetriever(vector *VectorIndex, bm25 *BM25Index, embedder Embedder, vectorWeight, bm25Weight float64) *HybridRetriever {
	return &HybridRetriever{
		vector:       vector,
		bm25:         bm25,
		embedder:     embedder,
		vectorWeight: vectorWeight,
		bm25Weight:   bm25Weight,
		rrfK:         60.0,
	}
}

// Retrieve returns up to topK hits for text, restricted to refs accepted by
// accept.
func (h *HybridRetriever) Retrieve(ctx context.Context, text, mode string, topK int, accept func(string) bool) ([]Hit, error) {
	if text == "" {
		return nil, ErrInvalidQuery
	}
	if topK <= 0 {
		topK = 10
	}

	switch mode {
	case ModeBM25:
		return h.bm25.Search(text, topK, accept), nil
	case ModeVector:
		return h.vector.Search(h.embedder.Embed(text), topK, accept)
	default:
		return h.hybrid(ctx, text, topK, accept)
	}
}

func (h *HybridRetriever) hybrid(ctx context.Context, text string, topK int, accept func(string) bool) ([]Hit, error) {
	// Each side over-fetches so fusion has overlap to work with.
	fetchK := topK * 3
	if fetchK < 30 {
		fetchK = 30
	}

	var (
		wg         sync.WaitGroup
		vectorHits []Hit
		vectorErr  error
		bm25Hits   []Hit
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		vectorHits, vectorErr = h.vector.Search(h.embedder.Embed(text), fetchK, accept)
	}()
	go func() {
		defer wg.Done()
		bm25Hits = h.bm25.Search(text, fetchK, accept)
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Degrade to the lexical ranking if the vector side failed.
	if vectorErr != nil {
		if len(bm25Hits) > topK {
			bm25Hits = bm25Hits[:topK]
		}
		return bm25Hits, nil
	}

	fused := h.fuseRRF(vectorHits, bm25Hits)
	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, nil
}

// fuseRRF computes score(d) = sum over rankings of weight/(k + rank(d)).
func (h *HybridRetriever) fuseRRF(vectorHits, bm25Hits []Hit) []Hit {
	scores := make(map[string]float64, len(vectorHits)+len(bm25Hits))
	for rank, hit := range vectorHits {
		scores[hit.Ref] += h.vectorWeight / (h.rrfK + float64(rank+1))
	}
	for rank, hit := range bm25Hits {
		scores[hit.Ref] += h.bm25Weight / (h.rrfK + float64(rank+1))
	}

	fused := make([]Hit, 0, len(scores))
	for ref, score := range scores {
		fused = append(fused, Hit{Ref: ref, Score: score})
	}
	sortHits(fused)
	return fused
}
