package memory

import (
	"fmt"
	"math"
	"sync"
)

// VectorIndex is a brute-force cosine similarity index. Per-user document
// counts are small enough that a linear scan beats maintaining a graph.
type VectorIndex struct {
	mu        sync.RWMutex
	dimension int
	vectors   map[string][]float32
}

// NewVectorIndex creates an index for vectors of the given width.
func NewVectorIndex(dimension int) *VectorIndex {
	return &VectorIndex{
		dimension: dimension,
		vectors:   make(map[string][]float32),
	}
}

// Dimension returns the vector width.
func (v *VectorIndex) Dimension() int {
	return v.dimension
}

// Add inserts or replaces a vector.
func (v *VectorIndex) Add(ref string, vector []float32) error {
	if len(vector) != v.dimension {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, v.dimension, len(vector))
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.vectors[ref] = vector
	return nil
}

// Remove drops a vector.
func (v *VectorIndex) Remove(ref string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.vectors, ref)
}

// Search returns up to topK refs accepted by accept, most similar first.
// Non-positive similarities are not returned.
func (v *VectorIndex) Search(query []float32, topK int, accept func(ref string) bool) ([]Hit, error) {
	if len(query) != v.dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, v.dimension, len(query))
	}
	if topK <= 0 {
		return nil, nil
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	var hits []Hit
	for ref, vec := range v.vectors {
		if accept != nil && !accept(ref) {
			continue
		}
		if sim := cosineSimilarity(query, vec); sim > 0 {
			hits = append(hits, Hit{Ref: ref, Score: sim})
		}
	}
	sortHits(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Len returns the number of vectors.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.vectors)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
