package memory

import (
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// Embedder turns text into a fixed-width, L2-normalized vector.
type Embedder interface {
	ModelID() string
	Dimension() int
	Embed(text string) []float32
}

// Embedder names accepted by NewEmbedder.
const (
	EmbedderHash     = "hash"
	EmbedderChargram = "chargram"
)

var embedTokenPattern = regexp.MustCompile(`[\p{L}\p{N}_\-]+`)

// NewEmbedder builds one of the deterministic hashing embedders.
func NewEmbedder(name string, dims int) (Embedder, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("memory: embedding dimension must be positive, got %d", dims)
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EmbedderChargram:
		return &chargramEmbedder{dims: dims}, nil
	case EmbedderHash:
		return &hashEmbedder{dims: dims}, nil
	default:
		return nil, fmt.Errorf("memory: unknown embedder %q", name)
	}
}

// hashEmbedder projects word tokens onto signed hash buckets.
type hashEmbedder struct {
	dims int
}

func (e *hashEmbedder) ModelID() string { return fmt.Sprintf("ctxpack-hash-%d-v1", e.dims) }
func (e *hashEmbedder) Dimension() int  { return e.dims }

func (e *hashEmbedder) Embed(text string) []float32 {
	vec := make([]float32, e.dims)
	for _, token := range embedTokens(text) {
		sum := fnv64(token)
		sign := float32(1)
		if sum&1 == 1 {
			sign = -1
		}
		// Longer tokens carry more signal than short function words.
		weight := float32(1 + len(token)/8)
		vec[int(sum%uint64(e.dims))] += sign * weight
	}
	normalizeVector(vec)
	return vec
}

// chargramEmbedder mixes character trigrams with whole-word buckets, which
// tolerates typos and inflections better than word hashing alone.
type chargramEmbedder struct {
	dims int
}

func (e *chargramEmbedder) ModelID() string { return fmt.Sprintf("ctxpack-chargram-%d-v1", e.dims) }
func (e *chargramEmbedder) Dimension() int  { return e.dims }

func (e *chargramEmbedder) Embed(text string) []float32 {
	vec := make([]float32, e.dims)
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return vec
	}

	window := []rune("#" + normalized + "#")
	for i := 0; i+3 <= len(window); i++ {
		vec[int(fnv64(string(window[i:i+3]))%uint64(e.dims))] += 1
	}
	for _, token := range embedTokens(normalized) {
		vec[int(fnv64("tok:"+token)%uint64(e.dims))] += 1.25
	}
	normalizeVector(vec)
	return vec
}

func fnv64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func embedTokens(text string) []string {
	return embedTokenPattern.FindAllString(strings.ToLower(text), -1)
}

func normalizeVector(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}
