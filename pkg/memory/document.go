// Package memory is a per-user document index combining BM25 full-text
// search with hashed-embedding vector search, fused by reciprocal rank.
// Documents persist in Badger behind an LRU cache and the in-memory indexes
// are rebuilt from Badger on startup.
package memory

import (
	"time"

	"github.com/lifeos/ctxpack/pkg/datehint"
)

// Document is a unit of previously stored user text (a journal entry, a
// task, a note) that may later be returned as a memory snippet.
type Document struct {
	ID         string            `json:"id"`
	UserID     string            `json:"userId"`
	Kind       string            `json:"kind,omitempty"`
	Title      string            `json:"title,omitempty"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
	CreatedAt  time.Time         `json:"createdAt"`

	// Vector and Model record the embedding so a model change can be
	// detected when the index is reloaded.
	Vector []float32 `json:"vector,omitempty"`
	Model  string    `json:"model,omitempty"`
}

// searchText is the text that is embedded and BM25-indexed.
func (d *Document) searchText() string {
	if d.Title == "" {
		return d.Content
	}
	return d.Title + "\n" + d.Content
}

// Retrieval modes.
const (
	ModeHybrid = "hybrid"
	ModeVector = "vector"
	ModeBM25   = "bm25"
)

// Query is a search against one user's documents.
type Query struct {
	Text string `json:"text"`

	// Kinds restricts results to these kinds. Empty means all kinds.
	Kinds []string `json:"kinds,omitempty"`

	// Range restricts results by OccurredAt calendar date.
	Range datehint.Range `json:"range"`

	// Mode is hybrid (default), vector or bm25.
	Mode string `json:"mode,omitempty"`

	TopK int `json:"topK,omitempty"`
}

// Result is a matched document and its relevance score; higher is better.
type Result struct {
	Document *Document `json:"document"`
	Score    float64   `json:"score"`
}

// Stats summarizes a user's documents.
type Stats struct {
	TotalDocuments int            `json:"totalDocuments"`
	Kinds          map[string]int `json:"kinds,omitempty"`
	Oldest         *time.Time     `json:"oldest,omitempty"`
	Newest         *time.Time     `json:"newest,omitempty"`
}
