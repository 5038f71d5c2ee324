// Package retrieval fetches ranked memory snippets from a semantic search
// collaborator. The Retriever never fails a request: any collaborator error or
// timeout yields an empty snippet list.
package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lifeos/ctxpack/pkg/datehint"
)

// ErrSearchFailed marks collaborator failures, as opposed to zero results.
var ErrSearchFailed = errors.New("retrieval: search failed")

// Request is a semantic search call.
type Request struct {
	UserID string
	Query  string
	Kinds  []string
	Range  datehint.Range
	TopK   int
}

// wireRequest is the collaborator JSON shape.
type wireRequest struct {
	UserID    string   `json:"userId"`
	Query     string   `json:"query"`
	Kinds     []string `json:"kinds,omitempty"`
	StartDate string   `json:"startDate,omitempty"`
	EndDate   string   `json:"endDate,omitempty"`
	TopK      int      `json:"topK"`
}

// MarshalJSON encodes the request in the collaborator wire format.
func (r Request) MarshalJSON() ([]byte, error) {
	w := wireRequest{
		UserID: r.UserID,
		Query:  r.Query,
		Kinds:  r.Kinds,
		TopK:   r.TopK,
	}
	if !r.Range.Start.IsZero() {
		w.StartDate = r.Range.Start.Format(datehint.DateLayout)
	}
	if !r.Range.End.IsZero() {
		w.EndDate = r.Range.End.Format(datehint.DateLayout)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the collaborator wire format.
func (r *Request) UnmarshalJSON(b []byte) error {
	var w wireRequest
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = Request{UserID: w.UserID, Query: w.Query, Kinds: w.Kinds, TopK: w.TopK}
	if w.StartDate != "" {
		t, err := datehint.ParseDate(w.StartDate)
		if err != nil {
			return fmt.Errorf("startDate: %w", err)
		}
		r.Range.Start = t
	}
	if w.EndDate != "" {
		t, err := datehint.ParseDate(w.EndDate)
		if err != nil {
			return fmt.Errorf("endDate: %w", err)
		}
		r.Range.End = t
	}
	return nil
}

// Validate checks the fields a collaborator needs.
func (r Request) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("userId is required")
	}
	if strings.TrimSpace(r.Query) == "" {
		return errors.New("query is required")
	}
	if r.TopK < 0 {
		return errors.New("topK must not be negative")
	}
	return nil
}

// Snippet is one retrieved memory. ID is its ordinal position in the
// collaborator's ranking.
type Snippet struct {
	ID      int     `json:"id"`
	Title   string  `json:"title,omitempty"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Response is the collaborator reply.
type Response struct {
	Results []Snippet `json:"results"`
}

// Searcher is a semantic search collaborator.
type Searcher interface {
	// Name identifies the backend in logs and status output.
	Name() string
	// Search returns snippets in relevance order. Errors must be
	// distinguishable from an empty result.
	Search(ctx context.Context, req Request) ([]Snippet, error)
}
