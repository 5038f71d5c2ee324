package retrieval

import (
	"context"
	"errors"
	"time"

	"github.com/lifeos/ctxpack/pkg/logger"
	"github.com/lifeos/ctxpack/pkg/metrics"
)

// DefaultTimeout bounds a search when none is configured.
const DefaultTimeout = 5 * time.Second

// Retriever wraps a Searcher with a timeout and fail-soft semantics.
type Retriever struct {
	searcher     Searcher
	timeout      time.Duration
	defaultKinds []string
	logger       logger.Logger
	metrics      *metrics.Manager
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithTimeout bounds each search call.
func WithTimeout(d time.Duration) Option {
	return func(r *Retriever) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithDefaultKinds applies kinds to requests that carry none.
func WithDefaultKinds(kinds []string) Option {
	return func(r *Retriever) {
		r.defaultKinds = kinds
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Retriever) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(r *Retriever) {
		r.metrics = m
	}
}

// NewRetriever creates a Retriever. A nil searcher always returns nothing.
func NewRetriever(s Searcher, opts ...Option) *Retriever {
	r := &Retriever{
		searcher: s,
		timeout:  DefaultTimeout,
		logger:   logger.Global(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Backend names the configured searcher, or "none".
func (r *Retriever) Backend() string {
	if r == nil || r.searcher == nil {
		return "none"
	}
	return r.searcher.Name()
}

// Retrieve returns snippets in collaborator order with ordinal IDs. Failures
// and timeouts are logged once and produce an empty result.
func (r *Retriever) Retrieve(ctx context.Context, req Request) []Snippet {
	if r == nil || r.searcher == nil {
		return nil
	}
	if len(req.Kinds) == 0 && len(r.defaultKinds) > 0 {
		req.Kinds = r.defaultKinds
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	snippets, err := r.searcher.Search(callCtx, req)
	if err != nil {
		reason := failureReason(err)
		r.logger.WarnContext(ctx, "memory retrieval failed, continuing without memory",
			"stage", "retrieve",
			"user_id", req.UserID,
			"backend", r.searcher.Name(),
			"reason", reason,
			"error", err,
		)
		r.metrics.RecordRetrievalFailure(reason)
		return nil
	}

	if req.TopK > 0 && len(snippets) > req.TopK {
		snippets = snippets[:req.TopK]
	}
	out := make([]Snippet, len(snippets))
	for i, s := range snippets {
		s.ID = i
		out[i] = s
	}
	return out
}

func failureReason(err error) string {
	var statusErr *StatusError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &statusErr):
		return "status"
	default:
		return "error"
	}
}
