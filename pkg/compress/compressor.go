package compress

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lifeos/ctxpack/pkg/logger"
	"github.com/lifeos/ctxpack/pkg/metrics"
	"github.com/lifeos/ctxpack/pkg/tokens"
)

// Compressor fans items out to a Summarizer and applies the fallback.
type Compressor struct {
	summarizer    Summarizer
	timeout       time.Duration
	concurrency   int
	batch         bool
	fallbackChars int
	logger        logger.Logger
	metrics       *metrics.Manager
}

// Option configures a Compressor.
type Option func(*Compressor)

// WithTimeout bounds each summarizer call.
func WithTimeout(d time.Duration) Option {
	return func(c *Compressor) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithConcurrency caps in-flight per-item calls.
func WithConcurrency(n int) Option {
	return func(c *Compressor) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithBatch sends all items in one call.
func WithBatch(batch bool) Option {
	return func(c *Compressor) {
		c.batch = batch
	}
}

// WithFallbackChars sets the raw-content cut length.
func WithFallbackChars(n int) Option {
	return func(c *Compressor) {
		if n > 0 {
			c.fallbackChars = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Compressor) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(c *Compressor) {
		c.metrics = m
	}
}

// New creates a Compressor. A nil summarizer makes every item fall back.
func New(s Summarizer, opts ...Option) *Compressor {
	c := &Compressor{
		summarizer:    s,
		timeout:       10 * time.Second,
		concurrency:   4,
		fallbackChars: DefaultFallbackChars,
		logger:        logger.Global(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend names the configured summarizer, or "none".
func (c *Compressor) Backend() string {
	if c == nil || c.summarizer == nil {
		return "none"
	}
	return c.summarizer.Name()
}

// Fallback returns the raw-content cut for content.
func (c *Compressor) Fallback(content string) string {
	return tokens.Head(content, c.fallbackChars)
}

// Compress returns one result per item, in input order.
func (c *Compressor) Compress(ctx context.Context, items []Item, maxTokens int) []Result {
	if len(items) == 0 {
		return nil
	}
	results := make([]Result, len(items))

	if c.summarizer == nil {
		for i, it := range items {
			results[i] = c.fallback(ctx, it, fmt.Errorf("%w: no summarizer configured", ErrSummarizeFailed), false)
		}
		return results
	}

	if c.batch {
		c.compressBatch(ctx, items, maxTokens, results)
		return results
	}

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, it := range items {
		g.Go(func() error {
			results[i] = c.compressOne(ctx, it, maxTokens)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Compressor) compressOne(ctx context.Context, it Item, maxTokens int) Result {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	outputs, err := c.summarizer.Summarize(callCtx, []Item{it}, maxTokens)
	if err != nil {
		return c.fallback(ctx, it, err, true)
	}
	for _, out := range outputs {
		if out.ID == it.ID {
			return c.accept(ctx, it, out)
		}
	}
	return c.fallback(ctx, it, fmt.Errorf("%w: no output for item %d", ErrSummarizeFailed, it.ID), true)
}

func (c *Compressor) compressBatch(ctx context.Context, items []Item, maxTokens int, results []Result) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	outputs, err := c.summarizer.Summarize(callCtx, items, maxTokens)
	byID := make(map[int]Output, len(outputs))
	for _, out := range outputs {
		byID[out.ID] = out
	}

	for i, it := range items {
		if err != nil {
			results[i] = c.fallback(ctx, it, err, true)
			continue
		}
		out, ok := byID[it.ID]
		if !ok {
			results[i] = c.fallback(ctx, it, fmt.Errorf("%w: no output for item %d", ErrSummarizeFailed, it.ID), true)
			continue
		}
		results[i] = c.accept(ctx, it, out)
	}
}

func (c *Compressor) accept(ctx context.Context, it Item, out Output) Result {
	if out.Error != "" {
		return c.fallback(ctx, it, fmt.Errorf("%w: %s", ErrSummarizeFailed, out.Error), true)
	}
	if out.Text == "" {
		return c.fallback(ctx, it, fmt.Errorf("%w: empty summary", ErrSummarizeFailed), true)
	}
	c.metrics.RecordCompression(false)
	return Result{ID: it.ID, Text: out.Text}
}

func (c *Compressor) fallback(ctx context.Context, it Item, err error, warn bool) Result {
	if warn {
		c.logger.WarnContext(ctx, "snippet compression failed, using truncated content",
			"stage", "compress",
			"user_id", userIDFrom(ctx),
			"item_id", it.ID,
			"backend", c.Backend(),
			"error", err,
		)
	}
	c.metrics.RecordCompression(true)
	return Result{ID: it.ID, Text: c.Fallback(it.Content), Fallback: true}
}

type userIDKey struct{}

// WithUserID tags ctx with the requesting user for diagnostics.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}
