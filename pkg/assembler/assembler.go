// Package assembler builds the ordered message list for a model call while
// holding every role to its token budget. Collaborator failures degrade the
// memory block; only malformed input is reported as an error.
package assembler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/lifeos/ctxpack/pkg/compress"
	"github.com/lifeos/ctxpack/pkg/datehint"
	"github.com/lifeos/ctxpack/pkg/intent"
	"github.com/lifeos/ctxpack/pkg/logger"
	"github.com/lifeos/ctxpack/pkg/metrics"
	"github.com/lifeos/ctxpack/pkg/retrieval"
	"github.com/lifeos/ctxpack/pkg/telemetry/tracing"
	"github.com/lifeos/ctxpack/pkg/tokens"
)

// DefaultTopK is the number of retrieval candidates requested.
const DefaultTopK = 12

// MemorySource returns ranked snippets and never fails.
type MemorySource interface {
	Retrieve(ctx context.Context, req retrieval.Request) []retrieval.Snippet
}

// SnippetCompressor returns one result per item, in input order.
type SnippetCompressor interface {
	Compress(ctx context.Context, items []compress.Item, maxTokens int) []compress.Result
}

// Input is one request to assemble.
type Input struct {
	UserID   string
	UserText string
	Intent   intent.Result
	Hints    datehint.Range
	Kinds    []string
}

// Output is the assembled prompt plus diagnostics.
type Output struct {
	Messages []Message `json:"messages"`

	// Candidates is the number of snippets retrieval returned.
	Candidates int `json:"candidates"`
	// MemoryItems is the number of snippets packed into the memory block.
	MemoryItems int `json:"memoryItems"`
	// Fallbacks is the number of candidates that used the raw-content cut.
	Fallbacks int `json:"fallbacks"`
	// TopScore is the highest relevance score among candidates.
	TopScore float64 `json:"topScore"`
	// TotalTokens is the estimated size of all messages.
	TotalTokens int `json:"totalTokens"`
}

// Allocator enforces per-role token budgets.
type Allocator struct {
	budget     tokens.Budget
	ratio      float64
	topK       int
	retriever  MemorySource
	compressor SnippetCompressor
	logger     logger.Logger
	metrics    *metrics.Manager
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithTruncateRatio sets the safety ratio applied by truncation.
func WithTruncateRatio(r float64) Option {
	return func(a *Allocator) {
		if r > 0 && r <= 1 {
			a.ratio = r
		}
	}
}

// WithTopK sets the number of retrieval candidates.
func WithTopK(k int) Option {
	return func(a *Allocator) {
		if k > 0 {
			a.topK = k
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Allocator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(a *Allocator) {
		a.metrics = m
	}
}

// New creates an Allocator. A nil retriever disables memory; a nil
// compressor packs the raw-content cut of each snippet.
func New(budget tokens.Budget, retriever MemorySource, compressor SnippetCompressor, opts ...Option) (*Allocator, error) {
	if err := budget.Validate(); err != nil {
		return nil, err
	}
	a := &Allocator{
		budget:     budget,
		ratio:      tokens.DefaultRatio,
		topK:       DefaultTopK,
		retriever:  retriever,
		compressor: compressor,
		logger:     logger.Global(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Budget returns the allocator's budgets.
func (a *Allocator) Budget() tokens.Budget {
	return a.budget
}

// BuildMessages returns [system, (assistant memory block), user].
func (a *Allocator) BuildMessages(ctx context.Context, in Input) (*Output, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, &FieldError{Field: "userId", Err: ErrMissingField}
	}
	if strings.TrimSpace(in.UserText) == "" {
		return nil, &FieldError{Field: "userText", Err: ErrMissingField}
	}
	if !in.Intent.Intent.Valid() {
		return nil, &FieldError{Field: "intent", Err: ErrInvalidField}
	}

	ctx, span := tracing.StartSpan(ctx, "assembler.BuildMessages",
		attribute.String("intent", string(in.Intent.Intent)),
	)
	defer span.End()

	out := &Output{}
	system := Message{
		Role:    RoleSystem,
		Content: tokens.Truncate(systemPrompt(in.Intent.Intent), a.budget.System, a.ratio),
	}
	user := Message{
		Role:    RoleUser,
		Content: tokens.Truncate(in.UserText, a.budget.User, a.ratio),
	}

	out.Messages = []Message{system}
	if in.Intent.Intent.NeedsMemory() {
		if memory, ok := a.memoryBlock(ctx, in, out); ok {
			out.Messages = append(out.Messages, memory)
		}
	}
	out.Messages = append(out.Messages, user)

	for _, m := range out.Messages {
		out.TotalTokens += m.Tokens()
	}
	a.logger.DebugContext(ctx, "context assembled",
		"user_id", in.UserID,
		"intent", string(in.Intent.Intent),
		"messages", len(out.Messages),
		"memory_items", out.MemoryItems,
		"total_tokens", out.TotalTokens,
	)
	span.SetAttributes(
		attribute.Int("candidates", out.Candidates),
		attribute.Int("memory_items", out.MemoryItems),
		attribute.Int("total_tokens", out.TotalTokens),
	)
	return out, nil
}

func (a *Allocator) memoryBlock(ctx context.Context, in Input, out *Output) (Message, bool) {
	if a.retriever == nil {
		return Message{}, false
	}

	start := time.Now()
	snippets := a.retriever.Retrieve(ctx, retrieval.Request{
		UserID: in.UserID,
		Query:  in.UserText,
		Kinds:  in.Kinds,
		Range:  in.Hints,
		TopK:   a.topK,
	})
	a.metrics.RecordStage(ctx, metrics.StageRetrieve, time.Since(start))

	out.Candidates = len(snippets)
	if len(snippets) == 0 {
		return Message{}, false
	}
	for i, s := range snippets {
		if i == 0 || s.Score > out.TopScore {
			out.TopScore = s.Score
		}
	}

	items := make([]compress.Item, len(snippets))
	for i, s := range snippets {
		items[i] = compress.Item{ID: i, Content: snippetText(s)}
	}
	perItem := a.budget.Memory / len(items)

	start = time.Now()
	results := a.compress(compress.WithUserID(ctx, in.UserID), items, perItem)
	a.metrics.RecordStage(ctx, metrics.StageCompress, time.Since(start))

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
		if r.Fallback {
			out.Fallbacks++
		}
	}

	content, packed := pack(texts, a.budget.Memory)
	out.MemoryItems = packed
	if packed == 0 {
		return Message{}, false
	}
	return Message{Role: RoleAssistant, Content: content}, true
}

func (a *Allocator) compress(ctx context.Context, items []compress.Item, perItem int) []compress.Result {
	if a.compressor != nil {
		return a.compressor.Compress(ctx, items, perItem)
	}
	results := make([]compress.Result, len(items))
	for i, it := range items {
		results[i] = compress.Result{ID: it.ID, Text: tokens.Head(it.Content, compress.DefaultFallbackChars), Fallback: true}
	}
	return results
}

// pack adds snippets in order until the next one would push the whole block,
// lead-in and separators included, past budget. It returns the block and the
// number of snippets it holds.
func pack(texts []string, budget int) (string, int) {
	var b strings.Builder
	b.WriteString(memoryLeadIn)
	packed := 0

	for i, text := range texts {
		entry := fmt.Sprintf("%s[%d] %s", memorySeparator, i+1, text)
		if tokens.Estimate(b.String()+entry) > budget {
			break
		}
		b.WriteString(entry)
		packed++
	}
	if packed == 0 {
		return "", 0
	}
	return b.String(), packed
}

func snippetText(s retrieval.Snippet) string {
	title := strings.TrimSpace(s.Title)
	if title == "" {
		return s.Content
	}
	return title + "\n" + s.Content
}

// FitToolResult truncates tool output to the TOOLS budget.
func (a *Allocator) FitToolResult(content string) Message {
	return Message{
		Role:    RoleAssistant,
		Content: tokens.Truncate(content, a.budget.Tools, a.ratio),
	}
}
