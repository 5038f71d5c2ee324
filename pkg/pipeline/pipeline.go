// Package pipeline runs one context request end to end: classify the text,
// extract date hints, assemble budgeted messages and record telemetry.
package pipeline

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/lifeos/ctxpack/pkg/assembler"
	"github.com/lifeos/ctxpack/pkg/datehint"
	"github.com/lifeos/ctxpack/pkg/intent"
	"github.com/lifeos/ctxpack/pkg/logger"
	"github.com/lifeos/ctxpack/pkg/metrics"
	"github.com/lifeos/ctxpack/pkg/telemetry"
	"github.com/lifeos/ctxpack/pkg/telemetry/tracing"
)

// Recorder accepts telemetry without blocking.
type Recorder interface {
	Record(ctx context.Context, rec telemetry.Record)
}

// Request is one context request.
type Request struct {
	UserID string   `json:"userId"`
	Text   string   `json:"text"`
	Kinds  []string `json:"kinds,omitempty"`
}

// Stats summarizes how the context was built.
type Stats struct {
	Candidates  int     `json:"candidates"`
	MemoryItems int     `json:"memoryItems"`
	Fallbacks   int     `json:"fallbacks"`
	TopScore    float64 `json:"topScore"`
	TotalTokens int     `json:"totalTokens"`
	DurationMs  int64   `json:"durationMs"`
}

// Result is the assembled context plus diagnostics.
type Result struct {
	Messages  []assembler.Message `json:"messages"`
	Intent    intent.Result       `json:"intent"`
	DateHints datehint.Range      `json:"dateHints"`
	Stats     Stats               `json:"stats"`
}

// Pipeline wires the classifier, extractor, allocator and recorder.
type Pipeline struct {
	allocator *assembler.Allocator
	extractor *datehint.Extractor
	recorder  Recorder
	logger    logger.Logger
	metrics   *metrics.Manager
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder sets the telemetry recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New creates a Pipeline. A nil extractor uses the local clock with
// Sunday-start weeks.
func New(allocator *assembler.Allocator, extractor *datehint.Extractor, opts ...Option) *Pipeline {
	if extractor == nil {
		extractor = datehint.New(time.Sunday, nil)
	}
	p := &Pipeline{
		allocator: allocator,
		extractor: extractor,
		logger:    logger.Global(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Allocator returns the underlying allocator.
func (p *Pipeline) Allocator() *assembler.Allocator {
	return p.allocator
}

// Extractor returns the date-hint extractor.
func (p *Pipeline) Extractor() *datehint.Extractor {
	return p.extractor
}

// Prepare builds the message list for req. Only a malformed request
// returns an error, always an *assembler.FieldError.
func (p *Pipeline) Prepare(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, &assembler.FieldError{Field: "userId", Err: assembler.ErrMissingField}
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, &assembler.FieldError{Field: "text", Err: assembler.ErrMissingField}
	}

	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "pipeline.Prepare",
		attribute.String("user_id", req.UserID),
	)
	defer span.End()

	classified := intent.Classify(req.Text)
	hints := p.extractor.Extract(req.Text)
	p.metrics.RecordStage(ctx, metrics.StageClassify, time.Since(start))
	span.SetAttributes(
		attribute.String("intent", string(classified.Intent)),
		attribute.Float64("confidence", classified.Confidence),
	)

	assembleStart := time.Now()
	out, err := p.allocator.BuildMessages(ctx, assembler.Input{
		UserID:   req.UserID,
		UserText: req.Text,
		Intent:   classified,
		Hints:    hints,
		Kinds:    req.Kinds,
	})
	if err != nil {
		return nil, err
	}
	p.metrics.RecordStage(ctx, metrics.StageAssemble, time.Since(assembleStart))

	elapsed := time.Since(start)
	p.metrics.RecordContext(ctx, string(classified.Intent), out.TotalTokens, out.MemoryItems, elapsed)
	if p.recorder != nil {
		p.recorder.Record(ctx, telemetry.NewRecord(
			req.UserID,
			out.TotalTokens,
			out.MemoryItems,
			out.TopScore,
			string(classified.Intent),
		))
	}

	p.logger.InfoContext(ctx, "context prepared",
		"user_id", req.UserID,
		"intent", string(classified.Intent),
		"confidence", classified.Confidence,
		"date_hints", hints.String(),
		"memory_items", out.MemoryItems,
		"total_tokens", out.TotalTokens,
		"duration_ms", elapsed.Milliseconds(),
	)

	return &Result{
		Messages:  out.Messages,
		Intent:    classified,
		DateHints: hints,
		Stats: Stats{
			Candidates:  out.Candidates,
			MemoryItems: out.MemoryItems,
			Fallbacks:   out.Fallbacks,
			TopScore:    out.TopScore,
			TotalTokens: out.TotalTokens,
			DurationMs:  elapsed.Milliseconds(),
		},
	}, nil
}
