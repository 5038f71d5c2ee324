package telemetry

import (
	"context"

	"github.com/lifeos/ctxpack/pkg/logger"
)

// LogSink writes each record as a structured log line.
type LogSink struct {
	logger logger.Logger
}

// NewLogSink creates a LogSink. A nil logger uses the global one.
func NewLogSink(l logger.Logger) *LogSink {
	if l == nil {
		l = logger.Global()
	}
	return &LogSink{logger: l.With("component", "telemetry")}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Write(ctx context.Context, rec Record) error {
	s.logger.InfoContext(ctx, "context telemetry",
		"record_id", rec.ID,
		"user_id", rec.UserID,
		"intent", rec.Intent,
		"total_tokens", rec.TotalTokens,
		"memory_items", rec.MemoryItemCount,
		"top_score", rec.TopRelevanceScore,
	)
	return nil
}

func (s *LogSink) Close() error { return nil }
