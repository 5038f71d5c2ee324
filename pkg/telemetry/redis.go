package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSink appends records to a capped Redis stream.
type RedisSink struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewRedisSink creates a RedisSink. A positive maxLen trims the stream
// approximately on every append.
func NewRedisSink(client redis.Cmdable, stream string, maxLen int64) *RedisSink {
	return &RedisSink{client: client, stream: stream, maxLen: maxLen}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Write(ctx context.Context, rec Record) error {
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"id":                rec.ID,
			"userId":            rec.UserID,
			"totalTokens":       strconv.Itoa(rec.TotalTokens),
			"memoryItemCount":   strconv.Itoa(rec.MemoryItemCount),
			"topRelevanceScore": strconv.FormatFloat(rec.TopRelevanceScore, 'f', -1, 64),
			"intent":            rec.Intent,
			"recordedAt":        rec.RecordedAt.Format(time.RFC3339Nano),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis xadd %s: %w", s.stream, err)
	}
	return nil
}

// Close closes the client when it owns a connection pool.
func (s *RedisSink) Close() error {
	if c, ok := s.client.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
