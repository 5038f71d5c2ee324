// Package telemetry records one outcome per assembled context and ships it
// to the configured sinks in the background. Recording never blocks the
// caller and never reports failure to it.
package telemetry

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Record is one assembled-context outcome.
type Record struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	TotalTokens       int       `json:"totalTokens"`
	MemoryItemCount   int       `json:"memoryItemCount"`
	TopRelevanceScore float64   `json:"topRelevanceScore"`
	Intent            string    `json:"intent"`
	RecordedAt        time.Time `json:"recordedAt"`
}

// NewRecord returns a Record stamped with a fresh time-sortable ID.
func NewRecord(userID string, totalTokens, memoryItems int, topScore float64, intent string) Record {
	now := time.Now().UTC()
	return Record{
		ID:                ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		UserID:            userID,
		TotalTokens:       totalTokens,
		MemoryItemCount:   memoryItems,
		TopRelevanceScore: topScore,
		Intent:            intent,
		RecordedAt:        now,
	}
}

// stamp fills in ID and RecordedAt when absent.
func (r Record) stamp() Record {
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}
	if r.ID == "" {
		r.ID = ulid.MustNew(ulid.Timestamp(r.RecordedAt), ulid.DefaultEntropy()).String()
	}
	return r
}

// Sink persists or forwards records.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	// Write delivers one record.
	Write(ctx context.Context, rec Record) error
	// Close releases the sink's resources.
	Close() error
}

// Reader is implemented by sinks that can list what they stored.
type Reader interface {
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
}
