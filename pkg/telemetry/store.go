package telemetry

import (
	"context"
	"fmt"
	"time"

	badgerstore "github.com/lifeos/ctxpack/pkg/storage/badger"
)

const recordPrefix = "telemetry:"

var _ Reader = (*BadgerSink)(nil)

// BadgerSink stores records in Badger keyed by their time-sortable ID.
type BadgerSink struct {
	store *badgerstore.Store
	ttl   time.Duration
}

// NewBadgerSink creates a BadgerSink. A positive ttl expires old records.
func NewBadgerSink(store *badgerstore.Store, ttl time.Duration) *BadgerSink {
	return &BadgerSink{store: store, ttl: ttl}
}

func (s *BadgerSink) Name() string { return "badger" }

func (s *BadgerSink) Write(ctx context.Context, rec Record) error {
	return s.store.Put(ctx, recordPrefix+rec.ID, rec, s.ttl)
}

// Recent returns up to limit records, newest first.
func (s *BadgerSink) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	out := make([]Record, 0, limit)
	err := s.store.Scan(ctx, recordPrefix, badgerstore.ScanOptions{Reverse: true, Limit: limit},
		func(key string, value []byte) error {
			var rec Record
			if err := badgerstore.Unmarshal(value, &rec); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			out = append(out, rec)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close is a no-op; the database is owned by the caller.
func (s *BadgerSink) Close() error { return nil }
