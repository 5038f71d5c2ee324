package telemetry

import (
	"context"

	"github.com/lifeos/ctxpack/pkg/api/events"
)

// EventTelemetryRecorded is the event type published for each record.
const EventTelemetryRecorded = "telemetry.recorded"

// BroadcastSink publishes records to in-process subscribers such as the
// websocket live tail.
type BroadcastSink struct {
	b *events.Broadcaster
}

// NewBroadcastSink creates a BroadcastSink.
func NewBroadcastSink(b *events.Broadcaster) *BroadcastSink {
	return &BroadcastSink{b: b}
}

func (s *BroadcastSink) Name() string { return "broadcast" }

func (s *BroadcastSink) Write(_ context.Context, rec Record) error {
	s.b.Broadcast(events.Event{
		Type:      EventTelemetryRecorded,
		Timestamp: rec.RecordedAt,
		Payload:   rec,
	})
	return nil
}

// Close leaves the broadcaster open; it is owned by the server.
func (s *BroadcastSink) Close() error { return nil }
