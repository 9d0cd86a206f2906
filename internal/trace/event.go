package trace

import (
	"context"
	"time"

	"github.com/google/uuid"

	"callrouter/pkg/logging"
)

type EventType string

const (
	EventEnumStart      EventType = "enum_start"
	EventEnumMatch      EventType = "enum_match"
	EventEnumIncomplete EventType = "enum_incomplete"
	EventEnumComplete   EventType = "enum_complete"

	EventDNSRequest  EventType = "dns_request"
	EventDNSResponse EventType = "dns_response"
	EventDNSError    EventType = "dns_error"

	EventHSSRequest  EventType = "hss_request"
	EventHSSResponse EventType = "hss_response"
	EventHSSError    EventType = "hss_error"

	EventIFCEvaluated EventType = "ifc_evaluated"
)

// Event is a single diagnostic milestone of a routing decision. Events that
// share a TrailID belong to the same request.
type Event struct {
	ID        string                 `json:"id"`
	TrailID   string                 `json:"trail_id,omitempty"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// NewEvent stamps an event with a fresh id and the trail id carried by ctx.
// keysAndValues are paired the same way as logger fields.
func NewEvent(ctx context.Context, typ EventType, keysAndValues ...interface{}) Event {
	ev := Event{
		ID:        uuid.NewString(),
		TrailID:   logging.GetTrailID(ctx),
		Type:      typ,
		Timestamp: time.Now().UTC(),
	}

	if len(keysAndValues) > 0 {
		ev.Fields = make(map[string]interface{}, len(keysAndValues)/2)
		for i := 0; i+1 < len(keysAndValues); i += 2 {
			key, ok := keysAndValues[i].(string)
			if !ok {
				continue
			}
			ev.Fields[key] = keysAndValues[i+1]
		}
	}

	return ev
}

// Sink accepts trace events. Emit never blocks the caller and never fails;
// events that cannot be delivered are dropped.
type Sink interface {
	Emit(ctx context.Context, ev Event)
	Close() error
}

// Record builds an event and hands it to sink. A nil sink discards it.
func Record(ctx context.Context, sink Sink, typ EventType, keysAndValues ...interface{}) {
	if sink == nil {
		return
	}
	sink.Emit(ctx, NewEvent(ctx, typ, keysAndValues...))
}
