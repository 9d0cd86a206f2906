package trace

import (
	"context"
	"fmt"

	"callrouter/internal/config"
	"callrouter/internal/constants"
	"callrouter/internal/logger"
	"callrouter/pkg/metrics"
)

type NopSink struct{}

func (NopSink) Emit(context.Context, Event) {}

func (NopSink) Close() error { return nil }

// LogSink writes events to the service log at debug level.
type LogSink struct {
	logger logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{logger: log}
}

func (s *LogSink) Emit(ctx context.Context, ev Event) {
	fields := make([]interface{}, 0, 6+2*len(ev.Fields))
	fields = append(fields, "event_id", ev.ID, "event_type", string(ev.Type), "event_time", ev.Timestamp)
	for k, v := range ev.Fields {
		fields = append(fields, k, v)
	}
	s.logger.DebugwCtx(ctx, "Trace event", fields...)
	metrics.IncTraceEvent(constants.TraceSinkLog, "emitted")
}

func (s *LogSink) Close() error { return nil }

func NewSink(cfg config.TraceConfig, log logger.Logger) (Sink, error) {
	switch cfg.Type {
	case constants.TraceSinkNone:
		return NopSink{}, nil
	case constants.TraceSinkLog, "":
		return NewLogSink(log), nil
	case constants.TraceSinkKafka:
		return NewKafkaSink(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown trace sink type: %s", cfg.Type)
	}
}
