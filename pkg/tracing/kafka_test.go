package tracing

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInjectTraceContextAddsTraceparent(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "emit")
	defer span.End()

	headers := InjectTraceContext(ctx, []kafka.Header{{Key: "event_type", Value: []byte("enum_start")}})

	carrier := &kafkaHeaderCarrier{headers: headers}
	assert.Equal(t, "enum_start", carrier.Get("event_type"))
	assert.Contains(t, carrier.Get("traceparent"), span.SpanContext().TraceID().String())
	assert.ElementsMatch(t, []string{"event_type", "traceparent"}, carrier.Keys())
}

func TestInjectTraceContextWithoutSpanLeavesHeaders(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	headers := InjectTraceContext(context.Background(), nil)
	assert.Empty(t, headers)
}
