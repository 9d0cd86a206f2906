package trace

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"callrouter/internal/config"
	"callrouter/internal/logger"
	"callrouter/pkg/logging"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	block    chan struct{}
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.messages...)
}

func TestNewEventCarriesTrailID(t *testing.T) {
	ctx := logging.WithTrailID(context.Background(), "trail-1")

	ev := NewEvent(ctx, EventEnumStart, "number", "+1234", 42)

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "trail-1", ev.TrailID)
	assert.Equal(t, EventEnumStart, ev.Type)
	assert.Equal(t, map[string]interface{}{"number": "+1234"}, ev.Fields)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestRecordWithNilSink(t *testing.T) {
	assert.NotPanics(t, func() {
		Record(context.Background(), nil, EventEnumStart)
	})
}

func TestLogSinkWritesDebugEntry(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewLogSink(logger.NewWithCore(core))

	ctx := logging.WithTrailID(context.Background(), "trail-2")
	Record(ctx, sink, EventHSSRequest, "identity", "sip:alice@example.com")

	entries := logs.FilterMessage("Trace event").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "hss_request", fields["event_type"])
	assert.Equal(t, "trail-2", fields["trail_id"])
	assert.Equal(t, "sip:alice@example.com", fields["identity"])
}

func TestKafkaSinkPublishesEvents(t *testing.T) {
	w := &fakeWriter{}
	sink := NewKafkaSinkWithWriter(w, "trace", 8, logger.NopLogger())

	ctx := logging.WithTrailID(context.Background(), "trail-3")
	Record(ctx, sink, EventEnumComplete, "uri", "sip:1234@example.com")
	require.NoError(t, sink.Close())

	msgs := w.written()
	require.Len(t, msgs, 1)
	assert.Equal(t, "trace", msgs[0].Topic)
	assert.Equal(t, []byte("trail-3"), msgs[0].Key)

	var ev Event
	require.NoError(t, json.Unmarshal(msgs[0].Value, &ev))
	assert.Equal(t, EventEnumComplete, ev.Type)
	assert.Equal(t, "sip:1234@example.com", ev.Fields["uri"])
	assert.True(t, w.closed)
}

func TestKafkaSinkDropsWhenFull(t *testing.T) {
	w := &fakeWriter{block: make(chan struct{})}
	sink := NewKafkaSinkWithWriter(w, "trace", 1, logger.NopLogger())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			Record(context.Background(), sink, EventDNSRequest)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full buffer")
	}

	close(w.block)
	require.NoError(t, sink.Close())
	assert.LessOrEqual(t, len(w.written()), 2)
}

func TestKafkaSinkIgnoresEmitAfterClose(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	sink := NewKafkaSinkWithWriter(w, "trace", 4, logger.NopLogger())
	require.NoError(t, sink.Close())

	assert.NotPanics(t, func() {
		Record(context.Background(), sink, EventDNSError)
	})
}

func TestNewSink(t *testing.T) {
	sink, err := NewSink(config.TraceConfig{Type: "none"}, logger.NopLogger())
	require.NoError(t, err)
	assert.IsType(t, NopSink{}, sink)

	sink, err = NewSink(config.TraceConfig{Type: "log"}, logger.NopLogger())
	require.NoError(t, err)
	assert.IsType(t, &LogSink{}, sink)

	_, err = NewSink(config.TraceConfig{Type: "syslog"}, logger.NopLogger())
	assert.Error(t, err)
}
