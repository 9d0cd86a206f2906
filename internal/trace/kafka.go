package trace

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"callrouter/internal/config"
	"callrouter/internal/constants"
	"callrouter/internal/logger"
	"callrouter/pkg/metrics"
	"callrouter/pkg/tracing"
)

// MessageWriter is the subset of *kafka.Writer the sink needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes events from a bounded buffer on a background
// goroutine. When the buffer is full new events are dropped and counted.
type KafkaSink struct {
	writer MessageWriter
	topic  string
	logger logger.Logger

	queue     chan kafka.Message
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func NewKafkaSink(cfg config.TraceConfig, log logger.Logger) *KafkaSink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		Async:        false,
	}
	return NewKafkaSinkWithWriter(w, cfg.Kafka.Topic, cfg.BufferSize, log)
}

func NewKafkaSinkWithWriter(w MessageWriter, topic string, bufferSize int, log logger.Logger) *KafkaSink {
	if bufferSize <= 0 {
		bufferSize = constants.DefaultTraceBufferSize
	}

	s := &KafkaSink{
		writer: w,
		topic:  topic,
		logger: log,
		queue:  make(chan kafka.Message, bufferSize),
		done:   make(chan struct{}),
	}

	go s.run()
	return s
}

func (s *KafkaSink) Emit(ctx context.Context, ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Failed to marshal trace event", "error", err, "event_type", ev.Type)
		metrics.IncTraceEvent(constants.TraceSinkKafka, "dropped")
		return
	}

	headers := []kafka.Header{{Key: "event_type", Value: []byte(ev.Type)}}
	headers = tracing.InjectTraceContext(ctx, headers)

	msg := kafka.Message{
		Topic:   s.topic,
		Key:     []byte(ev.TrailID),
		Value:   body,
		Headers: headers,
		Time:    ev.Timestamp,
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		metrics.IncTraceEvent(constants.TraceSinkKafka, "dropped")
		return
	}

	select {
	case s.queue <- msg:
		metrics.IncTraceEvent(constants.TraceSinkKafka, "queued")
	default:
		metrics.IncTraceEvent(constants.TraceSinkKafka, "dropped")
	}
}

func (s *KafkaSink) run() {
	defer close(s.done)

	for msg := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), constants.KafkaWriteTimeout)
		err := s.writer.WriteMessages(ctx, msg)
		cancel()

		if err != nil {
			s.logger.Warnw("Failed to publish trace event",
				"error", err,
				"topic", s.topic,
			)
			metrics.IncTraceEvent(constants.TraceSinkKafka, "failed")
			continue
		}
		metrics.IncTraceEvent(constants.TraceSinkKafka, "published")
	}
}

// Close stops accepting events, drains the buffer and closes the writer.
func (s *KafkaSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()

		select {
		case <-s.done:
		case <-time.After(constants.ShutdownTimeout):
			s.logger.Warnw("Timed out draining trace events", "topic", s.topic)
		}
		err = s.writer.Close()
	})
	return err
}
