package subscriber

import (
	"context"
	"time"

	"callrouter/internal/logger"
	"callrouter/internal/trace"
	"callrouter/pkg/metrics"
)

// Connector fetches the iFC document of a public identity from subscriber
// storage. found is false when the store has no document for identity; err
// is reserved for store failures.
type Connector interface {
	FetchFilterDocument(ctx context.Context, identity string) (document string, found bool, err error)
}

// NoneConnector is used when no subscriber store is configured.
type NoneConnector struct{}

func (NoneConnector) FetchFilterDocument(context.Context, string) (string, bool, error) {
	return "", false, nil
}

// tracedConnector records HSS trace events, metrics and failures for every
// fetch made through the wrapped connector.
type tracedConnector struct {
	name      string
	connector Connector
	sink      trace.Sink
	logger    logger.Logger
}

// Instrument wraps c so that every fetch is traced and measured under name.
func Instrument(c Connector, name string, sink trace.Sink, log logger.Logger) Connector {
	if sink == nil {
		sink = trace.NopSink{}
	}
	return &tracedConnector{
		name:      name,
		connector: c,
		sink:      sink,
		logger:    log,
	}
}

func (c *tracedConnector) FetchFilterDocument(ctx context.Context, identity string) (string, bool, error) {
	start := time.Now()
	trace.Record(ctx, c.sink, trace.EventHSSRequest, "identity", identity, "connector", c.name)

	doc, found, err := c.connector.FetchFilterDocument(ctx, identity)
	switch {
	case err != nil:
		metrics.ObserveSubscriberFetch(c.name, "error", time.Since(start))
		c.logger.WarnwCtx(ctx, "Failed to fetch subscriber filter criteria",
			"identity", identity,
			"connector", c.name,
			"error", err,
		)
		trace.Record(ctx, c.sink, trace.EventHSSError, "identity", identity, "error", err.Error())
	case !found:
		metrics.ObserveSubscriberFetch(c.name, "not_found", time.Since(start))
		c.logger.DebugwCtx(ctx, "No filter criteria for subscriber", "identity", identity)
		trace.Record(ctx, c.sink, trace.EventHSSResponse, "identity", identity, "found", false)
	default:
		metrics.ObserveSubscriberFetch(c.name, "found", time.Since(start))
		trace.Record(ctx, c.sink, trace.EventHSSResponse, "identity", identity, "found", true, "bytes", len(doc))
	}

	return doc, found, err
}
