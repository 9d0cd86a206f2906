package subscriber

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callrouter/internal/config"
	"callrouter/internal/logger"
	"callrouter/internal/trace"
	"callrouter/pkg/circuitbreaker"
	apperrors "callrouter/pkg/errors"
)

const aliceIdentity = "sip:alice@home.example.com"

const aliceDocument = `<ServiceProfile><InitialFilterCriteria><Priority>1</Priority>` +
	`<ApplicationServer><ServerName>sip:as1.example.com</ServerName></ApplicationServer>` +
	`</InitialFilterCriteria></ServiceProfile>`

func fastHTTPConfig(baseURL string) config.SubscriberHTTPConfig {
	return config.SubscriberHTTPConfig{
		BaseURL:        baseURL,
		TimeoutSeconds: 1,
		Retry: config.RetryConfig{
			MaxAttempts:     3,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			Multiplier:      2,
		},
	}
}

func TestHTTPConnectorFetch(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		if r.URL.Path == "/filtercriteria/"+aliceIdentity {
			_, _ = w.Write([]byte(aliceDocument))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewHTTPConnector(fastHTTPConfig(server.URL+"/"), logger.NopLogger())

	doc, found, err := c.FetchFilterDocument(context.Background(), aliceIdentity)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, aliceDocument, doc)
	assert.Equal(t, "/filtercriteria/sip:alice@home.example.com", gotPath)

	doc, found, err = c.FetchFilterDocument(context.Background(), "sip:bob@home.example.com")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, doc)
}

func TestHTTPConnectorRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(aliceDocument))
	}))
	defer server.Close()

	doc, found, err := NewHTTPConnector(fastHTTPConfig(server.URL), logger.NopLogger()).
		FetchFilterDocument(context.Background(), aliceIdentity)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, aliceDocument, doc)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPConnectorGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, found, err := NewHTTPConnector(fastHTTPConfig(server.URL), logger.NopLogger()).
		FetchFilterDocument(context.Background(), aliceIdentity)
	assert.False(t, found)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPConnectorDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, _, err := NewHTTPConnector(fastHTTPConfig(server.URL), logger.NopLogger()).
		FetchFilterDocument(context.Background(), aliceIdentity)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Equal(t, int32(1), calls.Load())
}

func TestRedisConnector(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, mr.Set("ifc:"+aliceIdentity, aliceDocument))
	c := NewRedisConnector(client, "ifc:")

	doc, found, err := c.FetchFilterDocument(context.Background(), aliceIdentity)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, aliceDocument, doc)

	_, found, err = c.FetchFilterDocument(context.Background(), "sip:bob@home.example.com")
	require.NoError(t, err)
	assert.False(t, found)

	mr.Close()
	_, _, err = c.FetchFilterDocument(context.Background(), aliceIdentity)
	assert.Error(t, err)
}

type fakeConnector struct {
	doc   string
	found bool
	err   error
	calls int
}

func (f *fakeConnector) FetchFilterDocument(context.Context, string) (string, bool, error) {
	f.calls++
	return f.doc, f.found, f.err
}

type recordingSink struct {
	mu     sync.Mutex
	events []trace.Event
}

func (s *recordingSink) Emit(_ context.Context, ev trace.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) Close() error { return nil }

func TestInstrumentEmitsHSSEvents(t *testing.T) {
	tests := []struct {
		name      string
		connector *fakeConnector
		last      trace.EventType
		found     interface{}
	}{
		{"found", &fakeConnector{doc: aliceDocument, found: true}, trace.EventHSSResponse, true},
		{"not found", &fakeConnector{}, trace.EventHSSResponse, false},
		{"error", &fakeConnector{err: errors.New("connection refused")}, trace.EventHSSError, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			c := Instrument(tt.connector, "fake", sink, logger.NopLogger())

			doc, found, err := c.FetchFilterDocument(context.Background(), aliceIdentity)
			assert.Equal(t, tt.connector.doc, doc)
			assert.Equal(t, tt.connector.found, found)
			assert.Equal(t, tt.connector.err, err)

			require.Len(t, sink.events, 2)
			assert.Equal(t, trace.EventHSSRequest, sink.events[0].Type)
			assert.Equal(t, aliceIdentity, sink.events[0].Fields["identity"])
			assert.Equal(t, tt.last, sink.events[1].Type)
			if tt.found != nil {
				assert.Equal(t, tt.found, sink.events[1].Fields["found"])
			}
		})
	}
}

func TestCircuitBreakerConnector(t *testing.T) {
	missing := &fakeConnector{}
	c := WrapWithCircuitBreaker(missing, "missing", circuitbreaker.FromSettings("subscriber-missing", 1, time.Minute, time.Minute, 0.5, 2))
	for i := 0; i < 5; i++ {
		_, found, err := c.FetchFilterDocument(context.Background(), aliceIdentity)
		require.NoError(t, err)
		assert.False(t, found)
	}
	assert.Equal(t, 5, missing.calls)

	failing := &fakeConnector{err: errors.New("connection refused")}
	c = WrapWithCircuitBreaker(failing, "failing", circuitbreaker.FromSettings("subscriber-failing", 1, time.Minute, time.Minute, 0.5, 2))
	for i := 0; i < 2; i++ {
		_, _, err := c.FetchFilterDocument(context.Background(), aliceIdentity)
		assert.Error(t, err)
	}

	_, _, err := c.FetchFilterDocument(context.Background(), aliceIdentity)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, failing.calls)
}

func TestNewConnector(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	require.NoError(t, mr.Set("ifc:"+aliceIdentity, aliceDocument))

	cfg := &config.Config{Subscriber: config.SubscriberConfig{Type: "none"}}
	c, err := NewConnector(cfg, Stores{}, nil, logger.NopLogger())
	require.NoError(t, err)
	assert.IsType(t, NoneConnector{}, c)

	cfg = &config.Config{Subscriber: config.SubscriberConfig{Type: "redis", KeyPrefix: "ifc:"}}
	c, err = NewConnector(cfg, Stores{Redis: client}, nil, logger.NopLogger())
	require.NoError(t, err)
	doc, found, err := c.FetchFilterDocument(context.Background(), aliceIdentity)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, aliceDocument, doc)

	cfg = &config.Config{
		Subscriber:     config.SubscriberConfig{Type: "http", HTTP: fastHTTPConfig("http://hss.example.com")},
		CircuitBreaker: config.CircuitBreakerConfig{Enabled: true},
	}
	c, err = NewConnector(cfg, Stores{}, nil, logger.NopLogger())
	require.NoError(t, err)
	assert.NotNil(t, c)

	for _, typ := range []string{"postgres", "redis", "mongodb"} {
		_, err = NewConnector(&config.Config{Subscriber: config.SubscriberConfig{Type: typ}}, Stores{}, nil, logger.NopLogger())
		assert.Error(t, err, typ)
	}

	_, err = NewConnector(&config.Config{Subscriber: config.SubscriberConfig{Type: "ldap"}}, Stores{}, nil, logger.NopLogger())
	assert.Error(t, err)
}
