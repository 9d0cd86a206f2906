package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"callrouter/pkg/logging"
)

func TestNew(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", ""} {
		log, err := New(level, "json")
		require.NoError(t, err)
		assert.NotNil(t, log)
	}
}

func TestContextFieldsArePrepended(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore(core)
	log.(*SugaredLogger).SetServiceName("routing-service")

	ctx := logging.WithTrailID(context.Background(), "trail-9")
	log.InfowCtx(ctx, "lookup done", "uri", "sip:1234@example.com")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "trail-9", fields["trail_id"])
	assert.Equal(t, "routing-service", fields["service_name"])
	assert.Equal(t, "sip:1234@example.com", fields["uri"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}
