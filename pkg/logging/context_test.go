package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetLogFields(ctx))

	ctx = WithTrailID(ctx, "trail-1")
	ctx = WithCallID(ctx, "call-1")
	ctx = WithServiceName(ctx, "routing-service")

	assert.Equal(t, []interface{}{
		"trail_id", "trail-1",
		"call_id", "call-1",
		"service_name", "routing-service",
	}, GetLogFields(ctx))
}

func TestGetTrailIDMissing(t *testing.T) {
	assert.Equal(t, "", GetTrailID(context.Background()))
	assert.Equal(t, "", GetCallID(context.Background()))
}
