package registrar

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callrouter/internal/config"
)

func TestStaticChecker(t *testing.T) {
	ok, err := StaticChecker{Registered: true}.IsRegistered(context.Background(), "sip:alice@home.example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = StaticChecker{}.IsRegistered(context.Background(), "sip:alice@home.example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, mr.Set("reg:sip:alice@home.example.com", "contact"))
	mr.SetTTL("reg:sip:alice@home.example.com", time.Minute)

	checker, err := NewChecker(config.RegistrarConfig{Type: "redis"}, client)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := checker.IsRegistered(ctx, "sip:alice@home.example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = checker.IsRegistered(ctx, "sip:bob@home.example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = checker.IsRegistered(ctx, "sip:alice@home.example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewChecker(t *testing.T) {
	checker, err := NewChecker(config.RegistrarConfig{Type: "static", AssumeRegistered: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, StaticChecker{Registered: true}, checker)

	_, err = NewChecker(config.RegistrarConfig{Type: "redis"}, nil)
	assert.Error(t, err)

	_, err = NewChecker(config.RegistrarConfig{Type: "diameter"}, nil)
	assert.Error(t, err)
}
