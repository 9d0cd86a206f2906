package registrar

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"callrouter/internal/config"
	"callrouter/internal/constants"
)

// Checker reports whether a public identity currently has a registration
// binding.
type Checker interface {
	IsRegistered(ctx context.Context, identity string) (bool, error)
}

// StaticChecker answers the same for every identity.
type StaticChecker struct {
	Registered bool
}

func (c StaticChecker) IsRegistered(context.Context, string) (bool, error) {
	return c.Registered, nil
}

// RedisChecker treats an existing {prefix}{identity} key as a live binding.
// Registrars are expected to set the key with the binding's expiry.
type RedisChecker struct {
	client *redis.Client
	prefix string
}

func NewRedisChecker(client *redis.Client, prefix string) *RedisChecker {
	return &RedisChecker{
		client: client,
		prefix: prefix,
	}
}

func (c *RedisChecker) IsRegistered(ctx context.Context, identity string) (bool, error) {
	n, err := c.client.Exists(ctx, c.prefix+identity).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	return n > 0, nil
}

func NewChecker(cfg config.RegistrarConfig, client *redis.Client) (Checker, error) {
	switch cfg.Type {
	case constants.RegistrarStatic, "":
		return StaticChecker{Registered: cfg.AssumeRegistered}, nil
	case constants.RegistrarRedis:
		if client == nil {
			return nil, fmt.Errorf("redis registrar requires a redis client")
		}
		prefix := cfg.KeyPrefix
		if prefix == "" {
			prefix = constants.DefaultRegistrarKeyPrefix
		}
		return NewRedisChecker(client, prefix), nil
	default:
		return nil, fmt.Errorf("unknown registrar type: %s", cfg.Type)
	}
}
