package subscriber

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisConnector stores each document as a plain string under
// {prefix}{identity}.
type RedisConnector struct {
	client *redis.Client
	prefix string
}

func NewRedisConnector(client *redis.Client, prefix string) *RedisConnector {
	return &RedisConnector{
		client: client,
		prefix: prefix,
	}
}

func (c *RedisConnector) FetchFilterDocument(ctx context.Context, identity string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+identity).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get failed: %w", err)
	}
	return val, true, nil
}
