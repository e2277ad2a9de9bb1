package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "auth:token:"

// RedisResolver looks tokens up under auth:token:<token>, written by the auth
// service with its own TTL.
type RedisResolver struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisResolver(rdb *redis.Client) *RedisResolver {
	return &RedisResolver{rdb: rdb, prefix: defaultRedisPrefix}
}

// NewRedisResolverFromURL parses a redis:// URL and pings the server.
func NewRedisResolverFromURL(ctx context.Context, url string) (*RedisResolver, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisResolver(rdb), nil
}

func (r *RedisResolver) key(token string) string { return r.prefix + token }

func (r *RedisResolver) Resolve(ctx context.Context, token string) (PlayerID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnauthorized
	}
	v, err := r.rdb.Get(ctx, r.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("redis token lookup: %w", err)
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ErrUnauthorized
	}
	return PlayerID(v), nil
}

func (r *RedisResolver) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}
