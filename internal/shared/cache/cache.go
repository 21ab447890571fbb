package cache

import (
	"context"
	"time"
)

// JSONCache is the subset of cache behavior repositories depend on.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

var _ JSONCache = (*RedisCache)(nil)
