package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service is the cache contract shared by the Redis and in-memory
// backends. Values are stored JSON-encoded.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	MGet(ctx context.Context, keys ...string) (map[string]string, error)

	// SetNX atomically sets the key if it does not exist yet and returns
	// whether the write happened. This is the dedupe/lock primitive.
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
}

// MGetTyped batch-reads keys and decodes each value into T. Entries
// that fail to decode are dropped from the result.
func MGetTyped[T any](ctx context.Context, c Service, keys ...string) (map[string]T, error) {
	if len(keys) == 0 {
		return make(map[string]T), nil
	}

	raw, err := c.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}

	out := make(map[string]T, len(raw))
	for key, value := range raw {
		var obj T
		if err := json.Unmarshal([]byte(value), &obj); err != nil {
			continue
		}
		out[key] = obj
	}
	return out, nil
}
