package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is a TTL key/value store for short-lived secrets such as login
// challenges.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Take returns the value and removes the key in one step. Of several
	// concurrent callers at most one gets the value; the rest get ErrMiss.
	Take(ctx context.Context, key string) ([]byte, error)
	// Incr atomically increments a counter and returns its new value. A
	// new counter expires after ttl.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
