package cache

import (
	"context"
	"time"
)

type Reader[K comparable, V any] interface {
	// Get reports a hit only for entries that have not expired.
	Get(ctx context.Context, key K) (V, bool)
}

type Writer[K comparable, V any] interface {
	// Set stores value for ttl. Zero uses the cache default and -1 never expires.
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, key K)
}

// Store is the full cache surface consumed by services.
type Store[K comparable, V any] interface {
	Reader[K, V]
	Writer[K, V]
	Count() int
	Clear(ctx context.Context)
}
