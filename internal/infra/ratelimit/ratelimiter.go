package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for a rate limiter.
// This allows for different implementations (e.g., in-memory, distributed).
type Limiter interface {
	// Allow checks if a request is allowed for a given identifier (e.g., caller IP).
	Allow(identifier string) bool
}

// idleTTL is how long a caller's bucket is kept after its last request.
const idleTTL = 10 * time.Minute

// NewInMemoryRateLimiter creates a new in-memory rate limiter.
// It creates a new limiter for each identifier with the given rate and burst size.
func NewInMemoryRateLimiter(r rate.Limit, b int) *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		rate:    r,
		burst:   b,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// InMemoryRateLimiter keeps one token bucket per caller. Idle buckets are
// dropped lazily so the map does not grow with every address ever seen.
type InMemoryRateLimiter struct {
	rate      rate.Limit
	burst     int
	clients   map[string]*client
	lastSweep time.Time
	now       func() time.Time
	mu        sync.Mutex
}

func (l *InMemoryRateLimiter) Allow(identifier string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > idleTTL {
		l.sweep(now)
	}

	c, exists := l.clients[identifier]
	if !exists {
		c = &client{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[identifier] = c
	}
	c.lastSeen = now

	return c.limiter.AllowN(now, 1)
}

func (l *InMemoryRateLimiter) sweep(now time.Time) {
	for id, c := range l.clients {
		if now.Sub(c.lastSeen) > idleTTL {
			delete(l.clients, id)
		}
	}
	l.lastSweep = now
}

// Len returns the number of tracked callers.
func (l *InMemoryRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
