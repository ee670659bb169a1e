package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/spounge-ai/ffproxy/internal/domain"
	"github.com/spounge-ai/ffproxy/pkg/execution"
	"github.com/spounge-ai/ffproxy/pkg/patterns/lifecycle"
)

// Refresher runs RefreshAll on a fixed interval for the life of the process.
type Refresher struct {
	cache    *TokenCache
	interval time.Duration
	timeout  time.Duration
	warm     bool
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRefresher creates a refresher. timeout bounds a single cycle; zero means
// the cycle is bounded only by the HTTP client timeout.
func NewRefresher(cache *TokenCache, interval, timeout time.Duration, warm bool, logger *slog.Logger) *Refresher {
	return &Refresher{
		cache:    cache,
		interval: interval,
		timeout:  timeout,
		warm:     warm,
		logger:   logger,
	}
}

// RunOnce performs one refresh cycle across all regions.
func (r *Refresher) RunOnce(ctx context.Context) []domain.RefreshOutcome {
	outcomes, _ := execution.WithTimeout(ctx, r.timeout, func(ctx context.Context) ([]domain.RefreshOutcome, error) {
		return r.cache.RefreshAll(ctx), nil
	})
	return outcomes
}

// Start warms the cache when configured to, then begins the periodic loop.
// Calling Start on a running refresher is a no-op.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.done = make(chan struct{})
	r.mu.Unlock()

	if r.warm {
		r.logger.InfoContext(ctx, "warming token cache", "regions", len(r.cache.Regions()))
		r.RunOnce(ctx)
	}

	go r.loop(loopCtx, r.done)
	return nil
}

func (r *Refresher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the loop and waits for an in-flight cycle to observe it.
func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		r.logger.InfoContext(ctx, "token refresher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health is ready when at least one region holds a valid token.
func (r *Refresher) Health(ctx context.Context) lifecycle.HealthStatus {
	valid := 0
	for _, st := range r.cache.Status() {
		if st.State == domain.TokenValid {
			valid++
		}
	}
	if valid == 0 {
		return lifecycle.HealthStatus{Ready: false, Message: "no region holds a valid token"}
	}
	return lifecycle.HealthStatus{Ready: true}
}

var _ lifecycle.ManagedResource = (*Refresher)(nil)
