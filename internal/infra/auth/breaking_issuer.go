package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/spounge-ai/ffproxy/internal/domain"
	app_errors "github.com/spounge-ai/ffproxy/internal/errors"
	"github.com/spounge-ai/ffproxy/pkg/patterns/circuitbreaker"
)

// BreakingIssuer guards another issuer with one circuit breaker per region so
// a region whose credential keeps failing stops hitting the auth service.
type BreakingIssuer struct {
	next        domain.TokenIssuer
	maxFailures int
	reset       time.Duration
	opts        []circuitbreaker.Option
	logger      *slog.Logger

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.Breaker[domain.IssuedToken]
}

func NewBreakingIssuer(next domain.TokenIssuer, maxFailures int, reset time.Duration, logger *slog.Logger, opts ...circuitbreaker.Option) *BreakingIssuer {
	return &BreakingIssuer{
		next:        next,
		maxFailures: maxFailures,
		reset:       reset,
		opts:        opts,
		logger:      logger,
		breakers:    make(map[string]*circuitbreaker.Breaker[domain.IssuedToken]),
	}
}

func (b *BreakingIssuer) Issue(ctx context.Context, cred domain.RegionCredential) (domain.IssuedToken, error) {
	issued, err := b.breaker(cred.Region).Execute(ctx, func(ctx context.Context) (domain.IssuedToken, error) {
		return b.next.Issue(ctx, cred)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return domain.IssuedToken{}, &app_errors.AuthError{Region: cred.Region, Err: err}
	}
	return issued, err
}

// State reports the breaker state for region; regions never seen are closed.
func (b *BreakingIssuer) State(region string) circuitbreaker.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := b.breakers[region]; ok {
		return cb.State()
	}
	return circuitbreaker.StateClosed
}

func (b *BreakingIssuer) breaker(region string) *circuitbreaker.Breaker[domain.IssuedToken] {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := b.breakers[region]; ok {
		return cb
	}
	opts := append([]circuitbreaker.Option{
		circuitbreaker.WithStateChange(func(from, to circuitbreaker.State) {
			b.logger.Warn("auth circuit state changed", "region", region, "from", from.String(), "to", to.String())
		}),
	}, b.opts...)
	cb := circuitbreaker.New[domain.IssuedToken](b.maxFailures, b.reset, opts...)
	b.breakers[region] = cb
	return cb
}

var _ domain.TokenIssuer = (*BreakingIssuer)(nil)
