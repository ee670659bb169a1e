package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spounge-ai/ffproxy/internal/domain"
	app_errors "github.com/spounge-ai/ffproxy/internal/errors"
	"github.com/spounge-ai/ffproxy/pkg/patterns/batch"
	"golang.org/x/sync/singleflight"
)

// TokenCache owns the per-region token records. It is the only writer;
// every refresh commits a complete record under the lock or nothing at all.
type TokenCache struct {
	mu      sync.RWMutex
	records map[string]domain.TokenRecord

	registry domain.CredentialRegistry
	issuer   domain.TokenIssuer
	regions  []string
	validity time.Duration

	honorNotAfter bool
	now           func() time.Time
	group         singleflight.Group
	logger        *slog.Logger
}

// TokenCacheOption configures a TokenCache.
type TokenCacheOption func(*TokenCache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) TokenCacheOption {
	return func(c *TokenCache) { c.now = now }
}

// WithHonorNotAfter shortens a record's lifetime to the token's own expiry
// claim when that comes before the validity window ends.
func WithHonorNotAfter(enabled bool) TokenCacheOption {
	return func(c *TokenCache) { c.honorNotAfter = enabled }
}

// NewTokenCache creates an empty cache for the given regions.
func NewTokenCache(
	registry domain.CredentialRegistry,
	issuer domain.TokenIssuer,
	regions []string,
	validity time.Duration,
	logger *slog.Logger,
	opts ...TokenCacheOption,
) *TokenCache {
	normalized := make([]string, 0, len(regions))
	for _, r := range regions {
		normalized = append(normalized, domain.NormalizeRegion(r))
	}

	c := &TokenCache{
		records:  make(map[string]domain.TokenRecord, len(regions)),
		registry: registry,
		issuer:   issuer,
		regions:  normalized,
		validity: validity,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a usable record for region, refreshing synchronously when the
// cached one is absent or expired.
func (c *TokenCache) Get(ctx context.Context, region string) (domain.TokenRecord, error) {
	region = domain.NormalizeRegion(region)

	c.mu.RLock()
	rec, ok := c.records[region]
	c.mu.RUnlock()

	if ok && rec.Usable(c.now()) {
		return rec, nil
	}
	return c.Refresh(ctx, region)
}

// Stale returns the last committed record for region even if it has expired.
func (c *TokenCache) Stale(region string) (domain.TokenRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[domain.NormalizeRegion(region)]
	return rec, ok
}

// Refresh obtains a new token for region. Concurrent refreshes of the same
// region share one call to the authentication service.
func (c *TokenCache) Refresh(ctx context.Context, region string) (domain.TokenRecord, error) {
	region = domain.NormalizeRegion(region)

	// The shared call outlives any single caller's cancellation; the HTTP
	// client timeout still bounds it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(region, func() (any, error) {
		return c.refresh(shared, region)
	})
	if err != nil {
		return domain.TokenRecord{}, err
	}
	return v.(domain.TokenRecord), nil
}

func (c *TokenCache) refresh(ctx context.Context, region string) (domain.TokenRecord, error) {
	cred, err := c.registry.Lookup(ctx, region)
	if err != nil {
		err = &app_errors.AuthError{Region: region, Err: err}
		c.logger.ErrorContext(ctx, "token refresh failed", "region", region, "error", err)
		return domain.TokenRecord{}, err
	}

	issued, err := c.issuer.Issue(ctx, cred)
	if err != nil {
		if !errors.Is(err, app_errors.ErrAuthUnavailable) {
			err = &app_errors.AuthError{Region: region, Err: err}
		}
		c.logger.WarnContext(ctx, "token refresh failed", "region", region, "error", err)
		return domain.TokenRecord{}, err
	}

	now := c.now()
	rec := domain.TokenRecord{
		Region:       region,
		Token:        issued.Token,
		LockedRegion: issued.LockedRegion,
		ServerURL:    issued.ServerURL,
		AcquiredAt:   now,
		ExpiresAt:    now.Add(c.validity),
	}
	if c.honorNotAfter && !issued.NotAfter.IsZero() && issued.NotAfter.Before(rec.ExpiresAt) {
		rec.ExpiresAt = issued.NotAfter
	}
	if !rec.Usable(now) {
		err := &app_errors.AuthError{Region: region, Err: fmt.Errorf("issued token already expired at %s", rec.ExpiresAt.Format(time.RFC3339))}
		c.logger.WarnContext(ctx, "token refresh failed", "region", region, "error", err)
		return domain.TokenRecord{}, err
	}

	c.mu.Lock()
	c.records[region] = rec
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "token refreshed",
		"uid", truncate(cred.AccountID, 5),
		"region", region,
		"locked_region", rec.LockedRegion,
		"expires_at", rec.ExpiresAt,
	)
	return rec, nil
}

// RefreshAll refreshes every configured region concurrently. A failed region
// keeps its previous record and does not affect the others.
func (c *TokenCache) RefreshAll(ctx context.Context) []domain.RefreshOutcome {
	bp := &batch.BatchProcessor[string, domain.TokenRecord]{
		Process: c.Refresh,
	}
	res := bp.ProcessBatch(ctx, c.regions)

	outcomes := make([]domain.RefreshOutcome, len(res.Items))
	for i, item := range res.Items {
		outcomes[i] = domain.RefreshOutcome{Region: item.Request, Err: item.Error}
		if item.Error == nil {
			outcomes[i].ExpiresAt = item.Result.ExpiresAt
		}
	}

	c.logger.InfoContext(ctx, "token refresh cycle finished",
		"regions", len(outcomes),
		"failed", len(res.Failed()),
	)
	return outcomes
}

// Status reports every configured region's slot, in configuration order.
func (c *TokenCache) Status() []domain.TokenStatus {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.TokenStatus, 0, len(c.regions))
	for _, region := range c.regions {
		st := domain.TokenStatus{Region: region, State: domain.TokenAbsent}
		if rec, ok := c.records[region]; ok {
			exp := rec.ExpiresAt
			st.ExpiresAt = &exp
			st.LockedRegion = rec.LockedRegion
			st.ServerURL = rec.ServerURL
			st.State = domain.TokenExpired
			if rec.Usable(now) {
				st.State = domain.TokenValid
			}
		}
		out = append(out, st)
	}
	return out
}

// Regions returns the configured regions.
func (c *TokenCache) Regions() []string {
	return append([]string(nil), c.regions...)
}

var _ domain.TokenProvider = (*TokenCache)(nil)
