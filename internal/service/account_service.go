package service

import (
	"context"
	"strings"
	"time"

	"github.com/spounge-ai/ffproxy/internal/domain"
	"github.com/spounge-ai/ffproxy/pkg/cache"
)

// AccountService is what the route layer and the CLI call.
type AccountService interface {
	// Lookup resolves an account. An empty region lets the resolver fall back
	// across regions; a non-empty one pins the lookup to that region.
	Lookup(ctx context.Context, identifier, region string) (*domain.Resolution, error)
	RefreshTokens(ctx context.Context) []domain.RefreshOutcome
	TokenStatus() []domain.TokenStatus
	DefaultRegion() string
}

// TokenAdmin is the administrative side of the token cache.
type TokenAdmin interface {
	RefreshAll(ctx context.Context) []domain.RefreshOutcome
	Status() []domain.TokenStatus
}

// LookupKey identifies a cached resolution. An empty Region marks an
// unpinned lookup.
type LookupKey struct {
	Identifier string
	Region     string
}

type accountService struct {
	resolver *Resolver
	tokens   TokenAdmin
	cache    cache.Store[LookupKey, *domain.Resolution]
}

// NewAccountService wires the resolver and token cache. A nil store disables
// response caching.
func NewAccountService(resolver *Resolver, tokens TokenAdmin, store cache.Store[LookupKey, *domain.Resolution]) AccountService {
	return &accountService{resolver: resolver, tokens: tokens, cache: store}
}

// NewResponseCache builds a bounded response store for NewAccountService.
func NewResponseCache(ttl time.Duration, maxEntries int) *cache.Cache[LookupKey, *domain.Resolution] {
	return cache.New(
		cache.WithDefaultTTL[LookupKey, *domain.Resolution](ttl),
		cache.WithMaxEntries[LookupKey, *domain.Resolution](maxEntries),
		cache.WithCleanupInterval[LookupKey, *domain.Resolution](ttl),
	)
}

func (s *accountService) Lookup(ctx context.Context, identifier, region string) (*domain.Resolution, error) {
	key := LookupKey{Identifier: strings.TrimSpace(identifier), Region: domain.NormalizeRegion(region)}

	if s.cache != nil {
		if res, ok := s.cache.Get(ctx, key); ok {
			return res, nil
		}
	}

	res, err := s.resolver.Resolve(ctx, key.Identifier, key.Region)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, res, 0)
	}
	return res, nil
}

func (s *accountService) RefreshTokens(ctx context.Context) []domain.RefreshOutcome {
	return s.tokens.RefreshAll(ctx)
}

func (s *accountService) TokenStatus() []domain.TokenStatus {
	return s.tokens.Status()
}

func (s *accountService) DefaultRegion() string {
	return s.resolver.DefaultRegion()
}
