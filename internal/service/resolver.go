package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spounge-ai/ffproxy/internal/domain"
	app_errors "github.com/spounge-ai/ffproxy/internal/errors"
)

// ResolverConfig is the static part of the region search.
type ResolverConfig struct {
	DefaultRegion string
	Supported     []string
	Fallback      []string
	Auxiliary     string
	Endpoint      string
}

// Resolver finds the region owning a player account by probing candidate
// regions one at a time.
type Resolver struct {
	querier domain.AccountQuerier
	cfg     ResolverConfig
	logger  *slog.Logger
}

func NewResolver(querier domain.AccountQuerier, cfg ResolverConfig, logger *slog.Logger) *Resolver {
	cfg.DefaultRegion = domain.NormalizeRegion(cfg.DefaultRegion)
	return &Resolver{querier: querier, cfg: cfg, logger: logger}
}

// DefaultRegion is the region tried first when the caller does not pin one.
func (r *Resolver) DefaultRegion() string {
	return r.cfg.DefaultRegion
}

// Resolve looks up identifier. An empty region means the caller did not pin
// one: the default region is tried first and the fallback list after it. A
// pinned region is tried exactly once.
func (r *Resolver) Resolve(ctx context.Context, identifier, region string) (*domain.Resolution, error) {
	region = domain.NormalizeRegion(region)
	pinned := region != ""
	if !pinned {
		region = r.cfg.DefaultRegion
	} else if !slices.Contains(r.cfg.Supported, region) {
		return nil, fmt.Errorf("%w: %s", app_errors.ErrUnknownRegion, region)
	}

	candidates := Candidates(region, pinned, r.cfg.Fallback)
	rec, effective, failed := FirstSuccess(ctx, candidates, func(ctx context.Context, candidate string) (*domain.AccountRecord, error) {
		rec, err := r.querier.Query(ctx, domain.QueryRequest{
			Identifier: identifier,
			Auxiliary:  r.cfg.Auxiliary,
			Region:     candidate,
			Endpoint:   r.cfg.Endpoint,
		})
		if err != nil {
			r.logger.InfoContext(ctx, "region attempt failed",
				"uid", truncate(identifier, 5),
				"region", candidate,
				"error", err,
			)
		}
		return rec, err
	})

	if effective != "" {
		r.logger.InfoContext(ctx, "account resolved",
			"uid", truncate(identifier, 5),
			"region", effective,
			"attempts", len(failed)+1,
		)
		return &domain.Resolution{Record: rec, EffectiveRegion: effective, Attempts: len(failed) + 1}, nil
	}

	if n := len(failed); n > 0 && errors.Is(failed[n-1].Err, app_errors.ErrInvalidInput) {
		return nil, failed[n-1].Err
	}

	kind := app_errors.ErrAccountNotFound
	if pinned {
		kind = app_errors.ErrAccountNotFoundInRegion
	}
	return nil, &app_errors.ResolveError{Kind: kind, Region: region, Attempts: failed}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
