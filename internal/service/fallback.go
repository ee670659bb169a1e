package service

import (
	"context"
	"errors"

	"github.com/spounge-ai/ffproxy/internal/domain"
	app_errors "github.com/spounge-ai/ffproxy/internal/errors"
)

// Candidates returns the regions to try, in order. A pinned region is tried
// alone; otherwise the preferred region comes first, followed by the fallback
// list with duplicates and the preferred region removed.
func Candidates(preferred string, pinned bool, fallback []string) []string {
	preferred = domain.NormalizeRegion(preferred)
	if pinned {
		return []string{preferred}
	}

	out := make([]string, 0, len(fallback)+1)
	seen := make(map[string]struct{}, len(fallback)+1)
	out = append(out, preferred)
	seen[preferred] = struct{}{}
	for _, r := range fallback {
		r = domain.NormalizeRegion(r)
		if _, dup := seen[r]; dup || r == "" {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// AttemptFunc queries a single region.
type AttemptFunc[T any] func(ctx context.Context, region string) (T, error)

// FirstSuccess tries candidates strictly in order and stops at the first
// success. It returns the result, the region that produced it and every failed
// attempt. Invalid input stops the walk since no region can accept it.
func FirstSuccess[T any](ctx context.Context, candidates []string, attempt AttemptFunc[T]) (T, string, []app_errors.Attempt) {
	var zero T
	var failed []app_errors.Attempt

	for _, region := range candidates {
		if err := ctx.Err(); err != nil {
			failed = append(failed, app_errors.Attempt{Region: region, Err: err})
			break
		}

		result, err := attempt(ctx, region)
		if err == nil {
			return result, region, failed
		}
		failed = append(failed, app_errors.Attempt{Region: region, Err: err})
		if errors.Is(err, app_errors.ErrInvalidInput) {
			break
		}
	}
	return zero, "", failed
}
