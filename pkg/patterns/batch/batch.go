package batch

import (
	"context"
	"sync"
)

// BatchItem is the outcome for one request. Index matches the request's
// position in the input slice.
type BatchItem[TRequest, TResult any] struct {
	Index   int
	Request TRequest
	Result  TResult
	Error   error
}

// BatchResult holds one item per request, in input order.
type BatchResult[TRequest, TResult any] struct {
	Items []BatchItem[TRequest, TResult]
}

// Failed returns the items that carry an error.
func (r *BatchResult[TRequest, TResult]) Failed() []BatchItem[TRequest, TResult] {
	var failed []BatchItem[TRequest, TResult]
	for _, item := range r.Items {
		if item.Error != nil {
			failed = append(failed, item)
		}
	}
	return failed
}

// BatchProcessor runs independent requests concurrently. A failing request
// never cancels its siblings. MaxConcurrency <= 0 runs every request at once.
// Validate is optional.
type BatchProcessor[TRequest, TResult any] struct {
	MaxConcurrency int
	Validate       func(TRequest) error
	Process        func(context.Context, TRequest) (TResult, error)
}

// ProcessBatch blocks until every request has finished.
func (bp *BatchProcessor[TRequest, TResult]) ProcessBatch(ctx context.Context, requests []TRequest) *BatchResult[TRequest, TResult] {
	items := make([]BatchItem[TRequest, TResult], len(requests))

	limit := bp.MaxConcurrency
	if limit <= 0 || limit > len(requests) {
		limit = len(requests)
	}
	semaphore := make(chan struct{}, max(limit, 1))

	var wg sync.WaitGroup
	for i, req := range requests {
		items[i] = BatchItem[TRequest, TResult]{Index: i, Request: req}

		wg.Add(1)
		go func(item *BatchItem[TRequest, TResult]) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if bp.Validate != nil {
				if err := bp.Validate(item.Request); err != nil {
					item.Error = err
					return
				}
			}
			item.Result, item.Error = bp.Process(ctx, item.Request)
		}(&items[i])
	}

	wg.Wait()
	return &BatchResult[TRequest, TResult]{Items: items}
}
