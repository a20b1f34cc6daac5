package build

import (
	"context"
	"sync"
)

type indexedResult[R any] struct {
	Value R
	Err   error
}

// runPooled runs fn over items with bounded concurrency and joins every
// worker before returning. Results keep input order so callers can match
// failures back to their item regardless of scheduling. Once ctx is
// cancelled no further fn calls are dispatched; undispatched items carry
// ctx.Err() as their result.
func runPooled[T any, R any](ctx context.Context, items []T, concurrency int, fn func(T) (R, error)) []indexedResult[R] {
	if len(items) == 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(items) {
		concurrency = len(items)
	}

	sem := make(chan struct{}, concurrency)
	results := make([]indexedResult[R], len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				results[i] = indexedResult[R]{Err: err}
				return
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = indexedResult[R]{Err: ctx.Err()}
				return
			}
			defer func() { <-sem }()
			if err := ctx.Err(); err != nil {
				results[i] = indexedResult[R]{Err: err}
				return
			}
			v, err := fn(item)
			results[i] = indexedResult[R]{Value: v, Err: err}
		}(i, item)
	}
	wg.Wait()
	return results
}
