package platform

import (
	"context"
	"sync"
	"time"
)

// BatchResult carries the outcome of one item processed by BatchProcess.
type BatchResult struct {
	Index int
	Err   error
}

// BatchProcess runs the worker over items with at most batchSize concurrent
// calls, sleeping delay between batches. A failing item never aborts its
// batch; every item's outcome is reported. Cancellation is cooperative and
// checked between batches, so a dispatched batch always finishes.
func BatchProcess[T any](ctx context.Context, items []T, batchSize int, delay time.Duration, worker func(context.Context, T) error) []BatchResult {
	if batchSize <= 0 {
		batchSize = 1
	}

	results := make([]BatchResult, len(items))

	for start := 0; start < len(items); start += batchSize {
		if err := ctx.Err(); err != nil {
			for i := start; i < len(items); i++ {
				results[i] = BatchResult{Index: i, Err: err}
			}
			return results
		}

		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				results[idx] = BatchResult{Index: idx, Err: worker(ctx, items[idx])}
			}(i)
		}
		wg.Wait()

		if end < len(items) && delay > 0 {
			if err := sleepContext(ctx, delay); err != nil {
				for i := end; i < len(items); i++ {
					results[i] = BatchResult{Index: i, Err: err}
				}
				return results
			}
		}
	}

	return results
}
