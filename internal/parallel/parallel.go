// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package parallel provides a bounded, order-preserving map over a slice.
package parallel

import (
	"context"
	"sync"
	"sync/atomic"
)

// MapLimit applies worker to every element of items with at most limit
// calls in flight, and returns results aligned with items: results[i] is
// the output for items[i] regardless of completion order.
//
// Workers claim indexes from a shared cursor, so no element is processed
// twice and none is skipped. A worker error for one element does not stop
// the others; the first error observed is returned alongside the partial
// results. Context cancellation stops workers from claiming new indexes.
func MapLimit[T, R any](ctx context.Context, items []T, limit int, worker func(ctx context.Context, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}
	if limit <= 0 {
		limit = 1
	}
	if limit > len(items) {
		limit = len(items)
	}

	var (
		cursor   int64 = -1
		firstErr error
		errOnce  sync.Once
		wg       sync.WaitGroup
	)

	for w := 0; w < limit; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if ctx.Err() != nil {
					errOnce.Do(func() { firstErr = ctx.Err() })
					return
				}
				i := int(atomic.AddInt64(&cursor, 1))
				if i >= len(items) {
					return
				}
				r, err := worker(ctx, items[i])
				if err != nil {
					errOnce.Do(func() { firstErr = err })
					continue
				}
				results[i] = r
			}
		}()
	}

	wg.Wait()
	return results, firstErr
}
