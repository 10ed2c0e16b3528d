// Package batch provides a bounded concurrent executor for independent
// write batches. Failures are partial-tolerant: every item's outcome is
// collected and reported instead of aborting the batch.
package batch

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// DefaultWorkers bounds concurrency when none is configured.
const DefaultWorkers = 8

// Result is the outcome of one item in a batch, addressed by its input index.
type Result struct {
	Index int
	Err   error
}

// Runner executes batches with bounded concurrency.
type Runner struct {
	workers int
	logger  *zap.Logger

	submitted int64
	succeeded int64
	failed    int64
}

// New creates a runner with the given worker bound.
func New(workers int, logger *zap.Logger) *Runner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{workers: workers, logger: logger}
}

// Run executes fn for each index in [0, n) with at most the configured
// number of concurrent workers. The returned slice has one Result per item,
// ordered by index. A cancelled context fails remaining items with ctx.Err()
// but never discards outcomes already produced.
func (r *Runner) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) []Result {
	results := make([]Result, n)
	if n == 0 {
		return results
	}

	indexes := make(chan int)
	var wg sync.WaitGroup

	workers := r.workers
	if workers > n {
		workers = n
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				atomic.AddInt64(&r.submitted, 1)

				var err error
				if ctx.Err() != nil {
					err = ctx.Err()
				} else {
					err = fn(ctx, i)
				}

				results[i] = Result{Index: i, Err: err}
				if err != nil {
					atomic.AddInt64(&r.failed, 1)
					r.logger.Debug("batch item failed",
						zap.Int("index", i),
						zap.Error(err))
				} else {
					atomic.AddInt64(&r.succeeded, 1)
				}
			}
		}()
	}

	for i := 0; i < n; i++ {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return results
}

// Stats reports cumulative counters across batches.
type Stats struct {
	Submitted int64
	Succeeded int64
	Failed    int64
}

// Stats returns the runner's cumulative counters.
func (r *Runner) Stats() Stats {
	return Stats{
		Submitted: atomic.LoadInt64(&r.submitted),
		Succeeded: atomic.LoadInt64(&r.succeeded),
		Failed:    atomic.LoadInt64(&r.failed),
	}
}
