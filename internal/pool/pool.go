package pool

import (
	"context"

	"github.com/sourcegraph/conc"

	"ozzus/sitecheck/internal/domain"
	"ozzus/sitecheck/internal/queue"
)

// JobFunc turns a claimed job into its final outcome.
type JobFunc func(ctx context.Context, job domain.CheckJob) domain.CheckOutcome

// Sink receives outcomes. It is called from every worker concurrently.
type Sink func(outcome domain.CheckOutcome)

// Run starts workers that drain q and returns once all of them have exited.
// A non-positive worker count is clamped to one. A panic in any worker is
// re-raised here after the remaining workers finish.
func Run(ctx context.Context, q *queue.Queue, workers int, fn JobFunc, sink Sink) {
	if workers < 1 {
		workers = 1
	}

	var wg conc.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Go(func() {
			for {
				job, ok := q.Claim()
				if !ok {
					return
				}
				sink(fn(ctx, job))
			}
		})
	}
	wg.Wait()
}
