package retry

import (
	"context"
	"log/slog"
	"time"

	"ozzus/sitecheck/internal/domain"
)

const DefaultDelay = 100 * time.Millisecond

// Attempter performs a single request try. It is satisfied by *checks.HTTPChecker.
type Attempter interface {
	Attempt(ctx context.Context, target string, timeout time.Duration, assertion *domain.HeaderAssertion) domain.AttemptResult
}

// Policy retries attempts that produced no HTTP response.
type Policy struct {
	MaxAdditionalAttempts int
	Delay                 time.Duration
	Logger                *slog.Logger
}

// Execute runs up to 1+MaxAdditionalAttempts attempts for job and returns the
// outcome of the last one made. Any HTTP status, 4xx and 5xx included, ends
// the loop; header assertions are never retried on their own.
func (p Policy) Execute(ctx context.Context, job domain.CheckJob, attempter Attempter, timeout time.Duration, assertion *domain.HeaderAssertion) domain.CheckOutcome {
	attempts := 1 + max(p.MaxAdditionalAttempts, 0)

	var (
		last domain.AttemptResult
		made int
	)
	for made < attempts {
		last = attempter.Attempt(ctx, job.URL, timeout, assertion)
		made++

		if last.Status.OK() || made == attempts {
			break
		}

		p.logger().Debug("attempt failed, retrying",
			"url", job.URL,
			"attempt", made,
			"of", attempts,
			"error", last.Status.Err,
		)

		if !sleep(ctx, p.Delay) {
			break
		}
	}

	return domain.NewOutcome(job, last, made)
}

func (p Policy) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
