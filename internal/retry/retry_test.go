package retry

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ozzus/sitecheck/internal/checks"
	"ozzus/sitecheck/internal/domain"
)

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scripted returns the given statuses in order, repeating the last one.
type scripted struct {
	statuses []domain.Status
	calls    atomic.Int32
	times    []time.Time
}

func (s *scripted) Attempt(_ context.Context, _ string, _ time.Duration, assertion *domain.HeaderAssertion) domain.AttemptResult {
	n := int(s.calls.Add(1)) - 1
	s.times = append(s.times, time.Now())
	status := s.statuses[min(n, len(s.statuses)-1)]
	res := domain.AttemptResult{
		Status:   status,
		Elapsed:  time.Duration(n+1) * time.Millisecond,
		Finished: time.Unix(int64(1000+n), 0),
	}
	if status.OK() && assertion != nil {
		res.Assertion = &domain.AssertionResult{Header: assertion.Name, Expected: assertion.Value, Detail: "mismatch"}
	}
	return res
}

var job = domain.CheckJob{Seq: 7, URL: "https://example.com"}

func TestExecute_StatusIsTerminal(t *testing.T) {
	t.Parallel()

	for _, code := range []int{200, 301, 404, 500, 503} {
		s := &scripted{statuses: []domain.Status{domain.StatusCode(code)}}
		p := Policy{MaxAdditionalAttempts: 5, Delay: time.Millisecond, Logger: noopLogger()}

		o := p.Execute(context.Background(), job, s, time.Second, nil)

		assert.Equal(t, int32(1), s.calls.Load(), "code %d must not be retried", code)
		assert.Equal(t, code, o.Status.Code)
		assert.Equal(t, 1, o.Attempts)
	}
}

func TestExecute_AlwaysFailing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		retries int
	}{
		{name: "no retries", retries: 0},
		{name: "one retry", retries: 1},
		{name: "three retries", retries: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			const delay = 20 * time.Millisecond
			s := &scripted{statuses: []domain.Status{domain.StatusError("connection refused")}}
			p := Policy{MaxAdditionalAttempts: tt.retries, Delay: delay, Logger: noopLogger()}

			o := p.Execute(context.Background(), job, s, time.Second, nil)

			require.Equal(t, int32(tt.retries+1), s.calls.Load())
			assert.Equal(t, tt.retries+1, o.Attempts)
			assert.Equal(t, "connection refused", o.Status.Err)

			for i := 1; i < len(s.times); i++ {
				assert.GreaterOrEqual(t, s.times[i].Sub(s.times[i-1]), delay)
			}
		})
	}
}

func TestExecute_ReturnsFinalAttempt(t *testing.T) {
	t.Parallel()

	s := &scripted{statuses: []domain.Status{
		domain.StatusError("timeout"),
		domain.StatusError("timeout"),
		domain.StatusCode(200),
	}}
	p := Policy{MaxAdditionalAttempts: 4, Delay: time.Millisecond, Logger: noopLogger()}

	o := p.Execute(context.Background(), job, s, time.Second, &domain.HeaderAssertion{Name: "x", Value: "y"})

	assert.Equal(t, int32(3), s.calls.Load())
	assert.Equal(t, 3, o.Attempts)
	assert.Equal(t, 200, o.Status.Code)
	assert.Equal(t, int64(3), o.ResponseMs, "timing comes from the final attempt only")
	assert.Equal(t, int64(1002), o.Timestamp)
	assert.Equal(t, job.Seq, o.Seq)
	assert.Equal(t, job.URL, o.URL)
	require.NotNil(t, o.Assertion)
	assert.True(t, o.AssertionFailed(), "assertion failure rides on the successful attempt")
}

func TestExecute_NegativeRetriesIsOneAttempt(t *testing.T) {
	t.Parallel()

	s := &scripted{statuses: []domain.Status{domain.StatusError("dns")}}
	o := Policy{MaxAdditionalAttempts: -2, Logger: noopLogger()}.Execute(context.Background(), job, s, time.Second, nil)

	assert.Equal(t, int32(1), s.calls.Load())
	assert.Equal(t, 1, o.Attempts)
}

func TestExecute_CanceledDuringDelay(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	attempter := checks.AttemptFunc(func(context.Context, string, time.Duration, *domain.HeaderAssertion) domain.AttemptResult {
		calls.Add(1)
		cancel()
		return domain.AttemptResult{Status: domain.StatusError("refused")}
	})

	start := time.Now()
	o := Policy{MaxAdditionalAttempts: 3, Delay: time.Hour, Logger: noopLogger()}.Execute(ctx, job, attempter, time.Second, nil)

	assert.Less(t, time.Since(start), time.Minute)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, o.Attempts)
	assert.False(t, o.Status.OK())
}
