// Package queue holds the jobs of one round. Workers claim jobs concurrently
// through an atomic cursor over an immutable slice.
package queue

import (
	"sync/atomic"

	"ozzus/sitecheck/internal/domain"
)

type Queue struct {
	jobs   []domain.CheckJob
	cursor atomic.Int64
}

// EnqueueAll builds a queue with sequence indexes assigned in input order.
func EnqueueAll(urls []string) *Queue {
	jobs := make([]domain.CheckJob, len(urls))
	for i, u := range urls {
		jobs[i] = domain.CheckJob{Seq: i, URL: u}
	}
	return &Queue{jobs: jobs}
}

// Claim hands out the next unclaimed job. Once the queue is exhausted it
// returns false to every caller without blocking.
func (q *Queue) Claim() (domain.CheckJob, bool) {
	idx := q.cursor.Add(1) - 1
	if idx >= int64(len(q.jobs)) {
		return domain.CheckJob{}, false
	}
	return q.jobs[idx], true
}

// Len is the total number of jobs, claimed or not.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Remaining is the number of jobs not yet claimed.
func (q *Queue) Remaining() int {
	claimed := q.cursor.Load()
	if claimed >= int64(len(q.jobs)) {
		return 0
	}
	return len(q.jobs) - int(claimed)
}
