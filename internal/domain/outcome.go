package domain

import (
	"strconv"
	"time"
)

// Status is either an HTTP status code or a transport error message.
// Exactly one of Code and Err is set.
type Status struct {
	Code int    `json:"code,omitempty"`
	Err  string `json:"error,omitempty"`
}

func StatusCode(code int) Status {
	return Status{Code: code}
}

func StatusError(msg string) Status {
	if msg == "" {
		msg = "unknown error"
	}
	return Status{Err: msg}
}

// OK reports whether an HTTP response was obtained.
func (s Status) OK() bool {
	return s.Err == ""
}

func (s Status) String() string {
	if s.OK() {
		return strconv.Itoa(s.Code)
	}
	return s.Err
}

// AssertionResult is present on an outcome only when a header assertion was configured.
type AssertionResult struct {
	Header   string `json:"header" yaml:"header"`
	Expected string `json:"expected" yaml:"expected"`
	Actual   string `json:"actual,omitempty" yaml:"actual,omitempty"`
	Found    bool   `json:"found" yaml:"found"`
	Passed   bool   `json:"passed" yaml:"passed"`
	Detail   string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// AttemptResult is what a single request try produces.
type AttemptResult struct {
	Status    Status
	Elapsed   time.Duration
	Finished  time.Time
	Assertion *AssertionResult
}

// CheckOutcome is the terminal result of a job after all retries.
type CheckOutcome struct {
	Seq          int              `json:"seq"`
	URL          string           `json:"url"`
	Status       Status           `json:"status"`
	ResponseTime time.Duration    `json:"-"`
	ResponseMs   int64            `json:"responseTimeMs"`
	Timestamp    int64            `json:"timestampEpochS"`
	Attempts     int              `json:"attempts"`
	Assertion    *AssertionResult `json:"assertion,omitempty"`
}

// NewOutcome builds the outcome for job from the final attempt.
func NewOutcome(job CheckJob, final AttemptResult, attempts int) CheckOutcome {
	elapsed := final.Elapsed
	if elapsed < 0 {
		elapsed = 0
	}
	finished := final.Finished
	if finished.IsZero() {
		finished = time.Now()
	}
	return CheckOutcome{
		Seq:          job.Seq,
		URL:          job.URL,
		Status:       final.Status,
		ResponseTime: elapsed,
		ResponseMs:   elapsed.Milliseconds(),
		Timestamp:    finished.Unix(),
		Attempts:     attempts,
		Assertion:    final.Assertion,
	}
}

// AssertionFailed reports a successful fetch whose header assertion did not pass.
func (o CheckOutcome) AssertionFailed() bool {
	return o.Status.OK() && o.Assertion != nil && !o.Assertion.Passed
}
