package domain

// Summary holds per-round statistics. Timing fields cover only outcomes
// with a numeric status.
type Summary struct {
	TotalAttempted     int     `json:"totalAttempted"`
	SuccessCount       int     `json:"successCount"`
	FailureCount       int     `json:"failureCount"`
	AssertionFailures  int     `json:"assertionFailures"`
	MinResponseTimeMs  int64   `json:"minResponseTimeMs"`
	MaxResponseTimeMs  int64   `json:"maxResponseTimeMs"`
	MeanResponseTimeMs float64 `json:"meanResponseTimeMs"`
}

// Summarize computes a Summary over outcomes.
func Summarize(outcomes []CheckOutcome) Summary {
	var (
		s     Summary
		total int64
	)
	s.TotalAttempted = len(outcomes)
	for _, o := range outcomes {
		if !o.Status.OK() {
			s.FailureCount++
			continue
		}
		ms := o.ResponseMs
		if s.SuccessCount == 0 || ms < s.MinResponseTimeMs {
			s.MinResponseTimeMs = ms
		}
		if s.SuccessCount == 0 || ms > s.MaxResponseTimeMs {
			s.MaxResponseTimeMs = ms
		}
		s.SuccessCount++
		total += ms
		if o.AssertionFailed() {
			s.AssertionFailures++
		}
	}
	if s.SuccessCount > 0 {
		s.MeanResponseTimeMs = float64(total) / float64(s.SuccessCount)
	}
	return s
}

// RoundReport is the finalized, ordered result of one round.
type RoundReport struct {
	RunID    string         `json:"runId"`
	Round    int            `json:"round"`
	Outcomes []CheckOutcome `json:"outcomes"`
	Summary  Summary        `json:"summary"`
}
