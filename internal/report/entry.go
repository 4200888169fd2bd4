package report

import (
	"fmt"

	"ozzus/sitecheck/internal/domain"
)

// Entry is one element of the report array. Status is a number when the
// check succeeded and a string otherwise. A failed header assertion is
// written as "<code> <detail>" with the code also kept in HTTPStatus.
type Entry struct {
	URL        string                  `json:"url" yaml:"url"`
	Status     any                     `json:"status" yaml:"status"`
	ResponseMs int64                   `json:"responseTimeMs" yaml:"responseTimeMs"`
	Timestamp  int64                   `json:"timestampEpochS" yaml:"timestampEpochS"`
	HTTPStatus int                     `json:"httpStatus,omitempty" yaml:"httpStatus,omitempty"`
	Assertion  *domain.AssertionResult `json:"assertion,omitempty" yaml:"assertion,omitempty"`
}

func EntryFor(o domain.CheckOutcome) Entry {
	e := Entry{
		URL:        o.URL,
		ResponseMs: o.ResponseMs,
		Timestamp:  o.Timestamp,
		Assertion:  o.Assertion,
	}

	switch {
	case !o.Status.OK():
		e.Status = o.Status.Err
	case o.AssertionFailed():
		e.Status = fmt.Sprintf("%d %s", o.Status.Code, o.Assertion.Detail)
	default:
		e.Status = o.Status.Code
	}

	if o.Status.OK() && o.Assertion != nil {
		e.HTTPStatus = o.Status.Code
	}

	return e
}

// Entries converts outcomes keeping their order.
func Entries(outcomes []domain.CheckOutcome) []Entry {
	entries := make([]Entry, len(outcomes))
	for i, o := range outcomes {
		entries[i] = EntryFor(o)
	}
	return entries
}
