// Package aggregator collects the outcomes of one round. Workers hand
// outcomes over a buffered channel to a single consumer goroutine that prints
// the live line and stores the outcome, so no lock is held while printing.
package aggregator

import (
	"fmt"
	"sort"

	"ozzus/sitecheck/internal/domain"
)

// Observer is notified of every stored outcome from the consumer goroutine.
type Observer func(outcome domain.CheckOutcome)

type Aggregator struct {
	expected  int
	printer   *Printer
	observers []Observer

	in   chan domain.CheckOutcome
	done chan struct{}

	// owned by the consumer goroutine until done is closed
	stored map[int]domain.CheckOutcome
	dupes  []int
}

// New starts an aggregator for a round of expected jobs. printer may be nil.
func New(expected int, printer *Printer, observers ...Observer) *Aggregator {
	a := &Aggregator{
		expected:  expected,
		printer:   printer,
		observers: observers,
		in:        make(chan domain.CheckOutcome, max(expected, 1)),
		done:      make(chan struct{}),
		stored:    make(map[int]domain.CheckOutcome, expected),
	}
	go a.consume()
	return a
}

// OnOutcome is safe for concurrent use. Calling it after Finalize panics.
func (a *Aggregator) OnOutcome(outcome domain.CheckOutcome) {
	a.in <- outcome
}

// Finalize waits for every submitted outcome to be processed and returns
// them ordered by sequence index together with the round summary. It must be
// called once, after all producers have stopped. Duplicate or missing
// sequence indexes mean the queue or pool broke its contract and panic.
func (a *Aggregator) Finalize() ([]domain.CheckOutcome, domain.Summary) {
	close(a.in)
	<-a.done

	if len(a.dupes) > 0 {
		panic(fmt.Sprintf("aggregator: duplicate outcome for sequence index %d", a.dupes[0]))
	}

	outcomes := make([]domain.CheckOutcome, 0, len(a.stored))
	for _, o := range a.stored {
		outcomes = append(outcomes, o)
	}
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].Seq < outcomes[j].Seq
	})

	if len(outcomes) != a.expected {
		panic(fmt.Sprintf("aggregator: got %d outcomes, expected %d", len(outcomes), a.expected))
	}
	for i, o := range outcomes {
		if o.Seq != i {
			panic(fmt.Sprintf("aggregator: sequence index %d missing", i))
		}
	}

	return outcomes, domain.Summarize(outcomes)
}

func (a *Aggregator) consume() {
	defer close(a.done)

	for outcome := range a.in {
		if _, dup := a.stored[outcome.Seq]; dup {
			a.dupes = append(a.dupes, outcome.Seq)
			continue
		}
		a.stored[outcome.Seq] = outcome

		if a.printer != nil {
			a.printer.Row(outcome)
		}
		for _, observe := range a.observers {
			observe(outcome)
		}
	}
}
