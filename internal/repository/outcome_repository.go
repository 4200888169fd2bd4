package repository

import (
	"context"
	"fmt"
	"log/slog"

	"ozzus/sitecheck/internal/domain"
	"ozzus/sitecheck/internal/report"
	"ozzus/sitecheck/internal/repository/kafka"
)

// OutcomePublisher ships finished rounds to an external system.
type OutcomePublisher interface {
	PublishRound(ctx context.Context, r domain.RoundReport) error
	Close() error
}

// OutcomeEvent is the message value for a single check.
type OutcomeEvent struct {
	RunID    string `json:"runId"`
	Round    int    `json:"round"`
	Seq      int    `json:"seq"`
	Attempts int    `json:"attempts"`
	report.Entry
}

// SummaryEvent closes a round on the topic.
type SummaryEvent struct {
	RunID   string         `json:"runId"`
	Round   int            `json:"round"`
	Summary domain.Summary `json:"summary"`
}

type KafkaOutcomePublisher struct {
	producer *kafka.Producer
	log      *slog.Logger
}

func NewKafkaOutcomePublisher(producer *kafka.Producer, log *slog.Logger) OutcomePublisher {
	if log == nil {
		log = slog.Default()
	}
	return &KafkaOutcomePublisher{
		producer: producer,
		log:      log.With(slog.String("component", "repository.kafka"), slog.String("topic", producer.Topic())),
	}
}

// PublishRound sends one message per outcome, keyed runID/round/seq,
// followed by the summary keyed runID/round/summary.
func (p *KafkaOutcomePublisher) PublishRound(ctx context.Context, r domain.RoundReport) error {
	events := make([]kafka.Event, 0, len(r.Outcomes)+1)
	for _, o := range r.Outcomes {
		events = append(events, kafka.Event{
			Key: fmt.Sprintf("%s/%d/%d", r.RunID, r.Round, o.Seq),
			Value: OutcomeEvent{
				RunID:    r.RunID,
				Round:    r.Round,
				Seq:      o.Seq,
				Attempts: o.Attempts,
				Entry:    report.EntryFor(o),
			},
		})
	}
	events = append(events, kafka.Event{
		Key:   fmt.Sprintf("%s/%d/summary", r.RunID, r.Round),
		Value: SummaryEvent{RunID: r.RunID, Round: r.Round, Summary: r.Summary},
	})

	if err := p.producer.PublishBatch(ctx, events...); err != nil {
		return fmt.Errorf("failed to publish round %d: %w", r.Round, err)
	}

	p.log.Debug("round published", slog.Int("round", r.Round), slog.Int("messages", len(events)))
	return nil
}

func (p *KafkaOutcomePublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishRound(context.Context, domain.RoundReport) error { return nil }

func (NoopPublisher) Close() error { return nil }
