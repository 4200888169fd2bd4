package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ozzus/sitecheck/internal/aggregator"
	"ozzus/sitecheck/internal/domain"
	"ozzus/sitecheck/internal/lib/logger/sl"
	"ozzus/sitecheck/internal/pool"
	"ozzus/sitecheck/internal/queue"
	"ozzus/sitecheck/internal/repository"
	"ozzus/sitecheck/internal/retry"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	Workers    int
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	// Period of zero runs a single round.
	Period    time.Duration
	Assertion *domain.HeaderAssertion
}

func (c Config) periodic() bool {
	return c.Period > 0
}

// ReportWriter persists the ordered outcomes of a round.
type ReportWriter interface {
	Write(round int, periodic bool, outcomes []domain.CheckOutcome) (string, error)
}

// RoundListener follows a run as it happens.
type RoundListener interface {
	OutcomeReady(runID string, round int, outcome domain.CheckOutcome)
	RoundFinished(report domain.RoundReport)
}

// URLSource supplies the URL list for the next round. Changed reports
// whether the list must be reloaded before the round starts.
type URLSource interface {
	Changed() bool
	Load() ([]string, error)
}

// Runner is a background component that lives as long as the monitor.
type Runner interface {
	Run(ctx context.Context) error
}

type Monitor struct {
	cfg       Config
	checker   retry.Attempter
	printer   *aggregator.Printer
	reports   ReportWriter
	publisher repository.OutcomePublisher
	listeners []RoundListener
	source    URLSource
	runners   []Runner
	server    *http.Server
	log       *slog.Logger
	runID     string
	startedAt time.Time

	mu    sync.RWMutex
	urls  []string
	state state
}

type state struct {
	round       int
	running     bool
	lastReport  *domain.RoundReport
	nextRoundAt time.Time
}

type Option func(*Monitor)

func WithReportWriter(w ReportWriter) Option {
	return func(m *Monitor) { m.reports = w }
}

func WithPublisher(p repository.OutcomePublisher) Option {
	return func(m *Monitor) { m.publisher = p }
}

func WithListener(l RoundListener) Option {
	return func(m *Monitor) { m.listeners = append(m.listeners, l) }
}

// WithURLSource enables reloading the URL list between rounds.
func WithURLSource(s URLSource) Option {
	return func(m *Monitor) { m.source = s }
}

// WithRunner starts r alongside the round loop and stops it with the monitor.
func WithRunner(r Runner) Option {
	return func(m *Monitor) { m.runners = append(m.runners, r) }
}

// WithStatusServer serves srv while the monitor runs and shuts it down after.
func WithStatusServer(srv *http.Server) Option {
	return func(m *Monitor) { m.server = srv }
}

func WithLogger(log *slog.Logger) Option {
	return func(m *Monitor) { m.log = log }
}

func WithRunID(id string) Option {
	return func(m *Monitor) { m.runID = id }
}

func NewMonitor(cfg Config, checker retry.Attempter, printer *aggregator.Printer, urls []string, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:       cfg,
		checker:   checker,
		printer:   printer,
		publisher: repository.NoopPublisher{},
		log:       slog.Default(),
		startedAt: time.Now(),
		urls:      urls,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(slog.String("run_id", m.runID))
	return m
}

func (m *Monitor) RunID() string {
	return m.runID
}

// Run executes rounds until the single round is done, or in periodic mode
// until ctx is canceled. The status server and runners stop with it.
func (m *Monitor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if m.server != nil {
		srv := m.server
		g.Go(func() error {
			m.log.Info("starting status server", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				m.log.Error("status server shutdown failed", sl.Err(err))
			}
			return nil
		})
	}

	for _, r := range m.runners {
		g.Go(func() error {
			return r.Run(gctx)
		})
	}

	g.Go(func() error {
		defer cancel()
		return m.loop(gctx)
	})

	return g.Wait()
}

func (m *Monitor) loop(ctx context.Context) error {
	periodic := m.cfg.periodic()

	for round := 1; ; round++ {
		if periodic {
			m.printer.Printf("--- Starting Round %d ---", round)
		}

		urls := m.roundURLs()
		if len(urls) == 0 {
			if !periodic {
				return nil
			}
			m.printer.Printf("No URLs to check in this round.")
		} else {
			m.RunRound(ctx, round, urls)
		}

		if !periodic || ctx.Err() != nil {
			return nil
		}

		m.printer.Printf("Waiting for %d seconds before next round...\n", int(m.cfg.Period/time.Second))
		if !m.wait(ctx) {
			m.log.Info("monitor stopped", slog.Int("rounds", round))
			return nil
		}
	}
}

func (m *Monitor) wait(ctx context.Context) bool {
	m.mu.Lock()
	m.state.nextRoundAt = time.Now().Add(m.cfg.Period)
	m.mu.Unlock()

	timer := time.NewTimer(m.cfg.Period)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// roundURLs reloads the list when the source changed. A failed reload
// keeps the previous list.
func (m *Monitor) roundURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.source != nil && m.source.Changed() {
		urls, err := m.source.Load()
		if err != nil {
			m.log.Warn("failed to reload url list, keeping previous", sl.Err(err))
		} else {
			m.log.Info("url list reloaded", slog.Int("urls", len(urls)))
			m.urls = urls
		}
	}

	return m.urls
}

// RunRound checks urls once and returns the ordered report. Every job
// yields an outcome even if ctx is canceled mid-round.
func (m *Monitor) RunRound(ctx context.Context, round int, urls []string) domain.RoundReport {
	q := queue.EnqueueAll(urls)

	m.mu.Lock()
	m.state.round = round
	m.state.running = true
	m.state.nextRoundAt = time.Time{}
	m.mu.Unlock()

	log := m.log.With(slog.Int("round", round))
	log.Info("round started", slog.Int("urls", q.Len()), slog.Int("workers", m.cfg.Workers))
	started := time.Now()

	m.printer.Header()

	agg := aggregator.New(q.Len(), m.printer, func(o domain.CheckOutcome) {
		for _, l := range m.listeners {
			l.OutcomeReady(m.runID, round, o)
		}
	})

	policy := retry.Policy{
		MaxAdditionalAttempts: m.cfg.Retries,
		Delay:                 m.cfg.RetryDelay,
		Logger:                log,
	}
	pool.Run(ctx, q, m.cfg.Workers, func(ctx context.Context, job domain.CheckJob) domain.CheckOutcome {
		return policy.Execute(ctx, job, m.checker, m.cfg.Timeout, m.cfg.Assertion)
	}, agg.OnOutcome)

	outcomes, summary := agg.Finalize()
	rr := domain.RoundReport{RunID: m.runID, Round: round, Outcomes: outcomes, Summary: summary}

	m.writeReport(log, rr)
	m.printer.Summary(summary)
	m.publish(ctx, log, rr)

	for _, l := range m.listeners {
		l.RoundFinished(rr)
	}

	m.mu.Lock()
	m.state.running = false
	m.state.lastReport = &rr
	m.mu.Unlock()

	log.Info("round finished",
		slog.Int("success", summary.SuccessCount),
		slog.Int("failed", summary.FailureCount),
		slog.Duration("took", time.Since(started)),
	)

	return rr
}

func (m *Monitor) writeReport(log *slog.Logger, rr domain.RoundReport) {
	if m.reports == nil || len(rr.Outcomes) == 0 {
		return
	}

	path, err := m.reports.Write(rr.Round, m.cfg.periodic(), rr.Outcomes)
	if err != nil {
		log.Error("failed to write report", sl.Err(err))
		return
	}
	m.printer.Printf("\nResults for this round written to %s", path)
}

func (m *Monitor) publish(ctx context.Context, log *slog.Logger, rr domain.RoundReport) {
	// the round is already complete, so publish even when ctx is canceled
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := m.publisher.PublishRound(pubCtx, rr); err != nil {
		log.Error("failed to publish round", sl.Err(err))
	}
}
