package service

import (
	"time"

	"ozzus/sitecheck/internal/domain"
)

// StatusSnapshot is a point-in-time view of the monitor.
type StatusSnapshot struct {
	RunID       string              `json:"runId"`
	StartedAt   time.Time           `json:"startedAt"`
	Periodic    bool                `json:"periodic"`
	Period      string              `json:"period,omitempty"`
	Workers     int                 `json:"workers"`
	URLs        int                 `json:"urls"`
	Round       int                 `json:"round"`
	Running     bool                `json:"running"`
	NextRoundAt *time.Time          `json:"nextRoundAt,omitempty"`
	LastRound   *domain.RoundReport `json:"lastRound,omitempty"`
}

func (m *Monitor) Status() StatusSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := StatusSnapshot{
		RunID:     m.runID,
		StartedAt: m.startedAt,
		Periodic:  m.cfg.periodic(),
		Workers:   m.cfg.Workers,
		URLs:      len(m.urls),
		Round:     m.state.round,
		Running:   m.state.running,
		LastRound: m.state.lastReport,
	}
	if s.Periodic {
		s.Period = m.cfg.Period.String()
	}
	if !m.state.nextRoundAt.IsZero() {
		next := m.state.nextRoundAt
		s.NextRoundAt = &next
	}
	return s
}

// Ready reports whether at least one round has finished.
func (m *Monitor) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.lastReport != nil
}
