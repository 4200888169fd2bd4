package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ozzus/sitecheck/internal/domain"
	"ozzus/sitecheck/internal/report"
	"ozzus/sitecheck/internal/service"
)

// MonitorState is what the controller reads from the monitor.
type MonitorState interface {
	Status() service.StatusSnapshot
	Ready() bool
}

type HealthController struct {
	monitor MonitorState
}

func NewHealthController(monitor MonitorState) *HealthController {
	return &HealthController{monitor: monitor}
}

// Health answers as long as the process is serving.
func (h *HealthController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"runId":     h.monitor.Status().RunID,
		"timestamp": time.Now(),
	})
}

// Ready turns 200 once the first round has finished.
func (h *HealthController) Ready(c *gin.Context) {
	if !h.monitor.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "not_ready",
			"message":   "first round has not finished yet",
			"timestamp": time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}

type roundView struct {
	Round   int            `json:"round"`
	Summary domain.Summary `json:"summary"`
	Results []report.Entry `json:"results"`
}

type statusView struct {
	RunID       string     `json:"runId"`
	StartedAt   time.Time  `json:"startedAt"`
	Periodic    bool       `json:"periodic"`
	Period      string     `json:"period,omitempty"`
	Workers     int        `json:"workers"`
	URLs        int        `json:"urls"`
	Round       int        `json:"round"`
	Running     bool       `json:"running"`
	NextRoundAt *time.Time `json:"nextRoundAt,omitempty"`
	LastRound   *roundView `json:"lastRound,omitempty"`
}

// Status returns the monitor state with the last round encoded like the report file.
func (h *HealthController) Status(c *gin.Context) {
	s := h.monitor.Status()

	view := statusView{
		RunID:       s.RunID,
		StartedAt:   s.StartedAt,
		Periodic:    s.Periodic,
		Period:      s.Period,
		Workers:     s.Workers,
		URLs:        s.URLs,
		Round:       s.Round,
		Running:     s.Running,
		NextRoundAt: s.NextRoundAt,
	}
	if s.LastRound != nil {
		view.LastRound = &roundView{
			Round:   s.LastRound.Round,
			Summary: s.LastRound.Summary,
			Results: report.Entries(s.LastRound.Outcomes),
		}
	}

	c.JSON(http.StatusOK, view)
}
