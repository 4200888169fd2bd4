package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ozzus/sitecheck/internal/api/http/middleware"
	"ozzus/sitecheck/internal/domain"
	"ozzus/sitecheck/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeMonitor struct {
	ready    bool
	snapshot service.StatusSnapshot
}

func (f *fakeMonitor) Status() service.StatusSnapshot { return f.snapshot }

func (f *fakeMonitor) Ready() bool { return f.ready }

func sampleRound() *domain.RoundReport {
	outcomes := []domain.CheckOutcome{
		{Seq: 0, URL: "https://a.example", Status: domain.StatusCode(200), ResponseMs: 40, Timestamp: 10},
		{Seq: 1, URL: "https://b.example", Status: domain.StatusError("request canceled"), ResponseMs: 2, Timestamp: 11},
	}
	return &domain.RoundReport{RunID: "run-1", Round: 3, Outcomes: outcomes, Summary: domain.Summarize(outcomes)}
}

func newTestRouter(m *fakeMonitor, hub *Hub) *gin.Engine {
	return NewRouter(NewHealthController(m), hub, noopLogger())
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&fakeMonitor{snapshot: service.StatusSnapshot{RunID: "run-1"}}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "run-1", body["runId"])
}

func TestReady(t *testing.T) {
	tests := []struct {
		name  string
		ready bool
		code  int
		state string
	}{
		{name: "before first round", ready: false, code: http.StatusServiceUnavailable, state: "not_ready"},
		{name: "after first round", ready: true, code: http.StatusOK, state: "ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeMonitor{ready: tt.ready}, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.state)
		})
	}
}

func TestStatus(t *testing.T) {
	m := &fakeMonitor{ready: true, snapshot: service.StatusSnapshot{
		RunID:     "run-1",
		Periodic:  true,
		Period:    "30s",
		Workers:   4,
		URLs:      2,
		Round:     3,
		LastRound: sampleRound(),
	}}
	r := newTestRouter(m, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		RunID     string `json:"runId"`
		Round     int    `json:"round"`
		LastRound struct {
			Round   int            `json:"round"`
			Summary domain.Summary `json:"summary"`
			Results []struct {
				URL    string `json:"url"`
				Status any    `json:"status"`
			} `json:"results"`
		} `json:"lastRound"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, "run-1", body.RunID)
	assert.Equal(t, 3, body.LastRound.Round)
	assert.Equal(t, 1, body.LastRound.Summary.SuccessCount)
	require.Len(t, body.LastRound.Results, 2)
	assert.Equal(t, float64(200), body.LastRound.Results[0].Status)
	assert.Equal(t, "request canceled", body.LastRound.Results[1].Status)
}

func TestStatusWithoutRounds(t *testing.T) {
	r := newTestRouter(&fakeMonitor{}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "lastRound")
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Recovery(noopLogger()), middleware.Logger(noopLogger()))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestStream(t *testing.T) {
	hub := NewHub(noopLogger())
	srv := httptest.NewServer(newTestRouter(&fakeMonitor{}, hub))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	rr := sampleRound()
	hub.OutcomeReady(rr.RunID, rr.Round, rr.Outcomes[1])
	hub.RoundFinished(*rr)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first StreamMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "outcome", first.Type)
	assert.Equal(t, 3, first.Round)
	require.NotNil(t, first.Seq)
	assert.Equal(t, 1, *first.Seq)
	require.NotNil(t, first.Result)
	assert.Equal(t, "request canceled", first.Result.Status)

	var second StreamMessage
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "round", second.Type)
	require.NotNil(t, second.Summary)
	assert.Equal(t, 2, second.Summary.TotalAttempted)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStreamRejectsForeignOrigin(t *testing.T) {
	hub := NewHub(noopLogger())
	srv := httptest.NewServer(newTestRouter(&fakeMonitor{}, hub))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, hub.Clients())
}
