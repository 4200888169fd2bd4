package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"ozzus/sitecheck/internal/domain"
	"ozzus/sitecheck/internal/lib/logger/sl"
	"ozzus/sitecheck/internal/report"
)

const (
	streamWriteTimeout = 5 * time.Second
	streamBuffer       = 64
)

var streamUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(r.Host), strings.TrimSpace(u.Host))
	},
}

// StreamMessage is sent to websocket clients. Type is "outcome" or "round".
type StreamMessage struct {
	Type    string          `json:"type"`
	RunID   string          `json:"runId"`
	Round   int             `json:"round"`
	Seq     *int            `json:"seq,omitempty"`
	Result  *report.Entry   `json:"result,omitempty"`
	Summary *domain.Summary `json:"summary,omitempty"`
}

type client struct {
	send chan []byte
}

// Hub fans outcomes out to websocket clients. Slow clients drop messages
// instead of stalling the round.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	log     *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		log:     log.With(slog.String("component", "api.stream")),
	}
}

func (h *Hub) OutcomeReady(runID string, round int, o domain.CheckOutcome) {
	seq := o.Seq
	entry := report.EntryFor(o)
	h.broadcast(StreamMessage{Type: "outcome", RunID: runID, Round: round, Seq: &seq, Result: &entry})
}

func (h *Hub) RoundFinished(r domain.RoundReport) {
	summary := r.Summary
	h.broadcast(StreamMessage{Type: "round", RunID: r.RunID, Round: r.Round, Summary: &summary})
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(msg StreamMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to encode stream message", sl.Err(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.log.Warn("stream client is slow, message dropped")
		}
	}
}

func (h *Hub) register() *client {
	c := &client{send: make(chan []byte, streamBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// ServeWS upgrades the request and streams messages until the client leaves.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", sl.Err(err))
		return
	}
	defer conn.Close()

	cl := h.register()
	defer h.unregister(cl)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case payload := <-cl.send:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
