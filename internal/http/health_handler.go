package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/mediation-portal/internal/application"
)

// Pinger reports storage reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type sessionCounter interface {
	ListSessions(ctx context.Context) ([]application.Session, error)
}

type HealthHandler struct {
	pinger    Pinger
	sessions  sessionCounter
	started   time.Time
	version   string
	responder responder
	logger    *slog.Logger
}

func NewHealthHandler(pinger Pinger, sessions sessionCounter, version string, logger *slog.Logger) *HealthHandler {
	base := defaultLogger(logger)
	return &HealthHandler{
		pinger:    pinger,
		sessions:  sessions,
		started:   time.Now(),
		version:   version,
		responder: newResponder(base),
		logger:    base,
	}
}

// Healthz answers liveness probes. It fails when storage is unreachable.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			handlerLogger(r.Context(), h.logger, "HealthHandler", "Healthz").ErrorContext(r.Context(), "storage unreachable", "error", err)
			h.responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
}

// Status reports build, uptime, and session-count details for operators.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := statusResponse{
		Status:  "ok",
		Version: h.version,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
	}
	if h.sessions != nil {
		sessions, err := h.sessions.ListSessions(r.Context())
		if err != nil {
			handlerLogger(r.Context(), h.logger, "HealthHandler", "Status").ErrorContext(r.Context(), "session count failed", "error", err)
		} else {
			counts := make(map[string]int, 3)
			for _, session := range sessions {
				counts[string(session.Status)]++
			}
			resp.Sessions = counts
		}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type healthResponse struct {
	Status string `json:"status"`
}

type statusResponse struct {
	Status   string         `json:"status"`
	Version  string         `json:"version,omitempty"`
	Uptime   string         `json:"uptime"`
	Sessions map[string]int `json:"sessions,omitempty"`
}
