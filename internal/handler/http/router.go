package httphandler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/webitel/im-relay-service/internal/domain/registry"
)

type StatusHandler struct {
	logger *slog.Logger
	hub    registry.Hubber
}

func NewStatusHandler(logger *slog.Logger, hub registry.Hubber) *StatusHandler {
	return &StatusHandler{logger: logger, hub: hub}
}

type healthResponse struct {
	Status         string  `json:"status"`
	ConnectedUsers int     `json:"connectedUsers"`
	QueuedMessages int     `json:"queuedMessages"`
	Uptime         float64 `json:"uptime"`
}

// Health reports liveness plus the two headline counters. Uptime is in seconds.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	st, err := h.hub.Stats()
	if err != nil {
		h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		ConnectedUsers: st.ConnectedUsers,
		QueuedMessages: st.QueuedMessages,
		Uptime:         st.Uptime.Seconds(),
	})
}

// Stats returns the full hub snapshot.
func (h *StatusHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.hub.Stats()
	if err != nil {
		http.Error(w, "relay unavailable", http.StatusServiceUnavailable)
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

func (h *StatusHandler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("http response write failed", "error", err)
	}
}

// RouterParams are the endpoints mounted on the public listener.
type RouterParams struct {
	WS      http.Handler
	Status  *StatusHandler
	Metrics http.Handler
}

func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// The WebSocket endpoint is served without a timeout middleware; sessions are long-lived.
	r.Handle("/ws", p.WS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NoCache)
		r.Get("/health", p.Status.Health)
		r.Get("/stats", p.Status.Stats)
	})
	if p.Metrics != nil {
		r.Handle("/metrics", p.Metrics)
	}
	return r
}
