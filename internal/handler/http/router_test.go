package httphandler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/im-relay-service/internal/domain/model"
	"github.com/webitel/im-relay-service/internal/domain/registry"
)

func newRouter(t *testing.T) (http.Handler, *registry.Hub) {
	t.Helper()
	hub := registry.NewHub()
	t.Cleanup(hub.Shutdown)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(RouterParams{
		WS:     http.NotFoundHandler(),
		Status: NewStatusHandler(logger, hub),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "ok")
		}),
	}), hub
}

func TestHealthReportsCounters(t *testing.T) {
	h, hub := newRouter(t)

	_, err := hub.Send(model.DirectMessage{ID: "m1", From: "alice", To: "bob", Encrypted: "ct"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 0, body.ConnectedUsers)
	assert.Equal(t, 1, body.QueuedMessages)
	assert.GreaterOrEqual(t, body.Uptime, 0.0)
}

func TestHealthUnavailableAfterShutdown(t *testing.T) {
	h, hub := newRouter(t)
	hub.Shutdown()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatsReturnsSnapshot(t *testing.T) {
	h, hub := newRouter(t)
	require.NoError(t, hub.CreateGroup("g", []string{"a", "b"}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var st model.HubStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, 1, st.Groups)
}

func TestMetricsMounted(t *testing.T) {
	h, _ := newRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
