package tui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/im-relay-service/internal/domain/model"
)

func TestFetchStats(t *testing.T) {
	want := model.HubStats{ConnectedUsers: 2, QueuedMessages: 5, Uptime: 90 * time.Second}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stats", r.URL.Path)
		_ = json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	got, err := FetchStats(context.Background(), srv.Client(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFetchStatsRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "relay unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := FetchStats(context.Background(), srv.Client(), srv.URL)
	assert.ErrorContains(t, err, "503")
}

func TestHistoryKeepsNewestSamples(t *testing.T) {
	h := &history{}
	for i := range historyLen + 10 {
		h.push(float64(i))
	}
	require.Len(t, h.values, historyLen)
	assert.Equal(t, 10.0, h.values[0])
	assert.Equal(t, float64(historyLen+9), h.values[historyLen-1])
}

func TestStatsRows(t *testing.T) {
	rows := statsRows(model.HubStats{QueuedMessages: 4, Uptime: 61500 * time.Millisecond})
	assert.Equal(t, []string{"queued messages", "4"}, rows[2])
	assert.Equal(t, []string{"uptime", "1m1s"}, rows[len(rows)-1])
}
