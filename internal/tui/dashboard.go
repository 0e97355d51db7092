// Package tui renders a live terminal view of a running relay's /stats endpoint.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/webitel/im-relay-service/internal/domain/model"
)

const historyLen = 60

// FetchStats reads one snapshot from baseURL/stats.
func FetchStats(ctx context.Context, client *http.Client, baseURL string) (model.HubStats, error) {
	var st model.HubStats

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/stats", nil)
	if err != nil {
		return st, fmt.Errorf("tui: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return st, fmt.Errorf("tui: fetch stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("tui: fetch stats: unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("tui: decode stats: %w", err)
	}
	return st, nil
}

// history keeps the last historyLen samples for a sparkline.
type history struct {
	values []float64
}

func (h *history) push(v float64) {
	h.values = append(h.values, v)
	if len(h.values) > historyLen {
		h.values = h.values[len(h.values)-historyLen:]
	}
}

func statsRows(st model.HubStats) [][]string {
	return [][]string{
		{"metric", "value"},
		{"connected users", fmt.Sprint(st.ConnectedUsers)},
		{"queued messages", fmt.Sprint(st.QueuedMessages)},
		{"queued receivers", fmt.Sprint(st.QueuedReceivers)},
		{"groups", fmt.Sprint(st.Groups)},
		{"dedup entries", fmt.Sprint(st.DedupEntries)},
		{"dedup resets", fmt.Sprint(st.DedupResets)},
		{"known keys", fmt.Sprint(st.KnownKeys)},
		{"uptime", st.Uptime.Truncate(time.Second).String()},
	}
}

// Run draws the dashboard until q or Ctrl-C is pressed or ctx ends.
func Run(ctx context.Context, baseURL string, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	client := &http.Client{Timeout: interval}

	if err := ui.Init(); err != nil {
		return fmt.Errorf("tui: init terminal: %w", err)
	}
	defer ui.Close()

	table := widgets.NewTable()
	table.Title = " relay " + baseURL + " "
	table.TextStyle = ui.NewStyle(ui.ColorWhite)
	table.RowSeparator = false
	table.SetRect(0, 0, 50, 11)

	online, queued := &history{}, &history{}

	onlineLine := widgets.NewSparkline()
	onlineLine.Title = "online"
	onlineLine.LineColor = ui.ColorGreen
	queuedLine := widgets.NewSparkline()
	queuedLine.Title = "queued"
	queuedLine.LineColor = ui.ColorYellow

	group := widgets.NewSparklineGroup(onlineLine, queuedLine)
	group.Title = " history "
	group.SetRect(0, 11, 50, 23)

	status := widgets.NewParagraph()
	status.Border = false
	status.SetRect(0, 23, 50, 25)

	refresh := func() {
		st, err := FetchStats(ctx, client, baseURL)
		if err != nil {
			status.Text = err.Error()
			status.TextStyle = ui.NewStyle(ui.ColorRed)
		} else {
			table.Rows = statsRows(st)
			online.push(float64(st.ConnectedUsers))
			queued.push(float64(st.QueuedMessages))
			onlineLine.Data = online.values
			queuedLine.Data = queued.values
			status.Text = "q to quit, updated " + time.Now().Format(time.TimeOnly)
			status.TextStyle = ui.NewStyle(ui.ColorWhite)
		}
		ui.Render(table, group, status)
	}
	refresh()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	events := ui.PollEvents()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			case "<Resize>":
				ui.Clear()
				ui.Render(table, group, status)
			}
		case <-ticker.C:
			refresh()
		}
	}
}
