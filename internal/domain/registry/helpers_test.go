package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/webitel/im-relay-service/internal/domain/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []*model.Activity
}

func (o *recordingObserver) Observe(a *model.Activity) {
	o.mu.Lock()
	o.seen = append(o.seen, a)
	o.mu.Unlock()
}

func (o *recordingObserver) count(kind model.ActivityKind) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, a := range o.seen {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

func newConn(t *testing.T) model.Connector {
	t.Helper()
	return newConnSize(t, 64)
}

func newConnSize(t *testing.T, buffer int) model.Connector {
	t.Helper()
	conn := model.NewConnector(context.Background(), model.ConnectMetadata{RemoteIP: "127.0.0.1"}, buffer)
	t.Cleanup(conn.Close)
	return conn
}

func isClosed(conn model.Connector) bool {
	select {
	case <-conn.Done():
		return true
	default:
		return false
	}
}

func messageIDs(evs []model.Eventer) []string {
	var ids []string
	for _, ev := range evs {
		if ev.GetKind() == model.MessageReceived || ev.GetKind() == model.GroupMessageReceived {
			ids = append(ids, ev.GetID())
		}
	}
	return ids
}

// received drains whatever the hub has pushed to conn so far.
func received(conn model.Connector) []model.Eventer {
	var out []model.Eventer
	for {
		select {
		case ev := <-conn.Recv():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func kinds(evs []model.Eventer) []model.EventKind {
	out := make([]model.EventKind, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.GetKind())
	}
	return out
}

func newTestHub(t *testing.T, opts ...Option) *Hub {
	t.Helper()
	h := NewHub(opts...)
	t.Cleanup(h.Shutdown)
	return h
}
