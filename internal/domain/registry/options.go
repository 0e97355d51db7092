package registry

import (
	"log/slog"
	"time"
)

// Option defines a functional configuration type for the Hub.
type Option func(*Hub)

// WithSweepInterval configures how often the [JANITOR] evicts expired pending messages.
func WithSweepInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.config.sweepInterval = d
		}
	}
}

// WithPendingTTL sets the maximum age of a queued message.
func WithPendingTTL(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.config.pendingTTL = d
		}
	}
}

// WithMailboxSize sets the [BACKPRESSURE] threshold of the hub loop.
func WithMailboxSize(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.config.mailboxSize = size
		}
	}
}

// WithDedupCapacity bounds the delivered-id cache before it is wiped.
func WithDedupCapacity(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.config.dedupCapacity = n
		}
	}
}

// WithKeyCacheSize bounds the public key directory.
func WithKeyCacheSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.config.keyCacheSize = n
		}
	}
}

// WithClock replaces time.Now, mostly for TTL tests.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		if now != nil {
			h.config.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.config.logger = l
		}
	}
}

// WithObserver attaches activity observers (metrics, bus export).
func WithObserver(obs ...Observer) Option {
	return func(h *Hub) {
		for _, o := range obs {
			if o != nil {
				h.config.observers = append(h.config.observers, o)
			}
		}
	}
}
