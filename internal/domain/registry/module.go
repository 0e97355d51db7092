package registry

import (
	"context"
	"log/slog"

	"github.com/webitel/im-relay-service/config"
	"go.uber.org/fx"
)

// ObserverParams collects every Observer provided to the "relay_observers" group.
type ObserverParams struct {
	fx.In

	Observers []Observer `group:"relay_observers"`
}

var Module = fx.Module("registry",
	fx.Provide(
		// [CLEAN_INJECTION] Configure Hub using Functional Options
		func(cfg *config.Config, logger *slog.Logger, p ObserverParams) *Hub {
			return NewHub(
				WithSweepInterval(cfg.Relay.SweepInterval),
				WithPendingTTL(cfg.Relay.PendingTTL),
				WithMailboxSize(cfg.Relay.MailboxSize),
				WithDedupCapacity(cfg.Relay.DedupCapacity),
				WithKeyCacheSize(cfg.Relay.KeyCacheSize),
				WithLogger(logger.With("component", "hub")),
				WithObserver(p.Observers...),
			)
		},
		func(h *Hub) Hubber { return h },
	),
	fx.Invoke(func(lc fx.Lifecycle, h Hubber) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				h.Shutdown() // [GRACEFUL_SHUTDOWN] Stop the actor goroutine
				return nil
			},
		})
	}),
)
