package metrics

import (
	"log/slog"

	"github.com/webitel/im-relay-service/internal/domain/registry"
	"go.uber.org/fx"
)

var Module = fx.Module("metrics",
	fx.Provide(
		New,
		fx.Annotate(
			func(m *Metrics) registry.Observer { return m },
			fx.ResultTags(`group:"relay_observers"`),
		),
	),
	fx.Invoke(func(m *Metrics, hub registry.Hubber, logger *slog.Logger) error {
		return m.Watch(hub, logger.With("component", "metrics"))
	}),
)
