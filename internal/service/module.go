package service

import (
	"log/slog"

	"go.uber.org/fx"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		fx.Annotate(
			NewRelayService,
			fx.As(new(Relayer)),
		),
	),

	// [DECORATION_LAYER] Intercept Relayer to add cross-cutting concerns
	fx.Decorate(func(orig Relayer, logger *slog.Logger) Relayer {
		return NewRelayMiddleware(orig, logger.With("component", "relay"))
	}),
)
