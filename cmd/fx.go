package cmd

import (
	"log/slog"

	"github.com/webitel/im-relay-service/config"
	grpcsrv "github.com/webitel/im-relay-service/infra/server/grpc"
	httpsrv "github.com/webitel/im-relay-service/infra/server/http"
	"github.com/webitel/im-relay-service/internal/adapter/pubsub"
	"github.com/webitel/im-relay-service/internal/domain/registry"
	httphandler "github.com/webitel/im-relay-service/internal/handler/http"
	"github.com/webitel/im-relay-service/internal/metrics"
	"github.com/webitel/im-relay-service/internal/service"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideWatermillLogger,
			ProvideTracerProvider,
		),
		// The relay middleware reads the global tracer provider.
		fx.Invoke(func(trace.TracerProvider) {}),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With("component", "fx")}
		}),
		metrics.Module,
		pubsub.Module,
		registry.Module,
		service.Module,
		httphandler.Module,
		httpsrv.Module,
		grpcsrv.Module,
	)
}
