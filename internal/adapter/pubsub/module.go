package pubsub

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/im-relay-service/config"
	"github.com/webitel/im-relay-service/internal/domain/registry"
	"go.uber.org/fx"
)

var Module = fx.Module("pubsub",
	fx.Provide(
		NewPublisher,
		fx.Annotate(
			ProvideActivityObserver,
			fx.ResultTags(`group:"relay_observers"`),
		),
	),
)

// ProvideActivityObserver hooks the dispatcher into the app lifecycle.
// With export disabled it yields a nil observer, which the hub skips.
func ProvideActivityObserver(lc fx.Lifecycle, cfg *config.Config, pub message.Publisher, logger *slog.Logger) registry.Observer {
	if pub == nil {
		return nil
	}

	d := NewActivityDispatcher(pub, cfg.PubSub.Topic, cfg.PubSub.Buffer, logger.With("component", "activity"))
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			d.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return errors.Join(d.Stop(ctx), pub.Close())
		},
	})
	return d
}
