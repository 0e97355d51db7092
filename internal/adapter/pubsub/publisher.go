package pubsub

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	amqp "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/webitel/im-relay-service/config"
)

const (
	DriverGoChannel = "gochannel"
	DriverAMQP      = "amqp"
	DriverNone      = "none"
)

// NewPublisher builds the activity publisher for the configured driver.
// It returns a nil publisher when export is disabled.
func NewPublisher(cfg *config.Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	switch cfg.PubSub.Driver {
	case DriverNone:
		return nil, nil

	case DriverAMQP:
		amqpCfg := amqp.NewDurablePubSubConfig(
			cfg.PubSub.AMQPURL,
			amqp.GenerateQueueNameTopicNameWithSuffix("im-relay"),
		)
		pub, err := amqp.NewPublisher(amqpCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("pubsub: amqp publisher: %w", err)
		}
		return pub, nil

	case DriverGoChannel, "":
		return gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: int64(cfg.PubSub.Buffer),
		}, logger), nil

	default:
		return nil, fmt.Errorf("pubsub: unknown driver %q", cfg.PubSub.Driver)
	}
}
