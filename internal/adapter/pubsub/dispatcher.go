package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sony/gobreaker"
	"github.com/webitel/im-relay-service/internal/domain/model"
)

// ActivityDispatcher exports hub activity to the message bus.
// Observe is called from the hub loop and never blocks.
type ActivityDispatcher interface {
	Observe(a *model.Activity)
	Start()
	Stop(ctx context.Context) error
	Dropped() uint64
}

type activityDispatcher struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger
	breaker   *gobreaker.CircuitBreaker

	queue   chan *model.Activity
	dropped atomic.Uint64

	stopOnce sync.Once
	done     chan struct{}
	finished chan struct{}
}

// NewActivityDispatcher wraps pub with a bounded queue and a circuit breaker.
func NewActivityDispatcher(pub message.Publisher, topic string, buffer int, logger *slog.Logger) ActivityDispatcher {
	if buffer <= 0 {
		buffer = 1024
	}
	d := &activityDispatcher{
		publisher: pub,
		topic:     topic,
		logger:    logger,
		queue:     make(chan *model.Activity, buffer),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
	}
	d.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "activity-publisher",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("ACTIVITY_BREAKER_STATE_CHANGED",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return d
}

func (d *activityDispatcher) Observe(a *model.Activity) {
	if a == nil {
		return
	}
	select {
	case <-d.done:
		return
	default:
	}

	select {
	case d.queue <- a:
	default:
		// [BACKPRESSURE] the bus is slower than the hub; shed the record
		d.dropped.Add(1)
	}
}

func (d *activityDispatcher) Dropped() uint64 { return d.dropped.Load() }

func (d *activityDispatcher) Start() {
	go d.run()
}

func (d *activityDispatcher) run() {
	defer close(d.finished)
	for {
		select {
		case <-d.done:
			d.flush()
			return
		case a := <-d.queue:
			d.publishLogged(a)
		}
	}
}

// flush publishes whatever is still buffered at shutdown.
func (d *activityDispatcher) flush() {
	for {
		select {
		case a := <-d.queue:
			d.publishLogged(a)
		default:
			return
		}
	}
}

// Stop ends the worker after flushing the queue, or when ctx expires.
func (d *activityDispatcher) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() { close(d.done) })
	select {
	case <-d.finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("activity dispatcher: stop: %w", ctx.Err())
	}
}

func (d *activityDispatcher) publishLogged(a *model.Activity) {
	err := d.publish(a)
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		d.dropped.Add(1)
	default:
		d.logger.Error("ACTIVITY_PUBLISH_FAILED",
			"err", err,
			"kind", a.Kind,
			"activity_id", a.ID,
		)
	}
}

func (d *activityDispatcher) publish(a *model.Activity) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("activity dispatcher: marshal failure: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("routing_key", a.RoutingKey())
	msg.Metadata.Set("kind", string(a.Kind))

	_, err = d.breaker.Execute(func() (interface{}, error) {
		return nil, d.publisher.Publish(d.topic, msg)
	})
	if err != nil {
		return fmt.Errorf("activity dispatcher: failed to publish to topic %s: %w", d.topic, err)
	}
	return nil
}
