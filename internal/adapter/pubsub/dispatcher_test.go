package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/im-relay-service/config"
	"github.com/webitel/im-relay-service/internal/domain/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherPublishesActivity(t *testing.T) {
	bus := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = bus.Close() })

	msgs, err := bus.Subscribe(context.Background(), "im_relay.activity")
	require.NoError(t, err)

	d := NewActivityDispatcher(bus, "im_relay.activity", 8, discardLogger())
	d.Start()
	t.Cleanup(func() { _ = d.Stop(context.Background()) })

	a := model.NewActivity(model.ActivityQueued)
	a.MessageID = "m1"
	a.UserID = "bob"
	a.From = "alice"
	d.Observe(a)

	select {
	case msg := <-msgs:
		msg.Ack()
		assert.Equal(t, "im_relay.activity.queued", msg.Metadata.Get("routing_key"))

		var got model.Activity
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, model.ActivityQueued, got.Kind)
		assert.Equal(t, "m1", got.MessageID)
		assert.Equal(t, "bob", got.UserID)
		assert.NotContains(t, string(msg.Payload), "encrypted")
	case <-time.After(2 * time.Second):
		t.Fatal("activity was not published")
	}
}

type failingPublisher struct {
	calls atomic.Int32
}

func (p *failingPublisher) Publish(string, ...*message.Message) error {
	p.calls.Add(1)
	return errors.New("broker unreachable")
}

func (p *failingPublisher) Close() error { return nil }

func TestDispatcherBreakerOpensOnFailures(t *testing.T) {
	pub := &failingPublisher{}
	d := NewActivityDispatcher(pub, "t", 64, discardLogger())
	d.Start()

	for range 20 {
		d.Observe(model.NewActivity(model.ActivityDelivered))
	}
	require.NoError(t, d.Stop(context.Background()))

	// Five consecutive failures trip the breaker; the rest are shed.
	assert.Equal(t, int32(5), pub.calls.Load())
	assert.Equal(t, uint64(15), d.Dropped())
}

func TestDispatcherShedsWhenQueueFull(t *testing.T) {
	d := NewActivityDispatcher(&failingPublisher{}, "t", 2, discardLogger())

	// Not started: nothing drains the queue.
	for range 5 {
		d.Observe(model.NewActivity(model.ActivityQueued))
	}
	assert.Equal(t, uint64(3), d.Dropped())
}

func TestDispatcherIgnoresActivityAfterStop(t *testing.T) {
	pub := &failingPublisher{}
	d := NewActivityDispatcher(pub, "t", 4, discardLogger())
	d.Start()
	require.NoError(t, d.Stop(context.Background()))

	d.Observe(model.NewActivity(model.ActivityQueued))
	assert.Equal(t, int32(0), pub.calls.Load())
}

func TestNewPublisherDrivers(t *testing.T) {
	cfg := &config.Config{PubSub: config.PubSubConfig{Driver: DriverNone}}
	pub, err := NewPublisher(cfg, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Nil(t, pub)

	cfg.PubSub.Driver = DriverGoChannel
	pub, err = NewPublisher(cfg, watermill.NopLogger{})
	require.NoError(t, err)
	require.NotNil(t, pub)
	assert.NoError(t, pub.Close())

	cfg.PubSub.Driver = "kafka"
	_, err = NewPublisher(cfg, watermill.NopLogger{})
	assert.Error(t, err)
}
