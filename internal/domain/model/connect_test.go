package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectFullBufferRefusesWithoutReordering(t *testing.T) {
	conn := NewConnector(context.Background(), ConnectMetadata{}, 2)
	defer conn.Close()

	require.True(t, conn.Send(NewRelayEvent("", Registered, &RegisteredPayload{Ok: true})))
	require.True(t, conn.Send(NewRelayEvent("m1", MessageReceived, nil)))
	assert.False(t, conn.Send(NewRelayEvent("m2", MessageReceived, nil)))
	assert.False(t, conn.Send(NewErrorEvent("MALFORMED_EVENT", "", "bad")))
	assert.Equal(t, uint64(2), conn.Dropped())

	first := <-conn.Recv()
	second := <-conn.Recv()
	assert.Equal(t, Registered, first.GetKind())
	assert.Equal(t, "m1", second.GetID())

	// Space frees up once the reader catches up.
	assert.True(t, conn.Send(NewRelayEvent("m3", MessageReceived, nil)))
	assert.Equal(t, "m3", (<-conn.Recv()).GetID())
}

func TestConnectClosedRefuses(t *testing.T) {
	conn := NewConnector(context.Background(), ConnectMetadata{}, 4)
	conn.Close()
	conn.Close()

	select {
	case <-conn.Done():
	default:
		t.Fatal("closed handle must report done")
	}
	assert.False(t, conn.Send(NewRelayEvent("m1", MessageReceived, nil)))
	assert.Zero(t, conn.Dropped(), "closed refusals are not buffer drops")
}

func TestConnectIdentity(t *testing.T) {
	a := NewConnector(context.Background(), ConnectMetadata{RemoteIP: "10.0.0.1"}, 1)
	b := NewConnector(context.Background(), ConnectMetadata{RemoteIP: "10.0.0.1"}, 1)
	defer a.Close()
	defer b.Close()

	assert.NotEqual(t, a.GetID(), b.GetID())
	assert.Equal(t, "10.0.0.1", a.Metadata().RemoteIP)
}
