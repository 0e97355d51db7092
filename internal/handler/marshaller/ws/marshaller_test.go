package wsmarshaller

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/im-relay-service/internal/domain/model"
)

func TestMarshallMessageEvent(t *testing.T) {
	ev := model.NewMessageEvent(&model.PendingMessage{
		ID:        "m1",
		From:      "alice",
		To:        "bob",
		Payload:   "ct1",
		Timestamp: 1700000000000,
	})

	data, err := MarshallDeliveryEvent(ev)
	require.NoError(t, err)

	var got struct {
		Event   string         `json:"event"`
		ID      string         `json:"id"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "message", got.Event)
	assert.Equal(t, "m1", got.ID)
	assert.Equal(t, map[string]any{
		"id":        "m1",
		"from":      "alice",
		"encrypted": "ct1",
		"timestamp": float64(1700000000000),
	}, got.Payload)
}

func TestMarshallGroupEventOmitsEmptyContent(t *testing.T) {
	ev := model.NewGroupMessageEvent(&model.PendingMessage{
		ID: "g1", From: "alice", GroupID: "G", Payload: "ct", Timestamp: 1,
	})

	data, err := MarshallDeliveryEvent(ev)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event":"group:message"`)
	assert.Contains(t, string(data), `"groupId":"G"`)
	assert.NotContains(t, string(data), `"content"`)
}

func TestMarshallUsesCache(t *testing.T) {
	ev := model.NewErrorEvent("MALFORMED_EVENT", "message", "missing required field: to")

	first, err := MarshallDeliveryEvent(ev)
	require.NoError(t, err)
	second, err := MarshallDeliveryEvent(ev)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, ev.GetCached())
}
