package wsmarshaller

import (
	"encoding/json"
	"fmt"

	"github.com/webitel/im-relay-service/internal/domain/model"
)

// WSEvent is a generic wrapper for WebSocket messages to provide consistent structure
type WSEvent struct {
	Event   string `json:"event"` // e.g., "message", "group:message", "registered"
	ID      string `json:"id"`    // message or event ID
	SentAt  int64  `json:"sent_at"`
	Payload any    `json:"payload"`
}

// MarshallDeliveryEvent prepares data for WebSocket transmission.
// The encoding is cached on the event, so a group message shared by many
// members is serialized once.
func MarshallDeliveryEvent(ev model.Eventer) ([]byte, error) {
	if cached, ok := ev.GetCached().([]byte); ok {
		return cached, nil
	}

	data, err := json.Marshal(&WSEvent{
		Event:   ev.GetKind().String(),
		ID:      ev.GetID(),
		SentAt:  ev.GetOccurredAt(),
		Payload: ev.GetPayload(),
	})
	if err != nil {
		return nil, fmt.Errorf("ws marshal %s: %w", ev.GetKind(), err)
	}

	ev.SetCached(data)
	return data, nil
}
