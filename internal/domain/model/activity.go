package model

import (
	"time"

	"github.com/google/uuid"
)

type ActivityKind string

const (
	ActivityRegistered ActivityKind = "registered"
	ActivityDelivered  ActivityKind = "delivered"
	ActivityQueued     ActivityKind = "queued"
	ActivityReplayed   ActivityKind = "replayed"
	ActivityDuplicate  ActivityKind = "duplicate"
	ActivityExpired    ActivityKind = "expired"
	ActivityDropped    ActivityKind = "dropped"
)

// Activity is a metadata-only record of something the relay did.
// It never carries ciphertext.
type Activity struct {
	ID        string       `json:"id"`
	Source    string       `json:"source"`
	Kind      ActivityKind `json:"kind"`
	MessageID string       `json:"message_id,omitempty"`
	UserID    string       `json:"user_id,omitempty"`
	From      string       `json:"from,omitempty"`
	GroupID   string       `json:"group_id,omitempty"`
	Count     int          `json:"count,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// NewActivity creates a fresh record ready for export.
func NewActivity(kind ActivityKind) *Activity {
	return &Activity{
		ID:        uuid.NewString(),
		Source:    "im-relay-service",
		Kind:      kind,
		Timestamp: time.Now().UnixMilli(),
	}
}

// RoutingKey is the topic suffix used on the message bus.
func (a *Activity) RoutingKey() string {
	return "im_relay.activity." + string(a.Kind)
}
