package model

import "time"

// ServerVersion is reported to clients in the registered event.
var ServerVersion = "0.0.0"

// [PENDING_MESSAGE] A message held for exactly one recipient.
// Group fan-out produces one PendingMessage per absent member.
type PendingMessage struct {
	ID        string
	From      string
	To        string
	Payload   string // opaque ciphertext, never inspected
	Content   string // optional group plaintext hint, passed through untouched
	Timestamp int64  // unix millis at arrival
	GroupID   string // empty for direct messages
}

// IsGroup reports whether the message belongs to a group fan-out.
func (m *PendingMessage) IsGroup() bool { return m.GroupID != "" }

// ExpiredAt reports whether the message is older than ttl at now.
func (m *PendingMessage) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return now.UnixMilli()-m.Timestamp > ttl.Milliseconds()
}

// DirectMessage is an inbound `message` event after validation.
type DirectMessage struct {
	ID        string
	From      string
	To        string
	Encrypted string
}

// GroupMessage is an inbound `group:message` event after validation.
type GroupMessage struct {
	ID        string
	GroupID   string
	From      string
	Encrypted string
	Content   string
}
