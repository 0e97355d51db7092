package model

// RegisteredPayload acknowledges a registration.
type RegisteredPayload struct {
	Ok            bool   `json:"ok"`
	UserID        string `json:"userId"`
	ConnectionID  string `json:"connectionId"`
	ServerVersion string `json:"serverVersion"`
	Pending       int    `json:"pending"`
}

// MessagePayload is a direct message as seen by the recipient.
type MessagePayload struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Encrypted string `json:"encrypted"`
	Timestamp int64  `json:"timestamp"`
}

// GroupMessagePayload is a group message as seen by one member.
type GroupMessagePayload struct {
	ID        string `json:"id"`
	GroupID   string `json:"groupId"`
	From      string `json:"from"`
	Encrypted string `json:"encrypted"`
	Content   string `json:"content,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// KeyPayload answers a public key lookup.
type KeyPayload struct {
	UserID    string `json:"userId"`
	PublicKey string `json:"publicKey,omitempty"`
	Found     bool   `json:"found"`
}

// ErrorPayload describes why an inbound event was rejected.
type ErrorPayload struct {
	Code   string `json:"code"`
	Event  string `json:"event,omitempty"`
	Reason string `json:"reason,omitempty"`
}
