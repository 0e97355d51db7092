package model

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type EventKind int16

const (
	Registered          EventKind = iota + 1 // [SYSTEM]
	MessageReceived                          // [BUSINESS]
	GroupMessageReceived                     // [BUSINESS]
	KeyResolved                              // [SYSTEM]
	Failed                                   // [SYSTEM]
)

// String returns the wire name of the event.
func (k EventKind) String() string {
	switch k {
	case Registered:
		return "registered"
	case MessageReceived:
		return "message"
	case GroupMessageReceived:
		return "group:message"
	case KeyResolved:
		return "key:response"
	case Failed:
		return "error"
	default:
		return "unknown"
	}
}

// Eventer defines the contract for all data packets pushed to a connection.
type Eventer interface {
	GetID() string
	GetKind() EventKind
	GetOccurredAt() int64
	GetPayload() any
	GetCached() any
	SetCached(any)
}

// [GUARD] Ensure compliance with the Eventer interface.
var _ Eventer = (*RelayEvent)(nil)

// RelayEvent is the single envelope for everything the relay emits.
// The cached slot keeps the wire encoding so a group fan-out marshals once;
// it is atomic because several write pumps may share one event.
type RelayEvent struct {
	id         string
	kind       EventKind
	occurredAt int64
	payload    any
	cached     atomic.Value
}

func (e *RelayEvent) GetID() string        { return e.id }
func (e *RelayEvent) GetKind() EventKind   { return e.kind }
func (e *RelayEvent) GetOccurredAt() int64 { return e.occurredAt }
func (e *RelayEvent) GetPayload() any      { return e.payload }
func (e *RelayEvent) GetCached() any       { return e.cached.Load() }

func (e *RelayEvent) SetCached(v any) {
	if v != nil {
		e.cached.Store(v)
	}
}

// NewRelayEvent is a universal factory for outbound events.
func NewRelayEvent(id string, kind EventKind, payload any) *RelayEvent {
	if id == "" {
		id = uuid.NewString()
	}
	return &RelayEvent{
		id:         id,
		kind:       kind,
		occurredAt: time.Now().UnixMilli(),
		payload:    payload,
	}
}

// NewMessageEvent wraps a pending or live direct message for delivery.
func NewMessageEvent(m *PendingMessage) *RelayEvent {
	return NewRelayEvent(m.ID, MessageReceived, &MessagePayload{
		ID:        m.ID,
		From:      m.From,
		Encrypted: m.Payload,
		Timestamp: m.Timestamp,
	})
}

// NewGroupMessageEvent wraps a group message for a single member.
func NewGroupMessageEvent(m *PendingMessage) *RelayEvent {
	return NewRelayEvent(m.ID, GroupMessageReceived, &GroupMessagePayload{
		ID:        m.ID,
		GroupID:   m.GroupID,
		From:      m.From,
		Encrypted: m.Payload,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	})
}

// NewErrorEvent reports a rejected inbound event back to the sender.
func NewErrorEvent(code, event, reason string) *RelayEvent {
	return NewRelayEvent("", Failed, &ErrorPayload{
		Code:   code,
		Event:  event,
		Reason: reason,
	})
}
