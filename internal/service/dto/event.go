// Package dto holds the inbound wire events accepted from relay clients.
package dto

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound event names.
const (
	EventRegister     = "register"
	EventMessage      = "message"
	EventGroupCreate  = "group:create"
	EventGroupJoin    = "group:join"
	EventGroupLeave   = "group:leave"
	EventGroupMessage = "group:message"
	EventKeyRequest   = "key:request"
)

// ErrMissingField marks an event lacking a required field.
var ErrMissingField = errors.New("missing required field")

// Envelope is one inbound frame: {"event": "...", "payload": {...}}.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Validator is implemented by every inbound payload.
type Validator interface {
	Validate() error
}

// Decode unmarshals the payload into dst and validates it.
func (e *Envelope) Decode(dst Validator) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", e.Event)
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("%s: %w", e.Event, err)
	}
	return dst.Validate()
}

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

type Register struct {
	UserID    string   `json:"userId"`
	PublicKey string   `json:"publicKey,omitempty"`
	Groups    []string `json:"groups,omitempty"`
}

func (r *Register) Validate() error {
	if r.UserID == "" {
		return missing("userId")
	}
	return nil
}

type Message struct {
	To        string `json:"to"`
	From      string `json:"from"`
	Encrypted string `json:"encrypted"`
	ID        string `json:"id,omitempty"`
}

func (m *Message) Validate() error {
	switch {
	case m.To == "":
		return missing("to")
	case m.From == "":
		return missing("from")
	case m.Encrypted == "":
		return missing("encrypted")
	}
	return nil
}

type GroupCreate struct {
	GroupID string   `json:"groupId"`
	Members []string `json:"members"`
}

func (g *GroupCreate) Validate() error {
	if g.GroupID == "" {
		return missing("groupId")
	}
	if g.Members == nil {
		return missing("members")
	}
	return nil
}

// GroupMembership is the payload of group:join and group:leave.
type GroupMembership struct {
	GroupID string `json:"groupId"`
	UserID  string `json:"userId"`
}

func (g *GroupMembership) Validate() error {
	switch {
	case g.GroupID == "":
		return missing("groupId")
	case g.UserID == "":
		return missing("userId")
	}
	return nil
}

type GroupMessage struct {
	GroupID   string `json:"groupId"`
	From      string `json:"from"`
	Encrypted string `json:"encrypted"`
	Content   string `json:"content,omitempty"`
	ID        string `json:"id,omitempty"`
}

func (g *GroupMessage) Validate() error {
	switch {
	case g.GroupID == "":
		return missing("groupId")
	case g.From == "":
		return missing("from")
	case g.Encrypted == "":
		return missing("encrypted")
	}
	return nil
}

type KeyRequest struct {
	UserID string `json:"userId"`
}

func (k *KeyRequest) Validate() error {
	if k.UserID == "" {
		return missing("userId")
	}
	return nil
}
