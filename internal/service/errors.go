package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotRegistered  = errors.New("connection is not registered")
	ErrMalformedEvent = errors.New("malformed event")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrSessionClosed  = errors.New("session is closed")
	ErrUnavailable    = errors.New("relay unavailable")
)

// Wire codes reported in `error` events.
const (
	CodeNotRegistered  = "NOT_REGISTERED"
	CodeMalformedEvent = "MALFORMED_EVENT"
	CodeUnknownEvent   = "UNKNOWN_EVENT"
	CodeUnavailable    = "UNAVAILABLE"
)

// EventError is a per-event rejection. It never terminates the connection.
type EventError struct {
	Code  string
	Event string
	Err   error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Code, e.Event, e.Err)
}

func (e *EventError) Unwrap() error { return e.Err }

func newEventError(code, event string, err error) *EventError {
	return &EventError{Code: code, Event: event, Err: err}
}

func malformed(event string, err error) *EventError {
	return newEventError(CodeMalformedEvent, event, fmt.Errorf("%w: %w", ErrMalformedEvent, err))
}
