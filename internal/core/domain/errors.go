package domain

import (
	"errors"
	"fmt"
)

// Reason is the wire-level error code carried in an error frame.
type Reason string

const (
	ReasonInvalidJSON        Reason = "invalid-json"
	ReasonInvalidMessage     Reason = "invalid-message"
	ReasonUnsupportedMessage Reason = "unsupported-message"
	ReasonAlreadyRegistered  Reason = "already-registered"
	ReasonAlreadyInRoom      Reason = "already-in-room"
	ReasonNotInRoom          Reason = "not-in-room"
	ReasonInvalidCode        Reason = "invalid-code"
	ReasonRoomNotFound       Reason = "room-not-found"
	ReasonViewerNotFound     Reason = "viewer-not-found"
	ReasonNotAuthorized      Reason = "not-authorized"
)

// RelayError is an error that maps directly onto an error frame sent back to
// the offending connection. Recoverable errors never mutate registry state,
// so the sender may retry.
type RelayError struct {
	Reason      Reason
	Recoverable bool
	Cause       error
}

func (e *RelayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (caused by: %v)", e.Reason, e.Cause)
	}
	return string(e.Reason)
}

func (e *RelayError) Unwrap() error {
	return e.Cause
}

// AsRelayError extracts a RelayError from an error chain.
func AsRelayError(err error) (*RelayError, bool) {
	var re *RelayError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

var (
	ErrInvalidJSON        = &RelayError{Reason: ReasonInvalidJSON}
	ErrInvalidMessage     = &RelayError{Reason: ReasonInvalidMessage}
	ErrUnsupportedMessage = &RelayError{Reason: ReasonUnsupportedMessage}
	ErrAlreadyRegistered  = &RelayError{Reason: ReasonAlreadyRegistered}
	ErrAlreadyInRoom      = &RelayError{Reason: ReasonAlreadyInRoom}
	ErrNotInRoom          = &RelayError{Reason: ReasonNotInRoom, Recoverable: true}
	ErrInvalidCode        = &RelayError{Reason: ReasonInvalidCode, Recoverable: true}
	ErrRoomNotFound       = &RelayError{Reason: ReasonRoomNotFound, Recoverable: true}
	ErrViewerNotFound     = &RelayError{Reason: ReasonViewerNotFound, Recoverable: true}
	ErrNotAuthorized      = &RelayError{Reason: ReasonNotAuthorized}
)

var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrChannelClosed      = errors.New("media channel closed")
	ErrTransportClosed    = errors.New("signaling transport closed")
	ErrSessionStopped     = errors.New("session stopped")
)
