package signal

import (
	"encoding/json"

	"beamshare/internal/core/domain"
)

// DecodeClient parses and validates one inbound frame from a participant.
// Malformed encoding maps to invalid-json, a well-formed frame with a bad
// schema to invalid-message, and an unknown tag to unsupported-message; in
// every case the connection survives and no state changes.
func DecodeClient(data []byte) (domain.ClientMessage, *domain.RelayError) {
	var msg domain.ClientMessage
	if !json.Valid(data) {
		return domain.ClientMessage{}, domain.ErrInvalidJSON
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.ClientMessage{}, &domain.RelayError{Reason: domain.ReasonInvalidMessage, Cause: err}
	}

	switch msg.Type {
	case domain.MsgRegisterHost, domain.MsgLeaveRoom:
	case domain.MsgJoinRoom:
		// A missing or malformed code is reported as invalid-code by the
		// registry, without a lookup. Nothing to validate here.
	case domain.MsgSignalHost:
		if len(msg.Payload) == 0 {
			return domain.ClientMessage{}, domain.ErrInvalidMessage
		}
	case domain.MsgSignalViewer:
		if msg.ViewerID == "" || len(msg.Payload) == 0 {
			return domain.ClientMessage{}, domain.ErrInvalidMessage
		}
	case "":
		return domain.ClientMessage{}, domain.ErrInvalidMessage
	default:
		return domain.ClientMessage{}, domain.ErrUnsupportedMessage
	}
	return msg, nil
}

// EncodeClient serializes one client frame for the wire.
func EncodeClient(msg domain.ClientMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeRelay parses one frame received from the relay by an endpoint.
func DecodeRelay(data []byte) (domain.RelayMessage, error) {
	var msg domain.RelayMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.RelayMessage{}, err
	}
	return msg, nil
}

// EncodeRelay serializes one relay frame for the wire.
func EncodeRelay(msg domain.RelayMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeEnvelope parses the negotiation payload carried inside a signal
// frame. Only endpoints call this; the relay forwards payloads verbatim.
func DecodeEnvelope(raw json.RawMessage) (domain.SignalEnvelope, error) {
	var env domain.SignalEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.SignalEnvelope{}, err
	}
	if err := env.Validate(); err != nil {
		return domain.SignalEnvelope{}, err
	}
	return env, nil
}

// EncodeEnvelope serializes a negotiation payload for a signal-host or
// signal-viewer frame.
func EncodeEnvelope(env domain.SignalEnvelope) (json.RawMessage, error) {
	return json.Marshal(env)
}
