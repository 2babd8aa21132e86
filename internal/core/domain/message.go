package domain

import "encoding/json"

// Client-to-relay message types.
const (
	MsgRegisterHost = "register-host"
	MsgJoinRoom     = "join-room"
	MsgLeaveRoom    = "leave-room"
	MsgSignalHost   = "signal-host"
	MsgSignalViewer = "signal-viewer"
)

// Relay-to-client message types.
const (
	MsgRoomRegistered = "room-registered"
	MsgRoomJoined     = "room-joined"
	MsgRoomClosed     = "room-closed"
	MsgViewerJoined   = "viewer-joined"
	MsgViewerLeft     = "viewer-left"
	MsgSignal         = "signal"
	MsgError          = "error"
)

// SignalFrom identifies which side of a room a forwarded signal came from.
const (
	FromHost   = "host"
	FromViewer = "viewer"
)

// ClientMessage is one frame sent by a participant to the relay. The payload
// is kept opaque here; the relay forwards it verbatim and only endpoints
// parse it as a signal envelope.
type ClientMessage struct {
	Type     string          `json:"type"`
	Code     string          `json:"code,omitempty"`
	ViewerID string          `json:"viewerId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// RelayMessage is one frame sent by the relay to a participant.
type RelayMessage struct {
	Type        string          `json:"type"`
	Code        string          `json:"code,omitempty"`
	ViewerID    string          `json:"viewerId,omitempty"`
	From        string          `json:"from,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	Recoverable bool            `json:"recoverable,omitempty"`
}

func RoomRegisteredMessage(code RoomCode) RelayMessage {
	return RelayMessage{Type: MsgRoomRegistered, Code: string(code)}
}

func RoomJoinedMessage(code RoomCode, viewerID ViewerID) RelayMessage {
	return RelayMessage{Type: MsgRoomJoined, Code: string(code), ViewerID: string(viewerID)}
}

func RoomClosedMessage() RelayMessage {
	return RelayMessage{Type: MsgRoomClosed}
}

func ViewerJoinedMessage(viewerID ViewerID) RelayMessage {
	return RelayMessage{Type: MsgViewerJoined, ViewerID: string(viewerID)}
}

func ViewerLeftMessage(viewerID ViewerID) RelayMessage {
	return RelayMessage{Type: MsgViewerLeft, ViewerID: string(viewerID)}
}

func SignalFromHostMessage(payload json.RawMessage) RelayMessage {
	return RelayMessage{Type: MsgSignal, From: FromHost, Payload: payload}
}

func SignalFromViewerMessage(viewerID ViewerID, payload json.RawMessage) RelayMessage {
	return RelayMessage{Type: MsgSignal, From: FromViewer, ViewerID: string(viewerID), Payload: payload}
}

func ErrorMessage(err *RelayError) RelayMessage {
	return RelayMessage{Type: MsgError, Reason: string(err.Reason), Recoverable: err.Recoverable}
}
