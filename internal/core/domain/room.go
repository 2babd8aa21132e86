package domain

import (
	"regexp"
	"strings"
	"time"
)

type ConnectionID string

type RoomCode string

type ViewerID string

// Role of a signaling connection. A connection starts unbound and is bound
// exactly once by its first successful registration message.
type Role string

const (
	RoleUnbound Role = "unbound"
	RoleHost    Role = "host"
	RoleViewer  Role = "viewer"
)

var roomCodePattern = regexp.MustCompile(`^\d{6}$`)

// SanitizeRoomCode trims surrounding whitespace and returns the code if it is
// a well-formed six-digit room code, or empty otherwise.
func SanitizeRoomCode(raw string) RoomCode {
	trimmed := strings.TrimSpace(raw)
	if !roomCodePattern.MatchString(trimmed) {
		return ""
	}
	return RoomCode(trimmed)
}

// Room is the relay-side record for one active broadcast. Its lifetime is
// tied 1:1 to the host connection that registered it.
type Room struct {
	Code      RoomCode
	HostID    ConnectionID
	Viewers   map[ViewerID]*ConnectionContext
	CreatedAt time.Time
}

func NewRoom(code RoomCode, hostID ConnectionID) *Room {
	return &Room{
		Code:      code,
		HostID:    hostID,
		Viewers:   make(map[ViewerID]*ConnectionContext),
		CreatedAt: time.Now(),
	}
}
