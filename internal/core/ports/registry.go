package ports

import (
	"context"
	"time"

	"beamshare/internal/core/domain"
)

// Sender delivers relay frames to one participant's transport. Implementations
// must be safe for concurrent use; the registry never calls Send while holding
// its own lock.
type Sender interface {
	Send(msg domain.RelayMessage) error
	// Close terminates the underlying transport with a normal-closure reason.
	Close(reason string) error
}

// RoomRegistry is the server-side authority for room existence, host binding
// and viewer membership.
type RoomRegistry interface {
	// Connect creates an unbound connection context for a newly accepted
	// transport.
	Connect(id domain.ConnectionID, sender Sender)
	// Disconnect runs the cleanup path for the connection and forgets it.
	// Safe to call more than once.
	Disconnect(id domain.ConnectionID)
	// Handle dispatches one decoded client frame. A returned RelayError is
	// replied to the sender by the caller; no registry state was mutated.
	Handle(ctx context.Context, id domain.ConnectionID, msg domain.ClientMessage) error
	// Stats reports current registry occupancy.
	Stats() RegistryStats
}

type RegistryStats struct {
	ActiveRooms       int
	ActiveConnections int
	ActiveViewers     int
}

// MetricsRecorder receives registry lifecycle events. The monitoring
// collector implements it; a no-op recorder is used when metrics are
// disabled.
type MetricsRecorder interface {
	ConnectionOpened()
	ConnectionClosed()
	RoomCreated()
	RoomClosed(lifetime time.Duration)
	ViewerJoined()
	ViewerLeft()
	SignalRouted(from string)
	ProtocolError(reason string)
}
