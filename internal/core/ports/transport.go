package ports

import (
	"context"

	"beamshare/internal/core/domain"
)

// SignalTransport is the endpoint side of the persistent signaling
// connection.
type SignalTransport interface {
	// Send writes one client frame. It must not block indefinitely; a write
	// deadline bounds it.
	Send(msg domain.ClientMessage) error
	// Messages yields relay frames in arrival order. The channel closes when
	// the transport terminates.
	Messages() <-chan domain.RelayMessage
	// Errors yields at most one fatal transport error.
	Errors() <-chan error
	Close() error
}

// TransportDialer opens a signaling connection to the relay.
type TransportDialer func(ctx context.Context, url string) (SignalTransport, error)
