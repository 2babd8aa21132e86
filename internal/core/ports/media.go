package ports

import (
	"time"

	"beamshare/internal/core/domain"
)

// MediaSample is one encoded media frame handed from a capture source to the
// media engine.
type MediaSample struct {
	Data     []byte
	Duration time.Duration
}

// MediaSink consumes the outgoing media produced by a capture source. The
// engine fans one sink out to every outgoing channel.
type MediaSink interface {
	WriteVideo(sample MediaSample) error
	WriteAudio(sample MediaSample) error
}

// CaptureSource is an opaque producer of the host's outgoing media stream.
// Start may block while the underlying device is acquired.
type CaptureSource interface {
	Start(sink MediaSink) error
	Stop()
}

// ChannelConfig selects the media direction of a new channel. Host channels
// are outgoing only; the host never receives media from a viewer.
type ChannelConfig struct {
	Outgoing bool
}

// MediaEngine creates peer media channels and owns the shared outgoing
// track set.
type MediaEngine interface {
	NewChannel(cfg ChannelConfig) (MediaChannel, error)
	// OutgoingSink is where the capture source writes; every channel created
	// with Outgoing set carries these tracks.
	OutgoingSink() MediaSink
}

// MediaChannel is one peer connection as seen by the negotiation state
// machine. Event callbacks must be registered before negotiation starts and
// may fire from engine-owned goroutines.
type MediaChannel interface {
	CreateOffer() (domain.SessionDescription, error)
	CreateAnswer() (domain.SessionDescription, error)
	SetLocalDescription(desc domain.SessionDescription) error
	SetRemoteDescription(desc domain.SessionDescription) error
	AddCandidate(cand domain.ICECandidate) error
	OnCandidate(fn func(domain.ICECandidate))
	OnStateChange(fn func(domain.ChannelState))
	OnRemoteTrack(fn func())
	Close() error
}
