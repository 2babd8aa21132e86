package webrtc

import (
	"fmt"
	"sync"

	"beamshare/internal/core/domain"
	"beamshare/internal/core/ports"

	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
	"go.uber.org/zap"
)

// Engine adapts pion to the media engine port. It owns one shared pair of
// outgoing tracks which every outgoing channel carries, so a single capture
// source fans out to all viewers.
type Engine struct {
	config webrtc.Configuration
	logger *zap.SugaredLogger

	trackOnce  sync.Once
	videoTrack *webrtc.TrackLocalStaticSample
	audioTrack *webrtc.TrackLocalStaticSample
	trackErr   error
}

func NewEngine(iceServers []webrtc.ICEServer, logger *zap.SugaredLogger) *Engine {
	if len(iceServers) == 0 {
		iceServers = []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
			{URLs: []string{"stun:stun1.l.google.com:19302"}},
		}
	}
	return &Engine{
		config: webrtc.Configuration{ICEServers: iceServers},
		logger: logger,
	}
}

func (e *Engine) sharedTracks() (*webrtc.TrackLocalStaticSample, *webrtc.TrackLocalStaticSample, error) {
	e.trackOnce.Do(func() {
		video, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
			"video", "beamshare-screen",
		)
		if err != nil {
			e.trackErr = err
			return
		}
		audio, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
			"audio", "beamshare-screen",
		)
		if err != nil {
			e.trackErr = err
			return
		}
		e.videoTrack = video
		e.audioTrack = audio
	})
	return e.videoTrack, e.audioTrack, e.trackErr
}

// OutgoingSink is where the capture source writes encoded samples.
func (e *Engine) OutgoingSink() ports.MediaSink {
	return &trackSink{engine: e}
}

func (e *Engine) NewChannel(cfg ports.ChannelConfig) (ports.MediaChannel, error) {
	pc, err := webrtc.NewPeerConnection(e.config)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	if cfg.Outgoing {
		video, audio, err := e.sharedTracks()
		if err != nil {
			pc.Close()
			return nil, fmt.Errorf("create outgoing tracks: %w", err)
		}
		if _, err := pc.AddTrack(video); err != nil {
			pc.Close()
			return nil, fmt.Errorf("add video track: %w", err)
		}
		if _, err := pc.AddTrack(audio); err != nil {
			pc.Close()
			return nil, fmt.Errorf("add audio track: %w", err)
		}
	} else {
		// Receive-only: the viewer declares what it is willing to accept.
		for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeVideo, webrtc.RTPCodecTypeAudio} {
			if _, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
				Direction: webrtc.RTPTransceiverDirectionRecvonly,
			}); err != nil {
				pc.Close()
				return nil, fmt.Errorf("add %s transceiver: %w", kind, err)
			}
		}
	}

	ch := newChannel(pc, e.logger)
	return ch, nil
}

// trackSink writes capture samples onto the shared outgoing tracks.
type trackSink struct {
	engine *Engine
}

func (t *trackSink) WriteVideo(sample ports.MediaSample) error {
	video, _, err := t.engine.sharedTracks()
	if err != nil {
		return err
	}
	return video.WriteSample(media.Sample{Data: sample.Data, Duration: sample.Duration})
}

func (t *trackSink) WriteAudio(sample ports.MediaSample) error {
	_, audio, err := t.engine.sharedTracks()
	if err != nil {
		return err
	}
	return audio.WriteSample(media.Sample{Data: sample.Data, Duration: sample.Duration})
}

func mapConnectionState(state webrtc.PeerConnectionState) domain.ChannelState {
	switch state {
	case webrtc.PeerConnectionStateConnecting:
		return domain.ChannelConnecting
	case webrtc.PeerConnectionStateConnected:
		return domain.ChannelConnected
	case webrtc.PeerConnectionStateDisconnected:
		return domain.ChannelDisconnected
	case webrtc.PeerConnectionStateFailed:
		return domain.ChannelFailed
	case webrtc.PeerConnectionStateClosed:
		return domain.ChannelClosed
	default:
		return domain.ChannelNew
	}
}
