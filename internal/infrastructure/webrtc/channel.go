package webrtc

import (
	"sync"
	"time"

	"beamshare/internal/core/domain"

	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

const keyframeInterval = 3 * time.Second

// channel adapts one pion peer connection to the media channel port.
type channel struct {
	pc     *webrtc.PeerConnection
	logger *zap.SugaredLogger

	mu            sync.Mutex
	onCandidate   func(domain.ICECandidate)
	onState       func(domain.ChannelState)
	onRemoteTrack func()
	trackSeen     bool
	closed        chan struct{}
	closeOnce     sync.Once
}

func newChannel(pc *webrtc.PeerConnection, logger *zap.SugaredLogger) *channel {
	ch := &channel{pc: pc, logger: logger, closed: make(chan struct{})}

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		ch.mu.Lock()
		fn := ch.onCandidate
		ch.mu.Unlock()
		if fn == nil {
			return
		}
		init := cand.ToJSON()
		fn(domain.ICECandidate{
			Candidate:     init.Candidate,
			SDPMid:        init.SDPMid,
			SDPMLineIndex: init.SDPMLineIndex,
		})
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		ch.mu.Lock()
		fn := ch.onState
		ch.mu.Unlock()
		if fn != nil {
			fn(mapConnectionState(state))
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		ch.mu.Lock()
		first := !ch.trackSeen
		ch.trackSeen = true
		fn := ch.onRemoteTrack
		ch.mu.Unlock()
		if first && fn != nil {
			fn()
		}

		if track.Kind() == webrtc.RTPCodecTypeVideo {
			go ch.requestKeyframes(track.SSRC())
		}
		go ch.drainTrack(track)
	})

	return ch
}

func (c *channel) CreateOffer() (domain.SessionDescription, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return domain.SessionDescription{}, err
	}
	return domain.SessionDescription{Type: offer.Type.String(), SDP: offer.SDP}, nil
}

func (c *channel) CreateAnswer() (domain.SessionDescription, error) {
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return domain.SessionDescription{}, err
	}
	return domain.SessionDescription{Type: answer.Type.String(), SDP: answer.SDP}, nil
}

func (c *channel) SetLocalDescription(desc domain.SessionDescription) error {
	return c.pc.SetLocalDescription(toPionDescription(desc))
}

func (c *channel) SetRemoteDescription(desc domain.SessionDescription) error {
	return c.pc.SetRemoteDescription(toPionDescription(desc))
}

func (c *channel) AddCandidate(cand domain.ICECandidate) error {
	return c.pc.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:     cand.Candidate,
		SDPMid:        cand.SDPMid,
		SDPMLineIndex: cand.SDPMLineIndex,
	})
}

func (c *channel) OnCandidate(fn func(domain.ICECandidate)) {
	c.mu.Lock()
	c.onCandidate = fn
	c.mu.Unlock()
}

func (c *channel) OnStateChange(fn func(domain.ChannelState)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

func (c *channel) OnRemoteTrack(fn func()) {
	c.mu.Lock()
	c.onRemoteTrack = fn
	c.mu.Unlock()
}

func (c *channel) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.pc.Close()
}

// requestKeyframes asks the sender for a fresh keyframe periodically so a
// viewer that joins mid-stream starts rendering without waiting for the
// natural keyframe cadence.
func (c *channel) requestKeyframes(ssrc webrtc.SSRC) {
	ticker := time.NewTicker(keyframeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			pli := &rtcp.PictureLossIndication{MediaSSRC: uint32(ssrc)}
			if err := c.pc.WriteRTCP([]rtcp.Packet{pli}); err != nil {
				c.logger.Debugw("keyframe request failed", "error", err)
				return
			}
		}
	}
}

// drainTrack keeps the receiver's RTP queue flowing; rendering is the
// presentation layer's business, not the negotiation core's.
func (c *channel) drainTrack(track *webrtc.TrackRemote) {
	for {
		if _, _, err := track.ReadRTP(); err != nil {
			return
		}
	}
}

func toPionDescription(desc domain.SessionDescription) webrtc.SessionDescription {
	return webrtc.SessionDescription{
		Type: webrtc.NewSDPType(desc.Type),
		SDP:  desc.SDP,
	}
}
