package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"beamshare/internal/core/domain"
	"beamshare/internal/core/ports"

	"go.uber.org/zap"
)

// hostPeerKey is the single remote counterpart a viewer negotiates with.
const hostPeerKey = "host"

// SessionConfig wires a session to its collaborators. Source is required for
// hosts and ignored for viewers.
type SessionConfig struct {
	RelayURL   string
	Dialer     ports.TransportDialer
	Engine     ports.MediaEngine
	Source     ports.CaptureSource
	Logger     *zap.SugaredLogger
	OnSnapshot func(domain.Snapshot)
}

// SessionService runs the negotiation state machine for one endpoint. The
// same machine serves both roles: a host initiates one peer session per
// viewer, a viewer responds on exactly one peer session with the host.
type SessionService struct {
	cfg  SessionConfig
	role domain.Role

	mu        sync.Mutex
	hostPhase HostPhase
	viewPhase ViewerPhase
	roomCode  domain.RoomCode
	viewerID  domain.ViewerID
	errText   string
	transport ports.SignalTransport
	peers     map[string]*peerSession
	ready     map[string]struct{}
	stopped   bool
}

func NewHostSession(cfg SessionConfig) *SessionService {
	return newSession(cfg, domain.RoleHost)
}

func NewViewerSession(cfg SessionConfig) *SessionService {
	return newSession(cfg, domain.RoleViewer)
}

func newSession(cfg SessionConfig, role domain.Role) *SessionService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &SessionService{
		cfg:   cfg,
		role:  role,
		peers: make(map[string]*peerSession),
		ready: make(map[string]struct{}),
	}
}

// StartSharing acquires the media source, connects to the relay and
// registers a room. Host role only.
func (s *SessionService) StartSharing(ctx context.Context) error {
	if s.role != domain.RoleHost {
		return fmt.Errorf("start sharing on a %s session", s.role)
	}
	s.mu.Lock()
	if s.hostPhase != HostPhaseIdle {
		s.mu.Unlock()
		return nil
	}
	s.stopped = false
	s.errText = ""
	s.hostPhase = HostPhaseAcquiring
	s.mu.Unlock()
	s.emit()

	if err := s.cfg.Source.Start(s.cfg.Engine.OutgoingSink()); err != nil {
		s.failLocal(fmt.Sprintf("screen capture failed: %v", err))
		return err
	}

	s.mu.Lock()
	s.hostPhase = HostPhaseDialing
	s.mu.Unlock()
	s.emit()

	tr, err := s.cfg.Dialer(ctx, s.cfg.RelayURL)
	if err != nil {
		s.cfg.Source.Stop()
		s.failLocal("unable to reach signaling server")
		return err
	}
	s.attachTransport(tr)

	if err := tr.Send(domain.ClientMessage{Type: domain.MsgRegisterHost}); err != nil {
		s.Stop()
		s.setError("unable to reach signaling server")
		return err
	}
	return nil
}

// StartViewing connects to the relay and joins the room with the given code.
// Viewer role only.
func (s *SessionService) StartViewing(ctx context.Context, rawCode string) error {
	if s.role != domain.RoleViewer {
		return fmt.Errorf("start viewing on a %s session", s.role)
	}
	code := domain.SanitizeRoomCode(rawCode)
	if code == "" {
		s.setError("room codes are six digits long")
		return domain.ErrInvalidCode
	}

	s.mu.Lock()
	if s.viewPhase != ViewerPhaseIdle && s.viewPhase != ViewerPhaseEnded {
		s.mu.Unlock()
		return nil
	}
	s.stopped = false
	s.errText = ""
	s.viewPhase = ViewerPhaseDialing
	s.mu.Unlock()
	s.emit()

	tr, err := s.cfg.Dialer(ctx, s.cfg.RelayURL)
	if err != nil {
		s.failLocal("unable to reach signaling server")
		return err
	}
	s.attachTransport(tr)

	if err := tr.Send(domain.ClientMessage{Type: domain.MsgJoinRoom, Code: string(code)}); err != nil {
		s.Stop()
		s.setError("unable to reach signaling server")
		return err
	}
	return nil
}

// Stop cancels the session from any state. It is idempotent, does not block
// on in-flight network operations, and releases resources best effort.
func (s *SessionService) Stop() {
	s.mu.Lock()
	if s.stopped && s.transport == nil && len(s.peers) == 0 {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	tr := s.transport
	s.transport = nil
	peers := s.peers
	s.peers = make(map[string]*peerSession)
	s.ready = make(map[string]struct{})
	s.roomCode = ""
	s.viewerID = ""
	s.hostPhase = HostPhaseIdle
	if s.viewPhase != ViewerPhaseEnded {
		s.viewPhase = ViewerPhaseIdle
	}
	s.mu.Unlock()

	for _, ps := range peers {
		ps.finish(domain.SessionClosed)
	}
	if tr != nil {
		if err := tr.Send(domain.ClientMessage{Type: domain.MsgLeaveRoom}); err != nil {
			s.cfg.Logger.Debugw("leave-room not delivered", "error", err)
		}
		if err := tr.Close(); err != nil {
			s.cfg.Logger.Debugw("transport close failed", "error", err)
		}
	}
	if s.role == domain.RoleHost && s.cfg.Source != nil {
		s.cfg.Source.Stop()
	}
	s.emit()
}

// Snapshot returns the current read-only projection.
func (s *SessionService) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *SessionService) attachTransport(tr ports.SignalTransport) {
	s.mu.Lock()
	s.transport = tr
	s.mu.Unlock()
	go s.eventLoop(tr)
}

// eventLoop consumes relay frames in arrival order. Per-peer work runs on
// separate goroutines keyed by the peer identity carried in each message.
func (s *SessionService) eventLoop(tr ports.SignalTransport) {
	for {
		select {
		case msg, ok := <-tr.Messages():
			if !ok {
				s.onTransportLost(domain.ErrTransportClosed)
				return
			}
			s.handleRelayMessage(msg)
		case err := <-tr.Errors():
			s.onTransportLost(err)
			return
		}
	}
}

func (s *SessionService) handleRelayMessage(msg domain.RelayMessage) {
	switch msg.Type {
	case domain.MsgRoomRegistered:
		s.mu.Lock()
		// A frame buffered on the transport when Stop ran must not
		// resurrect the session.
		if s.stopped {
			s.mu.Unlock()
			return
		}
		s.roomCode = domain.RoomCode(msg.Code)
		s.hostPhase = HostPhaseRegistered
		s.mu.Unlock()
		s.emit()

	case domain.MsgRoomJoined:
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		s.roomCode = domain.RoomCode(msg.Code)
		s.viewerID = domain.ViewerID(msg.ViewerID)
		s.viewPhase = ViewerPhaseJoined
		s.mu.Unlock()
		s.emit()

	case domain.MsgViewerJoined:
		go s.startPeer(msg.ViewerID)

	case domain.MsgViewerLeft:
		go s.removePeer(msg.ViewerID, domain.SessionClosed)

	case domain.MsgRoomClosed:
		s.endViewing("the presenter ended the session")

	case domain.MsgSignal:
		s.dispatchSignal(msg)

	case domain.MsgError:
		s.handleErrorFrame(msg)

	default:
		s.cfg.Logger.Debugw("ignoring relay frame", "type", msg.Type)
	}
}

func (s *SessionService) dispatchSignal(msg domain.RelayMessage) {
	var env domain.SignalEnvelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		s.cfg.Logger.Warnw("undecodable signal payload", "error", err)
		return
	}
	if err := env.Validate(); err != nil {
		s.cfg.Logger.Warnw("invalid signal envelope", "error", err)
		return
	}

	switch {
	case s.role == domain.RoleHost && msg.From == domain.FromViewer && msg.ViewerID != "":
		go s.applyPeerSignal(msg.ViewerID, env)
	case s.role == domain.RoleViewer && msg.From == domain.FromHost:
		go s.applyPeerSignal(hostPeerKey, env)
	default:
		s.cfg.Logger.Debugw("signal for wrong role dropped", "from", msg.From)
	}
}

func (s *SessionService) handleErrorFrame(msg domain.RelayMessage) {
	s.cfg.Logger.Warnw("signaling error", "reason", msg.Reason, "recoverable", msg.Recoverable)
	if s.role == domain.RoleViewer {
		if msg.Recoverable {
			// A recoverable rejection returns the viewer to idle,
			// free to retry with another code.
			s.Stop()
			s.setError(fmt.Sprintf("signaling error: %s", msg.Reason))
			return
		}
		s.endViewing(fmt.Sprintf("signaling error: %s", msg.Reason))
		return
	}
	s.setError(fmt.Sprintf("signaling error: %s", msg.Reason))
}

// startPeer creates a peer session and sends the initial offer. Host side.
// The offer carries send-only media; the host never receives from a viewer.
func (s *SessionService) startPeer(viewerID string) {
	s.mu.Lock()
	if s.stopped || s.peers[viewerID] != nil {
		s.mu.Unlock()
		return
	}
	ps := newPeerSession(viewerID)
	s.peers[viewerID] = ps
	s.mu.Unlock()

	ch, err := s.cfg.Engine.NewChannel(ports.ChannelConfig{Outgoing: true})
	if err != nil {
		s.cfg.Logger.Errorw("media channel creation failed", "viewer_id", viewerID, "error", err)
		s.removePeer(viewerID, domain.SessionFailed)
		return
	}
	ps.setChannel(ch)
	s.wireChannel(ps, ch)

	offer, err := ch.CreateOffer()
	if err != nil {
		s.containFailure(viewerID, fmt.Errorf("create offer: %w", err))
		return
	}
	if err := ch.SetLocalDescription(offer); err != nil {
		s.containFailure(viewerID, fmt.Errorf("set local description: %w", err))
		return
	}
	ps.advance(domain.SessionOfferExchanged)
	s.sendEnvelope(viewerID, domain.OfferEnvelope(offer))
}

// ensureViewerPeer lazily creates the viewer's single peer session, so a
// candidate arriving before the offer still has a session to buffer on.
func (s *SessionService) ensureViewerPeer() (*peerSession, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, domain.ErrSessionStopped
	}
	if ps, ok := s.peers[hostPeerKey]; ok {
		s.mu.Unlock()
		return ps, nil
	}
	ps := newPeerSession(hostPeerKey)
	s.peers[hostPeerKey] = ps
	s.mu.Unlock()

	ch, err := s.cfg.Engine.NewChannel(ports.ChannelConfig{Outgoing: false})
	if err != nil {
		s.removePeer(hostPeerKey, domain.SessionFailed)
		return nil, fmt.Errorf("create media channel: %w", err)
	}
	ps.setChannel(ch)
	s.wireChannel(ps, ch)
	ch.OnRemoteTrack(func() {
		s.mu.Lock()
		if s.viewPhase == ViewerPhaseJoined {
			s.viewPhase = ViewerPhaseWatching
		}
		s.mu.Unlock()
		s.emit()
	})
	return ps, nil
}

func (s *SessionService) wireChannel(ps *peerSession, ch ports.MediaChannel) {
	// Trickle policy: every local candidate is forwarded individually the
	// moment the engine produces it.
	ch.OnCandidate(func(cand domain.ICECandidate) {
		s.sendEnvelope(ps.id, domain.CandidateEnvelope(cand))
	})
	ch.OnStateChange(func(state domain.ChannelState) {
		s.onChannelState(ps.id, state)
	})
}

func (s *SessionService) onChannelState(peerID string, state domain.ChannelState) {
	switch state {
	case domain.ChannelConnecting:
		if ps := s.peer(peerID); ps != nil {
			ps.advance(domain.SessionConnecting)
		}
	case domain.ChannelConnected:
		ps := s.peer(peerID)
		if ps == nil {
			return
		}
		ps.advance(domain.SessionConnected)
		s.mu.Lock()
		s.ready[peerID] = struct{}{}
		s.mu.Unlock()
		s.emit()
	case domain.ChannelDisconnected:
		s.removePeer(peerID, domain.SessionDisconnected)
	case domain.ChannelFailed:
		s.removePeer(peerID, domain.SessionFailed)
	case domain.ChannelClosed:
		s.removePeer(peerID, domain.SessionClosed)
	}
}

// applyPeerSignal consumes one forwarded envelope for the given peer.
func (s *SessionService) applyPeerSignal(peerID string, env domain.SignalEnvelope) {
	var ps *peerSession
	if s.role == domain.RoleViewer {
		created, err := s.ensureViewerPeer()
		if err != nil {
			s.cfg.Logger.Errorw("peer session unavailable", "error", err)
			return
		}
		ps = created
	} else {
		ps = s.peer(peerID)
		if ps == nil {
			s.cfg.Logger.Warnw("signal for unknown peer dropped", "peer_id", peerID)
			return
		}
	}

	switch env.Kind {
	case domain.SignalOffer:
		if s.role != domain.RoleViewer {
			s.cfg.Logger.Debugw("host ignoring offer from viewer", "peer_id", peerID)
			return
		}
		s.answerOffer(ps, *env.Description)

	case domain.SignalAnswer:
		if s.role != domain.RoleHost {
			// Viewers never receive answers; drop quietly.
			return
		}
		if err := ps.applyRemoteDescription(*env.Description); err != nil {
			s.containFailure(peerID, err)
			return
		}
		ps.advance(domain.SessionAnswerExchanged)

	case domain.SignalICECandidate:
		if err := ps.addCandidate(*env.Candidate); err != nil {
			s.containFailure(peerID, err)
		}
	}
}

// answerOffer applies the host's offer, synthesizes an answer, applies it
// locally and replies.
func (s *SessionService) answerOffer(ps *peerSession, offer domain.SessionDescription) {
	if err := ps.applyRemoteDescription(offer); err != nil {
		s.containFailure(ps.id, err)
		return
	}
	ps.advance(domain.SessionOfferExchanged)

	ps.mu.Lock()
	ch := ps.channel
	ps.mu.Unlock()
	if ch == nil {
		return
	}
	answer, err := ch.CreateAnswer()
	if err != nil {
		s.containFailure(ps.id, fmt.Errorf("create answer: %w", err))
		return
	}
	if err := ch.SetLocalDescription(answer); err != nil {
		s.containFailure(ps.id, fmt.Errorf("set local description: %w", err))
		return
	}
	ps.advance(domain.SessionAnswerExchanged)
	s.sendEnvelope(ps.id, domain.AnswerEnvelope(answer))
}

// sendEnvelope forwards a negotiation payload through the relay, addressed
// by role: hosts target a specific viewer, viewers always target the host.
func (s *SessionService) sendEnvelope(peerID string, env domain.SignalEnvelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		s.cfg.Logger.Errorw("envelope encoding failed", "error", err)
		return
	}

	s.mu.Lock()
	tr := s.transport
	s.mu.Unlock()
	if tr == nil {
		s.cfg.Logger.Debugw("dropping signal, transport gone", "peer_id", peerID)
		return
	}

	msg := domain.ClientMessage{Type: domain.MsgSignalHost, Payload: payload}
	if s.role == domain.RoleHost {
		msg = domain.ClientMessage{Type: domain.MsgSignalViewer, ViewerID: peerID, Payload: payload}
	}
	if err := tr.Send(msg); err != nil {
		s.cfg.Logger.Warnw("signal send failed", "peer_id", peerID, "error", err)
	}
}

// containFailure tears down one peer session and leaves every other session
// untouched.
func (s *SessionService) containFailure(peerID string, err error) {
	s.cfg.Logger.Errorw("negotiation failed", "peer_id", peerID, "error", err)
	s.removePeer(peerID, domain.SessionFailed)
	if s.role == domain.RoleViewer {
		s.setError("media negotiation failed")
	}
}

func (s *SessionService) removePeer(peerID string, final domain.SessionState) {
	s.mu.Lock()
	ps, exists := s.peers[peerID]
	if !exists {
		s.mu.Unlock()
		return
	}
	delete(s.peers, peerID)
	delete(s.ready, peerID)
	if s.role == domain.RoleViewer && s.viewPhase == ViewerPhaseWatching {
		s.viewPhase = ViewerPhaseJoined
	}
	s.mu.Unlock()

	ps.finish(final)
	s.emit()
}

func (s *SessionService) peer(peerID string) *peerSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peers[peerID]
}

// onTransportLost escalates a signaling transport failure to a full local
// teardown.
func (s *SessionService) onTransportLost(err error) {
	s.mu.Lock()
	if s.stopped || s.transport == nil {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.cfg.Logger.Warnw("signaling transport lost", "error", err)
	s.Stop()
	if s.role == domain.RoleHost {
		s.setError("lost connection to signaling server")
	} else {
		s.setError("lost connection to presenter")
	}
}

// endViewing finishes a viewer session in the Ended state.
func (s *SessionService) endViewing(reason string) {
	s.mu.Lock()
	s.viewPhase = ViewerPhaseEnded
	s.mu.Unlock()
	s.Stop()
	s.setError(reason)
}

func (s *SessionService) failLocal(reason string) {
	s.mu.Lock()
	s.hostPhase = HostPhaseIdle
	if s.viewPhase != ViewerPhaseEnded {
		s.viewPhase = ViewerPhaseIdle
	}
	s.errText = reason
	s.mu.Unlock()
	s.emit()
}

func (s *SessionService) setError(text string) {
	s.mu.Lock()
	s.errText = text
	s.mu.Unlock()
	s.emit()
}

// ClearError resets the user-facing error text.
func (s *SessionService) ClearError() {
	s.setError("")
}

func (s *SessionService) emit() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	cb := s.cfg.OnSnapshot
	s.mu.Unlock()
	if cb != nil {
		cb(snap)
	}
}

func (s *SessionService) snapshotLocked() domain.Snapshot {
	var status domain.Status
	if s.role == domain.RoleHost {
		status = ProjectHostStatus(s.hostPhase, len(s.ready))
	} else {
		status = ProjectViewerStatus(s.viewPhase)
	}
	return domain.Snapshot{
		Status:      status,
		RoomCode:    s.roomCode,
		ViewerCount: len(s.ready),
		Err:         s.errText,
	}
}
