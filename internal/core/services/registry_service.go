package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"beamshare/internal/core/domain"
	"beamshare/internal/core/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const closeReasonHostDisconnected = "host-disconnected"

// maxCodeAttempts bounds room code generation. The code space vastly exceeds
// any realistic concurrent room count, so running out is an internal fault
// needing operator attention, not a per-request error.
const maxCodeAttempts = 1000

// connState pairs a connection context with its transport sender. cleaned
// makes the cleanup path idempotent under disconnect races.
type connState struct {
	ctx     *domain.ConnectionContext
	sender  ports.Sender
	cleaned bool
}

// delivery is one outbound frame decided under the registry lock and sent
// after it is released, so network I/O never blocks unrelated rooms.
type delivery struct {
	sender      ports.Sender
	msg         domain.RelayMessage
	closeReason string
	closeAfter  bool
}

// RegistryService owns all room and connection state. Every mutation is
// serialized behind one mutex; sends happen strictly after the mutation
// completes.
type RegistryService struct {
	mu    sync.Mutex
	rooms map[domain.RoomCode]*domain.Room
	conns map[domain.ConnectionID]*connState
	rng   *rand.Rand

	logger  *zap.SugaredLogger
	metrics ports.MetricsRecorder
}

func NewRegistryService(logger *zap.SugaredLogger, metrics ports.MetricsRecorder) *RegistryService {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &RegistryService{
		rooms:   make(map[domain.RoomCode]*domain.Room),
		conns:   make(map[domain.ConnectionID]*connState),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:  logger,
		metrics: metrics,
	}
}

func (s *RegistryService) Connect(id domain.ConnectionID, sender ports.Sender) {
	s.mu.Lock()
	s.conns[id] = &connState{ctx: domain.NewConnectionContext(id), sender: sender}
	s.mu.Unlock()

	s.metrics.ConnectionOpened()
	s.logger.Infow("connection opened", "connection_id", id)
}

func (s *RegistryService) Disconnect(id domain.ConnectionID) {
	s.mu.Lock()
	cs, exists := s.conns[id]
	if !exists {
		s.mu.Unlock()
		return
	}
	sends := s.cleanupLocked(cs)
	delete(s.conns, id)
	s.mu.Unlock()

	s.dispatch(sends)
	s.metrics.ConnectionClosed()
	s.logger.Infow("connection closed", "connection_id", id, "role", cs.ctx.Role)
}

func (s *RegistryService) Handle(ctx context.Context, id domain.ConnectionID, msg domain.ClientMessage) error {
	switch msg.Type {
	case domain.MsgRegisterHost:
		return s.registerHost(id)
	case domain.MsgJoinRoom:
		return s.joinRoom(id, msg.Code)
	case domain.MsgLeaveRoom:
		return s.leaveRoom(id)
	case domain.MsgSignalHost:
		return s.routeToHost(id, msg)
	case domain.MsgSignalViewer:
		return s.routeToViewer(id, msg)
	default:
		return domain.ErrUnsupportedMessage
	}
}

func (s *RegistryService) Stats() ports.RegistryStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	viewers := 0
	for _, room := range s.rooms {
		viewers += len(room.Viewers)
	}
	return ports.RegistryStats{
		ActiveRooms:       len(s.rooms),
		ActiveConnections: len(s.conns),
		ActiveViewers:     viewers,
	}
}

func (s *RegistryService) registerHost(id domain.ConnectionID) error {
	s.mu.Lock()
	cs, exists := s.conns[id]
	if !exists {
		s.mu.Unlock()
		return domain.ErrConnectionNotFound
	}
	if cs.ctx.Role != domain.RoleUnbound {
		s.mu.Unlock()
		return domain.ErrAlreadyRegistered
	}

	code := s.generateCodeLocked()
	if err := cs.ctx.BindHost(code); err != nil {
		s.mu.Unlock()
		return err
	}
	s.rooms[code] = domain.NewRoom(code, id)
	sends := []delivery{{sender: cs.sender, msg: domain.RoomRegisteredMessage(code)}}
	s.mu.Unlock()

	s.dispatch(sends)
	s.metrics.RoomCreated()
	s.logger.Infow("room registered", "connection_id", id, "code", code)
	return nil
}

func (s *RegistryService) joinRoom(id domain.ConnectionID, rawCode string) error {
	// Format check happens before any registry lookup.
	code := domain.SanitizeRoomCode(rawCode)
	if code == "" {
		return domain.ErrInvalidCode
	}

	s.mu.Lock()
	cs, exists := s.conns[id]
	if !exists {
		s.mu.Unlock()
		return domain.ErrConnectionNotFound
	}
	if cs.ctx.Role != domain.RoleUnbound {
		s.mu.Unlock()
		return domain.ErrAlreadyInRoom
	}

	room, exists := s.rooms[code]
	if !exists {
		s.mu.Unlock()
		return domain.ErrRoomNotFound
	}

	viewerID := domain.ViewerID(uuid.NewString())
	if err := cs.ctx.BindViewer(code, viewerID); err != nil {
		s.mu.Unlock()
		return err
	}
	room.Viewers[viewerID] = cs.ctx

	var sends []delivery
	sends = append(sends, delivery{sender: cs.sender, msg: domain.RoomJoinedMessage(code, viewerID)})
	if host, ok := s.conns[room.HostID]; ok {
		sends = append(sends, delivery{sender: host.sender, msg: domain.ViewerJoinedMessage(viewerID)})
	}
	s.mu.Unlock()

	s.dispatch(sends)
	s.metrics.ViewerJoined()
	s.logger.Infow("viewer joined", "connection_id", id, "code", code, "viewer_id", viewerID)
	return nil
}

func (s *RegistryService) leaveRoom(id domain.ConnectionID) error {
	s.mu.Lock()
	cs, exists := s.conns[id]
	if !exists {
		s.mu.Unlock()
		return domain.ErrConnectionNotFound
	}
	if cs.ctx.Role == domain.RoleUnbound {
		s.mu.Unlock()
		return domain.ErrNotInRoom
	}
	sends := s.cleanupLocked(cs)
	s.mu.Unlock()

	s.dispatch(sends)
	return nil
}

func (s *RegistryService) routeToHost(id domain.ConnectionID, msg domain.ClientMessage) error {
	s.mu.Lock()
	cs, exists := s.conns[id]
	if !exists {
		s.mu.Unlock()
		return domain.ErrConnectionNotFound
	}
	if cs.ctx.Role != domain.RoleViewer {
		s.mu.Unlock()
		return domain.ErrNotAuthorized
	}
	room, exists := s.rooms[cs.ctx.RoomCode]
	if !exists {
		s.mu.Unlock()
		return domain.ErrRoomNotFound
	}
	host, exists := s.conns[room.HostID]
	if !exists {
		s.mu.Unlock()
		return domain.ErrRoomNotFound
	}
	sends := []delivery{{sender: host.sender, msg: domain.SignalFromViewerMessage(cs.ctx.ViewerID, msg.Payload)}}
	s.mu.Unlock()

	s.dispatch(sends)
	s.metrics.SignalRouted(domain.FromViewer)
	return nil
}

func (s *RegistryService) routeToViewer(id domain.ConnectionID, msg domain.ClientMessage) error {
	s.mu.Lock()
	cs, exists := s.conns[id]
	if !exists {
		s.mu.Unlock()
		return domain.ErrConnectionNotFound
	}
	if cs.ctx.Role != domain.RoleHost {
		s.mu.Unlock()
		return domain.ErrNotAuthorized
	}
	room, exists := s.rooms[cs.ctx.RoomCode]
	if !exists {
		s.mu.Unlock()
		return domain.ErrRoomNotFound
	}
	target, exists := room.Viewers[domain.ViewerID(msg.ViewerID)]
	if !exists {
		s.mu.Unlock()
		return domain.ErrViewerNotFound
	}
	targetConn, exists := s.conns[target.ID]
	if !exists {
		s.mu.Unlock()
		return domain.ErrViewerNotFound
	}
	sends := []delivery{{sender: targetConn.sender, msg: domain.SignalFromHostMessage(msg.Payload)}}
	s.mu.Unlock()

	s.dispatch(sends)
	s.metrics.SignalRouted(domain.FromHost)
	return nil
}

// cleanupLocked converges host disconnection, viewer disconnection and
// explicit leave-room onto one path. Invoking it twice on the same context
// performs no further mutation or notification.
func (s *RegistryService) cleanupLocked(cs *connState) []delivery {
	if cs.cleaned {
		return nil
	}
	cs.cleaned = true

	switch cs.ctx.Role {
	case domain.RoleHost:
		room, exists := s.rooms[cs.ctx.RoomCode]
		if !exists || room.HostID != cs.ctx.ID {
			return nil
		}
		delete(s.rooms, room.Code)
		s.metrics.RoomClosed(time.Since(room.CreatedAt))

		var sends []delivery
		for _, viewerCtx := range room.Viewers {
			// Evicted viewers skip their own cleanup path, so their
			// departure is accounted for here.
			s.metrics.ViewerLeft()
			vc, ok := s.conns[viewerCtx.ID]
			if !ok {
				continue
			}
			sends = append(sends, delivery{
				sender:      vc.sender,
				msg:         domain.RoomClosedMessage(),
				closeAfter:  true,
				closeReason: closeReasonHostDisconnected,
			})
		}
		s.logger.Infow("room closed", "code", room.Code, "viewers", len(room.Viewers))
		return sends

	case domain.RoleViewer:
		room, exists := s.rooms[cs.ctx.RoomCode]
		if !exists {
			// Room already torn down by the host's cleanup.
			return nil
		}
		delete(room.Viewers, cs.ctx.ViewerID)
		s.metrics.ViewerLeft()

		host, ok := s.conns[room.HostID]
		if !ok {
			return nil
		}
		s.logger.Infow("viewer left", "code", room.Code, "viewer_id", cs.ctx.ViewerID)
		return []delivery{{sender: host.sender, msg: domain.ViewerLeftMessage(cs.ctx.ViewerID)}}
	}
	return nil
}

// generateCodeLocked samples uniformly over 000000-999999 until it finds a
// code not held by an active room.
func (s *RegistryService) generateCodeLocked() domain.RoomCode {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := domain.RoomCode(fmt.Sprintf("%06d", s.rng.Intn(1000000)))
		if _, taken := s.rooms[code]; !taken {
			return code
		}
	}
	panic("room code space exhausted")
}

// dispatch performs deliveries after the registry lock is released. Send
// failures are logged and dropped; a dead transport is reaped by its own
// connection handler.
func (s *RegistryService) dispatch(sends []delivery) {
	for _, d := range sends {
		if err := d.sender.Send(d.msg); err != nil {
			s.logger.Warnw("dropped outbound frame", "type", d.msg.Type, "error", err)
		}
		if d.closeAfter {
			if err := d.sender.Close(d.closeReason); err != nil {
				s.logger.Debugw("transport close failed", "error", err)
			}
		}
	}
}

// NoopMetrics discards all registry events.
type NoopMetrics struct{}

func (NoopMetrics) ConnectionOpened()        {}
func (NoopMetrics) ConnectionClosed()        {}
func (NoopMetrics) RoomCreated()             {}
func (NoopMetrics) RoomClosed(time.Duration) {}
func (NoopMetrics) ViewerJoined()            {}
func (NoopMetrics) ViewerLeft()              {}
func (NoopMetrics) SignalRouted(string)      {}
func (NoopMetrics) ProtocolError(string)     {}
