package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"beamshare/internal/core/domain"
	"beamshare/internal/core/ports"
	"beamshare/pkg/tracing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ServerOptions carries the transport-level timeouts of the relay.
type ServerOptions struct {
	PingInterval    time.Duration
	PongTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxMessageBytes int64
}

func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		PingInterval:    30 * time.Second,
		PongTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
		MaxMessageBytes: 64 * 1024,
	}
}

// WebSocketServer accepts participant transports and supervises one
// connection context per transport. It holds no routing logic itself; every
// frame goes through the codec and then the registry.
type WebSocketServer struct {
	registry ports.RoomRegistry
	metrics  ports.MetricsRecorder
	opts     ServerOptions
	logger   *zap.SugaredLogger
}

func NewWebSocketServer(registry ports.RoomRegistry, metrics ports.MetricsRecorder, opts ServerOptions, logger *zap.SugaredLogger) *WebSocketServer {
	return &WebSocketServer{
		registry: registry,
		metrics:  metrics,
		opts:     opts,
		logger:   logger,
	}
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	connID := domain.ConnectionID(uuid.NewString())
	sender := newWSSender(conn, s.opts.WriteTimeout)

	s.registry.Connect(connID, sender)
	s.logger.Infow("participant connected", "connection_id", connID, "remote", r.RemoteAddr)

	if s.opts.MaxMessageBytes > 0 {
		conn.SetReadLimit(s.opts.MaxMessageBytes)
	}
	conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
		return nil
	})

	pingTicker := time.NewTicker(s.opts.PingInterval)
	defer pingTicker.Stop()

	frameChan := make(chan []byte, 10)
	errorChan := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	// Reader goroutine feeds the per-connection handler loop, preserving
	// frame order.
	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				errorChan <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
			select {
			case frameChan <- raw:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case raw := <-frameChan:
			s.handleFrame(connID, sender, raw)

		case <-pingTicker.C:
			if err := sender.Ping(); err != nil {
				s.logger.Infow("ping failed, dropping connection", "connection_id", connID, "error", err)
				goto cleanup
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Infow("read error", "connection_id", connID, "error", err)
			}
			goto cleanup
		}
	}

cleanup:
	// Abrupt drops converge on the same cleanup path as an explicit
	// leave-room.
	s.registry.Disconnect(connID)
	s.logger.Infow("participant disconnected", "connection_id", connID)
}

// handleFrame decodes and dispatches one frame. A failure here is replied to
// this connection and never touches another connection's state.
func (s *WebSocketServer) handleFrame(connID domain.ConnectionID, sender ports.Sender, raw []byte) {
	msg, decodeErr := DecodeClient(raw)
	if decodeErr != nil {
		s.metrics.ProtocolError(string(decodeErr.Reason))
		s.reply(sender, decodeErr)
		return
	}

	ctx, span := tracing.TraceSignalFrame(context.Background(), msg.Type, string(connID))
	defer span.End()

	if err := s.registry.Handle(ctx, connID, msg); err != nil {
		tracing.RecordError(ctx, err)
		if relayErr, ok := domain.AsRelayError(err); ok {
			s.metrics.ProtocolError(string(relayErr.Reason))
			s.reply(sender, relayErr)
			return
		}
		s.logger.Errorw("frame handling failed", "connection_id", connID, "type", msg.Type, "error", err)
	}
}

func (s *WebSocketServer) reply(sender ports.Sender, relayErr *domain.RelayError) {
	if err := sender.Send(domain.ErrorMessage(relayErr)); err != nil {
		s.logger.Debugw("error reply not delivered", "error", err)
	}
}

// wsSender serializes writes to one gorilla connection. The registry and the
// ping ticker send concurrently, and gorilla permits a single writer only.
type wsSender struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func newWSSender(conn *websocket.Conn, writeTimeout time.Duration) *wsSender {
	return &wsSender{conn: conn, writeTimeout: writeTimeout}
}

func (w *wsSender) Send(msg domain.RelayMessage) error {
	data, err := EncodeRelay(msg)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsSender) Ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(w.writeTimeout))
}

func (w *wsSender) Close(reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	deadline := time.Now().Add(w.writeTimeout)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	if err := w.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		return w.conn.Close()
	}
	return w.conn.Close()
}
