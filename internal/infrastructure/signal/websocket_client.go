package signal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"beamshare/internal/core/domain"
	"beamshare/internal/core/ports"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const clientWriteTimeout = 10 * time.Second

// WebSocketClient is the endpoint side of the signaling connection. It reads
// relay frames into an ordered channel and serializes writes.
type WebSocketClient struct {
	conn   *websocket.Conn
	logger *zap.SugaredLogger

	writeMu sync.Mutex

	messages  chan domain.RelayMessage
	errs      chan error
	closeOnce sync.Once
}

// Dial opens a signaling connection to the relay at url.
func Dial(ctx context.Context, url string, logger *zap.SugaredLogger) (*WebSocketClient, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial signaling server %s: %w", url, err)
	}

	c := &WebSocketClient{
		conn:     conn,
		logger:   logger,
		messages: make(chan domain.RelayMessage, 10),
		errs:     make(chan error, 1),
	}
	go c.readLoop()
	return c, nil
}

// NewDialer adapts Dial to the transport dialer port.
func NewDialer(logger *zap.SugaredLogger) ports.TransportDialer {
	return func(ctx context.Context, url string) (ports.SignalTransport, error) {
		return Dial(ctx, url, logger)
	}
}

func (c *WebSocketClient) Send(msg domain.ClientMessage) error {
	data, err := EncodeClient(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(clientWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *WebSocketClient) Messages() <-chan domain.RelayMessage {
	return c.messages
}

func (c *WebSocketClient) Errors() <-chan error {
	return c.errs
}

func (c *WebSocketClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		deadline := time.Now().Add(clientWriteTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *WebSocketClient) readLoop() {
	defer close(c.messages)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.errs <- err
			}
			return
		}
		msg, err := DecodeRelay(raw)
		if err != nil {
			c.logger.Warnw("undecodable relay frame dropped", "error", err)
			continue
		}
		c.messages <- msg
	}
}
