package signal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"beamshare/internal/core/domain"
	"beamshare/internal/core/services"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const readWait = 2 * time.Second

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()
	registry := services.NewRegistryService(logger, nil)
	wsServer := NewWebSocketServer(registry, services.NoopMetrics{}, DefaultServerOptions(), logger)

	ts := httptest.NewServer(http.HandlerFunc(wsServer.HandleWebSocket))
	t.Cleanup(ts.Close)
	return ts
}

func dialTest(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendClient(t *testing.T, conn *websocket.Conn, msg domain.ClientMessage) {
	t.Helper()
	data, err := EncodeClient(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func readRelay(t *testing.T, conn *websocket.Conn) domain.RelayMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(readWait))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := DecodeRelay(data)
	require.NoError(t, err)
	return msg
}

func registerHost(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	sendClient(t, conn, domain.ClientMessage{Type: domain.MsgRegisterHost})
	msg := readRelay(t, conn)
	require.Equal(t, domain.MsgRoomRegistered, msg.Type)
	require.Regexp(t, `^\d{6}$`, msg.Code)
	return msg.Code
}

func TestWebSocketServer_RegisterAndJoin(t *testing.T) {
	ts := newTestServer(t)

	host := dialTest(t, ts)
	code := registerHost(t, host)

	viewer := dialTest(t, ts)
	sendClient(t, viewer, domain.ClientMessage{Type: domain.MsgJoinRoom, Code: code})

	joined := readRelay(t, viewer)
	require.Equal(t, domain.MsgRoomJoined, joined.Type)
	assert.Equal(t, code, joined.Code)
	require.NotEmpty(t, joined.ViewerID)

	notified := readRelay(t, host)
	require.Equal(t, domain.MsgViewerJoined, notified.Type)
	assert.Equal(t, joined.ViewerID, notified.ViewerID)
}

func TestWebSocketServer_SignalRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	host := dialTest(t, ts)
	code := registerHost(t, host)

	viewer := dialTest(t, ts)
	sendClient(t, viewer, domain.ClientMessage{Type: domain.MsgJoinRoom, Code: code})
	joined := readRelay(t, viewer)
	viewerID := joined.ViewerID
	readRelay(t, host) // viewer-joined

	offer, _ := json.Marshal(domain.OfferEnvelope(domain.SessionDescription{Type: "offer", SDP: "v=0"}))
	sendClient(t, host, domain.ClientMessage{Type: domain.MsgSignalViewer, ViewerID: viewerID, Payload: offer})

	got := readRelay(t, viewer)
	require.Equal(t, domain.MsgSignal, got.Type)
	assert.Equal(t, domain.FromHost, got.From)
	assert.JSONEq(t, string(offer), string(got.Payload))

	answer, _ := json.Marshal(domain.AnswerEnvelope(domain.SessionDescription{Type: "answer", SDP: "v=0"}))
	sendClient(t, viewer, domain.ClientMessage{Type: domain.MsgSignalHost, Payload: answer})

	got = readRelay(t, host)
	require.Equal(t, domain.MsgSignal, got.Type)
	assert.Equal(t, domain.FromViewer, got.From)
	assert.Equal(t, viewerID, got.ViewerID)
	assert.JSONEq(t, string(answer), string(got.Payload))
}

func TestWebSocketServer_MalformedFrameKeepsConnection(t *testing.T) {
	ts := newTestServer(t)
	conn := dialTest(t, ts)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":`)))
	errFrame := readRelay(t, conn)
	require.Equal(t, domain.MsgError, errFrame.Type)
	assert.Equal(t, string(domain.ReasonInvalidJSON), errFrame.Reason)
	assert.False(t, errFrame.Recoverable)

	// The connection survives the bad frame.
	registerHost(t, conn)
}

func TestWebSocketServer_RecoverableErrorFrame(t *testing.T) {
	ts := newTestServer(t)
	conn := dialTest(t, ts)

	sendClient(t, conn, domain.ClientMessage{Type: domain.MsgJoinRoom, Code: "000000"})
	errFrame := readRelay(t, conn)
	require.Equal(t, domain.MsgError, errFrame.Type)
	assert.Equal(t, string(domain.ReasonRoomNotFound), errFrame.Reason)
	assert.True(t, errFrame.Recoverable)

	// Retrying with a real code on the same connection works.
	host := dialTest(t, ts)
	code := registerHost(t, host)
	sendClient(t, conn, domain.ClientMessage{Type: domain.MsgJoinRoom, Code: code})
	assert.Equal(t, domain.MsgRoomJoined, readRelay(t, conn).Type)
}

func TestWebSocketServer_HostDisconnectClosesViewers(t *testing.T) {
	ts := newTestServer(t)

	host := dialTest(t, ts)
	code := registerHost(t, host)

	viewer := dialTest(t, ts)
	sendClient(t, viewer, domain.ClientMessage{Type: domain.MsgJoinRoom, Code: code})
	readRelay(t, viewer)

	require.NoError(t, host.Close())

	closedFrame := readRelay(t, viewer)
	assert.Equal(t, domain.MsgRoomClosed, closedFrame.Type)

	// The relay then closes the viewer transport with a normal closure.
	viewer.SetReadDeadline(time.Now().Add(readWait))
	_, _, err := viewer.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestWebSocketServer_ViewerDisconnectNotifiesHost(t *testing.T) {
	ts := newTestServer(t)

	host := dialTest(t, ts)
	code := registerHost(t, host)

	viewer := dialTest(t, ts)
	sendClient(t, viewer, domain.ClientMessage{Type: domain.MsgJoinRoom, Code: code})
	joined := readRelay(t, viewer)
	readRelay(t, host) // viewer-joined

	require.NoError(t, viewer.Close())

	left := readRelay(t, host)
	require.Equal(t, domain.MsgViewerLeft, left.Type)
	assert.Equal(t, joined.ViewerID, left.ViewerID)
}
