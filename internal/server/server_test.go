package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chatwire/chatwire/internal/protocol"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := New(DefaultConfig(), zerolog.Nop())
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"http://localhost:8080"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func writeFrame(t *testing.T, conn *websocket.Conn, m protocol.Message) {
	t.Helper()
	raw, err := protocol.Encode(m)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

func readFrame(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var m protocol.Message
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func register(t *testing.T, conn *websocket.Conn, name string) {
	t.Helper()
	writeFrame(t, conn, protocol.Message{Type: protocol.TypeRegister, Sender: name})
	reply := readFrame(t, conn)
	require.Equal(t, protocol.TypeRegistered, reply.Type)
}

func TestHealthEndpoint(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	req.NoError(err)
	defer func() { _ = resp.Body.Close() }()

	req.Equal(http.StatusOK, resp.StatusCode)
}

func TestWebSocket_RejectsDisallowedOrigin(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	header := http.Header{"Origin": []string{"http://evil.example.com"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if conn != nil {
		_ = conn.Close()
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	req.Error(err)
}

func TestWebSocket_RegisterJoinAndMessage(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	a := dial(t, ts)
	register(t, a, "A")

	writeFrame(t, a, protocol.Message{Type: protocol.TypeJoin, Sender: "A", Destination: "#room1"})
	joined := readFrame(t, a)
	req.Equal(protocol.TypeJoined, joined.Type)
	req.Equal("#room1", joined.Destination)
	req.Equal("A", joined.Content)

	b := dial(t, ts)
	register(t, b, "B")
	writeFrame(t, b, protocol.Message{Type: protocol.TypeJoin, Sender: "B", Destination: "#room1"})

	notice := readFrame(t, a)
	req.Equal(protocol.TypeNotice, notice.Type)
	req.Equal("B", notice.Sender)
	req.Equal("join", notice.Content)

	req.Equal("A, B", readFrame(t, b).Content)

	writeFrame(t, b, protocol.Message{Type: protocol.TypeMsg, Sender: "B", Destination: "#room1", Content: "hi"})
	msg := readFrame(t, a)
	req.Equal(protocol.Message{Type: protocol.TypeMsg, Sender: "B", Destination: "#room1", Content: "hi"}, msg)
}

func TestWebSocket_MalformedFrameGetsErrorAndSurvives(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	conn := dial(t, ts)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	reply := readFrame(t, conn)
	req.Equal(protocol.TypeError, reply.Type)
	req.Equal(protocol.SenderServer, reply.Sender)

	// Connection survives the error.
	register(t, conn, "survivor")
}

func TestWebSocket_DisconnectTriggersLeaveNotice(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	a := dial(t, ts)
	register(t, a, "A")
	writeFrame(t, a, protocol.Message{Type: protocol.TypeJoin, Sender: "A", Destination: "#general"})
	_ = readFrame(t, a) // JOINED

	b := dial(t, ts)
	register(t, b, "B")
	writeFrame(t, b, protocol.Message{Type: protocol.TypeJoin, Sender: "B", Destination: "#general"})
	_ = readFrame(t, a) // B's join NOTICE
	_ = readFrame(t, b) // JOINED

	req.NoError(b.Close())

	notice := readFrame(t, a)
	req.Equal(protocol.TypeNotice, notice.Type)
	req.Equal("B", notice.Sender)
	req.Equal("leave", notice.Content)
}
