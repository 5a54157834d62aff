package server

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feltworks/tourneyd/protocol"
)

func testGatewayServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.History = nil
	srv, err := New(cfg, log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel}))
	require.NoError(t, err)
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts
}

func dialBot(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeMessage(t *testing.T, conn *websocket.Conn, mt protocol.MessageType, payload any) {
	t.Helper()
	msg, err := protocol.NewMessage(mt, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))
}

// readType reads frames until one of the wanted type arrives.
func readType(t *testing.T, conn *websocket.Conn, mt protocol.MessageType) *protocol.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg protocol.Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == mt {
			return &msg
		}
	}
}

func readError(t *testing.T, conn *websocket.Conn) protocol.Error {
	t.Helper()
	var e protocol.Error
	require.NoError(t, readType(t, conn, protocol.TypeError).Decode(&e))
	return e
}

func TestGatewayRegisterAck(t *testing.T) {
	ts := testGatewayServer(t)
	conn := dialBot(t, ts)

	writeMessage(t, conn, protocol.TypeRegister, protocol.Register{PlayerName: "alice"})

	var ack protocol.RegisterAck
	require.NoError(t, readType(t, conn, protocol.TypeRegisterAck).Decode(&ack))
	assert.NotEmpty(t, ack.PlayerID)
	assert.NotEmpty(t, ack.Token, "a fresh registration is issued a token")
	assert.False(t, ack.Resumed)
	assert.Empty(t, ack.TableID, "unseated until the tournament starts")
}

func TestGatewayStrikesDropSession(t *testing.T) {
	ts := testGatewayServer(t)
	conn := dialBot(t, ts)

	// Acting before registering breaches the session contract; rule
	// rejections would come back with the validator's code instead.
	act := func() {
		writeMessage(t, conn, protocol.TypeActionResponse, protocol.ActionResponse{Kind: "check"})
	}

	act()
	assert.Equal(t, protocol.ErrCodeBadMessage, readError(t, conn).Code)
	act()
	assert.Equal(t, protocol.ErrCodeBadMessage, readError(t, conn).Code)
	act()
	assert.Equal(t, protocol.ErrCodeTooManyErrors, readError(t, conn).Code)

	// The third strike drops the connection.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg protocol.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
	}
}

func TestGatewayUnknownTypeIsStrike(t *testing.T) {
	ts := testGatewayServer(t)
	conn := dialBot(t, ts)

	writeMessage(t, conn, protocol.MessageType("deal_me_in"), nil)
	e := readError(t, conn)
	assert.Equal(t, protocol.ErrCodeBadMessage, e.Code)
	assert.Contains(t, e.Message, "deal_me_in")
}

func TestProtocolError(t *testing.T) {
	err := protoErr(protocol.ErrCodeBadMessage, "unknown action kind %s", "splash")
	assert.Equal(t, protocol.ErrCodeBadMessage, err.Code)
	assert.EqualError(t, err, "protocol error bad_message: unknown action kind splash")
}
