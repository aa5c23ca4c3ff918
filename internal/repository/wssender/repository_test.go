package wssender

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialPair upgrades one connection against a local server and returns both
// ends.
func dialPair(t *testing.T) (serverConn, clientConn *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conns := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Error(err)
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)

	clientConn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	serverConn = <-conns

	return serverConn, clientConn
}

func TestSendDelivers(t *testing.T) {
	r := NewRepo(slog.Default())
	serverConn, clientConn := dialPair(t)

	require.NoError(t, r.Add(serverConn, "member-1"))
	require.NoError(t, r.Send("member-1", []byte(`{"type":"connected"}`)))

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := clientConn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"connected"}`, string(data))
}

func TestCloseWithCode(t *testing.T) {
	r := NewRepo(slog.Default())
	serverConn, clientConn := dialPair(t)

	require.NoError(t, r.Add(serverConn, "member-1"))
	require.NoError(t, r.CloseWithCode("member-1", websocket.CloseGoingAway, "superseded by a newer connection"))

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := clientConn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))

	// the member is deregistered, a later send has nowhere to go
	assert.ErrorIs(t, r.Send("member-1", []byte(`{}`)), ErrNotFound)
}

func TestCloseWithCodeUnknownMember(t *testing.T) {
	r := NewRepo(slog.Default())

	assert.ErrorIs(t, r.CloseWithCode("nobody", websocket.CloseGoingAway, "gone"), ErrNotFound)
}
