package wsclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer records the token and every frame it receives, and answers each
// frame with the same bytes.
func echoServer(t *testing.T, tokens chan<- string, frames chan<- string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens <- r.URL.Query().Get("token")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			messageType, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- string(frame)
			if err := conn.WriteMessage(messageType, frame); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func TestConn_JoinLeaveAndListen(t *testing.T) {
	tokens := make(chan string, 1)
	frames := make(chan string, 8)
	server := echoServer(t, tokens, frames)

	conn, err := Dial(context.Background(), wsURL(server), "tok en")
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "tok en", <-tokens)
	assert.True(t, conn.Ready())

	received := make(chan string, 8)
	go conn.Listen(func(frame []byte) { received <- string(frame) })

	require.NoError(t, conn.JoinRoom("42"))
	require.NoError(t, conn.LeaveRoom("42"))

	assert.JSONEq(t, `{"type":"join_room","roomId":"42"}`, <-frames)
	assert.JSONEq(t, `{"type":"leave_room","roomId":"42"}`, <-frames)

	select {
	case frame := <-received:
		assert.JSONEq(t, `{"type":"join_room","roomId":"42"}`, frame)
	case <-time.After(time.Second):
		t.Fatal("no echo received")
	}
}

func TestConn_NotReadyAfterServerClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Unauthenticated"),
		)
		conn.Close()
	}))
	defer server.Close()

	conn, err := Dial(context.Background(), wsURL(server), "")
	require.NoError(t, err)

	err = conn.Listen(func([]byte) {})
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
	assert.False(t, conn.Ready())
	assert.ErrorIs(t, conn.Send([]byte(`{}`)), ErrClosed)
}

func TestDial_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := Dial(ctx, "ws://127.0.0.1:1/ws", "t")
	assert.Error(t, err)
}
