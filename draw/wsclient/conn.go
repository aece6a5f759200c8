package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var ErrClosed = errors.New("connection closed")

// Conn is a client side realtime connection. It implements draw.Transport.
type Conn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

type roomFrame struct {
	Type   string `json:"type"`
	RoomId string `json:"roomId"`
}

// Dial connects to wsURL (ws:// or wss://) authenticating with token.
func Dial(ctx context.Context, wsURL string, token string) (*Conn, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return &Conn{conn: conn}, nil
}

func (c *Conn) Ready() bool {
	return !c.closed.Load()
}

func (c *Conn) Send(frame []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.closed.Store(true)
		return err
	}
	return nil
}

func (c *Conn) JoinRoom(roomId string) error {
	return c.sendRoomFrame("join_room", roomId)
}

func (c *Conn) LeaveRoom(roomId string) error {
	return c.sendRoomFrame("leave_room", roomId)
}

func (c *Conn) sendRoomFrame(frameType string, roomId string) error {
	frame, err := json.Marshal(roomFrame{Type: frameType, RoomId: roomId})
	if err != nil {
		return err
	}
	return c.Send(frame)
}

// Listen passes every inbound frame to handler until the connection ends.
// It returns the close error, a *websocket.CloseError when the server closed
// the connection.
func (c *Conn) Listen(handler func(frame []byte)) error {
	defer c.closed.Store(true)
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		handler(frame)
	}
}

func (c *Conn) Close() error {
	c.closed.Store(true)
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	return c.conn.Close()
}
