package ws

import (
	"context"
	"log"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/zlnvch/sketchroom/models"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

type ClientOptions struct {
	SendBuffer        int
	MessagesPerSecond float64
	Burst             int
	// MaxMessageBytes bounds a single inbound frame.
	MaxMessageBytes int64
}

func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		SendBuffer:        128,
		MessagesPerSecond: 20,
		Burst:             30,
		MaxMessageBytes:   64 * 1024,
	}
}

type MessageHandler func(client *Client, messageType int, messageBytes []byte)

func NewClient(hub *Hub, conn *websocket.Conn, user models.User, handler MessageHandler, opts ClientOptions) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		id:              uuid.Must(uuid.NewV4()).String(),
		hub:             hub,
		conn:            conn,
		user:            user,
		handler:         handler,
		send:            make(chan []byte, opts.SendBuffer),
		ctx:             ctx,
		cancel:          cancel,
		limiter:         rate.NewLimiter(rate.Limit(opts.MessagesPerSecond), opts.Burst),
		maxMessageBytes: opts.MaxMessageBytes,
	}
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	// id names the connection in logs, one user may hold several.
	id      string
	hub     *Hub
	conn    *websocket.Conn
	user    models.User
	handler MessageHandler
	// send is the bounded outbound queue. Only the hub writes to or closes it.
	send       chan []byte
	sendClosed bool
	// ctx is cancelled once the connection is gone.
	ctx             context.Context
	cancel          context.CancelFunc
	limiter         *rate.Limiter
	maxMessageBytes int64
}

func (c *Client) User() models.User {
	return c.user
}

func (c *Client) Id() string {
	return c.id
}

// closeSend must only be called from the hub goroutine.
func (c *Client) closeSend() {
	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.send)
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Close(c)
		c.conn.Close()
		c.cancel()
	}()

	if c.maxMessageBytes > 0 {
		c.conn.SetReadLimit(c.maxMessageBytes)
	}
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		messageType, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("WS close error on connection %s: %v", c.id, err)
			}
			break
		}

		if !c.limiter.Allow() {
			log.Printf("Closing connection %s of user %s: message rate limit exceeded", c.id, c.user.Id)
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Rate limit exceeded"),
				time.Now().Add(writeWait),
			)
			break
		}

		c.handler(c, messageType, messageBytes)
	}
}

func (c *Client) WritePump(shutdownCtx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WS send error on connection %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return

		case <-shutdownCtx.Done():
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Websocket service shutting down"),
			)
			return
		}
	}
}
