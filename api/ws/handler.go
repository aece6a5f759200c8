package ws

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/zlnvch/sketchroom/service"
)

type Handler struct {
	Service *service.Service
	Hub     *Hub
	Options ClientOptions
}

func NewHandler(svc *service.Service, hub *Hub, opts ClientOptions) *Handler {
	return &Handler{
		Service: svc,
		Hub:     hub,
		Options: opts,
	}
}

// NewWsUpgrader accepts any origin when allowedOrigin is empty.
func (h *Handler) NewWsUpgrader(allowedOrigin string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}
}

// ServeWS handles websocket requests from the peer. The token travels in the
// token query parameter.
func (h *Handler) ServeWS(wsUpgrader websocket.Upgrader, w http.ResponseWriter, r *http.Request, shutdownCtx context.Context) {
	token := r.URL.Query().Get("token")

	user, authErr := h.Service.AuthenticateToken(r.Context(), token)

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade ws connection: %v", err)
		return
	}

	// Must upgrade the connection in order to be able to send custom close message
	if authErr != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Unauthenticated"),
		)
		conn.Close()
		return
	}

	client := NewClient(h.Hub, conn, user, h.HandleWsMessage, h.Options)

	// Admission completes before any frame from this connection is read
	if !h.Hub.Open(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Too many connections"),
		)
		conn.Close()
		client.cancel()
		return
	}

	go client.ReadPump()
	go client.WritePump(shutdownCtx)
}

func (h *Handler) HandleWsMessage(client *Client, messageType int, messageBytes []byte) {
	msg, err := DecodeMessage(messageBytes)
	if err != nil {
		if errors.Is(err, ErrUnknownMessageType) {
			log.Printf("Unknown message type from user %s: %v", client.user.Id, err)
		} else {
			log.Printf("Invalid message from user %s: %v", client.user.Id, err)
		}
		return
	}

	switch msg.Type {
	case MessageJoinRoom:
		h.Hub.Join(client, msg.RoomId)

	case MessageLeaveRoom:
		h.Hub.Leave(client, msg.RoomId)

	case MessageChat:
		if err := h.HandleChat(client.ctx, client, msg); err != nil {
			log.Printf("Chat from user %s to room %s rejected: %v", client.user.Id, msg.RoomId, err)
		}
	}
}
