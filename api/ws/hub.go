package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/zlnvch/sketchroom/cache"
	"github.com/zlnvch/sketchroom/service"
)

type OverflowPolicy string

const (
	// OverflowDisconnect closes a connection whose outbound queue is full.
	OverflowDisconnect OverflowPolicy = "disconnect"
	// OverflowDropOldest discards the oldest queued frame to make room.
	OverflowDropOldest OverflowPolicy = "drop-oldest"
)

const (
	eventQueueSize        = 4096
	maxConnectionsPerUser = 5
)

var ErrHubStopped = errors.New("hub stopped")

type eventKind int

const (
	eventOpen eventKind = iota
	eventClose
	eventJoin
	eventLeave
	eventBroadcast
	eventUserDeleted
	eventStats
)

type hubEvent struct {
	kind    eventKind
	client  *Client
	roomId  string
	userId  string
	payload []byte
	stats   chan RegistryStats
	// admitted answers an open event
	admitted chan bool
}

// Hub owns the Registry and every connection's outbound queue. All events go
// through one FIFO channel and are applied by Run in arrival order, so a join
// enqueued before a broadcast is visible to that broadcast.
type Hub struct {
	drawCache      cache.DrawCache
	events         chan hubEvent
	done           chan struct{}
	registry       *Registry
	overflowPolicy OverflowPolicy
}

func NewHub(drawCache cache.DrawCache, overflowPolicy OverflowPolicy) *Hub {
	if overflowPolicy == "" {
		overflowPolicy = OverflowDisconnect
	}
	return &Hub{
		drawCache:      drawCache,
		events:         make(chan hubEvent, eventQueueSize),
		done:           make(chan struct{}),
		registry:       NewRegistry(),
		overflowPolicy: overflowPolicy,
	}
}

func (h *Hub) enqueue(event hubEvent) bool {
	select {
	case h.events <- event:
		return true
	case <-h.done:
		return false
	}
}

// Open admits client and reports whether it was accepted. A rejected
// connection has its outbound queue closed and must not start its pumps.
func (h *Hub) Open(client *Client) bool {
	admitted := make(chan bool, 1)
	if !h.enqueue(hubEvent{kind: eventOpen, client: client, admitted: admitted}) {
		return false
	}
	select {
	case ok := <-admitted:
		return ok
	case <-h.done:
		return false
	}
}

func (h *Hub) Close(client *Client) {
	h.enqueue(hubEvent{kind: eventClose, client: client})
}

func (h *Hub) Join(client *Client, roomId string) {
	h.enqueue(hubEvent{kind: eventJoin, client: client, roomId: roomId})
}

func (h *Hub) Leave(client *Client, roomId string) {
	h.enqueue(hubEvent{kind: eventLeave, client: client, roomId: roomId})
}

// Broadcast delivers payload to every member of roomId except origin. origin
// does not need to be a member itself, but must be an admitted connection.
func (h *Hub) Broadcast(origin *Client, roomId string, payload []byte) {
	h.enqueue(hubEvent{kind: eventBroadcast, client: origin, roomId: roomId, payload: payload})
}

// UserDeleted closes every connection authenticated as userId.
func (h *Hub) UserDeleted(userId string) {
	h.enqueue(hubEvent{kind: eventUserDeleted, userId: userId})
}

func (h *Hub) Stats(ctx context.Context) (RegistryStats, error) {
	reply := make(chan RegistryStats, 1)
	select {
	case h.events <- hubEvent{kind: eventStats, stats: reply}:
	case <-h.done:
		return RegistryStats{}, ErrHubStopped
	case <-ctx.Done():
		return RegistryStats{}, ctx.Err()
	}

	select {
	case stats := <-reply:
		return stats, nil
	case <-h.done:
		return RegistryStats{}, ErrHubStopped
	case <-ctx.Done():
		return RegistryStats{}, ctx.Err()
	}
}

// Run applies events until ctx is cancelled, then closes every remaining
// outbound queue.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for client := range h.registry.connections {
			h.disconnect(client)
		}
	}()

	for {
		select {
		case event := <-h.events:
			h.apply(event)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) apply(event hubEvent) {
	switch event.kind {
	case eventOpen:
		client := event.client
		ok := h.registry.UserConnectionCount(client.user.Id) < maxConnectionsPerUser
		if ok {
			h.registry.Admit(client, client.user.Id)
		} else {
			log.Printf("Rejecting connection %s: user %s reached max connections (%d)", client.id, client.user.Id, maxConnectionsPerUser)
			client.closeSend()
		}
		if event.admitted != nil {
			event.admitted <- ok
		}

	case eventClose:
		h.disconnect(event.client)

	case eventJoin:
		h.registry.Join(event.client, event.roomId)

	case eventLeave:
		h.registry.Leave(event.client, event.roomId)

	case eventBroadcast:
		if !h.registry.Contains(event.client) {
			log.Printf("Dropping broadcast to room %s from a connection that is not admitted", event.roomId)
			return
		}
		var overflowed []*Client
		for member := range h.registry.MembersOf(event.roomId) {
			if member == event.client {
				continue
			}
			if !h.deliver(member, event.payload) {
				overflowed = append(overflowed, member)
			}
		}
		for _, client := range overflowed {
			log.Printf("Disconnecting connection %s of user %s: outbound queue full", client.id, client.user.Id)
			h.disconnect(client)
		}

	case eventUserDeleted:
		var clients []*Client
		for client := range h.registry.ConnectionsOf(event.userId) {
			clients = append(clients, client)
		}
		for _, client := range clients {
			h.disconnect(client)
		}

	case eventStats:
		event.stats <- h.registry.Stats()
	}
}

// deliver queues payload without blocking. It returns false when the
// connection must be disconnected.
func (h *Hub) deliver(client *Client, payload []byte) bool {
	select {
	case client.send <- payload:
		return true
	default:
	}

	if h.overflowPolicy != OverflowDropOldest {
		return false
	}

	select {
	case <-client.send:
	default:
	}
	select {
	case client.send <- payload:
	default:
		log.Printf("Dropped frame for connection %s of user %s: outbound queue full", client.id, client.user.Id)
	}
	return true
}

func (h *Hub) disconnect(client *Client) {
	h.registry.Remove(client)
	client.closeSend()
}

func (h *Hub) InitSubscriptions(shutdownCtx context.Context) error {
	err := h.drawCache.Subscribe(shutdownCtx, cache.UserDeletedChannel, func(message []byte) {
		var userDeletedMsg service.UserDeletedMessage
		if err := json.Unmarshal(message, &userDeletedMsg); err != nil {
			log.Printf("Failed to unmarshal %s message: %v", cache.UserDeletedChannel, err)
			return
		}
		h.UserDeleted(userDeletedMsg.UserId)
	})
	if err != nil {
		log.Printf("WS hub failed to subscribe to %s: %v", cache.UserDeletedChannel, err)
		return err
	}
	return nil
}
