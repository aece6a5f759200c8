package ws

import (
	"iter"
	"maps"
)

type connectionRecord struct {
	userId string
	rooms  map[string]struct{}
}

// Registry tracks admitted connections and their room memberships. It is not
// safe for concurrent use, the Hub owns it and touches it from a single
// goroutine.
type Registry struct {
	connections   map[*Client]*connectionRecord
	roomToClients map[string]map[*Client]struct{}
	userToClients map[string]map[*Client]struct{}
}

type RegistryStats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
	Memberships int `json:"memberships"`
}

func NewRegistry() *Registry {
	return &Registry{
		connections:   make(map[*Client]*connectionRecord),
		roomToClients: make(map[string]map[*Client]struct{}),
		userToClients: make(map[string]map[*Client]struct{}),
	}
}

// Admit records an authenticated connection with no rooms. Admitting the same
// connection twice is a no-op and returns false.
func (r *Registry) Admit(client *Client, userId string) bool {
	if _, ok := r.connections[client]; ok {
		return false
	}
	r.connections[client] = &connectionRecord{userId: userId, rooms: make(map[string]struct{})}
	if r.userToClients[userId] == nil {
		r.userToClients[userId] = make(map[*Client]struct{})
	}
	r.userToClients[userId][client] = struct{}{}
	return true
}

func (r *Registry) Contains(client *Client) bool {
	_, ok := r.connections[client]
	return ok
}

// Join adds roomId to the connection's rooms. Unknown connections are ignored.
func (r *Registry) Join(client *Client, roomId string) bool {
	record, ok := r.connections[client]
	if !ok {
		return false
	}
	record.rooms[roomId] = struct{}{}
	if r.roomToClients[roomId] == nil {
		r.roomToClients[roomId] = make(map[*Client]struct{})
	}
	r.roomToClients[roomId][client] = struct{}{}
	return true
}

// Leave removes every occurrence of roomId from the connection's rooms.
// Leaving a room that was never joined is a no-op.
func (r *Registry) Leave(client *Client, roomId string) {
	record, ok := r.connections[client]
	if !ok {
		return
	}
	delete(record.rooms, roomId)
	r.dropMember(roomId, client)
}

// Remove forgets the connection and all of its memberships. It returns false
// when the connection was already gone.
func (r *Registry) Remove(client *Client) bool {
	record, ok := r.connections[client]
	if !ok {
		return false
	}
	for roomId := range record.rooms {
		r.dropMember(roomId, client)
	}
	delete(r.userToClients[record.userId], client)
	if len(r.userToClients[record.userId]) == 0 {
		delete(r.userToClients, record.userId)
	}
	delete(r.connections, client)
	return true
}

func (r *Registry) dropMember(roomId string, client *Client) {
	delete(r.roomToClients[roomId], client)
	if len(r.roomToClients[roomId]) == 0 {
		delete(r.roomToClients, roomId)
	}
}

// MembersOf yields every connection whose rooms contain roomId, in no
// particular order.
func (r *Registry) MembersOf(roomId string) iter.Seq[*Client] {
	return maps.Keys(r.roomToClients[roomId])
}

// ConnectionsOf yields every connection authenticated as userId.
func (r *Registry) ConnectionsOf(userId string) iter.Seq[*Client] {
	return maps.Keys(r.userToClients[userId])
}

func (r *Registry) UserConnectionCount(userId string) int {
	return len(r.userToClients[userId])
}

func (r *Registry) RoomsOf(client *Client) []string {
	record, ok := r.connections[client]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, len(record.rooms))
	for roomId := range record.rooms {
		rooms = append(rooms, roomId)
	}
	return rooms
}

func (r *Registry) Stats() RegistryStats {
	stats := RegistryStats{
		Connections: len(r.connections),
		Rooms:       len(r.roomToClients),
	}
	for _, members := range r.roomToClients {
		stats.Memberships += len(members)
	}
	return stats
}
