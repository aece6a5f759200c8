package ws

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, policy OverflowPolicy) *Hub {
	t.Helper()
	hub := NewHub(nil, policy)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

// settle waits until every previously queued event has been applied.
func settle(t *testing.T, hub *Hub) RegistryStats {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	stats, err := hub.Stats(ctx)
	require.NoError(t, err)
	return stats
}

func drain(c *Client) [][]byte {
	var frames [][]byte
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return frames
			}
			frames = append(frames, frame)
		default:
			return frames
		}
	}
}

func isClosed(c *Client) bool {
	for {
		select {
		case _, ok := <-c.send:
			if !ok {
				return true
			}
		default:
			return false
		}
	}
}

func TestHub_BroadcastExcludesOrigin(t *testing.T) {
	hub := startHub(t, OverflowDisconnect)
	a := newTestClient("a", 8)
	b := newTestClient("b", 8)
	c := newTestClient("c", 8)
	for _, client := range []*Client{a, b, c} {
		hub.Open(client)
	}
	hub.Join(a, "42")
	hub.Join(b, "42")
	hub.Join(c, "7")

	hub.Broadcast(a, "42", []byte("frame"))
	settle(t, hub)

	assert.Empty(t, drain(a))
	assert.Equal(t, [][]byte{[]byte("frame")}, drain(b))
	assert.Empty(t, drain(c))
}

func TestHub_NonMemberSenderStillBroadcasts(t *testing.T) {
	hub := startHub(t, OverflowDisconnect)
	a := newTestClient("a", 8)
	b := newTestClient("b", 8)
	hub.Open(a)
	hub.Open(b)
	hub.Join(b, "42")

	hub.Broadcast(a, "42", []byte("frame"))
	settle(t, hub)

	assert.Len(t, drain(b), 1)
	assert.Empty(t, drain(a))
}

func TestHub_JoinAfterBroadcastMissesIt(t *testing.T) {
	hub := startHub(t, OverflowDisconnect)
	a := newTestClient("a", 8)
	b := newTestClient("b", 8)
	hub.Open(a)
	hub.Open(b)

	hub.Broadcast(a, "42", []byte("first"))
	hub.Join(b, "42")
	hub.Broadcast(a, "42", []byte("second"))
	settle(t, hub)

	assert.Equal(t, [][]byte{[]byte("second")}, drain(b))
}

func TestHub_PerRoomOrderPreserved(t *testing.T) {
	hub := startHub(t, OverflowDisconnect)
	a := newTestClient("a", 64)
	b := newTestClient("b", 64)
	hub.Open(a)
	hub.Open(b)
	hub.Join(b, "1")

	for i := 0; i < 20; i++ {
		hub.Broadcast(a, "1", []byte{byte(i)})
	}
	settle(t, hub)

	frames := drain(b)
	require.Len(t, frames, 20)
	for i, frame := range frames {
		assert.Equal(t, byte(i), frame[0])
	}
}

func TestHub_OverflowDisconnect(t *testing.T) {
	hub := startHub(t, OverflowDisconnect)
	a := newTestClient("a", 8)
	slow := newTestClient("slow", 1)
	hub.Open(a)
	hub.Open(slow)
	hub.Join(slow, "1")

	hub.Broadcast(a, "1", []byte("one"))
	hub.Broadcast(a, "1", []byte("two"))
	stats := settle(t, hub)

	assert.Equal(t, 1, stats.Connections)
	assert.Equal(t, 0, stats.Memberships)
	assert.True(t, isClosed(slow))
}

func TestHub_OverflowDropOldest(t *testing.T) {
	hub := startHub(t, OverflowDropOldest)
	a := newTestClient("a", 8)
	slow := newTestClient("slow", 2)
	hub.Open(a)
	hub.Open(slow)
	hub.Join(slow, "1")

	for _, frame := range []string{"one", "two", "three"} {
		hub.Broadcast(a, "1", []byte(frame))
	}
	stats := settle(t, hub)

	assert.Equal(t, 2, stats.Connections)
	assert.Equal(t, [][]byte{[]byte("two"), []byte("three")}, drain(slow))
}

func TestHub_CloseTwiceIsHarmless(t *testing.T) {
	hub := startHub(t, OverflowDisconnect)
	a := newTestClient("a", 1)
	hub.Open(a)
	hub.Join(a, "1")
	hub.Close(a)
	hub.Close(a)

	stats := settle(t, hub)
	assert.Equal(t, RegistryStats{}, stats)
	assert.True(t, isClosed(a))
}

func TestHub_MaxConnectionsPerUser(t *testing.T) {
	hub := startHub(t, OverflowDisconnect)
	clients := make([]*Client, maxConnectionsPerUser+1)
	for i := range clients {
		clients[i] = newTestClient("same-user", 1)
		assert.Equal(t, i < maxConnectionsPerUser, hub.Open(clients[i]), "connection %d", i)
	}

	stats := settle(t, hub)
	assert.Equal(t, maxConnectionsPerUser, stats.Connections)
	assert.True(t, isClosed(clients[maxConnectionsPerUser]))

	// The rejected connection closing later must not disturb the others
	hub.Close(clients[maxConnectionsPerUser])
	stats = settle(t, hub)
	assert.Equal(t, maxConnectionsPerUser, stats.Connections)
}

func TestHub_BroadcastFromRejectedConnectionIsDropped(t *testing.T) {
	hub := startHub(t, OverflowDisconnect)
	member := newTestClient("member", 8)
	require.True(t, hub.Open(member))
	hub.Join(member, "42")

	for range maxConnectionsPerUser {
		require.True(t, hub.Open(newTestClient("busy", 1)))
	}
	rejected := newTestClient("busy", 1)
	require.False(t, hub.Open(rejected))

	hub.Broadcast(rejected, "42", []byte("frame"))
	settle(t, hub)

	assert.Empty(t, drain(member))
}

func TestHub_OpenAfterStop(t *testing.T) {
	hub := NewHub(nil, OverflowDisconnect)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	assert.False(t, hub.Open(newTestClient("late", 1)))
}

func TestHub_UserDeletedClosesConnections(t *testing.T) {
	hub := startHub(t, OverflowDisconnect)
	a1 := newTestClient("a", 1)
	a2 := newTestClient("a", 1)
	b := newTestClient("b", 1)
	for _, client := range []*Client{a1, a2, b} {
		hub.Open(client)
	}
	hub.Join(a1, "1")

	hub.UserDeleted("a")
	stats := settle(t, hub)

	assert.Equal(t, 1, stats.Connections)
	assert.True(t, isClosed(a1))
	assert.True(t, isClosed(a2))
	assert.False(t, isClosed(b))
}

func TestHub_StatsAfterStop(t *testing.T) {
	hub := NewHub(nil, OverflowDisconnect)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	a := newTestClient("a", 1)
	hub.Open(a)
	settle(t, hub)
	cancel()
	<-stopped

	_, err := hub.Stats(context.Background())
	assert.ErrorIs(t, err, ErrHubStopped)
	assert.True(t, isClosed(a))
}
