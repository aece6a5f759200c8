package ws

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zlnvch/sketchroom/models"
)

func newTestClient(userId string, sendBuffer int) *Client {
	return &Client{
		user: models.User{Id: userId},
		send: make(chan []byte, sendBuffer),
	}
}

func members(r *Registry, roomId string) []*Client {
	return slices.Collect(r.MembersOf(roomId))
}

func TestRegistry_JoinLeave(t *testing.T) {
	r := NewRegistry()
	a := newTestClient("a", 1)
	b := newTestClient("b", 1)
	require.True(t, r.Admit(a, "a"))
	require.True(t, r.Admit(b, "b"))

	r.Join(a, "42")
	r.Join(a, "42")
	r.Join(b, "42")
	assert.ElementsMatch(t, []*Client{a, b}, members(r, "42"))

	r.Leave(a, "42")
	assert.Equal(t, []*Client{b}, members(r, "42"))

	// Leaving twice or leaving an unjoined room changes nothing
	r.Leave(a, "42")
	r.Leave(a, "7")
	assert.Equal(t, []*Client{b}, members(r, "42"))
	assert.Empty(t, r.RoomsOf(a))
}

func TestRegistry_RoomKeyIsRawString(t *testing.T) {
	r := NewRegistry()
	a := newTestClient("a", 1)
	r.Admit(a, "a")
	r.Join(a, "42")

	assert.Empty(t, members(r, "042"))
	assert.Len(t, members(r, "42"), 1)
}

func TestRegistry_AdmitTwiceIsNoop(t *testing.T) {
	r := NewRegistry()
	a := newTestClient("a", 1)
	assert.True(t, r.Admit(a, "a"))
	r.Join(a, "1")
	assert.False(t, r.Admit(a, "a"))
	assert.Equal(t, []string{"1"}, r.RoomsOf(a))
}

func TestRegistry_JoinUnknownConnectionIgnored(t *testing.T) {
	r := NewRegistry()
	a := newTestClient("a", 1)
	assert.False(t, r.Join(a, "1"))
	assert.Empty(t, members(r, "1"))
}

func TestRegistry_RemoveTwice(t *testing.T) {
	r := NewRegistry()
	a := newTestClient("a", 1)
	r.Admit(a, "a")
	r.Join(a, "1")
	r.Join(a, "2")

	assert.True(t, r.Remove(a))
	assert.False(t, r.Remove(a))
	assert.False(t, r.Contains(a))
	assert.Empty(t, members(r, "1"))
	assert.Empty(t, members(r, "2"))
	assert.Equal(t, RegistryStats{}, r.Stats())
}

func TestRegistry_ConnectionsOf(t *testing.T) {
	r := NewRegistry()
	a1 := newTestClient("a", 1)
	a2 := newTestClient("a", 1)
	b := newTestClient("b", 1)
	r.Admit(a1, "a")
	r.Admit(a2, "a")
	r.Admit(b, "b")

	assert.ElementsMatch(t, []*Client{a1, a2}, slices.Collect(r.ConnectionsOf("a")))
	assert.Equal(t, 2, r.UserConnectionCount("a"))

	r.Remove(a1)
	assert.Equal(t, []*Client{a2}, slices.Collect(r.ConnectionsOf("a")))
}

func TestRegistry_MembersOfStopsEarly(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 10; i++ {
		c := newTestClient("u", 1)
		r.Admit(c, "u")
		r.Join(c, "room")
	}

	seen := 0
	for range r.MembersOf("room") {
		seen++
		if seen == 3 {
			break
		}
	}
	assert.Equal(t, 3, seen)
}

// Random join, leave and remove sequences must agree with a naive model where
// membership is "joined and not left since".
func TestRegistry_MatchesModel(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rooms := []string{"1", "2", "abc"}

	for round := 0; round < 50; round++ {
		r := NewRegistry()
		clients := make([]*Client, 4)
		model := make(map[*Client]map[string]bool)
		for i := range clients {
			clients[i] = newTestClient("u", 1)
			r.Admit(clients[i], "u")
			model[clients[i]] = make(map[string]bool)
		}

		for step := 0; step < 100; step++ {
			c := clients[rng.Intn(len(clients))]
			room := rooms[rng.Intn(len(rooms))]
			switch rng.Intn(5) {
			case 0, 1:
				r.Join(c, room)
				if model[c] != nil {
					model[c][room] = true
				}
			case 2, 3:
				r.Leave(c, room)
				if model[c] != nil {
					delete(model[c], room)
				}
			case 4:
				r.Remove(c)
				model[c] = nil
			}
		}

		for _, room := range rooms {
			var want []*Client
			for _, c := range clients {
				if model[c][room] {
					want = append(want, c)
				}
			}
			assert.ElementsMatch(t, want, members(r, room), "round %d room %s", round, room)
		}
	}
}
