package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/zlnvch/sketchroom/models"
	"github.com/zlnvch/sketchroom/store"
)

// MemoryDrawStore keeps everything in process memory. It backs local runs
// without a database and end to end tests.
type MemoryDrawStore struct {
	mu         sync.Mutex
	users      map[string]models.User
	rooms      map[int64]models.Room
	slugs      map[string]int64
	chats      map[int64][]models.ChatRecord
	nextRoomId int64
	nextChatId int64
}

func NewMemoryDrawStore() *MemoryDrawStore {
	return &MemoryDrawStore{
		users: make(map[string]models.User),
		rooms: make(map[int64]models.Room),
		slugs: make(map[string]int64),
		chats: make(map[int64][]models.ChatRecord),
	}
}

func userKey(provider string, providerId string) string {
	return provider + "#" + providerId
}

func (m *MemoryDrawStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := userKey(user.Provider, user.ProviderId)
	if existing, ok := m.users[key]; ok {
		return existing, store.ErrAlreadyExists
	}

	userId, err := uuid.NewV4()
	if err != nil {
		return models.User{}, err
	}
	user.Id = userId.String()
	user.Created = time.Now().Unix()
	m.users[key] = user
	return user, nil
}

func (m *MemoryDrawStore) GetUser(ctx context.Context, provider string, providerId string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userKey(provider, providerId)]
	if !ok {
		return models.User{}, store.ErrItemNotFound
	}
	return user, nil
}

func (m *MemoryDrawStore) DeleteUser(ctx context.Context, provider string, providerId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := userKey(provider, providerId)
	if _, ok := m.users[key]; !ok {
		return store.ErrItemNotFound
	}
	delete(m.users, key)
	return nil
}

func (m *MemoryDrawStore) CreateRoom(ctx context.Context, room models.Room) (models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.slugs[room.Slug]; taken {
		return models.Room{}, store.ErrAlreadyExists
	}

	m.nextRoomId++
	room.Id = m.nextRoomId
	room.Created = time.Now().Unix()
	room.ShapeCount = 0
	m.rooms[room.Id] = room
	m.slugs[room.Slug] = room.Id
	return room, nil
}

func (m *MemoryDrawStore) GetRoom(ctx context.Context, roomId int64) (models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomId]
	if !ok {
		return models.Room{}, store.ErrItemNotFound
	}
	return room, nil
}

func (m *MemoryDrawStore) GetRoomBySlug(ctx context.Context, slug string) (models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomId, ok := m.slugs[slug]
	if !ok {
		return models.Room{}, store.ErrItemNotFound
	}
	return m.rooms[roomId], nil
}

func (m *MemoryDrawStore) IncrementRoomShapeCount(ctx context.Context, roomId int64, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomId]
	if !ok {
		return store.ErrItemNotFound
	}
	room.ShapeCount += int64(count)
	m.rooms[roomId] = room
	return nil
}

func (m *MemoryDrawStore) AppendChat(ctx context.Context, record models.ChatRecord) (models.ChatRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[record.RoomId]; !ok {
		return models.ChatRecord{}, store.ErrItemNotFound
	}

	m.nextChatId++
	record.Id = m.nextChatId
	record.Created = time.Now().UnixMilli()
	m.chats[record.RoomId] = append(m.chats[record.RoomId], record)
	return record, nil
}

func (m *MemoryDrawStore) GetRecentChats(ctx context.Context, roomId int64, limit int) ([]models.ChatRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chats := m.chats[roomId]
	n := min(limit, len(chats))
	if n <= 0 {
		return []models.ChatRecord{}, nil
	}

	records := slices.Clone(chats[len(chats)-n:])
	slices.Reverse(records)
	return records, nil
}

func (m *MemoryDrawStore) GetUserRooms(ctx context.Context, userId string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rooms := []int64{}
	for roomId, chats := range m.chats {
		if slices.ContainsFunc(chats, func(c models.ChatRecord) bool { return c.UserId == userId }) {
			rooms = append(rooms, roomId)
		}
	}
	slices.Sort(rooms)
	return rooms, nil
}

func (m *MemoryDrawStore) DeleteUserChats(ctx context.Context, userId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for roomId, chats := range m.chats {
		m.chats[roomId] = slices.DeleteFunc(chats, func(c models.ChatRecord) bool { return c.UserId == userId })
	}
	return nil
}
