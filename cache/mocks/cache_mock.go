package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/zlnvch/sketchroom/cache"
	"github.com/zlnvch/sketchroom/models"
)

var _ cache.DrawCache = (*MockCache)(nil)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Publish(ctx context.Context, channel string, message []byte) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}

func (m *MockCache) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	args := m.Called(ctx, channel, handler)
	return args.Error(0)
}

func (m *MockCache) AddChat(ctx context.Context, record models.ChatRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockCache) AddChatsBatch(ctx context.Context, roomId int64, records []models.ChatRecord) error {
	args := m.Called(ctx, roomId, records)
	return args.Error(0)
}

func (m *MockCache) GetChats(ctx context.Context, roomId int64, limit int) ([]models.ChatRecord, error) {
	args := m.Called(ctx, roomId, limit)
	records, _ := args.Get(0).([]models.ChatRecord)
	return records, args.Error(1)
}

func (m *MockCache) SetRoomComplete(ctx context.Context, roomId int64) error {
	args := m.Called(ctx, roomId)
	return args.Error(0)
}

func (m *MockCache) IsRoomComplete(ctx context.Context, roomId int64) (bool, error) {
	args := m.Called(ctx, roomId)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) InvalidateRooms(ctx context.Context, roomIds []int64) error {
	args := m.Called(ctx, roomIds)
	return args.Error(0)
}

// ExpectUserDeleted expects the user-deleted notification for userId.
func (m *MockCache) ExpectUserDeleted(userId string) *mock.Call {
	return m.On("Publish", mock.Anything, cache.UserDeletedChannel, mock.MatchedBy(func(message []byte) bool {
		var msg struct {
			UserId string `json:"userId"`
		}
		return json.Unmarshal(message, &msg) == nil && msg.UserId == userId
	}))
}
