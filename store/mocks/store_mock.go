package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/zlnvch/sketchroom/models"
	"github.com/zlnvch/sketchroom/store"
)

var _ store.DrawStore = (*MockStore)(nil)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockStore) GetUser(ctx context.Context, provider string, providerId string) (models.User, error) {
	args := m.Called(ctx, provider, providerId)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockStore) DeleteUser(ctx context.Context, provider string, providerId string) error {
	args := m.Called(ctx, provider, providerId)
	return args.Error(0)
}

func (m *MockStore) CreateRoom(ctx context.Context, room models.Room) (models.Room, error) {
	args := m.Called(ctx, room)
	return args.Get(0).(models.Room), args.Error(1)
}

func (m *MockStore) GetRoom(ctx context.Context, roomId int64) (models.Room, error) {
	args := m.Called(ctx, roomId)
	return args.Get(0).(models.Room), args.Error(1)
}

func (m *MockStore) GetRoomBySlug(ctx context.Context, slug string) (models.Room, error) {
	args := m.Called(ctx, slug)
	return args.Get(0).(models.Room), args.Error(1)
}

func (m *MockStore) IncrementRoomShapeCount(ctx context.Context, roomId int64, count int) error {
	args := m.Called(ctx, roomId, count)
	return args.Error(0)
}

func (m *MockStore) AppendChat(ctx context.Context, record models.ChatRecord) (models.ChatRecord, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(models.ChatRecord), args.Error(1)
}

func (m *MockStore) GetRecentChats(ctx context.Context, roomId int64, limit int) ([]models.ChatRecord, error) {
	args := m.Called(ctx, roomId, limit)
	return args.Get(0).([]models.ChatRecord), args.Error(1)
}

func (m *MockStore) GetUserRooms(ctx context.Context, userId string) ([]int64, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockStore) DeleteUserChats(ctx context.Context, userId string) error {
	args := m.Called(ctx, userId)
	return args.Error(0)
}
