package store

import (
	"context"
	"errors"

	"github.com/zlnvch/sketchroom/models"
)

// DrawStore is the durable side of the system: accounts, rooms and the
// append-only shape log per room.
type DrawStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, provider string, providerId string) (models.User, error)
	DeleteUser(ctx context.Context, provider string, providerId string) error

	CreateRoom(ctx context.Context, room models.Room) (models.Room, error)
	GetRoom(ctx context.Context, roomId int64) (models.Room, error)
	GetRoomBySlug(ctx context.Context, slug string) (models.Room, error)
	IncrementRoomShapeCount(ctx context.Context, roomId int64, count int) error

	// AppendChat assigns Id and Created and returns the stored record.
	AppendChat(ctx context.Context, record models.ChatRecord) (models.ChatRecord, error)
	// GetRecentChats returns at most limit records, newest first.
	GetRecentChats(ctx context.Context, roomId int64, limit int) ([]models.ChatRecord, error)
	GetUserRooms(ctx context.Context, userId string) ([]int64, error)
	DeleteUserChats(ctx context.Context, userId string) error
}

// Custom error types for clarity
var (
	ErrItemNotFound  = errors.New("item does not exist")
	ErrAlreadyExists = errors.New("item already exists")
)
