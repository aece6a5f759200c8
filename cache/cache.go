package cache

import (
	"context"

	"github.com/zlnvch/sketchroom/models"
)

// UserDeletedChannel carries the id of a deleted account to every server
// instance so that its live connections are closed.
const UserDeletedChannel = "user-deleted"

// DrawCache holds a room's recent shape records in front of the store. A room
// is only served from the cache once it has been marked complete.
type DrawCache interface {
	Publish(ctx context.Context, channel string, message []byte) error
	Subscribe(ctx context.Context, channel string, handler func(message []byte)) error

	AddChat(ctx context.Context, record models.ChatRecord) error
	AddChatsBatch(ctx context.Context, roomId int64, records []models.ChatRecord) error
	// GetChats returns at most limit records, newest first.
	GetChats(ctx context.Context, roomId int64, limit int) ([]models.ChatRecord, error)

	SetRoomComplete(ctx context.Context, roomId int64) error
	IsRoomComplete(ctx context.Context, roomId int64) (bool, error)
	InvalidateRooms(ctx context.Context, roomIds []int64) error
}
