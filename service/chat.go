package service

import (
	"context"
	"fmt"
	"log"

	"github.com/zlnvch/sketchroom/models"
)

type AppendShapeParams struct {
	User models.User
	// RoomId is the identifier exactly as the client sent it, slug or numeric.
	RoomId  string
	Message string
}

// AppendShape validates and durably records one shape event. Only a nil error
// allows the caller to broadcast it.
func (s *Service) AppendShape(ctx context.Context, params AppendShapeParams) (models.ChatRecord, error) {
	if _, err := ValidateShapeMessage(params.Message, s.MaxMessageBytes); err != nil {
		return models.ChatRecord{}, err
	}

	room, err := s.ResolveRoom(ctx, params.RoomId)
	if err != nil {
		return models.ChatRecord{}, err
	}

	record, err := s.Store.AppendChat(ctx, models.ChatRecord{
		RoomId:  room.Id,
		Message: params.Message,
		UserId:  params.User.Id,
	})
	if err != nil {
		return models.ChatRecord{}, fmt.Errorf("append chat to room %d failed: %w", room.Id, err)
	}

	// The cache must hold the record before anyone can broadcast it, a
	// complete room missing it would serve stale history to late joiners.
	if err := s.Cache.AddChat(ctx, record); err != nil {
		log.Printf("Failed to cache chat %d in room %d: %v", record.Id, record.RoomId, err)
		if err := s.Cache.InvalidateRooms(ctx, []int64{record.RoomId}); err != nil {
			log.Printf("Failed to invalidate room %d: %v", record.RoomId, err)
		}
	}

	if s.ActivityBatcher != nil {
		s.ActivityBatcher.Record(record.RoomId, 1)
	}

	return record, nil
}
