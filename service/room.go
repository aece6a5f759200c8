package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/gofrs/uuid/v5"

	"github.com/zlnvch/sketchroom/models"
	"github.com/zlnvch/sketchroom/store"
)

var ErrRoomNotFound = errors.New("room not found")

const maxSlugAttempts = 5

// newSlug returns 8 hex characters. Purely numeric candidates are rejected so
// a slug can never be mistaken for a numeric room id.
func newSlug() (string, error) {
	for {
		id, err := uuid.NewV4()
		if err != nil {
			return "", err
		}
		slug := id.String()[:8]
		if _, err := strconv.ParseInt(slug, 10, 64); err != nil {
			return slug, nil
		}
	}
}

func (s *Service) CreateRoom(ctx context.Context, admin models.User, name string) (models.Room, error) {
	name, err := ValidateRoomName(name)
	if err != nil {
		return models.Room{}, err
	}

	for range maxSlugAttempts {
		slug, err := newSlug()
		if err != nil {
			return models.Room{}, err
		}

		room, err := s.Store.CreateRoom(ctx, models.Room{Slug: slug, Name: name, AdminId: admin.Id})
		if err == nil {
			return room, nil
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			return models.Room{}, fmt.Errorf("create room failed: %w", err)
		}
		log.Printf("Slug collision on %s, retrying", slug)
	}

	return models.Room{}, fmt.Errorf("create room failed: no free slug after %d attempts", maxSlugAttempts)
}

func (s *Service) GetRoomBySlug(ctx context.Context, slug string) (models.Room, error) {
	room, err := s.Store.GetRoomBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			return models.Room{}, ErrRoomNotFound
		}
		return models.Room{}, err
	}
	return room, nil
}

// ResolveRoom accepts either a slug or a numeric room id. Slugs are tried
// first.
func (s *Service) ResolveRoom(ctx context.Context, roomId string) (models.Room, error) {
	if roomId == "" {
		return models.Room{}, ErrRoomNotFound
	}

	room, err := s.Store.GetRoomBySlug(ctx, roomId)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, store.ErrItemNotFound) {
		return models.Room{}, err
	}

	numericId, parseErr := strconv.ParseInt(roomId, 10, 64)
	if parseErr != nil || numericId <= 0 {
		return models.Room{}, ErrRoomNotFound
	}

	room, err = s.Store.GetRoom(ctx, numericId)
	if err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			return models.Room{}, ErrRoomNotFound
		}
		return models.Room{}, err
	}
	return room, nil
}

// RecentShapes returns at most limit records of the room, newest first. A
// room marked complete in the cache is served from it, otherwise the store is
// read and the cache refilled with a full history window.
func (s *Service) RecentShapes(ctx context.Context, roomId int64, limit int) ([]models.ChatRecord, error) {
	if limit <= 0 || limit > s.HistoryLimit {
		limit = s.HistoryLimit
	}

	isComplete, err := s.Cache.IsRoomComplete(ctx, roomId)
	if err == nil && isComplete {
		records, err := s.Cache.GetChats(ctx, roomId, limit)
		if err == nil {
			return records, nil
		}
		log.Printf("Cache read failed for room %d, falling back to store: %v", roomId, err)
	}

	records, err := s.Store.GetRecentChats(ctx, roomId, s.HistoryLimit)
	if err != nil {
		return nil, err
	}

	if err := s.Cache.AddChatsBatch(ctx, roomId, records); err != nil {
		log.Printf("Failed to backfill cache for room %d: %v", roomId, err)
	} else if err := s.Cache.SetRoomComplete(ctx, roomId); err != nil {
		log.Printf("Failed to mark room %d complete: %v", roomId, err)
	} else {
		s.confirmComplete(ctx, roomId, newestId(records))
	}

	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func newestId(records []models.ChatRecord) int64 {
	if len(records) == 0 {
		return 0
	}
	return records[0].Id
}

// confirmComplete undoes a completion mark when a record was appended after
// the backfill read. Such a record may have failed to reach the cache, and its
// invalidation may have run before the mark was set. Appends after this check
// reach a room that is already marked, so their own cache write or
// invalidation applies.
func (s *Service) confirmComplete(ctx context.Context, roomId int64, backfilledNewest int64) {
	latest, err := s.Store.GetRecentChats(ctx, roomId, 1)
	if err == nil && newestId(latest) == backfilledNewest {
		return
	}
	if err != nil {
		log.Printf("Failed to confirm cache backfill for room %d: %v", roomId, err)
	}
	if err := s.Cache.InvalidateRooms(ctx, []int64{roomId}); err != nil {
		log.Printf("Failed to invalidate room %d: %v", roomId, err)
	}
}
