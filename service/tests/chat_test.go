package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zlnvch/sketchroom/models"
	"github.com/zlnvch/sketchroom/service"
	"github.com/zlnvch/sketchroom/store"
)

const rectMessage = `{"shape":{"type":"rect","x":10,"y":10,"width":50,"height":30}}`

func TestAppendShape_PersistsThenCachesAndCounts(t *testing.T) {
	svc, mockStore, mockCache, _, activityBatcher := setupService(t)
	ctx := context.Background()
	user := models.User{Id: "user1"}

	mockStore.On("GetRoomBySlug", ctx, "abcdef12").Return(models.Room{Id: 42, Slug: "abcdef12"}, nil)
	stored := models.ChatRecord{Id: 1, RoomId: 42, Message: rectMessage, UserId: "user1", Created: 1}
	mockStore.On("AppendChat", ctx, models.ChatRecord{RoomId: 42, Message: rectMessage, UserId: "user1"}).Return(stored, nil)
	mockCache.On("AddChat", ctx, stored).Return(nil).Once()

	record, err := svc.AppendShape(ctx, service.AppendShapeParams{User: user, RoomId: "abcdef12", Message: rectMessage})
	require.NoError(t, err)
	assert.Equal(t, stored, record)

	mockCache.AssertExpectations(t)
	select {
	case update := <-activityBatcher.UpdateCh:
		assert.Equal(t, int64(42), update.RoomId)
		assert.Equal(t, 1, update.Delta)
	case <-time.After(1 * time.Second):
		assert.Fail(t, "timed out waiting for activity update")
	}
}

func TestAppendShape_StoreFailureIsReturned(t *testing.T) {
	svc, mockStore, mockCache, _, _ := setupService(t)
	ctx := context.Background()

	mockStore.On("GetRoomBySlug", ctx, "42").Return(models.Room{}, store.ErrItemNotFound)
	mockStore.On("GetRoom", ctx, int64(42)).Return(models.Room{Id: 42}, nil)
	mockStore.On("AppendChat", ctx, mock.Anything).Return(models.ChatRecord{}, errors.New("db down"))

	_, err := svc.AppendShape(ctx, service.AppendShapeParams{User: models.User{Id: "u"}, RoomId: "42", Message: rectMessage})
	assert.Error(t, err)
	mockCache.AssertNotCalled(t, "AddChat", mock.Anything, mock.Anything)
}

func TestAppendShape_UnknownRoom(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	mockStore.On("GetRoomBySlug", ctx, "ghost").Return(models.Room{}, store.ErrItemNotFound)

	_, err := svc.AppendShape(ctx, service.AppendShapeParams{User: models.User{Id: "u"}, RoomId: "ghost", Message: rectMessage})
	assert.ErrorIs(t, err, service.ErrRoomNotFound)
	mockStore.AssertNotCalled(t, "AppendChat", mock.Anything, mock.Anything)
}

func TestAppendShape_InvalidShapeNeverReachesStore(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)

	_, err := svc.AppendShape(context.Background(), service.AppendShapeParams{
		User:    models.User{Id: "u"},
		RoomId:  "42",
		Message: `{"shape":{"type":"pencil","points":[{"x":1,"y":1}]}}`,
	})
	assert.ErrorIs(t, err, service.ErrInvalidShape)
	mockStore.AssertNotCalled(t, "GetRoomBySlug", mock.Anything, mock.Anything)
	mockStore.AssertNotCalled(t, "AppendChat", mock.Anything, mock.Anything)
}

func TestAppendShape_CacheFailureInvalidatesRoom(t *testing.T) {
	svc, mockStore, mockCache, _, _ := setupService(t)
	ctx := context.Background()

	mockStore.On("GetRoomBySlug", ctx, "abcdef12").Return(models.Room{Id: 42}, nil)
	stored := models.ChatRecord{Id: 1, RoomId: 42, Message: rectMessage}
	mockStore.On("AppendChat", ctx, mock.Anything).Return(stored, nil)
	mockCache.On("AddChat", mock.Anything, stored).Return(errors.New("redis down"))
	mockCache.On("InvalidateRooms", mock.Anything, []int64{42}).Return(nil).Once()

	_, err := svc.AppendShape(ctx, service.AppendShapeParams{User: models.User{Id: "u"}, RoomId: "abcdef12", Message: rectMessage})
	require.NoError(t, err)

	// Invalidation is done by the time the caller may broadcast
	mockCache.AssertExpectations(t)
}

func TestAppendShape_ReturnsOnlyAfterCacheWrite(t *testing.T) {
	svc, mockStore, mockCache, _, _ := setupService(t)
	ctx := context.Background()

	mockStore.On("GetRoomBySlug", ctx, "abcdef12").Return(models.Room{Id: 42}, nil)
	stored := models.ChatRecord{Id: 7, RoomId: 42, Message: rectMessage}
	mockStore.On("AppendChat", ctx, mock.Anything).Return(stored, nil)

	release := make(chan struct{})
	mockCache.On("AddChat", mock.Anything, stored).Run(func(mock.Arguments) { <-release }).Return(nil)

	returned := make(chan error, 1)
	go func() {
		_, err := svc.AppendShape(ctx, service.AppendShapeParams{User: models.User{Id: "u"}, RoomId: "abcdef12", Message: rectMessage})
		returned <- err
	}()

	select {
	case <-returned:
		t.Fatal("AppendShape returned while the cache write was still pending")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-returned:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("AppendShape did not return after the cache write finished")
	}
}
