package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/zlnvch/sketchroom/cache"
	"github.com/zlnvch/sketchroom/mq"
	"github.com/zlnvch/sketchroom/store"
)

type MQConsumer struct {
	deleteUserChatsQueue mq.MessageQueue
	drawStore            store.DrawStore
	drawCache            cache.DrawCache
}

func NewMQConsumer(deleteUserChatsQueue mq.MessageQueue, drawStore store.DrawStore, drawCache cache.DrawCache) *MQConsumer {
	return &MQConsumer{
		deleteUserChatsQueue: deleteUserChatsQueue,
		drawStore:            drawStore,
		drawCache:            drawCache,
	}
}

const (
	// Allow up to 5 minutes for the throttled deletion of all the user's chats
	visibilityTimeout = 300
	// Messages that keep failing are dropped after this many deliveries
	maxReceiveCount = 5
)

func (mqConsumer *MQConsumer) Run(shutdownCtx context.Context) {
	for {
		msg, err := mqConsumer.deleteUserChatsQueue.Receive(shutdownCtx, visibilityTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.Printf("mqConsumer receive error: %v", err)
			select {
			case <-shutdownCtx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if msg == nil {
			continue
		}

		mqConsumer.handleMessage(msg)
	}
}

func (mqConsumer *MQConsumer) handleMessage(msg *mq.Message) {
	deleteMsg, err := mq.DecodeDeleteUserChats(msg.Body)
	if err != nil {
		log.Printf("Dropping invalid purge message: %v", err)
		mqConsumer.deleteMessage(msg)
		return
	}

	// Stay inside the visibility timeout so the message is not redelivered mid-purge
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(visibilityTimeout-1)*time.Second)
	defer cancel()

	if err := mqConsumer.purgeUserChats(ctx, deleteMsg.UserId); err != nil {
		log.Printf("Failed to purge chats for user %s (attempt %d): %v", deleteMsg.UserId, msg.ReceiveCount, err)
		if msg.ReceiveCount >= maxReceiveCount {
			log.Printf("Giving up on purge for user %s", deleteMsg.UserId)
			mqConsumer.deleteMessage(msg)
		}
		return
	}

	mqConsumer.deleteMessage(msg)
}

func (mqConsumer *MQConsumer) purgeUserChats(ctx context.Context, userId string) error {
	// Rooms are collected first, the index entries vanish with the chats
	rooms, err := mqConsumer.drawStore.GetUserRooms(ctx, userId)
	if err != nil {
		log.Printf("Failed to get user rooms: %v", err)
	}

	if err := mqConsumer.drawStore.DeleteUserChats(ctx, userId); err != nil {
		return err
	}

	if len(rooms) > 0 {
		if err := mqConsumer.drawCache.InvalidateRooms(ctx, rooms); err != nil {
			log.Printf("Failed to invalidate rooms: %v", err)
		}
	}
	return nil
}

func (mqConsumer *MQConsumer) deleteMessage(msg *mq.Message) {
	if err := mqConsumer.deleteUserChatsQueue.Delete(context.Background(), msg); err != nil {
		log.Printf("mqConsumer delete error: %v", err)
	}
}
