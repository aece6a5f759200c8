package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/zlnvch/sketchroom/store"
)

// RoomActivity is a shape count delta for one room.
type RoomActivity struct {
	RoomId int64
	Delta  int
}

const (
	activityBuffer       = 1024
	maxPendingRooms      = 100
	activityWriteTimeout = 5 * time.Second
)

// ActivityBatcher folds per-room shape count deltas in memory and writes them
// to the store periodically, so a busy room costs one counter update per flush.
type ActivityBatcher struct {
	UpdateCh      chan RoomActivity
	drawStore     store.DrawStore
	flushInterval time.Duration
	inflight      sync.WaitGroup
}

func NewActivityBatcher(drawStore store.DrawStore, flushInterval time.Duration) *ActivityBatcher {
	return &ActivityBatcher{
		UpdateCh:      make(chan RoomActivity, activityBuffer),
		drawStore:     drawStore,
		flushInterval: flushInterval,
	}
}

// Record queues a delta without blocking. A full buffer drops the delta, the
// counter is informational only.
func (b *ActivityBatcher) Record(roomId int64, delta int) {
	select {
	case b.UpdateCh <- RoomActivity{RoomId: roomId, Delta: delta}:
	default:
		log.Printf("Activity buffer full, dropping delta for room %d", roomId)
	}
}

func (b *ActivityBatcher) Run(shutdownCtx context.Context) {
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	roomCounts := make(map[int64]int)

	flush := func() {
		for roomId, count := range roomCounts {
			if count == 0 {
				continue
			}
			b.inflight.Add(1)
			go func(roomId int64, count int) {
				defer b.inflight.Done()
				ctx, cancel := context.WithTimeout(context.Background(), activityWriteTimeout)
				defer cancel()
				if err := b.drawStore.IncrementRoomShapeCount(ctx, roomId, count); err != nil {
					log.Printf("Failed to update shape count for room %d: %v", roomId, err)
				}
			}(roomId, count)
		}
		roomCounts = make(map[int64]int)
	}

	for {
		select {
		case update := <-b.UpdateCh:
			roomCounts[update.RoomId] += update.Delta
			if len(roomCounts) >= maxPendingRooms {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-shutdownCtx.Done():
			// Take whatever is still buffered before the last flush
		drain:
			for {
				select {
				case update := <-b.UpdateCh:
					roomCounts[update.RoomId] += update.Delta
				default:
					break drain
				}
			}
			flush()
			b.inflight.Wait()
			return
		}
	}
}
