package redis

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zlnvch/sketchroom/models"
)

const (
	cacheTTL = 10 * time.Minute

	DefaultRoomCapacity = 1000
)

// RedisDrawCache keeps each room's newest records in one sorted set, member =
// record JSON, score = record id. Sets are trimmed to roomCapacity on write.
type RedisDrawCache struct {
	client       redis.UniversalClient
	roomCapacity int64
}

func NewRedisDrawCache(ctx context.Context, devMode bool, redisEndpoint string) (*RedisDrawCache, error) {
	opts := &redis.UniversalOptions{
		Addrs: []string{redisEndpoint},
	}
	if !devMode {
		// AWS elasticache endpoints require TLS
		opts.TLSConfig = &tls.Config{}
	}
	client := redis.NewUniversalClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisDrawCache{client: client, roomCapacity: DefaultRoomCapacity}, nil
}

// SetRoomCapacity bounds how many records a room keeps. It should not be
// lower than the largest history read.
func (redisCache *RedisDrawCache) SetRoomCapacity(n int) {
	if n > 0 {
		redisCache.roomCapacity = int64(n)
	}
}

func (redisCache *RedisDrawCache) Close() error {
	return redisCache.client.Close()
}

func (redisCache *RedisDrawCache) Publish(ctx context.Context, channel string, message []byte) error {
	return redisCache.client.Publish(ctx, channel, message).Err()
}

// Subscribe confirms the subscription before returning, then calls handler for
// each message until ctx ends.
func (redisCache *RedisDrawCache) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	pubsub := redisCache.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}

	go func() {
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					log.Printf("Pubsub channel closed: %s", channel)
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()

	return nil
}

// Both keys of a room share a hash tag so they live in the same cluster slot.
func buildRoomKey(roomId int64) string {
	return "room:{" + strconv.FormatInt(roomId, 10) + "}:shapes"
}

func buildRoomCompleteKey(roomId int64) string {
	return "room:{" + strconv.FormatInt(roomId, 10) + "}:complete"
}

func (redisCache *RedisDrawCache) AddChat(ctx context.Context, record models.ChatRecord) error {
	return redisCache.AddChatsBatch(ctx, record.RoomId, []models.ChatRecord{record})
}

func (redisCache *RedisDrawCache) AddChatsBatch(ctx context.Context, roomId int64, records []models.ChatRecord) error {
	if len(records) == 0 {
		return nil
	}

	members := make([]redis.Z, len(records))
	for i, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal chat record %d: %w", record.Id, err)
		}
		members[i] = redis.Z{Score: float64(record.Id), Member: data}
	}

	key := buildRoomKey(roomId)
	_, err := redisCache.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, members...)
		// Keep only the newest roomCapacity records
		pipe.ZRemRangeByRank(ctx, key, 0, -redisCache.roomCapacity-1)
		pipe.Expire(ctx, key, cacheTTL)
		pipe.Expire(ctx, buildRoomCompleteKey(roomId), cacheTTL)
		return nil
	})
	return err
}

func (redisCache *RedisDrawCache) GetChats(ctx context.Context, roomId int64, limit int) ([]models.ChatRecord, error) {
	if limit <= 0 {
		return []models.ChatRecord{}, nil
	}

	key := buildRoomKey(roomId)
	var members *redis.StringSliceCmd
	_, err := redisCache.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		members = pipe.ZRevRange(ctx, key, 0, int64(limit-1))
		pipe.Expire(ctx, key, cacheTTL)
		pipe.Expire(ctx, buildRoomCompleteKey(roomId), cacheTTL)
		return nil
	})
	if err != nil {
		return nil, err
	}

	records := make([]models.ChatRecord, 0, len(members.Val()))
	for _, member := range members.Val() {
		var record models.ChatRecord
		if err := json.Unmarshal([]byte(member), &record); err != nil {
			log.Printf("Skipping corrupt cached chat in room %d: %v", roomId, err)
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

func (redisCache *RedisDrawCache) SetRoomComplete(ctx context.Context, roomId int64) error {
	return redisCache.client.Set(ctx, buildRoomCompleteKey(roomId), "1", cacheTTL).Err()
}

func (redisCache *RedisDrawCache) IsRoomComplete(ctx context.Context, roomId int64) (bool, error) {
	n, err := redisCache.client.Exists(ctx, buildRoomCompleteKey(roomId)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (redisCache *RedisDrawCache) InvalidateRooms(ctx context.Context, roomIds []int64) error {
	// Rooms hash to different slots, so each room is deleted on its own
	for _, roomId := range roomIds {
		if err := redisCache.client.Del(ctx, buildRoomKey(roomId), buildRoomCompleteKey(roomId)).Err(); err != nil {
			return fmt.Errorf("invalidate room %d: %w", roomId, err)
		}
	}
	return nil
}
