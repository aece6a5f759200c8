package redis

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRoomKeysShareHashTag(t *testing.T) {
	assert.Equal(t, "room:{42}:shapes", buildRoomKey(42))
	assert.Equal(t, "room:{42}:complete", buildRoomCompleteKey(42))
}

func TestSetRoomCapacity(t *testing.T) {
	c := &RedisDrawCache{client: redis.NewClient(&redis.Options{}), roomCapacity: DefaultRoomCapacity}
	defer c.Close()

	c.SetRoomCapacity(250)
	assert.Equal(t, int64(250), c.roomCapacity)

	c.SetRoomCapacity(0)
	assert.Equal(t, int64(250), c.roomCapacity)
}
