// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/brainbattle/battle-service/internal/config"
)

// stateTTL bounds how stale a cached room snapshot may get. The cache is a
// read accelerator only; consumers must fall back to the repository on a miss.
const stateTTL = 120 * time.Second

// Connect builds a Redis client from environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func Connect(ctx context.Context) (*redis.Client, error) {
	addr := config.GetEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := config.GetEnvInt("REDIS_DB", 0)

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// StateCache holds short-TTL room projections keyed by room id.
type StateCache struct {
	rdb *redis.Client
}

func NewStateCache(rdb *redis.Client) *StateCache {
	return &StateCache{rdb: rdb}
}

func stateKey(roomID uuid.UUID) string {
	return "room:" + roomID.String()
}

// SetRoomState stores the projection as JSON with the standard TTL.
func (c *StateCache) SetRoomState(ctx context.Context, roomID uuid.UUID, state interface{}) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal room state: %w", err)
	}
	return c.rdb.Set(ctx, stateKey(roomID), data, stateTTL).Err()
}

// GetRoomState loads a cached projection into dest. The bool reports whether
// the key was present.
func (c *StateCache) GetRoomState(ctx context.Context, roomID uuid.UUID, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, stateKey(roomID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}
