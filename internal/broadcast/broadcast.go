// internal/broadcast/broadcast.go
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Event names carried on the per-room channel.
const (
	EventRoomUpdated = "ROOM_UPDATED"
	EventRoomFailed  = "ROOM_FAILED"
)

// Envelope is the wire form published for every room event.
type Envelope struct {
	Event   string          `json:"event"`
	RoomID  uuid.UUID       `json:"roomId"`
	Payload json.RawMessage `json:"payload"`
}

// ChannelFor returns the pub/sub channel name for a room. Every subscriber of
// the room listens on this channel; delivery is at-most-once, no replay.
func ChannelFor(roomID uuid.UUID) string {
	return "battle:room:" + roomID.String()
}

// Redis publishes room events over Redis pub/sub so every service instance's
// websocket subscribers see them, regardless of which instance performed the
// mutation.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

// Encode builds the serialized envelope for an event.
func Encode(event string, roomID uuid.UUID, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, RoomID: roomID, Payload: raw})
}

func (b *Redis) publish(ctx context.Context, event string, roomID uuid.UUID, payload interface{}) error {
	env, err := Encode(event, roomID, payload)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, ChannelFor(roomID), env).Err()
}

// RoomUpdated broadcasts a fresh state projection after a mutation.
func (b *Redis) RoomUpdated(ctx context.Context, roomID uuid.UUID, state interface{}) error {
	return b.publish(ctx, EventRoomUpdated, roomID, state)
}

// RoomFailed broadcasts a terminal failure, distinct from a state refresh so
// clients can tell silent closure apart from an update.
func (b *Redis) RoomFailed(ctx context.Context, roomID uuid.UUID, payload interface{}) error {
	return b.publish(ctx, EventRoomFailed, roomID, payload)
}
