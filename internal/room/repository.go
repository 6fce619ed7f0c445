// internal/room/repository.go
package room

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/brainbattle/battle-service/internal/models"
)

// Repository is the transactional store for room and membership records. It
// is the single source of truth; the engine keeps no authoritative state of
// its own. Implementations must guarantee atomicity of each call and
// uniqueness of (code) and (roomID, userID).
//
// Member slices only ever contain active rows (leftAt unset), ordered by
// join time.
type Repository interface {
	// CreateRoomWithHost inserts the room and its host member in one
	// transaction. Returns ErrCodeTaken if the join code is already in use.
	CreateRoomWithHost(ctx context.Context, r *models.Room, host *models.Member) error

	RoomByID(ctx context.Context, id uuid.UUID) (*models.Room, []models.Member, error)
	RoomByCode(ctx context.Context, code string) (*models.Room, []models.Member, error)

	// ActiveMember returns ErrNotInRoom when the user has no active
	// membership in the room.
	ActiveMember(ctx context.Context, roomID, userID uuid.UUID) (*models.Member, error)

	// UpsertMember inserts a fresh membership row or reactivates a
	// soft-deleted one, overwriting team/role/ready with the given values.
	UpsertMember(ctx context.Context, m *models.Member) error

	// SetMemberRole assigns the role and clears the ready flag in one write.
	SetMemberRole(ctx context.Context, roomID, userID uuid.UUID, role models.Role) error
	SetMemberReady(ctx context.Context, roomID, userID uuid.UUID, ready bool) error
	MarkMemberLeft(ctx context.Context, roomID, userID uuid.UUID, at time.Time) error

	// MarkRoomPlaying transitions WAITING -> PLAYING. Returns ErrNotWaiting
	// if the room is no longer WAITING.
	MarkRoomPlaying(ctx context.Context, roomID uuid.UUID, at time.Time) error

	// MarkRoomFailed transitions WAITING -> FAILED. The bool reports whether
	// this call performed the transition; false means the room had already
	// left WAITING and no failure event should be emitted.
	MarkRoomFailed(ctx context.Context, roomID uuid.UUID, reason string, at time.Time) (bool, error)

	// ListExpiredWaiting returns up to limit WAITING rooms whose deadline is
	// strictly before the given instant, oldest deadline first.
	ListExpiredWaiting(ctx context.Context, before time.Time, limit int) ([]models.Room, error)
}
