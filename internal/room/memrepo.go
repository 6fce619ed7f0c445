// internal/room/memrepo.go
package room

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brainbattle/battle-service/internal/models"
)

// MemoryRepository is an in-memory Repository used in dev mode (no
// DATABASE_URL) and in tests. It mirrors the Postgres implementation's
// semantics, including the uniqueness constraints and the conditional status
// transitions.
type MemoryRepository struct {
	mu      sync.Mutex
	rooms   map[uuid.UUID]*models.Room
	byCode  map[string]uuid.UUID
	members map[uuid.UUID]map[uuid.UUID]*models.Member
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		rooms:   make(map[uuid.UUID]*models.Room),
		byCode:  make(map[string]uuid.UUID),
		members: make(map[uuid.UUID]map[uuid.UUID]*models.Member),
	}
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) CreateRoomWithHost(ctx context.Context, rm *models.Room, host *models.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCode[rm.Code]; exists {
		return ErrCodeTaken
	}

	roomCopy := *rm
	hostCopy := *host
	r.rooms[rm.ID] = &roomCopy
	r.byCode[rm.Code] = rm.ID
	r.members[rm.ID] = map[uuid.UUID]*models.Member{host.UserID: &hostCopy}
	return nil
}

func (r *MemoryRepository) RoomByID(ctx context.Context, id uuid.UUID) (*models.Room, []models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roomLocked(id)
}

func (r *MemoryRepository) RoomByCode(ctx context.Context, code string) (*models.Room, []models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byCode[code]
	if !ok {
		return nil, nil, ErrRoomNotFound
	}
	return r.roomLocked(id)
}

func (r *MemoryRepository) roomLocked(id uuid.UUID) (*models.Room, []models.Member, error) {
	rm, ok := r.rooms[id]
	if !ok {
		return nil, nil, ErrRoomNotFound
	}

	var active []models.Member
	for _, m := range r.members[id] {
		if m.Active() {
			active = append(active, *m)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].JoinedAt.Before(active[j].JoinedAt)
	})

	roomCopy := *rm
	return &roomCopy, active, nil
}

func (r *MemoryRepository) ActiveMember(ctx context.Context, roomID, userID uuid.UUID) (*models.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[roomID][userID]
	if !ok || !m.Active() {
		return nil, ErrNotInRoom
	}
	memberCopy := *m
	return &memberCopy, nil
}

func (r *MemoryRepository) UpsertMember(ctx context.Context, m *models.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[m.RoomID]; !ok {
		return ErrRoomNotFound
	}
	memberCopy := *m
	memberCopy.LeftAt = nil
	// Reactivation keeps the original join time, matching the Postgres
	// upsert, so re-joining never reorders the member list.
	if prev, ok := r.members[m.RoomID][m.UserID]; ok {
		memberCopy.JoinedAt = prev.JoinedAt
	}
	r.members[m.RoomID][m.UserID] = &memberCopy
	return nil
}

func (r *MemoryRepository) SetMemberRole(ctx context.Context, roomID, userID uuid.UUID, role models.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[roomID][userID]
	if !ok || !m.Active() {
		return ErrNotInRoom
	}
	m.Role = role
	m.IsReady = false
	return nil
}

func (r *MemoryRepository) SetMemberReady(ctx context.Context, roomID, userID uuid.UUID, ready bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[roomID][userID]
	if !ok || !m.Active() {
		return ErrNotInRoom
	}
	m.IsReady = ready
	return nil
}

func (r *MemoryRepository) MarkMemberLeft(ctx context.Context, roomID, userID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[roomID][userID]
	if !ok || !m.Active() {
		return ErrNotInRoom
	}
	left := at
	m.LeftAt = &left
	return nil
}

func (r *MemoryRepository) MarkRoomPlaying(ctx context.Context, roomID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if rm.Status != models.StatusWaiting {
		return ErrNotWaiting
	}
	started := at
	rm.Status = models.StatusPlaying
	rm.StartedAt = &started
	return nil
}

func (r *MemoryRepository) MarkRoomFailed(ctx context.Context, roomID uuid.UUID, reason string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return false, ErrRoomNotFound
	}
	if rm.Status != models.StatusWaiting {
		return false, nil
	}
	closed := at
	rm.Status = models.StatusFailed
	rm.FailReason = reason
	rm.ClosedAt = &closed
	return true, nil
}

func (r *MemoryRepository) ListExpiredWaiting(ctx context.Context, before time.Time, limit int) ([]models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []models.Room
	for _, rm := range r.rooms {
		if rm.Status == models.StatusWaiting && rm.ExpiresAt.Before(before) {
			expired = append(expired, *rm)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(expired[j].ExpiresAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}
