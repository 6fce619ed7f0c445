// internal/room/service.go
package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/brainbattle/battle-service/internal/cache"
	"github.com/brainbattle/battle-service/internal/config"
	"github.com/brainbattle/battle-service/internal/lock"
	"github.com/brainbattle/battle-service/internal/models"
)

// Lock TTLs per critical section. Start reads more state than pick, so it
// gets a longer grant; both must outlast the worst-case section with margin.
const (
	pickLockTTL  = 3 * time.Second
	startLockTTL = 5 * time.Second
)

// createCodeAttempts bounds how often CreateRoom regenerates a colliding join
// code before giving up.
const createCodeAttempts = 5

// Broadcaster fans room events out to subscribers grouped by room id.
// Delivery is best-effort; a lost broadcast is recoverable by re-polling.
type Broadcaster interface {
	RoomUpdated(ctx context.Context, roomID uuid.UUID, state interface{}) error
	RoomFailed(ctx context.Context, roomID uuid.UUID, payload interface{}) error
}

// Service is the lobby orchestration engine. All authoritative state lives in
// the Repository; Redis provides the cross-instance lock and the read-side
// projection cache.
type Service struct {
	repo  Repository
	locks *lock.Client
	cache *cache.StateCache
	bus   Broadcaster
	cfg   config.Config
	log   *logrus.Logger
}

func NewService(repo Repository, locks *lock.Client, sc *cache.StateCache, bus Broadcaster, cfg config.Config, logger *logrus.Logger) *Service {
	return &Service{
		repo:  repo,
		locks: locks,
		cache: sc,
		bus:   bus,
		cfg:   cfg,
		log:   logger,
	}
}

// CreateRoomInput carries the already-validated room parameters.
type CreateRoomInput struct {
	Mode       models.Mode
	BattleType models.BattleType
	Level      models.Level
	IsRanked   bool
}

// CreateRoomResult is returned to the host on success.
type CreateRoomResult struct {
	RoomID    uuid.UUID `json:"roomId"`
	RoomCode  string    `json:"roomCode"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CreateRoom opens a WAITING room and seats the host on team A with no role,
// not ready, in the same transaction. A join-code collision is retried with a
// fresh code rather than surfaced.
func (s *Service) CreateRoom(ctx context.Context, hostUserID uuid.UUID, in CreateRoomInput) (*CreateRoomResult, error) {
	timeout := s.cfg.Timeout1v1
	if in.Mode == models.ModeThreeVsThree {
		timeout = s.cfg.Timeout3v3
	}
	expiresAt := time.Now().Add(timeout)

	var rm *models.Room
	for attempt := 0; attempt < createCodeAttempts; attempt++ {
		code, err := NewCode(s.cfg.CodeLen)
		if err != nil {
			return nil, fmt.Errorf("generating room code: %w", err)
		}
		candidate := &models.Room{
			ID:         uuid.New(),
			Code:       code,
			Mode:       in.Mode,
			BattleType: in.BattleType,
			Level:      in.Level,
			IsRanked:   in.IsRanked,
			Status:     models.StatusWaiting,
			HostUserID: hostUserID,
			ExpiresAt:  expiresAt,
		}
		host := &models.Member{
			RoomID:   candidate.ID,
			UserID:   hostUserID,
			Team:     models.TeamA,
			Role:     models.RoleNone,
			IsReady:  false,
			JoinedAt: time.Now(),
		}
		err = s.repo.CreateRoomWithHost(ctx, candidate, host)
		if errors.Is(err, ErrCodeTaken) {
			s.log.WithField("code", code).Warn("room code collision, regenerating")
			continue
		}
		if err != nil {
			return nil, err
		}
		rm = candidate
		break
	}
	if rm == nil {
		return nil, fmt.Errorf("exhausted %d room code attempts", createCodeAttempts)
	}

	s.syncRoom(ctx, rm.ID)

	return &CreateRoomResult{
		RoomID:    rm.ID,
		RoomCode:  rm.Code,
		Status:    rm.Status.Label(),
		ExpiresAt: rm.ExpiresAt,
	}, nil
}

// JoinResult is returned to a joining user.
type JoinResult struct {
	RoomID    uuid.UUID `json:"roomId"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// JoinByCode seats the user in the room identified by the join code. The
// expiry check is live; the sweeper is only an optimization behind it. Join
// deliberately takes no lock: the repository's (roomId, userId) uniqueness
// prevents duplicate rows, and a bounded capacity overshoot under a tight
// race is accepted.
func (s *Service) JoinByCode(ctx context.Context, userID uuid.UUID, code string) (*JoinResult, error) {
	rm, members, err := s.repo.RoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if rm.Status != models.StatusWaiting {
		return nil, ErrNotJoinable
	}
	if rm.ExpiresAt.Before(time.Now()) {
		return nil, ErrRoomExpired
	}
	if len(members) >= rm.Mode.Capacity() {
		return nil, ErrRoomFull
	}

	member := &models.Member{
		RoomID:   rm.ID,
		UserID:   userID,
		Team:     pickTeam(rm.Mode, members),
		Role:     models.RoleNone,
		IsReady:  false,
		JoinedAt: time.Now(),
	}
	if err := s.repo.UpsertMember(ctx, member); err != nil {
		return nil, err
	}

	s.syncRoom(ctx, rm.ID)

	return &JoinResult{
		RoomID:    rm.ID,
		Status:    rm.Status.Label(),
		ExpiresAt: rm.ExpiresAt,
	}, nil
}

// pickTeam recomputes the balance from current membership instead of keeping
// a counter. 1v1 seats by join order; 3v3 fills the smaller team, ties to A.
func pickTeam(mode models.Mode, members []models.Member) models.Team {
	if mode == models.ModeThreeVsThree {
		var a, b int
		for _, m := range members {
			if m.Team == models.TeamA {
				a++
			} else {
				b++
			}
		}
		if a <= b {
			return models.TeamA
		}
		return models.TeamB
	}
	if len(members) == 0 {
		return models.TeamA
	}
	return models.TeamB
}

// MemberState is a member's slice of the room projection.
type MemberState struct {
	UserID uuid.UUID `json:"userId"`
	Team   string    `json:"team"`
	Role   *string   `json:"role"`
	Ready  bool      `json:"ready"`
}

// RoomState is the external-facing projection of a room, recomputed from the
// repository after every mutation.
type RoomState struct {
	RoomID    uuid.UUID     `json:"roomId"`
	Mode      string        `json:"mode"`
	Status    string        `json:"status"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Members   []MemberState `json:"members"`
}

// State builds the projection straight from the repository.
func (s *Service) State(ctx context.Context, roomID uuid.UUID) (*RoomState, error) {
	rm, members, err := s.repo.RoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return project(rm, members), nil
}

// CachedState serves polling reads from the short-TTL cache, falling back to
// the repository (and repopulating the cache) on a miss. The cache is never
// authoritative.
func (s *Service) CachedState(ctx context.Context, roomID uuid.UUID) (*RoomState, error) {
	var cached RoomState
	hit, err := s.cache.GetRoomState(ctx, roomID, &cached)
	if err != nil {
		s.log.WithError(err).WithField("room_id", roomID).Warn("room state cache read failed")
	} else if hit {
		return &cached, nil
	}

	state, err := s.State(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetRoomState(ctx, roomID, state); err != nil {
		s.log.WithError(err).WithField("room_id", roomID).Warn("room state cache write failed")
	}
	return state, nil
}

func project(rm *models.Room, members []models.Member) *RoomState {
	state := &RoomState{
		RoomID:    rm.ID,
		Mode:      rm.Mode.Label(),
		Status:    rm.Status.Label(),
		ExpiresAt: rm.ExpiresAt,
		Members:   make([]MemberState, 0, len(members)),
	}
	for _, m := range members {
		ms := MemberState{
			UserID: m.UserID,
			Team:   string(m.Team),
			Ready:  m.IsReady,
		}
		if m.Role != models.RoleNone {
			label := m.Role.Label()
			ms.Role = &label
		}
		state.Members = append(state.Members, ms)
	}
	return state
}

// PickRole claims a (team, role) slot for the caller. Two members could race
// for the same slot on stale reads, so the whole read-check-write runs under
// the per-room pick lock.
func (s *Service) PickRole(ctx context.Context, userID, roomID uuid.UUID, team models.Team, role models.Role) error {
	key := fmt.Sprintf("lock:room:%s:pick", roomID)
	held, err := s.locks.Acquire(ctx, key, pickLockTTL)
	if err != nil {
		return fmt.Errorf("acquiring pick lock: %w", err)
	}
	if held == nil {
		return ErrLocked
	}
	defer func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), held); err != nil {
			s.log.WithError(err).WithField("key", key).Warn("failed to release pick lock")
		}
	}()

	if _, err := s.repo.ActiveMember(ctx, roomID, userID); err != nil {
		return err
	}

	_, members, err := s.repo.RoomByID(ctx, roomID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m.Team == team && m.Role == role && m.UserID != userID {
			return ErrRoleTaken
		}
	}

	// Changing role invalidates prior readiness; SetMemberRole clears both
	// in one write.
	return s.repoSyncAfter(ctx, roomID, s.repo.SetMemberRole(ctx, roomID, userID, role))
}

// SetReady toggles the caller's own ready flag. No lock: it is a single-row
// update keyed by the caller's membership, so no cross-user conflict exists.
func (s *Service) SetReady(ctx context.Context, userID, roomID uuid.UUID, ready bool) error {
	member, err := s.repo.ActiveMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if ready && member.Role == models.RoleNone {
		return ErrRoleRequired
	}
	return s.repoSyncAfter(ctx, roomID, s.repo.SetMemberReady(ctx, roomID, userID, ready))
}

// StartResult carries the minted battle identifier.
type StartResult struct {
	BattleID uuid.UUID `json:"battleId"`
	Status   string    `json:"status"`
}

// StartRoom transitions WAITING -> PLAYING when every guard holds: caller is
// host, room still WAITING and unexpired, exactly capacity active members,
// all ready. The guard set reads several rows, so it runs under the per-room
// start lock.
func (s *Service) StartRoom(ctx context.Context, userID, roomID uuid.UUID) (*StartResult, error) {
	key := fmt.Sprintf("lock:room:%s:start", roomID)
	held, err := s.locks.Acquire(ctx, key, startLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquiring start lock: %w", err)
	}
	if held == nil {
		return nil, ErrLocked
	}
	defer func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), held); err != nil {
			s.log.WithError(err).WithField("key", key).Warn("failed to release start lock")
		}
	}()

	rm, members, err := s.repo.RoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if rm.HostUserID != userID {
		return nil, ErrNotHost
	}
	if rm.Status != models.StatusWaiting {
		return nil, ErrNotWaiting
	}
	if rm.ExpiresAt.Before(time.Now()) {
		return nil, ErrRoomExpired
	}
	if len(members) != rm.Mode.Capacity() {
		return nil, ErrNotEnoughPlayers
	}
	for _, m := range members {
		if !m.IsReady {
			return nil, ErrNotReady
		}
	}

	if err := s.repo.MarkRoomPlaying(ctx, roomID, time.Now()); err != nil {
		return nil, err
	}

	battleID := uuid.New()
	s.log.WithFields(logrus.Fields{
		"room_id":   roomID,
		"battle_id": battleID,
	}).Info("room started")

	s.syncRoom(ctx, roomID)

	return &StartResult{BattleID: battleID, Status: models.StatusPlaying.Label()}, nil
}

// Leave soft-deletes the caller's membership. The row is kept so a re-join
// reactivates it instead of inserting a duplicate.
func (s *Service) Leave(ctx context.Context, userID, roomID uuid.UUID) error {
	if _, err := s.repo.ActiveMember(ctx, roomID, userID); err != nil {
		return err
	}
	return s.repoSyncAfter(ctx, roomID, s.repo.MarkMemberLeft(ctx, roomID, userID, time.Now()))
}

func (s *Service) repoSyncAfter(ctx context.Context, roomID uuid.UUID, err error) error {
	if err != nil {
		return err
	}
	s.syncRoom(ctx, roomID)
	return nil
}

// syncRoom recomputes the projection from the repository, refreshes the
// read-side cache and broadcasts it. Cache and broadcast failures are logged
// and swallowed: the authoritative write already committed, and clients can
// always re-poll.
func (s *Service) syncRoom(ctx context.Context, roomID uuid.UUID) {
	state, err := s.State(ctx, roomID)
	if err != nil {
		s.log.WithError(err).WithField("room_id", roomID).Warn("failed to rebuild room projection")
		return
	}
	if err := s.cache.SetRoomState(ctx, roomID, state); err != nil {
		s.log.WithError(err).WithField("room_id", roomID).Warn("room state cache write failed")
	}
	if err := s.bus.RoomUpdated(ctx, roomID, state); err != nil {
		s.log.WithError(err).WithField("room_id", roomID).Warn("room update broadcast failed")
	}
}
