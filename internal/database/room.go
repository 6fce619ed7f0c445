// internal/database/room.go
package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brainbattle/battle-service/internal/models"
	"github.com/brainbattle/battle-service/internal/room"
)

// Repository is the Postgres-backed room store. Multi-row writes run inside
// a transaction; everything else relies on single-statement atomicity.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ room.Repository = (*Repository)(nil)

const roomColumns = `
	id, room_code, mode, battle_type, level, is_ranked,
	status, host_user_id, expires_at, started_at, closed_at, fail_reason
`

// CreateRoomWithHost inserts the room and seats the host in one transaction.
// A room_code uniqueness violation maps to room.ErrCodeTaken so the engine
// can retry with a fresh code.
func (r *Repository) CreateRoomWithHost(ctx context.Context, rm *models.Room, host *models.Member) error {
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
		INSERT INTO battle_rooms (
			id, room_code, mode, battle_type, level, is_ranked,
			status, host_user_id, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		if _, err := tx.Exec(ctx, q,
			rm.ID, rm.Code, rm.Mode, rm.BattleType, rm.Level, rm.IsRanked,
			rm.Status, rm.HostUserID, rm.ExpiresAt,
		); err != nil {
			return err
		}

		mq := `
		INSERT INTO room_members (room_id, user_id, team, role, is_ready, joined_at)
		VALUES ($1, $2, $3, NULL, false, $4)
		`
		_, err := tx.Exec(ctx, mq, host.RoomID, host.UserID, host.Team, host.JoinedAt)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return room.ErrCodeTaken
		}
		return err
	}
	return nil
}

func (r *Repository) RoomByID(ctx context.Context, id uuid.UUID) (*models.Room, []models.Member, error) {
	q := `SELECT ` + roomColumns + ` FROM battle_rooms WHERE id = $1`
	return r.fetchRoom(ctx, q, id)
}

func (r *Repository) RoomByCode(ctx context.Context, code string) (*models.Room, []models.Member, error) {
	q := `SELECT ` + roomColumns + ` FROM battle_rooms WHERE room_code = $1`
	return r.fetchRoom(ctx, q, code)
}

func (r *Repository) fetchRoom(ctx context.Context, query string, arg interface{}) (*models.Room, []models.Member, error) {
	rm, err := scanRoom(r.pool.QueryRow(ctx, query, arg))
	if err == pgx.ErrNoRows {
		return nil, nil, room.ErrRoomNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	members, err := r.activeMembers(ctx, rm.ID)
	if err != nil {
		return nil, nil, err
	}
	return rm, members, nil
}

func scanRoom(row pgx.Row) (*models.Room, error) {
	var rm models.Room
	var failReason *string
	err := row.Scan(
		&rm.ID, &rm.Code, &rm.Mode, &rm.BattleType, &rm.Level, &rm.IsRanked,
		&rm.Status, &rm.HostUserID, &rm.ExpiresAt, &rm.StartedAt, &rm.ClosedAt, &failReason,
	)
	if err != nil {
		return nil, err
	}
	if failReason != nil {
		rm.FailReason = *failReason
	}
	return &rm, nil
}

func (r *Repository) activeMembers(ctx context.Context, roomID uuid.UUID) ([]models.Member, error) {
	q := `
	SELECT room_id, user_id, team, role, is_ready, joined_at
	FROM room_members
	WHERE room_id = $1 AND left_at IS NULL
	ORDER BY joined_at
	`
	rows, err := r.pool.Query(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		var role *string
		if err := rows.Scan(&m.RoomID, &m.UserID, &m.Team, &role, &m.IsReady, &m.JoinedAt); err != nil {
			return nil, err
		}
		if role != nil {
			m.Role = models.Role(*role)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *Repository) ActiveMember(ctx context.Context, roomID, userID uuid.UUID) (*models.Member, error) {
	q := `
	SELECT room_id, user_id, team, role, is_ready, joined_at
	FROM room_members
	WHERE room_id = $1 AND user_id = $2 AND left_at IS NULL
	`
	var m models.Member
	var role *string
	err := r.pool.QueryRow(ctx, q, roomID, userID).Scan(
		&m.RoomID, &m.UserID, &m.Team, &role, &m.IsReady, &m.JoinedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, room.ErrNotInRoom
	}
	if err != nil {
		return nil, err
	}
	if role != nil {
		m.Role = models.Role(*role)
	}
	return &m, nil
}

// UpsertMember inserts or reactivates the (room, user) row, resetting team,
// role and readiness the way a fresh join would.
func (r *Repository) UpsertMember(ctx context.Context, m *models.Member) error {
	q := `
	INSERT INTO room_members (room_id, user_id, team, role, is_ready, joined_at)
	VALUES ($1, $2, $3, NULL, false, $4)
	ON CONFLICT (room_id, user_id)
	DO UPDATE SET left_at = NULL, team = $3, role = NULL, is_ready = false
	`
	_, err := r.pool.Exec(ctx, q, m.RoomID, m.UserID, m.Team, m.JoinedAt)
	return err
}

func (r *Repository) SetMemberRole(ctx context.Context, roomID, userID uuid.UUID, role models.Role) error {
	q := `
	UPDATE room_members SET role = $3, is_ready = false
	WHERE room_id = $1 AND user_id = $2 AND left_at IS NULL
	`
	tag, err := r.pool.Exec(ctx, q, roomID, userID, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return room.ErrNotInRoom
	}
	return nil
}

func (r *Repository) SetMemberReady(ctx context.Context, roomID, userID uuid.UUID, ready bool) error {
	q := `
	UPDATE room_members SET is_ready = $3
	WHERE room_id = $1 AND user_id = $2 AND left_at IS NULL
	`
	tag, err := r.pool.Exec(ctx, q, roomID, userID, ready)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return room.ErrNotInRoom
	}
	return nil
}

func (r *Repository) MarkMemberLeft(ctx context.Context, roomID, userID uuid.UUID, at time.Time) error {
	q := `
	UPDATE room_members SET left_at = $3
	WHERE room_id = $1 AND user_id = $2 AND left_at IS NULL
	`
	tag, err := r.pool.Exec(ctx, q, roomID, userID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return room.ErrNotInRoom
	}
	return nil
}

// MarkRoomPlaying only transitions out of WAITING; the status predicate keeps
// terminal states terminal even under a race.
func (r *Repository) MarkRoomPlaying(ctx context.Context, roomID uuid.UUID, at time.Time) error {
	q := `
	UPDATE battle_rooms SET status = $2, started_at = $3
	WHERE id = $1 AND status = $4
	`
	tag, err := r.pool.Exec(ctx, q, roomID, models.StatusPlaying, at, models.StatusWaiting)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return room.ErrNotWaiting
	}
	return nil
}

func (r *Repository) MarkRoomFailed(ctx context.Context, roomID uuid.UUID, reason string, at time.Time) (bool, error) {
	q := `
	UPDATE battle_rooms SET status = $2, fail_reason = $3, closed_at = $4
	WHERE id = $1 AND status = $5
	`
	tag, err := r.pool.Exec(ctx, q, roomID, models.StatusFailed, reason, at, models.StatusWaiting)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) ListExpiredWaiting(ctx context.Context, before time.Time, limit int) ([]models.Room, error) {
	q := `
	SELECT ` + roomColumns + `
	FROM battle_rooms
	WHERE status = $1 AND expires_at < $2
	ORDER BY expires_at
	LIMIT $3
	`
	rows, err := r.pool.Query(ctx, q, models.StatusWaiting, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *rm)
	}
	return rooms, rows.Err()
}
