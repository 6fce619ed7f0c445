// internal/room/errors.go
package room

// Kind classifies a domain failure for transport mapping. Anything that is
// not a *Error is treated as an internal failure.
type Kind int

const (
	KindNotFound Kind = iota
	KindConflict
	KindGone
	KindForbidden
	KindBadRequest
)

// Error is a caller-visible domain failure with a stable wire code.
type Error struct {
	Kind Kind
	Code string
}

func (e *Error) Error() string { return e.Code }

var (
	ErrRoomNotFound = &Error{KindNotFound, "ROOM_NOT_FOUND"}
	ErrNotJoinable  = &Error{KindConflict, "ROOM_NOT_JOINABLE"}
	ErrRoomExpired  = &Error{KindGone, "ROOM_EXPIRED"}
	ErrRoomFull     = &Error{KindConflict, "ROOM_FULL"}

	// ErrLocked means the per-room lock is held; the caller should retry.
	// The engine never retries on its own.
	ErrLocked = &Error{KindConflict, "LOCKED_TRY_AGAIN"}

	ErrNotInRoom        = &Error{KindForbidden, "NOT_IN_ROOM"}
	ErrRoleTaken        = &Error{KindConflict, "ROLE_TAKEN"}
	ErrRoleRequired     = &Error{KindBadRequest, "ROLE_REQUIRED"}
	ErrNotHost          = &Error{KindForbidden, "NOT_HOST"}
	ErrNotWaiting       = &Error{KindConflict, "ROOM_NOT_WAITING"}
	ErrNotEnoughPlayers = &Error{KindBadRequest, "NOT_ENOUGH_PLAYERS"}
	ErrNotReady         = &Error{KindBadRequest, "NOT_READY"}

	// ErrCodeTaken is returned by repositories on a join-code uniqueness
	// violation. CreateRoom retries with a fresh code and never surfaces it.
	ErrCodeTaken = &Error{KindConflict, "ROOM_CODE_TAKEN"}
)
