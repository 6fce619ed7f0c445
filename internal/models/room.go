// internal/models/room.go
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Mode fixes a room's capacity and team-balancing rule.
type Mode string

const (
	ModeOneVsOne     Mode = "ONE_VS_ONE"
	ModeThreeVsThree Mode = "THREE_VS_THREE"
)

// Capacity is the exact number of active members a room must hold to start.
func (m Mode) Capacity() int {
	if m == ModeThreeVsThree {
		return 6
	}
	return 2
}

// Label returns the wire form ("1v1" / "3v3").
func (m Mode) Label() string {
	if m == ModeThreeVsThree {
		return "3v3"
	}
	return "1v1"
}

// ParseMode maps the wire form to a Mode. Unknown values are an error, never
// a silent default.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "1v1":
		return ModeOneVsOne, nil
	case "3v3":
		return ModeThreeVsThree, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// BattleType is an opaque tag on the room; the engine never interprets it.
type BattleType string

const (
	BattleListening BattleType = "LISTENING"
	BattleReading   BattleType = "READING"
	BattleWriting   BattleType = "WRITING"
	BattleMixed     BattleType = "MIXED"
)

func ParseBattleType(s string) (BattleType, error) {
	switch s {
	case "listening":
		return BattleListening, nil
	case "reading":
		return BattleReading, nil
	case "writing":
		return BattleWriting, nil
	case "mixed":
		return BattleMixed, nil
	}
	return "", fmt.Errorf("unknown battle type %q", s)
}

// Level is an opaque difficulty tag.
type Level string

const (
	LevelBasic  Level = "BASIC"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

func ParseLevel(s string) (Level, error) {
	switch s {
	case "basic":
		return LevelBasic, nil
	case "medium":
		return LevelMedium, nil
	case "high":
		return LevelHigh, nil
	}
	return "", fmt.Errorf("unknown level %q", s)
}

// Status is the room lifecycle state. Transitions are monotonic:
// WAITING -> PLAYING or WAITING -> FAILED, both terminal.
type Status string

const (
	StatusWaiting Status = "WAITING"
	StatusPlaying Status = "PLAYING"
	StatusFailed  Status = "FAILED"
)

// Label returns the lowercase wire form.
func (s Status) Label() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusFailed:
		return "failed"
	}
	return "waiting"
}

// Team identifies which side of the room a member sits on.
type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

func ParseTeam(s string) (Team, error) {
	switch s {
	case "A":
		return TeamA, nil
	case "B":
		return TeamB, nil
	}
	return "", fmt.Errorf("unknown team %q", s)
}

// Role is a member's slot within a team. The zero value means no role picked
// yet; a member cannot ready up without one.
type Role string

const (
	RoleNone      Role = ""
	RoleListening Role = "LISTENING"
	RoleReading   Role = "READING"
	RoleWriting   Role = "WRITING"
)

// Label returns the lowercase wire form, or "" for no role.
func (r Role) Label() string {
	switch r {
	case RoleListening:
		return "listening"
	case RoleReading:
		return "reading"
	case RoleWriting:
		return "writing"
	}
	return ""
}

func ParseRole(s string) (Role, error) {
	switch s {
	case "listening":
		return RoleListening, nil
	case "reading":
		return RoleReading, nil
	case "writing":
		return RoleWriting, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Room represents a row in the battle_rooms table.
type Room struct {
	ID         uuid.UUID  `json:"id"`
	Code       string     `json:"code"`
	Mode       Mode       `json:"mode"`
	BattleType BattleType `json:"battleType"`
	Level      Level      `json:"level"`
	IsRanked   bool       `json:"isRanked"`
	Status     Status     `json:"status"`
	HostUserID uuid.UUID  `json:"hostUserId"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	ClosedAt   *time.Time `json:"closedAt,omitempty"`
	FailReason string     `json:"failReason,omitempty"`
}

// Member represents a row in the room_members table. A non-nil LeftAt marks
// the row soft-deleted; re-joining reactivates it rather than inserting a
// duplicate.
type Member struct {
	RoomID   uuid.UUID  `json:"roomId"`
	UserID   uuid.UUID  `json:"userId"`
	Team     Team       `json:"team"`
	Role     Role       `json:"role"`
	IsReady  bool       `json:"isReady"`
	JoinedAt time.Time  `json:"joinedAt"`
	LeftAt   *time.Time `json:"leftAt,omitempty"`
}

// Active reports whether the member still counts toward capacity and team
// balance.
func (m *Member) Active() bool {
	return m.LeftAt == nil
}
