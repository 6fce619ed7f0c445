// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/brainbattle/battle-service/internal/models"
	"github.com/brainbattle/battle-service/internal/room"
)

type createRoomRequest struct {
	Mode       string `json:"mode"`
	BattleType string `json:"battleType"`
	Level      string `json:"level"`
	IsRanked   bool   `json:"isRanked"`
}

type joinRoomRequest struct {
	RoomCode string `json:"roomCode"`
}

type pickRoleRequest struct {
	Team string `json:"team"`
	Role string `json:"role"`
}

type readyRequest struct {
	Ready bool `json:"ready"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	userID, err := s.Auth.Resolve(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "BAD_PAYLOAD"})
		return
	}

	mode, err := models.ParseMode(req.Mode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "INVALID_MODE"})
		return
	}
	battleType, err := models.ParseBattleType(req.BattleType)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "INVALID_BATTLE_TYPE"})
		return
	}
	level, err := models.ParseLevel(req.Level)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "INVALID_LEVEL"})
		return
	}

	result, err := s.Rooms.CreateRoom(r.Context(), userID, room.CreateRoomInput{
		Mode:       mode,
		BattleType: battleType,
		Level:      level,
		IsRanked:   req.IsRanked,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	userID, err := s.Auth.Resolve(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomCode == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "BAD_PAYLOAD"})
		return
	}

	result, err := s.Rooms.JoinByCode(r.Context(), userID, req.RoomCode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRoomState(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Auth.Resolve(r); err != nil {
		s.writeError(w, r, err)
		return
	}

	roomID, err := uuid.Parse(r.PathValue("roomId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "INVALID_ROOM_ID"})
		return
	}

	state, err := s.Rooms.CachedState(r.Context(), roomID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handlePickRole(w http.ResponseWriter, r *http.Request) {
	userID, roomID, ok := s.resolveRoomCall(w, r)
	if !ok {
		return
	}

	var req pickRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "BAD_PAYLOAD"})
		return
	}
	team, err := models.ParseTeam(req.Team)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "INVALID_TEAM"})
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "INVALID_ROLE"})
		return
	}

	if err := s.Rooms.PickRole(r.Context(), userID, roomID, team, role); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	userID, roomID, ok := s.resolveRoomCall(w, r)
	if !ok {
		return
	}

	var req readyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "BAD_PAYLOAD"})
		return
	}

	if err := s.Rooms.SetReady(r.Context(), userID, roomID, req.Ready); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleStartRoom(w http.ResponseWriter, r *http.Request) {
	userID, roomID, ok := s.resolveRoomCall(w, r)
	if !ok {
		return
	}

	result, err := s.Rooms.StartRoom(r.Context(), userID, roomID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	userID, roomID, ok := s.resolveRoomCall(w, r)
	if !ok {
		return
	}

	if err := s.Rooms.Leave(r.Context(), userID, roomID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Auth.Resolve(r); err != nil {
		s.writeError(w, r, err)
		return
	}

	userID, err := uuid.Parse(r.PathValue("userId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "INVALID_USER_ID"})
		return
	}

	profile, err := s.Users.GetPublicProfile(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// resolveRoomCall handles the shared identity + room id plumbing of the
// per-room operations.
func (s *Server) resolveRoomCall(w http.ResponseWriter, r *http.Request) (userID, roomID uuid.UUID, ok bool) {
	userID, err := s.Auth.Resolve(r)
	if err != nil {
		s.writeError(w, r, err)
		return uuid.Nil, uuid.Nil, false
	}
	roomID, err = uuid.Parse(r.PathValue("roomId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "INVALID_ROOM_ID"})
		return uuid.Nil, uuid.Nil, false
	}
	return userID, roomID, true
}
