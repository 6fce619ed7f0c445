// internal/handlers/server.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/brainbattle/battle-service/internal/auth"
	"github.com/brainbattle/battle-service/internal/room"
	"github.com/brainbattle/battle-service/internal/users"
)

// Server holds the HTTP surface's collaborators: the room engine, identity
// resolution, the profile client and the Redis client used for websocket
// subscriptions.
type Server struct {
	Rooms *room.Service
	Auth  *auth.Resolver
	Users *users.Client
	Rdb   *redis.Client
	Log   *logrus.Logger
}

// Routes registers all endpoints on the mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/battle/health", s.handleHealth)

	mux.HandleFunc("POST /api/battle/rooms", s.handleCreateRoom)
	mux.HandleFunc("POST /api/battle/rooms/join", s.handleJoinRoom)
	mux.HandleFunc("GET /api/battle/rooms/{roomId}", s.handleRoomState)
	mux.HandleFunc("POST /api/battle/rooms/{roomId}/pick-role", s.handlePickRole)
	mux.HandleFunc("POST /api/battle/rooms/{roomId}/ready", s.handleReady)
	mux.HandleFunc("POST /api/battle/rooms/{roomId}/start", s.handleStartRoom)
	mux.HandleFunc("POST /api/battle/rooms/{roomId}/leave", s.handleLeaveRoom)

	mux.HandleFunc("GET /api/battle/users/{userId}", s.handleUserProfile)

	mux.HandleFunc("GET /ws/battle/{roomId}", s.handleBattleWS)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the domain taxonomy onto HTTP statuses. Anything that is
// not a *room.Error or an auth failure is an internal error; the wire never
// carries transport details.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, auth.ErrUnauthorized) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "UNAUTHORIZED"})
		return
	}

	var domainErr *room.Error
	if errors.As(err, &domainErr) {
		writeJSON(w, statusFor(domainErr.Kind), errorResponse{Error: domainErr.Code})
		return
	}

	s.Log.WithError(err).WithField("path", r.URL.Path).Error("internal error")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "INTERNAL"})
}

func statusFor(kind room.Kind) int {
	switch kind {
	case room.KindNotFound:
		return http.StatusNotFound
	case room.KindConflict:
		return http.StatusConflict
	case room.KindGone:
		return http.StatusGone
	case room.KindForbidden:
		return http.StatusForbidden
	case room.KindBadRequest:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
