// internal/handlers/room_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainbattle/battle-service/internal/auth"
	"github.com/brainbattle/battle-service/internal/broadcast"
	"github.com/brainbattle/battle-service/internal/cache"
	"github.com/brainbattle/battle-service/internal/config"
	"github.com/brainbattle/battle-service/internal/lock"
	"github.com/brainbattle/battle-service/internal/room"
	"github.com/brainbattle/battle-service/internal/users"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cfg := config.Config{
		CodeLen:    6,
		Timeout1v1: 300 * time.Second,
		Timeout3v3: 60 * time.Second,
	}
	svc := room.NewService(room.NewMemoryRepository(), lock.New(rdb), cache.NewStateCache(rdb), broadcast.NewRedis(rdb), cfg, logger)

	srv := &Server{
		Rooms: svc,
		Auth:  auth.NewResolver(""),
		Users: users.NewClient(""),
		Rdb:   rdb,
		Log:   logger,
	}
	mux := http.NewServeMux()
	srv.Routes(mux)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, userID uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if userID != uuid.Nil {
		req.Header.Set("X-Dev-User-Id", userID.String())
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	mux := newTestMux(t)

	w := doJSON(t, mux, "GET", "/api/battle/health", uuid.Nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateRoomRequiresAuth(t *testing.T) {
	mux := newTestMux(t)

	w := doJSON(t, mux, "POST", "/api/battle/rooms", uuid.Nil,
		`{"mode":"1v1","battleType":"mixed","level":"basic","isRanked":false}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateRoomValidatesEnums(t *testing.T) {
	mux := newTestMux(t)

	w := doJSON(t, mux, "POST", "/api/battle/rooms", uuid.New(),
		`{"mode":"5v5","battleType":"mixed","level":"basic"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_MODE", resp["error"])
}

func TestCreateJoinStartFlow(t *testing.T) {
	mux := newTestMux(t)
	host := uuid.New()
	guest := uuid.New()

	w := doJSON(t, mux, "POST", "/api/battle/rooms", host,
		`{"mode":"1v1","battleType":"listening","level":"high","isRanked":true}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created room.CreateRoomResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.RoomCode)
	assert.Equal(t, "waiting", created.Status)

	w = doJSON(t, mux, "POST", "/api/battle/rooms/join", guest,
		`{"roomCode":"`+created.RoomCode+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	roomPath := "/api/battle/rooms/" + created.RoomID.String()

	for _, call := range []struct {
		userID uuid.UUID
		body   string
	}{
		{host, `{"team":"A","role":"listening"}`},
		{guest, `{"team":"B","role":"reading"}`},
	} {
		w = doJSON(t, mux, "POST", roomPath+"/pick-role", call.userID, call.body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	for _, userID := range []uuid.UUID{host, guest} {
		w = doJSON(t, mux, "POST", roomPath+"/ready", userID, `{"ready":true}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = doJSON(t, mux, "POST", roomPath+"/start", host, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var started room.StartResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	assert.NotEqual(t, uuid.Nil, started.BattleID)
	assert.Equal(t, "playing", started.Status)

	w = doJSON(t, mux, "GET", roomPath, host, "")
	require.Equal(t, http.StatusOK, w.Code)
	var state room.RoomState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, "playing", state.Status)
	assert.Len(t, state.Members, 2)
}

func TestJoinUnknownCodeIs404(t *testing.T) {
	mux := newTestMux(t)

	w := doJSON(t, mux, "POST", "/api/battle/rooms/join", uuid.New(), `{"roomCode":"XXXXXX"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartByNonHostIs403(t *testing.T) {
	mux := newTestMux(t)
	host := uuid.New()

	w := doJSON(t, mux, "POST", "/api/battle/rooms", host,
		`{"mode":"1v1","battleType":"mixed","level":"basic"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created room.CreateRoomResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, mux, "POST", "/api/battle/rooms/"+created.RoomID.String()+"/start", uuid.New(), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_HOST", resp["error"])
}

func TestRoomStateUnknownRoomIs404(t *testing.T) {
	mux := newTestMux(t)

	w := doJSON(t, mux, "GET", "/api/battle/rooms/"+uuid.NewString(), uuid.New(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReadyWithoutRoleIs400(t *testing.T) {
	mux := newTestMux(t)
	host := uuid.New()

	w := doJSON(t, mux, "POST", "/api/battle/rooms", host,
		`{"mode":"1v1","battleType":"mixed","level":"basic"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created room.CreateRoomResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, mux, "POST", "/api/battle/rooms/"+created.RoomID.String()+"/ready", host, `{"ready":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserProfileFallback(t *testing.T) {
	mux := newTestMux(t)
	userID := uuid.New()

	w := doJSON(t, mux, "GET", "/api/battle/users/"+userID.String(), uuid.New(), "")
	require.Equal(t, http.StatusOK, w.Code)

	var profile users.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, userID, profile.UserID)
	assert.Equal(t, "user_"+userID.String()[:6], profile.Username)
}

func TestLeaveRoom(t *testing.T) {
	mux := newTestMux(t)
	host := uuid.New()
	guest := uuid.New()

	w := doJSON(t, mux, "POST", "/api/battle/rooms", host,
		`{"mode":"1v1","battleType":"mixed","level":"basic"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created room.CreateRoomResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, mux, "POST", "/api/battle/rooms/join", guest, `{"roomCode":"`+created.RoomCode+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, mux, "POST", "/api/battle/rooms/"+created.RoomID.String()+"/leave", guest, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, mux, "GET", "/api/battle/rooms/"+created.RoomID.String(), host, "")
	require.Equal(t, http.StatusOK, w.Code)
	var state room.RoomState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Len(t, state.Members, 1)
}
