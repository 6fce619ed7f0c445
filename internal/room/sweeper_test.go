// internal/room/sweeper_test.go
package room

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainbattle/battle-service/internal/models"
)

func newSweeperEnv(t *testing.T) (*testEnv, *Sweeper) {
	t.Helper()
	env := newTestEnv(t)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return env, NewSweeper(env.repo, env.bus, logger, time.Second, 50)
}

func TestSweepFailsExpiredWaitingRoom(t *testing.T) {
	env, sweeper := newSweeperEnv(t)
	env.svc.cfg.Timeout3v3 = -time.Second
	created := createRoom(t, env, uuid.New(), models.ModeThreeVsThree)
	ctx := context.Background()

	sweeper.Sweep(ctx)

	rm, _, err := env.repo.RoomByID(ctx, created.RoomID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, rm.Status)
	assert.Equal(t, FailReasonTimeout, rm.FailReason)
	require.NotNil(t, rm.ClosedAt)

	failures := env.bus.failures()
	require.Len(t, failures, 1)
	assert.Equal(t, created.RoomID, failures[0].RoomID)
	assert.Equal(t, FailReasonTimeout, failures[0].Reason)

	// A second tick must not emit a second failure event.
	sweeper.Sweep(ctx)
	assert.Len(t, env.bus.failures(), 1)
}

func TestSweepLeavesUnexpiredRoomsAlone(t *testing.T) {
	env, sweeper := newSweeperEnv(t)
	created := createRoom(t, env, uuid.New(), models.ModeOneVsOne)
	ctx := context.Background()

	sweeper.Sweep(ctx)

	rm, _, err := env.repo.RoomByID(ctx, created.RoomID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, rm.Status)
	assert.Empty(t, env.bus.failures())
}

func TestSweepNeverTouchesPlayingRoom(t *testing.T) {
	env, sweeper := newSweeperEnv(t)
	host := uuid.New()
	created := createRoom(t, env, host, models.ModeOneVsOne)
	ctx := context.Background()

	fillAndReady(t, env, created, host, models.ModeOneVsOne)
	_, err := env.svc.StartRoom(ctx, host, created.RoomID)
	require.NoError(t, err)

	// Push the deadline into the past after the start.
	rm, _, err := env.repo.RoomByID(ctx, created.RoomID)
	require.NoError(t, err)
	env.repo.mu.Lock()
	env.repo.rooms[rm.ID].ExpiresAt = time.Now().Add(-time.Minute)
	env.repo.mu.Unlock()

	sweeper.Sweep(ctx)

	rm, _, err = env.repo.RoomByID(ctx, created.RoomID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlaying, rm.Status)
	assert.Empty(t, env.bus.failures())
}

// flakyRepo fails MarkRoomFailed for one designated room.
type flakyRepo struct {
	Repository
	failFor uuid.UUID
}

func (r *flakyRepo) MarkRoomFailed(ctx context.Context, roomID uuid.UUID, reason string, at time.Time) (bool, error) {
	if roomID == r.failFor {
		return false, errors.New("transient repository error")
	}
	return r.Repository.MarkRoomFailed(ctx, roomID, reason, at)
}

func TestSweepIsolatesPerRoomFailures(t *testing.T) {
	env := newTestEnv(t)
	env.svc.cfg.Timeout3v3 = -time.Minute
	broken := createRoom(t, env, uuid.New(), models.ModeThreeVsThree)

	env.svc.cfg.Timeout3v3 = -time.Second
	healthy := createRoom(t, env, uuid.New(), models.ModeThreeVsThree)
	ctx := context.Background()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	sweeper := NewSweeper(&flakyRepo{Repository: env.repo, failFor: broken.RoomID}, env.bus, logger, time.Second, 50)

	sweeper.Sweep(ctx)

	// The broken room stays WAITING, the healthy one was still swept.
	rm, _, err := env.repo.RoomByID(ctx, broken.RoomID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, rm.Status)

	rm, _, err = env.repo.RoomByID(ctx, healthy.RoomID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, rm.Status)

	failures := env.bus.failures()
	require.Len(t, failures, 1)
	assert.Equal(t, healthy.RoomID, failures[0].RoomID)
}

func TestSweepBatchBound(t *testing.T) {
	env := newTestEnv(t)
	env.svc.cfg.Timeout3v3 = -time.Second
	for i := 0; i < 5; i++ {
		createRoom(t, env, uuid.New(), models.ModeThreeVsThree)
	}
	ctx := context.Background()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	sweeper := NewSweeper(env.repo, env.bus, logger, time.Second, 2)

	sweeper.Sweep(ctx)
	assert.Len(t, env.bus.failures(), 2)

	sweeper.Sweep(ctx)
	sweeper.Sweep(ctx)
	assert.Len(t, env.bus.failures(), 5)
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	env, _ := newSweeperEnv(t)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	sweeper := NewSweeper(env.repo, env.bus, logger, 10*time.Millisecond, 50)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
