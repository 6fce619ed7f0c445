// internal/room/sweeper.go
package room

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FailReasonTimeout is the diagnostic recorded on rooms reclaimed by the
// sweeper.
const FailReasonTimeout = "TIMEOUT"

// RoomFailure is the payload broadcast when a room is closed by the sweeper.
type RoomFailure struct {
	RoomID uuid.UUID `json:"roomId"`
	Reason string    `json:"reason"`
}

// Sweeper reclaims WAITING rooms whose deadline has passed. It never takes
// the per-room locks: it only acts on rooms already past expiry, and every
// mutating operation re-checks expiry itself, so the two paths cannot commit
// conflicting transitions.
type Sweeper struct {
	repo     Repository
	bus      Broadcaster
	log      *logrus.Logger
	interval time.Duration
	batch    int
}

func NewSweeper(repo Repository, bus Broadcaster, logger *logrus.Logger, interval time.Duration, batch int) *Sweeper {
	return &Sweeper{
		repo:     repo,
		bus:      bus,
		log:      logger,
		interval: interval,
		batch:    batch,
	}
}

// Run ticks until ctx is cancelled. A failing tick is logged and the loop
// keeps going.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.WithField("interval", s.interval).Info("room sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("room sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep handles one tick: up to batch expired WAITING rooms, each isolated so
// one transient failure never aborts the rest.
func (s *Sweeper) Sweep(ctx context.Context) {
	rooms, err := s.repo.ListExpiredWaiting(ctx, time.Now(), s.batch)
	if err != nil {
		s.log.WithError(err).Warn("sweep query failed")
		return
	}

	for _, rm := range rooms {
		swept, err := s.repo.MarkRoomFailed(ctx, rm.ID, FailReasonTimeout, time.Now())
		if err != nil {
			s.log.WithError(err).WithField("room_id", rm.ID).Warn("failed to sweep room")
			continue
		}
		if !swept {
			// Lost the race to a legitimate start between listing and
			// updating; the room is terminal either way.
			continue
		}

		s.log.WithFields(logrus.Fields{
			"room_id": rm.ID,
			"code":    rm.Code,
		}).Info("room expired, marked failed")

		payload := RoomFailure{RoomID: rm.ID, Reason: FailReasonTimeout}
		if err := s.bus.RoomFailed(ctx, rm.ID, payload); err != nil {
			s.log.WithError(err).WithField("room_id", rm.ID).Warn("room failed broadcast failed")
		}
	}
}
