package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/cariera-ai/cariera/backend/models"
)

const (
	sweepInterval = 30 * time.Second

	// sweepGrace is how long past its configured duration a session may stay
	// ongoing before the sweeper finalizes it. Covers clients that died
	// without a close frame.
	sweepGrace = 2 * time.Minute
)

// SweeperStore lists sessions the sweeper may need to finalize.
type SweeperStore interface {
	ListOverdueOngoingSessions(ctx context.Context, now time.Time, grace time.Duration) ([]models.InterviewSession, error)
}

// SessionSweeper finalizes sessions that overran their duration and no
// longer have a connected client. It backstops the disconnect path, which
// never fires when the process or the network dies mid-session.
type SessionSweeper struct {
	store       SweeperStore
	finalizer   *Finalizer
	clientCount func(sessionID string) int
}

func NewSessionSweeper(store SweeperStore, finalizer *Finalizer, clientCount func(sessionID string) int) *SessionSweeper {
	return &SessionSweeper{
		store:       store,
		finalizer:   finalizer,
		clientCount: clientCount,
	}
}

// Run sweeps on a fixed interval until the context is canceled.
func (s *SessionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *SessionSweeper) sweep(ctx context.Context) {
	sessions, err := s.store.ListOverdueOngoingSessions(ctx, time.Now(), sweepGrace)
	if err != nil {
		return
	}

	for _, session := range sessions {
		if s.clientCount(session.ID) > 0 {
			// Someone is still talking; the disconnect path will handle it.
			continue
		}

		slog.Info("Sweeping abandoned session", "session_id", session.ID)
		s.finalizer.Finalize(ctx, session.ID)
	}
}
