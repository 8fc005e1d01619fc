// internal/game/finalize.go
package game

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/retroaegx/shogicenter/engine"
	"github.com/retroaegx/shogicenter/internal/models"
	"github.com/retroaegx/shogicenter/internal/store"
)

// ratingClaimTTL bounds how long a crashed finalize attempt blocks a
// retried rating update.
const ratingClaimTTL = 10 * time.Minute

// Finish is the only path to the finished status. The transition is a
// single atomic conditional update; of any number of concurrent
// callers (a move handler, the timeout worker, the disconnect worker)
// exactly one wins and runs the side-effect pipeline. Losers get
// store.ErrAlreadyFinished and must treat it as a no-op.
//
// A nil winner and loser mean a draw.
func (s *Service) Finish(ctx context.Context, gameID uuid.UUID, winner, loser *engine.Side, reason models.TerminationReason) error {
	finished, err := s.store.FinishIfActive(ctx, gameID, store.FinishParams{
		Winner:       winner,
		Loser:        loser,
		Reason:       reason,
		FinishedAtMs: s.now(),
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"game":   gameID,
		"reason": reason,
	}).Info("game finished")
	s.logAction(finished, uuid.Nil, "game_finish", map[string]interface{}{"reason": string(reason)})

	s.finalize(ctx, finished)
	return nil
}

// finalize runs the post-finish pipeline. Every step is best-effort
// and individually fault-isolated: a failing step is logged and
// recorded on the document as finalizeState=error (permitting a later
// retry) without undoing steps that already succeeded.
func (s *Service) finalize(ctx context.Context, g *models.Game) {
	failed := false
	step := func(name string, fn func() error) {
		if err := fn(); err != nil {
			failed = true
			s.log.WithError(err).WithFields(logrus.Fields{
				"game": g.ID, "step": name,
			}).Error("finalize step failed")
		}
	}

	step("cancel_deadlines", func() error { return s.cancelDeadlines(ctx, g.ID) })
	step("presence", func() error { return s.setPostGamePresence(ctx, g) })
	step("rating", func() error { return s.applyRating(ctx, g) })
	step("analyzer", func() error {
		if s.analyzer == nil {
			return nil
		}
		return s.analyzer.Enqueue(ctx, g.ID)
	})
	step("notify", func() error {
		if s.notifier == nil {
			return nil
		}
		return s.notifier.Publish(ctx, g.ID, FinishedEvent{
			GameID: g.ID,
			Winner: g.Winner,
			Loser:  g.Loser,
			Draw:   g.Winner == nil,
			Reason: g.TerminationReason,
		})
	})

	state := models.FinalizeDone
	if failed {
		state = models.FinalizeError
	}
	if err := s.store.SetFinalizeState(ctx, g.ID, state); err != nil {
		s.log.WithError(err).WithField("game", g.ID).Error("failed recording finalize state")
	}
}

// cancelDeadlines drops any deadline still scheduled for the game:
// its timeout entry and both sides' disconnect entries.
func (s *Service) cancelDeadlines(ctx context.Context, gameID uuid.UUID) error {
	if err := s.timeouts.Cancel(ctx, gameID.String()); err != nil {
		return err
	}
	for _, side := range []engine.Side{engine.Sente, engine.Gote} {
		if err := s.disconnects.Cancel(ctx, disconnectKey(gameID, side)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) setPostGamePresence(ctx context.Context, g *models.Game) error {
	if s.presence == nil {
		return nil
	}
	for _, p := range g.Players {
		if err := s.presence.SetState(ctx, p.UserID, "post_game"); err != nil {
			return err
		}
	}
	return nil
}

// applyRating invokes the rating updater behind an idempotency claim
// keyed by game id, so a process crash mid-update can be retried
// safely once the claim expires.
func (s *Service) applyRating(ctx context.Context, g *models.Game) error {
	if s.rating == nil {
		return nil
	}
	if s.claims != nil {
		acquired, err := s.claims.AcquireClaim(ctx, "rating:"+g.ID.String(), ratingClaimTTL)
		if err != nil {
			return err
		}
		if !acquired {
			// Another finalize attempt owns (or owned) the update.
			return nil
		}
	}
	return s.rating.Apply(ctx, g.ID, Result{
		Winner: g.Winner,
		Loser:  g.Loser,
		Draw:   g.Winner == nil,
		Reason: g.TerminationReason,
	})
}
