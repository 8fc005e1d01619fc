// internal/game/moves.go
package game

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/retroaegx/shogicenter/engine"
	"github.com/retroaegx/shogicenter/internal/models"
	"github.com/retroaegx/shogicenter/internal/store"
)

// HandleMove validates and commits one move. The returned MoveRecord
// is the committed record; the returned Game is the state after the
// move (which may already be finished if the move ended the game).
//
// Error classes: malformed input (engine.ErrMalformedMove), rule
// violations (*engine.IllegalMoveError), turn/state errors
// (ErrNotYourTurn, ErrNotActive, ErrNotAPlayer), and ErrStale for a
// lost optimistic-concurrency race.
func (s *Service) HandleMove(ctx context.Context, gameID, userID uuid.UUID, moveText string) (*models.Game, *engine.MoveRecord, error) {
	g, err := s.store.Get(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	if g.Status != models.StatusActive {
		return nil, nil, ErrNotActive
	}
	side, ok := g.SideOf(userID)
	if !ok {
		return nil, nil, ErrNotAPlayer
	}

	pos, err := g.Position()
	if err != nil {
		return nil, nil, err
	}
	if pos.Turn() != side {
		return nil, nil, ErrNotYourTurn
	}

	move, err := engine.ParseUSIMove(moveText)
	if err != nil {
		return nil, nil, err
	}

	// Charge the thinking time before the move is judged. The clock
	// itself can end the game here.
	now := s.now()
	charged, spent, overflow := g.Clock.ApplyElapsed(now)
	if charged.IsTimeout(overflow) {
		winner := side.Flip()
		loser := side
		if err := s.Finish(ctx, gameID, &winner, &loser, models.ReasonTimeout); err != nil && !errors.Is(err, store.ErrAlreadyFinished) {
			return nil, nil, err
		}
		return nil, nil, ErrNotActive
	}

	next, rec, err := engine.Apply(pos, side, move)
	if err != nil {
		return nil, nil, err
	}
	rec.TimestampMs = now
	rec.SpentMs = spent

	g.Clock = charged.OnMove(now)
	g.CurrentPosition = next.SFEN()
	g.MoveHistory = append(g.MoveHistory, rec)

	if g.Repetition == nil {
		g.Repetition = engine.NewRepetitionTracker()
	}
	repOutcome, offender := g.Repetition.Record(next.Key(), side, rec.GivesCheck)

	expected := g.Version
	if err := s.store.SaveIfVersion(ctx, g, expected); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, nil, ErrStale
		}
		return nil, nil, err
	}
	s.logAction(g, userID, "move", map[string]interface{}{
		"notation": rec.Notation, "ply": rec.Ply,
	})

	// Terminal conditions produced by this move, checked in rule
	// priority order. Finish is its own atomic transition; the move
	// itself is already committed above.
	switch {
	case repOutcome == engine.RepetitionPerpetual:
		winner := offender.Flip()
		return s.finishAfterMove(ctx, g, &winner, &offender, models.ReasonPerpetualCheck, rec)
	case repOutcome == engine.RepetitionDraw:
		return s.finishAfterMove(ctx, g, nil, nil, models.ReasonRepetitionDraw, rec)
	case engine.IsCheckmate(next, next.Turn()):
		winner := side
		loser := side.Flip()
		return s.finishAfterMove(ctx, g, &winner, &loser, models.ReasonCheckmate, rec)
	case len(g.MoveHistory) >= engine.MaxGamePly:
		return s.finishAfterMove(ctx, g, nil, nil, models.ReasonMaxMoves, rec)
	}

	// Game continues: re-arm the timeout deadline for the new side to
	// move.
	if _, err := s.timeouts.Schedule(ctx, g.ID.String(), g.Clock.NextDeadlineMs()); err != nil {
		s.log.WithError(err).WithField("game", g.ID).Warn("failed to reschedule timeout deadline")
	}
	return g, &rec, nil
}

// finishAfterMove runs the finish transition for a terminal condition
// detected by a just-committed move and returns the finished document.
func (s *Service) finishAfterMove(ctx context.Context, g *models.Game, winner, loser *engine.Side, reason models.TerminationReason, rec engine.MoveRecord) (*models.Game, *engine.MoveRecord, error) {
	if err := s.Finish(ctx, g.ID, winner, loser, reason); err != nil && !errors.Is(err, store.ErrAlreadyFinished) {
		return nil, nil, err
	}
	finished, err := s.store.Get(ctx, g.ID)
	if err != nil {
		return nil, nil, err
	}
	return finished, &rec, nil
}

// HandleResign finishes the game in the opponent's favor.
func (s *Service) HandleResign(ctx context.Context, gameID, userID uuid.UUID) error {
	g, err := s.store.Get(ctx, gameID)
	if err != nil {
		return err
	}
	side, ok := g.SideOf(userID)
	if !ok {
		return ErrNotAPlayer
	}
	if g.Status == models.StatusFinished {
		return ErrNotActive
	}
	winner := side.Flip()
	loser := side
	s.logAction(g, userID, "resign", nil)
	err = s.Finish(ctx, gameID, &winner, &loser, models.ReasonResign)
	if errors.Is(err, store.ErrAlreadyFinished) {
		return ErrNotActive
	}
	return err
}

// HandleDeclare evaluates an entering-king declaration by userID. When
// the 27-point rule decides the game it is finished accordingly; when
// it does not, the game simply continues and the declaration has no
// effect.
func (s *Service) HandleDeclare(ctx context.Context, gameID, userID uuid.UUID) (engine.EnteringKingResult, error) {
	g, err := s.store.Get(ctx, gameID)
	if err != nil {
		return engine.EnteringKingResult{}, err
	}
	if g.Status != models.StatusActive {
		return engine.EnteringKingResult{}, ErrNotActive
	}
	if _, ok := g.SideOf(userID); !ok {
		return engine.EnteringKingResult{}, ErrNotAPlayer
	}
	pos, err := g.Position()
	if err != nil {
		return engine.EnteringKingResult{}, err
	}

	result := engine.EvaluateEnteringKing(pos)
	s.logAction(g, userID, "declare", map[string]interface{}{
		"decided": result.Decided, "draw": result.Draw,
	})
	if !result.Decided {
		return result, nil
	}

	var finishErr error
	if result.Draw {
		finishErr = s.Finish(ctx, gameID, nil, nil, models.ReasonEnteringKing)
	} else {
		winner, loser := result.Winner, result.Loser
		finishErr = s.Finish(ctx, gameID, &winner, &loser, models.ReasonEnteringKing)
	}
	if finishErr != nil && !errors.Is(finishErr, store.ErrAlreadyFinished) {
		return result, finishErr
	}
	return result, nil
}
