// internal/game/connection.go
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/retroaegx/shogicenter/engine"
	"github.com/retroaegx/shogicenter/internal/models"
	"github.com/retroaegx/shogicenter/internal/store"
)

// disconnectKey builds the per-(game, side) scheduler key. Both sides
// can hold independent grace windows at the same time.
func disconnectKey(gameID uuid.UUID, side engine.Side) string {
	return gameID.String() + ":" + side.String()
}

// parseDisconnectKey is the inverse of disconnectKey.
func parseDisconnectKey(key string) (uuid.UUID, engine.Side, error) {
	idx := strings.LastIndexByte(key, ':')
	if idx < 0 {
		return uuid.Nil, 0, fmt.Errorf("game: malformed disconnect key %q", key)
	}
	gameID, err := uuid.Parse(key[:idx])
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("game: malformed disconnect key %q: %w", key, err)
	}
	switch key[idx+1:] {
	case engine.Sente.String():
		return gameID, engine.Sente, nil
	case engine.Gote.String():
		return gameID, engine.Gote, nil
	default:
		return uuid.Nil, 0, fmt.Errorf("game: malformed disconnect key %q", key)
	}
}

// HandleDisconnect records that a player's connection dropped. When
// the side to move goes away the game pauses: elapsed time is charged
// up to the disconnect instant and the timeout deadline is replaced by
// a disconnect-grace deadline for that side.
func (s *Service) HandleDisconnect(ctx context.Context, gameID, userID uuid.UUID) error {
	g, err := s.store.Get(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Status == models.StatusFinished {
		return nil
	}
	side, ok := g.SideOf(userID)
	if !ok {
		return ErrNotAPlayer
	}
	player := g.PlayerBySide(side)
	if !player.Connected {
		return nil
	}

	now := s.now()
	player.Connected = false
	player.DisconnectedAtMs = now

	pos, err := g.Position()
	if err != nil {
		return err
	}
	if g.Status == models.StatusActive && pos.Turn() == side {
		charged, _, overflow := g.Clock.Pause(now)
		g.Clock = charged
		if charged.IsTimeout(overflow) {
			// Already over time when the connection dropped.
			winner := side.Flip()
			if err := s.Finish(ctx, gameID, &winner, &side, models.ReasonTimeout); err != nil && !errors.Is(err, store.ErrAlreadyFinished) {
				return err
			}
			return nil
		}
		g.Status = models.StatusPaused
		if err := s.timeouts.Cancel(ctx, g.ID.String()); err != nil {
			s.log.WithError(err).WithField("game", g.ID).Warn("failed to cancel timeout deadline on pause")
		}
	}

	if err := s.store.SaveIfVersion(ctx, g, g.Version); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return ErrStale
		}
		return err
	}

	dueAt := now + player.GraceBudgetMs
	if _, err := s.disconnects.Schedule(ctx, disconnectKey(gameID, side), dueAt); err != nil {
		s.log.WithError(err).WithField("game", g.ID).Warn("failed to arm disconnect deadline")
	}
	s.logAction(g, userID, "player_disconnect", map[string]interface{}{"side": side.String()})
	return nil
}

// HandleReconnect marks a player as connected again, consumes the
// grace time spent away, and resumes the game once both players are
// confirmed connected.
func (s *Service) HandleReconnect(ctx context.Context, gameID, userID uuid.UUID) error {
	g, err := s.store.Get(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Status == models.StatusFinished {
		return nil
	}
	side, ok := g.SideOf(userID)
	if !ok {
		return ErrNotAPlayer
	}
	player := g.PlayerBySide(side)
	if player.Connected {
		return nil
	}

	now := s.now()
	consumed := now - player.DisconnectedAtMs
	if consumed < 0 {
		consumed = 0
	}
	player.GraceBudgetMs -= consumed
	if player.GraceBudgetMs < 0 {
		player.GraceBudgetMs = 0
	}
	player.Connected = true
	player.DisconnectedAtMs = 0

	if err := s.disconnects.Cancel(ctx, disconnectKey(gameID, side)); err != nil {
		s.log.WithError(err).WithField("game", g.ID).Warn("failed to cancel disconnect deadline")
	}

	bothConnected := g.Players[engine.Sente].Connected && g.Players[engine.Gote].Connected
	if g.Status == models.StatusPaused && bothConnected {
		// Fold the paused interval into the running side's buckets
		// exactly once, then restart the clock.
		charged, _, _ := g.Clock.ApplyElapsed(now)
		resumed, overflow := charged.Resume(now)
		g.Clock = resumed
		if resumed.IsTimeout(overflow) {
			loser := resumed.CurrentSide
			winner := loser.Flip()
			if err := s.Finish(ctx, gameID, &winner, &loser, models.ReasonTimeout); err != nil && !errors.Is(err, store.ErrAlreadyFinished) {
				return err
			}
			return nil
		}
		g.Status = models.StatusActive
		if _, err := s.timeouts.Schedule(ctx, g.ID.String(), resumed.NextDeadlineMs()); err != nil {
			s.log.WithError(err).WithField("game", g.ID).Warn("failed to re-arm timeout deadline on resume")
		}
	}

	if err := s.store.SaveIfVersion(ctx, g, g.Version); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return ErrStale
		}
		return err
	}
	s.logAction(g, userID, "player_reconnect", map[string]interface{}{"side": side.String()})
	return nil
}

// HandleTimeoutDeadline is the timeout worker's handler. The deadline
// may be stale (a move or pause raced the firing); in that case it is
// a no-op or re-arms itself.
func (s *Service) HandleTimeoutDeadline(ctx context.Context, key string) error {
	gameID, err := uuid.Parse(key)
	if err != nil {
		return fmt.Errorf("game: malformed timeout key %q: %w", key, err)
	}
	g, err := s.store.Get(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if g.Status != models.StatusActive {
		return nil
	}

	charged, _, overflow := g.Clock.ApplyElapsed(s.now())
	if !charged.IsTimeout(overflow) {
		// Fired early relative to the current clock; re-arm.
		if _, err := s.timeouts.Schedule(ctx, key, charged.NextDeadlineMs()); err != nil {
			return err
		}
		return nil
	}

	loser := charged.CurrentSide
	winner := loser.Flip()
	err = s.Finish(ctx, gameID, &winner, &loser, models.ReasonTimeout)
	if errors.Is(err, store.ErrAlreadyFinished) {
		return nil
	}
	return err
}

// HandleDisconnectDeadline is the disconnect worker's handler: when a
// player's grace window has fully elapsed and they are still away, the
// game is forfeited; otherwise the deadline re-seats itself for the
// remaining grace.
func (s *Service) HandleDisconnectDeadline(ctx context.Context, key string) error {
	gameID, side, err := parseDisconnectKey(key)
	if err != nil {
		return err
	}
	g, err := s.store.Get(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if g.Status == models.StatusFinished {
		return nil
	}
	player := g.PlayerBySide(side)
	if player.Connected {
		return nil
	}

	elapsed := s.now() - player.DisconnectedAtMs
	if elapsed < player.GraceBudgetMs {
		dueAt := player.DisconnectedAtMs + player.GraceBudgetMs
		if _, err := s.disconnects.Schedule(ctx, key, dueAt); err != nil {
			return err
		}
		return nil
	}

	winner := side.Flip()
	err = s.Finish(ctx, gameID, &winner, &side, models.ReasonDisconnect)
	if errors.Is(err, store.ErrAlreadyFinished) {
		return nil
	}
	return err
}
