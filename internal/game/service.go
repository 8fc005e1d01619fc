// internal/game/service.go
package game

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/retroaegx/shogicenter/engine"
	"github.com/retroaegx/shogicenter/internal/cache"
	"github.com/retroaegx/shogicenter/internal/clock"
	"github.com/retroaegx/shogicenter/internal/models"
	"github.com/retroaegx/shogicenter/internal/store"
)

var (
	// ErrNotAPlayer is returned when the acting user has no seat in
	// the game.
	ErrNotAPlayer = errors.New("game: user is not a player in this game")
	// ErrNotYourTurn rejects a move by the side not on the clock.
	ErrNotYourTurn = errors.New("game: not your turn")
	// ErrNotActive rejects moves against paused or finished games.
	ErrNotActive = errors.New("game: game is not active")
	// ErrStale signals a lost optimistic-concurrency race; the caller
	// should reload and retry the read, not the write.
	ErrStale = errors.New("game: stale game state, reload and retry")
)

// Result is the terminal outcome handed to the rating updater.
type Result struct {
	Winner *engine.Side             `json:"winner,omitempty"`
	Loser  *engine.Side             `json:"loser,omitempty"`
	Draw   bool                     `json:"draw"`
	Reason models.TerminationReason `json:"reason"`
}

// FinishedEvent is published to subscribers when a game ends.
type FinishedEvent struct {
	GameID uuid.UUID                `json:"gameId"`
	Winner *engine.Side             `json:"winner,omitempty"`
	Loser  *engine.Side             `json:"loser,omitempty"`
	Draw   bool                     `json:"draw"`
	Reason models.TerminationReason `json:"reason"`
}

// RatingUpdater applies a finished game to player ratings. The
// implementation is external and must be idempotent per game id.
type RatingUpdater interface {
	Apply(ctx context.Context, gameID uuid.UUID, result Result) error
}

// PositionAnalyzer enqueues a finished game for engine analysis.
type PositionAnalyzer interface {
	Enqueue(ctx context.Context, gameID uuid.UUID) error
}

// PresenceStore records a user's presence state.
type PresenceStore interface {
	SetState(ctx context.Context, userID uuid.UUID, state string) error
}

// Notifier publishes the finished-game event.
type Notifier interface {
	Publish(ctx context.Context, gameID uuid.UUID, event FinishedEvent) error
}

// ActionLog receives the per-game action history records.
type ActionLog interface {
	PublishGameAction(ctx context.Context, rec cache.GameActionRecord) error
}

// Claimer is the idempotency guard around one-shot finalize steps.
type Claimer interface {
	AcquireClaim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Deadlines is the scheduler surface the service depends on.
type Deadlines interface {
	Schedule(ctx context.Context, key string, dueAtMs int64) (string, error)
	Cancel(ctx context.Context, key string) error
}

// Service owns the game state machine: it validates and commits moves,
// tracks connections, and is the only caller of the finish transition.
// It holds no per-game locks; each mutation is a conditional store
// update, so any number of Service instances can run concurrently.
type Service struct {
	store       store.GameStore
	timeouts    Deadlines
	disconnects Deadlines

	rating   RatingUpdater
	analyzer PositionAnalyzer
	presence PresenceStore
	notifier Notifier
	actions  ActionLog

	claims Claimer

	// DefaultGraceBudgetMs is each player's total disconnect allowance
	// per game.
	DefaultGraceBudgetMs int64

	now func() int64
	log *logrus.Entry
}

// Config wires a Service.
type Config struct {
	Store       store.GameStore
	Timeouts    Deadlines
	Disconnects Deadlines
	Rating      RatingUpdater
	Analyzer    PositionAnalyzer
	Presence    PresenceStore
	Notifier    Notifier
	Actions     ActionLog
	Claims      Claimer

	GraceBudgetMs int64
	Now           func() int64
}

// NewService builds a Service. Now defaults to wall-clock milliseconds.
func NewService(cfg Config) *Service {
	now := cfg.Now
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}
	grace := cfg.GraceBudgetMs
	if grace <= 0 {
		grace = 60_000
	}
	return &Service{
		store:                cfg.Store,
		timeouts:             cfg.Timeouts,
		disconnects:          cfg.Disconnects,
		rating:               cfg.Rating,
		analyzer:             cfg.Analyzer,
		presence:             cfg.Presence,
		notifier:             cfg.Notifier,
		actions:              cfg.Actions,
		claims:               cfg.Claims,
		DefaultGraceBudgetMs: grace,
		now:                  now,
		log:                  logrus.WithField("component", "game"),
	}
}

// CreateGame pairs two matched players into a new active game and arms
// its first timeout deadline.
func (s *Service) CreateGame(ctx context.Context, sente, gote uuid.UUID, clockCfg clock.Config) (*models.Game, error) {
	now := s.now()
	g := &models.Game{
		ID:              uuid.New(),
		Status:          models.StatusActive,
		StartPosition:   engine.StartSFEN,
		CurrentPosition: engine.StartSFEN,
		Clock:           clock.New(clockCfg, now),
		Repetition:      engine.NewRepetitionTracker(),
		Players: [2]models.Player{
			{UserID: sente, Side: engine.Sente, Connected: true, GraceBudgetMs: s.DefaultGraceBudgetMs},
			{UserID: gote, Side: engine.Gote, Connected: true, GraceBudgetMs: s.DefaultGraceBudgetMs},
		},
		FinalizeState: models.FinalizeNone,
		CreatedAtMs:   now,
	}
	if err := s.store.Create(ctx, g); err != nil {
		return nil, err
	}
	if _, err := s.timeouts.Schedule(ctx, g.ID.String(), g.Clock.NextDeadlineMs()); err != nil {
		// The game exists and will be picked up by the timeout handler
		// once scheduling recovers; log rather than fail the create.
		s.log.WithError(err).WithField("game", g.ID).Warn("failed to arm initial timeout deadline")
	}
	s.logAction(g, uuid.Nil, "game_create", nil)
	return g, nil
}

// logAction publishes a best-effort record to the action log.
func (s *Service) logAction(g *models.Game, actor uuid.UUID, actionType string, payload map[string]interface{}) {
	if s.actions == nil {
		return
	}
	rec := cache.GameActionRecord{
		GameID:        g.ID,
		ActionIndex:   len(g.MoveHistory),
		ActorUserID:   actor,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     s.now(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.actions.PublishGameAction(ctx, rec); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"game": g.ID, "action": actionType,
		}).Error("failed publishing action record")
	}
}
