// internal/models/game.go
package models

import (
	"github.com/google/uuid"

	"github.com/retroaegx/shogicenter/engine"
	"github.com/retroaegx/shogicenter/internal/clock"
)

// Status is the game lifecycle state. A move is only accepted while
// active; paused covers the window where the side to move has no live
// connection; finished is terminal.
type Status string

const (
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusFinished Status = "finished"
)

// FinalizeState guards the one-shot finalize pipeline so duplicate or
// crashed finalize attempts stay idempotent.
type FinalizeState string

const (
	FinalizeNone     FinalizeState = "none"
	FinalizeApplying FinalizeState = "applying"
	FinalizeDone     FinalizeState = "done"
	FinalizeError    FinalizeState = "error"
)

// TerminationReason records why a game finished.
type TerminationReason string

const (
	ReasonCheckmate      TerminationReason = "checkmate"
	ReasonResign         TerminationReason = "resign"
	ReasonTimeout        TerminationReason = "timeout"
	ReasonDisconnect     TerminationReason = "disconnect"
	ReasonRepetitionDraw TerminationReason = "sennichite"
	ReasonPerpetualCheck TerminationReason = "perpetual_check"
	ReasonEnteringKing   TerminationReason = "entering_king"
	ReasonMaxMoves       TerminationReason = "max_moves"
)

// Player is one seat of a game.
type Player struct {
	UserID uuid.UUID   `json:"userId"`
	Side   engine.Side `json:"side"`
	// Connected mirrors the presence layer's view; persisted so the
	// disconnect worker can evaluate grace expiry after a crash.
	Connected bool `json:"connected"`
	// GraceBudgetMs is the remaining disconnect allowance, consumed
	// across reconnects within the game.
	GraceBudgetMs int64 `json:"graceBudgetMs"`
	// DisconnectedAtMs is set while Connected is false.
	DisconnectedAtMs int64 `json:"disconnectedAtMs,omitempty"`
}

// Game is the persisted game document. It is the only shared mutable
// resource for a game: every mutation is a short conditional update
// keyed on Version (or on Status for the finish transition), never a
// held lock.
type Game struct {
	ID     uuid.UUID `json:"id"`
	Status Status    `json:"status"`

	StartPosition   string              `json:"startPosition"`
	CurrentPosition string              `json:"currentPosition"`
	MoveHistory     []engine.MoveRecord `json:"moveHistory"`

	Clock      clock.State               `json:"clockState"`
	Repetition *engine.RepetitionTracker `json:"repetitionTracker"`

	Players [2]Player `json:"players"` // indexed by engine.Side

	// Terminal fields, written exactly once by the finish transition.
	Winner            *engine.Side      `json:"winner,omitempty"`
	Loser             *engine.Side      `json:"loser,omitempty"`
	TerminationReason TerminationReason `json:"terminationReason,omitempty"`
	FinalizeState     FinalizeState     `json:"finalizeState"`

	// Version implements optimistic concurrency for move commits: a
	// save conditioned on the version read no-ops if another writer got
	// there first.
	Version int64 `json:"version"`

	CreatedAtMs  int64 `json:"createdAtMs"`
	FinishedAtMs int64 `json:"finishedAtMs,omitempty"`
}

// PlayerBySide returns a pointer into the Players array for side.
func (g *Game) PlayerBySide(side engine.Side) *Player {
	return &g.Players[side]
}

// SideOf resolves which side a user plays, if any.
func (g *Game) SideOf(userID uuid.UUID) (engine.Side, bool) {
	for _, p := range g.Players {
		if p.UserID == userID {
			return p.Side, true
		}
	}
	return 0, false
}

// Position decodes the current position snapshot.
func (g *Game) Position() (*engine.Position, error) {
	return engine.ParsePosition(g.CurrentPosition)
}
