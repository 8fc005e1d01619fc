// internal/store/store.go
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/retroaegx/shogicenter/engine"
	"github.com/retroaegx/shogicenter/internal/models"
)

var (
	// ErrNotFound is returned when no game exists for the id.
	ErrNotFound = errors.New("store: game not found")
	// ErrVersionConflict signals a lost optimistic-concurrency race:
	// the caller should reload and re-evaluate, not retry blindly.
	ErrVersionConflict = errors.New("store: version conflict")
	// ErrAlreadyFinished signals a lost finish race; the loser treats
	// the finish as a no-op.
	ErrAlreadyFinished = errors.New("store: game already finished")
)

// FinishParams carries the terminal fields written by the one-shot
// finish transition.
type FinishParams struct {
	Winner       *engine.Side
	Loser        *engine.Side
	Reason       models.TerminationReason
	FinishedAtMs int64
}

// GameStore persists game documents. Mutations are short conditional
// updates: SaveIfVersion implements per-game move serialization via
// optimistic concurrency, and FinishIfActive is the single atomic path
// to the finished status.
type GameStore interface {
	Create(ctx context.Context, g *models.Game) error
	Get(ctx context.Context, id uuid.UUID) (*models.Game, error)

	// SaveIfVersion writes g iff the stored version still equals
	// expected; on success the stored (and returned) version is
	// expected+1. A mismatch returns ErrVersionConflict and writes
	// nothing.
	SaveIfVersion(ctx context.Context, g *models.Game, expected int64) error

	// FinishIfActive atomically sets status=finished with the terminal
	// fields iff the game is not already finished, moving finalizeState
	// to applying. Exactly one concurrent caller succeeds; the rest get
	// ErrAlreadyFinished. Returns the finished document.
	FinishIfActive(ctx context.Context, id uuid.UUID, p FinishParams) (*models.Game, error)

	// SetFinalizeState records the finalize pipeline outcome without
	// touching anything else.
	SetFinalizeState(ctx context.Context, id uuid.UUID, state models.FinalizeState) error
}
