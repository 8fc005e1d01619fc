// internal/store/memory_test.go
package store

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retroaegx/shogicenter/engine"
	"github.com/retroaegx/shogicenter/internal/models"
)

func newTestGame(t *testing.T) *models.Game {
	t.Helper()
	return &models.Game{
		ID:              uuid.New(),
		Status:          models.StatusActive,
		StartPosition:   engine.StartSFEN,
		CurrentPosition: engine.StartSFEN,
		Repetition:      engine.NewRepetitionTracker(),
		FinalizeState:   models.FinalizeNone,
	}
}

func TestMemoryCreateGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	g := newTestGame(t)

	require.NoError(t, s.Create(ctx, g))
	assert.Error(t, s.Create(ctx, g), "duplicate id must fail")

	got, err := s.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.ID)
	assert.Equal(t, models.StatusActive, got.Status)

	_, err = s.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemorySaveIfVersion(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	g := newTestGame(t)
	require.NoError(t, s.Create(ctx, g))

	g.CurrentPosition = "changed"
	require.NoError(t, s.SaveIfVersion(ctx, g, 0))
	assert.EqualValues(t, 1, g.Version, "version bumped on the caller's copy")

	// A stale writer loses.
	stale := *g
	stale.CurrentPosition = "stale write"
	assert.ErrorIs(t, s.SaveIfVersion(ctx, &stale, 0), ErrVersionConflict)

	got, err := s.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed", got.CurrentPosition)
	assert.EqualValues(t, 1, got.Version)
}

func TestMemoryGetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	g := newTestGame(t)
	require.NoError(t, s.Create(ctx, g))

	first, err := s.Get(ctx, g.ID)
	require.NoError(t, err)
	first.CurrentPosition = "mutated by caller"

	second, err := s.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.StartSFEN, second.CurrentPosition)
}

func TestFinishIfActiveExactlyOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	g := newTestGame(t)
	require.NoError(t, s.Create(ctx, g))

	winner := engine.Sente
	loser := engine.Gote
	params := FinishParams{Winner: &winner, Loser: &loser, Reason: models.ReasonCheckmate, FinishedAtMs: 42}

	const callers = 8
	var wg sync.WaitGroup
	wins := make(chan *models.Game, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if finished, err := s.FinishIfActive(ctx, g.ID, params); err == nil {
				wins <- finished
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners int
	for finished := range wins {
		winners++
		assert.Equal(t, models.StatusFinished, finished.Status)
		assert.Equal(t, models.ReasonCheckmate, finished.TerminationReason)
		assert.Equal(t, models.FinalizeApplying, finished.FinalizeState)
	}
	assert.Equal(t, 1, winners, "exactly one caller wins the finish race")

	_, err := s.FinishIfActive(ctx, g.ID, params)
	assert.ErrorIs(t, err, ErrAlreadyFinished)
}

func TestSetFinalizeState(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	g := newTestGame(t)
	require.NoError(t, s.Create(ctx, g))

	require.NoError(t, s.SetFinalizeState(ctx, g.ID, models.FinalizeDone))
	got, err := s.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FinalizeDone, got.FinalizeState)

	assert.ErrorIs(t, s.SetFinalizeState(ctx, uuid.New(), models.FinalizeDone), ErrNotFound)
}
