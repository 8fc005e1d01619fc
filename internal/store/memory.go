// internal/store/memory.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/retroaegx/shogicenter/internal/models"
)

// Memory is an in-process GameStore used by tests and single-node
// development. Its conditional updates have the same semantics as the
// Postgres implementation.
type Memory struct {
	mu    sync.Mutex
	games map[uuid.UUID]*models.Game
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{games: make(map[uuid.UUID]*models.Game)}
}

// cloneGame deep-copies a document so callers never share state with
// the store.
func cloneGame(g *models.Game) (*models.Game, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("store: clone: %w", err)
	}
	var out models.Game
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("store: clone: %w", err)
	}
	return &out, nil
}

func (m *Memory) Create(_ context.Context, g *models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.games[g.ID]; exists {
		return fmt.Errorf("store: game %s already exists", g.ID)
	}
	cp, err := cloneGame(g)
	if err != nil {
		return err
	}
	m.games[g.ID] = cp
	return nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneGame(g)
}

func (m *Memory) SaveIfVersion(_ context.Context, g *models.Game, expected int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.games[g.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != expected {
		return ErrVersionConflict
	}
	cp, err := cloneGame(g)
	if err != nil {
		return err
	}
	cp.Version = expected + 1
	m.games[g.ID] = cp
	g.Version = cp.Version
	return nil
}

func (m *Memory) FinishIfActive(_ context.Context, id uuid.UUID, p FinishParams) (*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	if stored.Status == models.StatusFinished {
		return nil, ErrAlreadyFinished
	}
	stored.Status = models.StatusFinished
	stored.Winner = p.Winner
	stored.Loser = p.Loser
	stored.TerminationReason = p.Reason
	stored.FinalizeState = models.FinalizeApplying
	stored.FinishedAtMs = p.FinishedAtMs
	stored.Version++
	return cloneGame(stored)
}

func (m *Memory) SetFinalizeState(_ context.Context, id uuid.UUID, state models.FinalizeState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.games[id]
	if !ok {
		return ErrNotFound
	}
	stored.FinalizeState = state
	return nil
}
