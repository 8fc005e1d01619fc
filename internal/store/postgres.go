// internal/store/postgres.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/retroaegx/shogicenter/internal/models"
)

// Postgres stores each game as a jsonb document keyed by id, with the
// status and version lifted into columns so the conditional updates
// stay single statements.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id      UUID PRIMARY KEY,
	status  TEXT   NOT NULL,
	version BIGINT NOT NULL,
	doc     JSONB  NOT NULL
);
CREATE INDEX IF NOT EXISTS games_status_idx ON games (status);
`

// EnsureSchema creates the games table if it does not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("store: ensure schema: %w", err)
	}
	return nil
}

func marshalDoc(g *models.Game) ([]byte, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("store: marshal game %s: %w", g.ID, err)
	}
	return raw, nil
}

func scanDoc(raw []byte, version int64) (*models.Game, error) {
	var g models.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("store: unmarshal game: %w", err)
	}
	// The column is authoritative for version.
	g.Version = version
	return &g, nil
}

func (s *Postgres) Create(ctx context.Context, g *models.Game) error {
	raw, err := marshalDoc(g)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO games (id, status, version, doc) VALUES ($1, $2, $3, $4)`,
		g.ID, string(g.Status), g.Version, raw)
	if err != nil {
		return fmt.Errorf("store: create game %s: %w", g.ID, err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	var raw []byte
	var version int64
	err := s.pool.QueryRow(ctx,
		`SELECT doc, version FROM games WHERE id = $1`, id).Scan(&raw, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get game %s: %w", id, err)
	}
	return scanDoc(raw, version)
}

func (s *Postgres) SaveIfVersion(ctx context.Context, g *models.Game, expected int64) error {
	next := *g
	next.Version = expected + 1
	raw, err := marshalDoc(&next)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE games SET status = $2, version = $3, doc = $4
		 WHERE id = $1 AND version = $5`,
		g.ID, string(g.Status), next.Version, raw, expected)
	if err != nil {
		return fmt.Errorf("store: save game %s: %w", g.ID, err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing row from a stale version.
		var exists bool
		if probeErr := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM games WHERE id = $1)`, g.ID).Scan(&exists); probeErr == nil && !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	g.Version = next.Version
	return nil
}

func (s *Postgres) FinishIfActive(ctx context.Context, id uuid.UUID, p FinishParams) (*models.Game, error) {
	patch := map[string]interface{}{
		"status":        models.StatusFinished,
		"finalizeState": models.FinalizeApplying,
		"finishedAtMs":  p.FinishedAtMs,
	}
	if p.Winner != nil {
		patch["winner"] = *p.Winner
	}
	if p.Loser != nil {
		patch["loser"] = *p.Loser
	}
	if p.Reason != "" {
		patch["terminationReason"] = p.Reason
	}
	rawPatch, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("store: finish game %s: %w", id, err)
	}

	var raw []byte
	var version int64
	err = s.pool.QueryRow(ctx,
		`UPDATE games
		 SET status = 'finished', version = version + 1, doc = doc || $2::jsonb
		 WHERE id = $1 AND status <> 'finished'
		 RETURNING doc, version`,
		id, rawPatch).Scan(&raw, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either missing or already finished; probe to tell them apart.
		var exists bool
		if probeErr := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM games WHERE id = $1)`, id).Scan(&exists); probeErr == nil && !exists {
			return nil, ErrNotFound
		}
		return nil, ErrAlreadyFinished
	}
	if err != nil {
		return nil, fmt.Errorf("store: finish game %s: %w", id, err)
	}
	return scanDoc(raw, version)
}

func (s *Postgres) SetFinalizeState(ctx context.Context, id uuid.UUID, state models.FinalizeState) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE games SET doc = jsonb_set(doc, '{finalizeState}', to_jsonb($2::text))
		 WHERE id = $1`,
		id, string(state))
	if err != nil {
		return fmt.Errorf("store: set finalize state for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
