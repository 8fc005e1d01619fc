// internal/cache/actions.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// actionLogKey is the list consumed by the external historian.
const actionLogKey = "game:actions"

// GameActionRecord is one entry of the per-game action log: accepted
// moves, resignations, connection changes and finalize events, ordered
// by ActionIndex within a game.
type GameActionRecord struct {
	GameID        uuid.UUID              `json:"gameId"`
	ActionIndex   int                    `json:"actionIndex"`
	ActorUserID   uuid.UUID              `json:"actorUserId"` // Nil for system events.
	ActionType    string                 `json:"actionType"`
	ActionPayload map[string]interface{} `json:"actionPayload,omitempty"`
	Timestamp     int64                  `json:"timestamp"`
}

// PublishGameAction pushes a record onto the historian queue.
func (c *Client) PublishGameAction(ctx context.Context, rec GameActionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cache: marshal action record: %w", err)
	}
	if err := c.rdb.LPush(ctx, actionLogKey, raw).Err(); err != nil {
		return fmt.Errorf("cache: publish action: %w", err)
	}
	return nil
}
