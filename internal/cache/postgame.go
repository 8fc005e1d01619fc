// internal/cache/postgame.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	presenceKey      = "presence"
	analyzerQueueKey = "analysis:queue"
	finishedChannel  = "game:finished"
	claimKeyPrefix   = "claim:"
)

// SetPresence records a user's presence state (e.g. "in_game",
// "post_game") in the shared presence hash.
func (c *Client) SetPresence(ctx context.Context, userID uuid.UUID, state string) error {
	if err := c.rdb.HSet(ctx, presenceKey, userID.String(), state).Err(); err != nil {
		return fmt.Errorf("cache: set presence for %s: %w", userID, err)
	}
	return nil
}

// EnqueueAnalysis hands a finished game to the analyzer worker pool.
func (c *Client) EnqueueAnalysis(ctx context.Context, gameID uuid.UUID) error {
	if err := c.rdb.LPush(ctx, analyzerQueueKey, gameID.String()).Err(); err != nil {
		return fmt.Errorf("cache: enqueue analysis for %s: %w", gameID, err)
	}
	return nil
}

// PublishFinished notifies subscribers that a game reached a terminal
// state.
func (c *Client) PublishFinished(ctx context.Context, gameID uuid.UUID, event interface{}) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("cache: marshal finished event for %s: %w", gameID, err)
	}
	if err := c.rdb.Publish(ctx, finishedChannel, raw).Err(); err != nil {
		return fmt.Errorf("cache: publish finished for %s: %w", gameID, err)
	}
	return nil
}

// AcquireClaim takes the idempotency claim for key via SET NX. The TTL
// bounds how long a crashed holder blocks a retry. Returns false when
// another holder already owns the claim.
func (c *Client) AcquireClaim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, claimKeyPrefix+key, time.Now().UnixMilli(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cache: acquire claim %s: %w", key, err)
	}
	return ok, nil
}

// ReleaseClaim drops a claim early; claims also expire on their own.
func (c *Client) ReleaseClaim(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, claimKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("cache: release claim %s: %w", key, err)
	}
	return nil
}
