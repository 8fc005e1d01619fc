// internal/scheduler/redis.go
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements DeadlineStore on a Redis sorted set scored by
// due time, with plain keys for the latest pointers and a pub/sub
// channel for worker wake-ups. The namespace isolates the timeout and
// disconnect instances from each other.
type RedisStore struct {
	rdb       *redis.Client
	setKey    string
	latestKey string
	wakeKey   string
}

// NewRedisStore builds a store under the given namespace, e.g.
// "deadlines:timeout".
func NewRedisStore(rdb *redis.Client, namespace string) *RedisStore {
	return &RedisStore{
		rdb:       rdb,
		setKey:    namespace,
		latestKey: namespace + ":latest:",
		wakeKey:   namespace + ":wake",
	}
}

func (s *RedisStore) Add(ctx context.Context, member string, dueAtMs int64) error {
	err := s.rdb.ZAdd(ctx, s.setKey, redis.Z{Score: float64(dueAtMs), Member: member}).Err()
	if err != nil {
		return fmt.Errorf("scheduler: zadd %s: %w", s.setKey, err)
	}
	return nil
}

func (s *RedisStore) RemoveIfPresent(ctx context.Context, member string) (bool, error) {
	removed, err := s.rdb.ZRem(ctx, s.setKey, member).Result()
	if err != nil {
		return false, fmt.Errorf("scheduler: zrem %s: %w", s.setKey, err)
	}
	return removed == 1, nil
}

func (s *RedisStore) DueBefore(ctx context.Context, nowMs int64) ([]string, error) {
	members, err := s.rdb.ZRangeByScore(ctx, s.setKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(nowMs, 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("scheduler: zrangebyscore %s: %w", s.setKey, err)
	}
	return members, nil
}

func (s *RedisStore) SetLatest(ctx context.Context, key, member string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, s.latestKey+key, member, ttl).Err(); err != nil {
		return fmt.Errorf("scheduler: set latest %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) GetLatest(ctx context.Context, key string) (string, bool, error) {
	member, err := s.rdb.Get(ctx, s.latestKey+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("scheduler: get latest %s: %w", key, err)
	}
	return member, true, nil
}

func (s *RedisStore) ClearLatest(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.latestKey+key).Err(); err != nil {
		return fmt.Errorf("scheduler: clear latest %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Wake(ctx context.Context) error {
	if err := s.rdb.Publish(ctx, s.wakeKey, "wake").Err(); err != nil {
		return fmt.Errorf("scheduler: publish wake: %w", err)
	}
	return nil
}

func (s *RedisStore) Subscribe(ctx context.Context) (<-chan struct{}, func(), error) {
	sub := s.rdb.Subscribe(ctx, s.wakeKey)
	// Force the subscription to be established before workers rely on it.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("scheduler: subscribe wake: %w", err)
	}
	out := make(chan struct{}, 1)
	go func() {
		for range sub.Channel() {
			select {
			case out <- struct{}{}:
			default: // a pending wake already covers this one
			}
		}
		close(out)
	}()
	stop := func() { _ = sub.Close() }
	return out, stop, nil
}
