// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// latestPointerSlack pads the latest pointer's TTL past the deadline
// itself so the pointer outlives a normally-firing member but still
// expires after a crash.
const latestPointerSlack = 5 * time.Minute

// Scheduler is one deadline namespace (timeout or disconnect) over a
// shared DeadlineStore. Rescheduling a key first removes the member
// recorded under the key's latest pointer, so a stale deadline can
// never fire after a reschedule.
type Scheduler struct {
	store DeadlineStore
	log   *logrus.Entry
}

// New builds a scheduler over store; name labels log output.
func New(store DeadlineStore, name string) *Scheduler {
	return &Scheduler{
		store: store,
		log:   logrus.WithField("scheduler", name),
	}
}

// Schedule arms (or re-arms) key to fire at dueAtMs and returns the
// member id. Any previously scheduled deadline for key is invalidated
// first.
func (s *Scheduler) Schedule(ctx context.Context, key string, dueAtMs int64) (string, error) {
	if prev, ok, err := s.store.GetLatest(ctx, key); err != nil {
		return "", err
	} else if ok {
		if _, err := s.store.RemoveIfPresent(ctx, prev); err != nil {
			return "", err
		}
	}

	member := newMember(key, dueAtMs)
	if err := s.store.Add(ctx, member, dueAtMs); err != nil {
		return "", err
	}

	ttl := time.Until(time.UnixMilli(dueAtMs)) + latestPointerSlack
	if ttl < latestPointerSlack {
		ttl = latestPointerSlack
	}
	if err := s.store.SetLatest(ctx, key, member, ttl); err != nil {
		// The member is in the set; without the pointer a future
		// reschedule cannot invalidate it, so take it back out.
		if _, rmErr := s.store.RemoveIfPresent(ctx, member); rmErr != nil {
			s.log.WithError(rmErr).WithField("member", member).
				Warn("failed to roll back member after pointer write failure")
		}
		return "", err
	}

	if err := s.store.Wake(ctx); err != nil {
		// Non-fatal: workers will pick the member up on the next poll.
		s.log.WithError(err).WithField("key", key).Warn("wake publish failed")
	}
	return member, nil
}

// Cancel removes key's pending deadline, if any. Cancelling an unknown
// or already-fired key is a no-op.
func (s *Scheduler) Cancel(ctx context.Context, key string) error {
	member, ok, err := s.store.GetLatest(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if _, err := s.store.RemoveIfPresent(ctx, member); err != nil {
		return err
	}
	if err := s.store.ClearLatest(ctx, key); err != nil {
		return fmt.Errorf("scheduler: cancel %s: %w", key, err)
	}
	return nil
}
