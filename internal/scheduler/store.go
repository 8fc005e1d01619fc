// internal/scheduler/store.go
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeadlineStore is the shared ordered collection behind a scheduler
// instance. Implementations must make RemoveIfPresent an atomic claim:
// of any number of workers racing to remove the same member, exactly
// one observes true.
type DeadlineStore interface {
	// Add inserts member with its due time as the ordering score.
	Add(ctx context.Context, member string, dueAtMs int64) error
	// RemoveIfPresent removes member and reports whether this call did
	// the removal. This is the worker claim primitive.
	RemoveIfPresent(ctx context.Context, member string) (bool, error)
	// DueBefore lists all members with a due time at or before nowMs.
	DueBefore(ctx context.Context, nowMs int64) ([]string, error)

	// SetLatest records the current member for key, with a TTL so a
	// crashed scheduler cannot pin a stale pointer forever.
	SetLatest(ctx context.Context, key, member string, ttl time.Duration) error
	// GetLatest returns the recorded member for key, if any.
	GetLatest(ctx context.Context, key string) (string, bool, error)
	// ClearLatest drops the pointer for key.
	ClearLatest(ctx context.Context, key string) error

	// Wake nudges all workers to poll immediately.
	Wake(ctx context.Context) error
	// Subscribe returns a channel that receives after every Wake. The
	// returned stop function releases the subscription.
	Subscribe(ctx context.Context) (<-chan struct{}, func(), error)
}

// memberSep separates the key from the generation fields inside a
// member id. Keys must not contain it.
const memberSep = "|"

// newMember builds a unique member id for key due at dueAtMs. The
// uuid fragment makes two schedules of the same (key, dueAt) distinct,
// so a reschedule can never be claimed through its predecessor.
func newMember(key string, dueAtMs int64) string {
	return fmt.Sprintf("%s%s%d%s%s", key, memberSep, dueAtMs, memberSep, uuid.NewString())
}

// memberKey extracts the scheduler key a member was created for.
func memberKey(member string) string {
	if idx := strings.Index(member, memberSep); idx >= 0 {
		return member[:idx]
	}
	return member
}
