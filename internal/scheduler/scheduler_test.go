// internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleAndSweep(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sched := New(store, "timeout")

	_, err := sched.Schedule(ctx, "game-1", 1000)
	require.NoError(t, err)

	var mu sync.Mutex
	var fired []string
	handler := func(_ context.Context, key string) error {
		mu.Lock()
		defer mu.Unlock()
		fired = append(fired, key)
		return nil
	}

	now := int64(500)
	w := NewWorker(store, "timeout", handler, WithClock(func() int64 { return now }))

	// Not due yet.
	require.NoError(t, w.Sweep(ctx))
	assert.Empty(t, fired)

	now = 1000
	require.NoError(t, w.Sweep(ctx))
	assert.Equal(t, []string{"game-1"}, fired)

	// The member is gone after firing; a second sweep is silent.
	require.NoError(t, w.Sweep(ctx))
	assert.Equal(t, []string{"game-1"}, fired)
}

// Rescheduling invalidates the earlier deadline: exactly one firing,
// at the later due time, never the earlier one.
func TestRescheduleFiresOnceAtLaterTime(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sched := New(store, "timeout")

	first, err := sched.Schedule(ctx, "game-1", 1000)
	require.NoError(t, err)
	second, err := sched.Schedule(ctx, "game-1", 2000)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	var mu sync.Mutex
	var fired []string
	handler := func(_ context.Context, key string) error {
		mu.Lock()
		defer mu.Unlock()
		fired = append(fired, key)
		return nil
	}

	now := int64(1500) // past the first due time, before the second
	w := NewWorker(store, "timeout", handler, WithClock(func() int64 { return now }))
	require.NoError(t, w.Sweep(ctx))
	assert.Empty(t, fired, "the superseded deadline must never fire")

	now = 2000
	require.NoError(t, w.Sweep(ctx))
	assert.Equal(t, []string{"game-1"}, fired)
}

func TestCancelRemovesDeadline(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sched := New(store, "disconnect")

	_, err := sched.Schedule(ctx, "game-1:sente", 1000)
	require.NoError(t, err)
	require.NoError(t, sched.Cancel(ctx, "game-1:sente"))

	var fired int
	w := NewWorker(store, "disconnect",
		func(context.Context, string) error { fired++; return nil },
		WithClock(func() int64 { return 5000 }))
	require.NoError(t, w.Sweep(ctx))
	assert.Zero(t, fired)

	// Cancelling again, or cancelling an unknown key, is a no-op.
	assert.NoError(t, sched.Cancel(ctx, "game-1:sente"))
	assert.NoError(t, sched.Cancel(ctx, "never-scheduled"))
}

// Many workers racing on the same wakeup: the conditional remove lets
// exactly one of them handle each member.
func TestClaimExactlyOnceAcrossWorkers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sched := New(store, "timeout")

	const games = 20
	for i := 0; i < games; i++ {
		_, err := sched.Schedule(ctx, string(rune('a'+i)), 100)
		require.NoError(t, err)
	}

	var mu sync.Mutex
	counts := make(map[string]int)
	handler := func(_ context.Context, key string) error {
		mu.Lock()
		defer mu.Unlock()
		counts[key]++
		return nil
	}

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		w := NewWorker(store, "timeout", handler, WithClock(func() int64 { return 100 }))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Sweep(ctx)
		}()
	}
	wg.Wait()

	require.Len(t, counts, games)
	for key, n := range counts {
		assert.Equal(t, 1, n, "key %s handled more than once", key)
	}
}

func TestWakeReachesSubscribers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ch, stop, err := store.Subscribe(ctx)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, store.Wake(ctx))
	select {
	case <-ch:
	default:
		t.Fatal("wake did not reach the subscriber")
	}
}

func TestMemberKeyRoundTrip(t *testing.T) {
	member := newMember("game-1:gote", 12345)
	assert.Equal(t, "game-1:gote", memberKey(member))
}
